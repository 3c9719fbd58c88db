// Package langflow is a client for the Langflow run API: it starts flow
// executions and consumes the server-sent event streams they advertise.
package langflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"go.uber.org/zap"
)

const (
	DefaultInputType  = "chat"
	DefaultOutputType = "chat"
)

// FlowRequest describes one flow invocation. Tweaks override the behavior of
// individual upstream components, keyed by component identifier.
type FlowRequest struct {
	FlowID      string
	FlowGroupID string
	InputValue  string
	InputType   string
	OutputType  string
	Stream      bool
	Tweaks      map[string]map[string]any
}

func (r FlowRequest) validate() error {
	switch {
	case r.FlowID == "":
		return fmt.Errorf("%w: flow id is required", shared.ErrInvalidArgument)
	case r.FlowGroupID == "":
		return fmt.Errorf("%w: flow group id is required", shared.ErrInvalidArgument)
	case r.InputValue == "":
		return fmt.Errorf("%w: input value is required", shared.ErrInvalidArgument)
	}
	return nil
}

type runPayload struct {
	InputValue string                    `json:"input_value"`
	InputType  string                    `json:"input_type"`
	OutputType string                    `json:"output_type"`
	Tweaks     map[string]map[string]any `json:"tweaks"`
}

// RunResult is what RunFlow hands back: the initiate response, plus the live
// event stream when one was requested and the upstream advertised one.
type RunResult struct {
	Response map[string]any
	Stream   *Stream
}

type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	streamHTTP  *http.Client
	idleTimeout time.Duration
	log         *zap.SugaredLogger
}

type Option func(*Client)

// WithHTTPClient overrides the client used for run requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithIdleTimeout overrides the stream idle-timeout window.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

func NewClient(baseURL, token string, log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: shared.DefaultRequestTimeout},
		// Streams outlive any sane whole-request deadline; the idle guard
		// bounds them instead.
		streamHTTP: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 2 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 2 * time.Second,
			},
		},
		idleTimeout: shared.DefaultStreamIdleTimeout,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitiateSession starts a flow run and returns the upstream response
// decoded as loose JSON. Beyond the stream URL and the message text the
// response shape is treated as opaque.
func (c *Client) InitiateSession(ctx context.Context, req FlowRequest) (map[string]any, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.InputType == "" {
		req.InputType = DefaultInputType
	}
	if req.OutputType == "" {
		req.OutputType = DefaultOutputType
	}

	endpoint := fmt.Sprintf("%s/lf/%s/api/v1/run/%s?stream=%t",
		c.baseURL, url.PathEscape(req.FlowGroupID), url.PathEscape(req.FlowID), req.Stream)

	body, err := json.Marshal(runPayload{
		InputValue: req.InputValue,
		InputType:  req.InputType,
		OutputType: req.OutputType,
		Tweaks:     req.Tweaks,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run payload: %w", err)
	}

	rctx, cancel := context.WithTimeout(ctx, shared.DefaultRequestTimeout)
	defer cancel()
	r, err := http.NewRequestWithContext(rctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(r)
	if err != nil {
		return nil, errors.Join(shared.ErrUpstreamUnreachable, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.log.Warnw("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Join(shared.ErrUpstreamUnreachable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &shared.RequestError{
			StatusCode: res.StatusCode,
			Err:        errors.New(upstreamErrorMessage(res.StatusCode, data)),
		}
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Join(shared.ErrInvalidResponseFormat, err)
	}
	return out, nil
}

// RunFlow initiates a session and, when streaming was requested and the
// response advertises a stream URL, attaches to it. Synchronous runs come
// back with a nil Stream.
func (c *Client) RunFlow(ctx context.Context, req FlowRequest) (*RunResult, error) {
	resp, err := c.InitiateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("run flow: %w", err)
	}

	result := &RunResult{Response: resp}
	if !req.Stream {
		return result, nil
	}

	streamURL := StreamURL(resp)
	if streamURL == "" {
		return result, nil
	}
	stream, err := c.OpenStream(ctx, c.resolveStreamURL(streamURL))
	if err != nil {
		return nil, fmt.Errorf("run flow: %w", err)
	}
	result.Stream = stream
	return result, nil
}

// resolveStreamURL expands the relative stream paths the upstream hands out.
func (c *Client) resolveStreamURL(streamURL string) string {
	if strings.HasPrefix(streamURL, "http://") || strings.HasPrefix(streamURL, "https://") {
		return streamURL
	}
	return c.baseURL + "/" + strings.TrimLeft(streamURL, "/")
}

// StreamURL returns the push-event URL advertised in a run response, or ""
// when the response carries none.
func StreamURL(resp map[string]any) string {
	first := shared.GetFirstMap(shared.GetSlice(resp, "outputs"))
	inner := shared.GetFirstMap(shared.GetSlice(first, "outputs"))
	return shared.GetString(shared.GetMap(inner, "artifacts"), "stream_url")
}

// MessageText returns the text payload of a synchronous run response. ok is
// false when the nested path is absent.
func MessageText(resp map[string]any) (string, bool) {
	first := shared.GetFirstMap(shared.GetSlice(resp, "outputs"))
	inner := shared.GetFirstMap(shared.GetSlice(first, "outputs"))
	message := shared.GetMap(shared.GetMap(inner, "results"), "message")
	if message == nil {
		return "", false
	}
	text, ok := message["text"].(string)
	return text, ok
}

func upstreamErrorMessage(status int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg := shared.GetString(parsed, key); msg != "" {
				return msg
			}
		}
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			return trimmed
		}
	}
	return http.StatusText(status)
}
