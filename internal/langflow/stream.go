package langflow

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/metrics"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"
)

var (
	ErrStreamTimeout  = errors.New("stream idle timeout")
	ErrMalformedEvent = errors.New("malformed stream event")
)

// closeEvent is the named event the upstream sends when a flow run is done.
const closeEvent = "close"

// StreamEvent is one decoded token frame from the upstream stream.
type StreamEvent struct {
	Data map[string]any
}

// Stream is a live sequence of flow events. Consume it by ranging over
// Events; the channel closes when the upstream finishes, errors, or goes
// idle past the timeout. Err reports why afterwards, and Close abandons the
// stream early. All of it is safe to call from multiple goroutines.
type Stream struct {
	events chan StreamEvent
	body   io.ReadCloser
	guard  *time.Timer
	done   chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// OpenStream attaches to a stream URL advertised by a run response and
// starts relaying its events.
func (c *Client) OpenStream(ctx context.Context, streamURL string) (*Stream, error) {
	if streamURL == "" {
		return nil, fmt.Errorf("%w: stream url is required", shared.ErrInvalidArgument)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	r.Header.Set("Accept", "text/event-stream")
	r.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.streamHTTP.Do(r)
	if err != nil {
		return nil, errors.Join(shared.ErrUpstreamUnreachable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		res.Body.Close()
		return nil, &shared.RequestError{
			StatusCode: res.StatusCode,
			Err:        errors.New(upstreamErrorMessage(res.StatusCode, data)),
		}
	}

	s := &Stream{
		events: make(chan StreamEvent, 16),
		body:   res.Body,
		done:   make(chan struct{}),
	}
	// The guard fires whenever the upstream stalls between events. Each
	// data frame pushes it back out.
	s.guard = time.AfterFunc(c.idleTimeout, s.timeout)
	metrics.ActiveStreams.Inc()
	go s.consume(c.idleTimeout)
	return s, nil
}

// Events is the stream's event channel. It closes when no more events will
// arrive; check Err then.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Err reports why the stream ended. It is nil for a clean close and while
// events are still flowing.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close abandons the stream. It is idempotent and unblocks the consumer.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		// done closes under mu so timeout cannot observe a live stream
		// after a deliberate close.
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
		s.guard.Stop()
		s.body.Close()
		metrics.ActiveStreams.Dec()
	})
}

// timeout marks the stream idle-expired unless it already terminated. The
// consumer can re-arm a stopped guard mid-frame, so a late fire must not
// touch a stream that is already done.
func (s *Stream) timeout() {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	if s.err == nil {
		s.err = ErrStreamTimeout
	}
	s.mu.Unlock()
	s.Close()
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) consume(idle time.Duration) {
	defer close(s.events)
	defer s.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 64*1024), 512*1024)

	currentEvent := ""
	for scanner.Scan() {
		select {
		case <-s.done:
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			currentEvent = ""
			continue
		}
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			currentEvent = name
			if currentEvent == closeEvent {
				return
			}
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		s.guard.Reset(idle)
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			s.setErr(fmt.Errorf("%w: %v", ErrMalformedEvent, err))
			return
		}
		select {
		case s.events <- StreamEvent{Data: data}:
		case <-s.done:
			return
		}
	}

	// A scanner error after a deliberate close is just the closed body.
	select {
	case <-s.done:
	default:
		if err := scanner.Err(); err != nil {
			s.setErr(err)
		}
	}
}

// Drain abandons the stream and discards anything buffered so the consumer
// goroutine can finish.
func (s *Stream) Drain() {
	s.Close()
	for range s.events {
	}
}
