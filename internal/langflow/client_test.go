package langflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func validRequest(stream bool) FlowRequest {
	return FlowRequest{
		FlowID:      "flow-1",
		FlowGroupID: "group-1",
		InputValue:  "rust servers",
		Stream:      stream,
	}
}

func runResponse(t *testing.T, streamURL, text string) []byte {
	t.Helper()
	inner := map[string]any{
		"results": map[string]any{
			"message": map[string]any{"text": text},
		},
	}
	if streamURL != "" {
		inner["artifacts"] = map[string]any{"stream_url": streamURL}
	}
	body, err := json.Marshal(map[string]any{
		"outputs": []any{
			map[string]any{"outputs": []any{inner}},
		},
	})
	if err != nil {
		t.Fatalf("marshal run response: %v", err)
	}
	return body
}

func TestInitiateSessionValidation(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()
	client := NewClient(server.URL, "tok", testLogger())

	tests := []struct {
		name string
		req  FlowRequest
	}{
		{"missing flow id", FlowRequest{FlowGroupID: "g", InputValue: "v"}},
		{"missing flow group id", FlowRequest{FlowID: "f", InputValue: "v"}},
		{"missing input value", FlowRequest{FlowID: "f", FlowGroupID: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.InitiateSession(context.Background(), tt.req)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument error, got %v", err)
			}
		})
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls.Load())
	}
}

func TestInitiateSessionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/lf/group-1/api/v1/run/flow-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("stream"); got != "false" {
			t.Errorf("expected stream=false, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var payload runPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.InputValue != "rust servers" {
			t.Errorf("unexpected input value %q", payload.InputValue)
		}
		if payload.InputType != DefaultInputType || payload.OutputType != DefaultOutputType {
			t.Errorf("expected default io types, got %q/%q", payload.InputType, payload.OutputType)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(runResponse(t, "", "insight text"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	resp, err := client.InitiateSession(context.Background(), validRequest(false))
	if err != nil {
		t.Fatalf("initiate session: %v", err)
	}
	text, ok := MessageText(resp)
	if !ok || text != "insight text" {
		t.Fatalf("expected message text, got %q ok=%t", text, ok)
	}
}

func TestInitiateSessionUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"detail": "flow is warming up"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	_, err := client.InitiateSession(context.Background(), validRequest(false))

	var reqErr *shared.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected request error, got %v", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", reqErr.StatusCode)
	}
	if reqErr.Err.Error() != "flow is warming up" {
		t.Fatalf("unexpected upstream message %q", reqErr.Err.Error())
	}
}

func TestInitiateSessionInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>definitely not json</html>")
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	_, err := client.InitiateSession(context.Background(), validRequest(false))
	if !errors.Is(err, shared.ErrInvalidResponseFormat) {
		t.Fatalf("expected invalid response format error, got %v", err)
	}
}

func TestInitiateSessionUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	_, err := client.InitiateSession(context.Background(), validRequest(false))
	if !errors.Is(err, shared.ErrUpstreamUnreachable) {
		t.Fatalf("expected upstream unreachable error, got %v", err)
	}
}

func TestInitiateSessionInjectedClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger(), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := client.InitiateSession(context.Background(), validRequest(false))
	if !errors.Is(err, shared.ErrUpstreamUnreachable) {
		t.Fatalf("expected upstream unreachable error, got %v", err)
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail key", 503, `{"detail": "flow is warming up"}`, "flow is warming up"},
		{"error key", 500, `{"error": "boom"}`, "boom"},
		{"message key", 400, `{"message": "bad tweak"}`, "bad tweak"},
		{"unknown json", 500, `{"code": 12}`, `{"code": 12}`},
		{"not json", 502, "<html>bad gateway</html>", "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upstreamErrorMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunFlowSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(runResponse(t, "", "insight text"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	result, err := client.RunFlow(context.Background(), validRequest(false))
	if err != nil {
		t.Fatalf("run flow: %v", err)
	}
	if result.Stream != nil {
		t.Fatal("expected no stream on synchronous run")
	}
	if text, ok := MessageText(result.Response); !ok || text != "insight text" {
		t.Fatalf("expected message text, got %q ok=%t", text, ok)
	}
}

func TestRunFlowStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lf/group-1/api/v1/run/flow-1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("stream"); got != "true" {
			t.Errorf("expected stream=true, got %q", got)
		}
		w.Write(runResponse(t, "/api/v1/stream/abc", ""))
	})
	mux.HandleFunc("GET /api/v1/stream/abc", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("unexpected accept header %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\ndata: {\"chunk\": \"ru\"}\n\n")
		fmt.Fprint(w, "event: message\ndata: {\"chunk\": \"st\"}\n\n")
		fmt.Fprint(w, "event: close\ndata: {}\n\n")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	result, err := client.RunFlow(context.Background(), validRequest(true))
	if err != nil {
		t.Fatalf("run flow: %v", err)
	}
	if result.Stream == nil {
		t.Fatal("expected an attached stream")
	}
	defer result.Stream.Close()

	var chunks []string
	for ev := range result.Stream.Events() {
		chunks = append(chunks, shared.GetString(ev.Data, "chunk"))
	}
	if err := result.Stream.Err(); err != nil {
		t.Fatalf("stream ended with error: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "ru" || chunks[1] != "st" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestRunFlowStreamWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(runResponse(t, "", "insight text"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", testLogger())
	result, err := client.RunFlow(context.Background(), validRequest(true))
	if err != nil {
		t.Fatalf("run flow: %v", err)
	}
	if result.Stream != nil {
		t.Fatal("expected no stream when the response advertises none")
	}
}

func TestStreamURLExtraction(t *testing.T) {
	tests := []struct {
		name string
		resp map[string]any
		want string
	}{
		{"nil response", nil, ""},
		{"empty outputs", map[string]any{"outputs": []any{}}, ""},
		{"missing artifacts", map[string]any{
			"outputs": []any{map[string]any{"outputs": []any{map[string]any{}}}},
		}, ""},
		{"present", map[string]any{
			"outputs": []any{map[string]any{"outputs": []any{map[string]any{
				"artifacts": map[string]any{"stream_url": "/api/v1/stream/abc"},
			}}}},
		}, "/api/v1/stream/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamURL(tt.resp); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
