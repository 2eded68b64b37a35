package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{apiKey: "test-key", apiURL: srv.URL, httpClient: srv.Client()}
}

func decodeRequest(t *testing.T, r *http.Request) messageRequest {
	t.Helper()
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return req
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestConverseReturnsTextOnImmediateEndTurn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, messageResponse{
			Content:    []wireContentBlock{{Type: "text", Text: "all done"}},
			StopReason: "end_turn",
		})
	})

	result, err := client.Converse(context.Background(), "sys", "hello", nil, nil, brain.ModelOptions{Model: "claude-x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "all done" {
		t.Fatalf("expected text %q, got %q", "all done", result.Text)
	}
	if len(result.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %v", result.ToolCalls)
	}
}

func TestConverseRunsToolUseLoopThenEndsOnText(t *testing.T) {
	call := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		call++
		switch call {
		case 1:
			req := decodeRequest(t, r)
			if len(req.Messages) != 1 {
				t.Fatalf("expected one seed message on first turn, got %d", len(req.Messages))
			}
			writeJSON(t, w, messageResponse{
				StopReason: "tool_use",
				Content: []wireContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "lookup", Input: map[string]interface{}{"term": "erlang"}},
				},
			})
		case 2:
			req := decodeRequest(t, r)
			if len(req.Messages) != 3 {
				t.Fatalf("expected seed+assistant+tool_result messages by turn 2, got %d", len(req.Messages))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"stop_reason":"end_turn","content":[{"type":"text","text":"erlang is a language"}],"usage":{"input_tokens":10,"output_tokens":5}}`))
		default:
			t.Fatalf("unexpected third call to the model")
		}
	})

	executed := map[string]map[string]interface{}{}
	executor := func(ctx context.Context, name string, input map[string]interface{}) (interface{}, error) {
		executed[name] = input
		return "erlang: a language", nil
	}

	defs := []brain.ToolDefinition{{Name: "lookup", Description: "looks something up"}}
	result, err := client.Converse(context.Background(), "sys", "what is erlang", defs, executor, brain.ModelOptions{Model: "claude-x", MaxTurns: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "erlang is a language" {
		t.Fatalf("expected final text, got %q", result.Text)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0] != "lookup" {
		t.Fatalf("expected one recorded tool call to lookup, got %v", result.ToolCalls)
	}
	if _, ok := executed["lookup"]; !ok {
		t.Fatalf("expected executor to have been invoked for lookup")
	}
	if result.Usage.InputTokens != 10 || result.Usage.OutputTokens != 5 {
		t.Fatalf("expected accumulated usage from both turns, got %+v", result.Usage)
	}
}

func TestConverseExceedingMaxTurnsReturnsMaxTurnsExceeded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, messageResponse{
			StopReason: "tool_use",
			Content: []wireContentBlock{
				{Type: "tool_use", ID: "call-n", Name: "loop", Input: nil},
			},
		})
	})

	executor := func(ctx context.Context, name string, input map[string]interface{}) (interface{}, error) {
		return "again", nil
	}
	defs := []brain.ToolDefinition{{Name: "loop"}}

	_, err := client.Converse(context.Background(), "sys", "start", defs, executor, brain.ModelOptions{Model: "claude-x", MaxTurns: 2})
	if !kudzuerr.IsKind(err, kudzuerr.KindMaxTurnsExceeded) {
		t.Fatalf("expected KindMaxTurnsExceeded, got %v", err)
	}
}

func TestConverseSurfacesAPIErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := client.Converse(context.Background(), "sys", "hello", nil, nil, brain.ModelOptions{Model: "claude-x"})
	if !kudzuerr.IsKind(err, kudzuerr.KindAPIError) {
		t.Fatalf("expected KindAPIError, got %v", err)
	}
}

func TestConverseUnavailableWithoutAPIKey(t *testing.T) {
	client := &Client{apiURL: "http://unused", httpClient: http.DefaultClient}
	_, err := client.Converse(context.Background(), "sys", "hi", nil, nil, brain.ModelOptions{})
	if !kudzuerr.IsKind(err, kudzuerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}
