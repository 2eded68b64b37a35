package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// Client is the Tier 3 collaborator: an
// Anthropic-Messages-API-shaped client running a bounded tool-use loop, a
// multi-turn Converse that keeps exchanging tool_use/tool_result blocks
// with the model until it reaches end_turn or the turn budget runs out.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient builds a client reading its API key from the environment.
func NewClient() *Client {
	return &Client{
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		apiURL:     "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{},
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

type messageRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []wireMessage   `json:"messages"`
	Tools     []wireToolInput `json:"tools,omitempty"`
}

type wireToolInput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// wireContentBlock covers the three block shapes this loop ever sends or
// receives: plain text, an assistant tool_use call, and a user tool_result.
type wireContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

type messageResponse struct {
	Content    []wireContentBlock `json:"content"`
	StopReason string              `json:"stop_reason"`
	Usage      struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const defaultMaxTurns = 8
const defaultMaxTokens = 4096

// Converse runs the bounded tool-use loop: send the conversation so far,
// and if the model stops on tool_use, invoke every requested tool call
// concurrently and feed the results back as the next turn, until it stops
// on end_turn or the turn budget is exhausted.
func (c *Client) Converse(ctx context.Context, systemPrompt, message string, toolDefs []brain.ToolDefinition, executor brain.ToolExecutor, opts brain.ModelOptions) (brain.ModelTurnResult, error) {
	if !c.Available() {
		return brain.ModelTurnResult{}, kudzuerr.New(kudzuerr.KindInvalidInput, "anthropic client not configured (missing ANTHROPIC_API_KEY)")
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	wireTools := make([]wireToolInput, 0, len(toolDefs))
	for _, d := range toolDefs {
		wireTools = append(wireTools, wireToolInput{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}

	messages := []wireMessage{{Role: "user", Content: message}}
	result := brain.ModelTurnResult{}

	for turn := 0; turn < maxTurns; turn++ {
		req := messageRequest{
			Model:     opts.Model,
			MaxTokens: maxTokens,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     wireTools,
		}

		resp, err := c.send(ctx, req)
		if err != nil {
			return result, err
		}

		result.Usage = result.Usage.Add(brain.ModelUsage{
			InputTokens:       resp.Usage.InputTokens,
			OutputTokens:      resp.Usage.OutputTokens,
			CachedInputTokens: resp.Usage.CacheReadInputTokens,
		})

		var text string
		var toolUses []wireContentBlock
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.Text
			case "tool_use":
				toolUses = append(toolUses, block)
			}
		}

		if resp.StopReason != "tool_use" || len(toolUses) == 0 {
			result.Text = text
			return result, nil
		}

		assistantContent := make([]wireContentBlock, 0, len(toolUses))
		for _, tu := range toolUses {
			assistantContent = append(assistantContent, tu)
			result.ToolCalls = append(result.ToolCalls, tu.Name)
		}
		messages = append(messages, wireMessage{Role: "assistant", Content: assistantContent})

		toolResults, err := dispatchToolCalls(ctx, toolUses, executor)
		if err != nil {
			return result, err
		}
		messages = append(messages, wireMessage{Role: "user", Content: toolResults})
	}

	return result, kudzuerr.New(kudzuerr.KindMaxTurnsExceeded, "conversation exceeded %d turns without reaching end_turn", maxTurns)
}

// dispatchToolCalls invokes executor for every requested tool call
// concurrently, preserving the tool_use block order in the returned
// tool_result blocks regardless of completion order.
func dispatchToolCalls(ctx context.Context, calls []wireContentBlock, executor brain.ToolExecutor) ([]wireContentBlock, error) {
	results := make([]wireContentBlock, len(calls))
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			out, err := executor(gctx, call.Name, call.Input)
			block := wireContentBlock{Type: "tool_result", ToolUseID: call.ID}
			if err != nil {
				block.IsError = true
				block.Content = err.Error()
			} else {
				block.Content = fmt.Sprintf("%v", out)
			}
			results[i] = block
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindAPIError, err, "tool dispatch")
	}
	return results, nil
}

func (c *Client) send(ctx context.Context, req messageRequest) (messageResponse, error) {
	var out messageResponse

	body, err := json.Marshal(req)
	if err != nil {
		return out, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal anthropic request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return out, kudzuerr.Wrap(kudzuerr.KindHTTPError, err, "build anthropic request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, kudzuerr.Wrap(kudzuerr.KindHTTPError, err, "send anthropic request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, kudzuerr.Wrap(kudzuerr.KindHTTPError, err, "read anthropic response")
	}

	if resp.StatusCode != http.StatusOK {
		return out, kudzuerr.APIError(resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, &out); err != nil {
		return out, kudzuerr.Wrap(kudzuerr.KindDecodeError, err, "decode anthropic response")
	}
	if out.Error != nil {
		return out, kudzuerr.New(kudzuerr.KindAPIError, "anthropic error: %s: %s", out.Error.Type, out.Error.Message)
	}
	return out, nil
}
