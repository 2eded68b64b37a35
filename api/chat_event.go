package api

import (
	"encoding/json"

	"github.com/meshrepublic/kudzu/internal/brain"
)

// chatPayload builds the wire payload shared by the SSE and websocket
// chat transports from one brain.ChatEvent.
func chatPayload(ev brain.ChatEvent) chatEventPayload {
	payload := chatEventPayload{
		Status:    ev.Status,
		Tier:      ev.Tier,
		Text:      ev.Text,
		Tools:     ev.Tools,
		ToolCalls: ev.ToolCalls,
		Cost:      ev.Cost,
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
	}
	return payload
}

// encodeChatEvent renders one brain.ChatEvent as an SSE event name plus its
// JSON payload. Marshal errors collapse to an empty object; the event name
// itself still reaches the client.
func encodeChatEvent(ev brain.ChatEvent) (string, string) {
	body, err := json.Marshal(chatPayload(ev))
	if err != nil {
		body = []byte("{}")
	}
	return string(ev.Kind), string(body)
}
