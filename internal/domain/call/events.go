// Package call consumes the voice platform's session events and drives the
// review conversation: speaker attribution, tool-call dispatch, silence
// monitoring and the transcript log. The voice transport itself is owned by
// the external SDK; only its event envelope is modeled here.
package call

import "encoding/json"

// Event types delivered by the voice platform.
const (
	EventCallStart   = "call-start"
	EventCallEnd     = "call-end"
	EventSpeechStart = "speech-start"
	EventSpeechEnd   = "speech-end"
	EventMessage     = "message"
	EventError       = "error"
)

// Message sub-types.
const (
	MessageTranscript = "transcript"
	MessageToolCalls  = "tool-calls"
)

const (
	TranscriptPartial = "partial"
	TranscriptFinal   = "final"
)

const RoleAssistant = "assistant"

// Event is one envelope from the voice platform webhook.
type Event struct {
	Type           string     `json:"type"`
	MessageType    string     `json:"messageType,omitempty"`
	Role           string     `json:"role,omitempty"`
	TranscriptType string     `json:"transcriptType,omitempty"`
	Transcript     string     `json:"transcript,omitempty"`
	ChannelID      string     `json:"channelId,omitempty"`
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// ToolCall is a structured function-call request from the facilitator.
// Arguments arrive as loose JSON; each handler validates what it needs.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Args decodes the call's arguments into a string-keyed map. Malformed
// arguments yield an empty map, not an error; the dispatcher acks the
// problem conversationally.
func (tc ToolCall) Args() map[string]any {
	args := map[string]any{}
	if len(tc.Arguments) == 0 {
		return args
	}
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// ToolOutput is the acknowledgment sent back on a tool call's correlation id.
type ToolOutput struct {
	ToolCallID string `json:"toolCallId"`
	Output     string `json:"output"`
}

// ChatMessage is an injected conversational message (role + content).
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Notice is a user-visible notification raised outside the conversation.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Emitter is the channel back to the voice platform and the user interface.
// The HTTP transport implements it by collecting emissions into the webhook
// response.
type Emitter interface {
	EmitToolOutput(out ToolOutput)
	EmitMessage(msg ChatMessage)
	Notify(level, text string)
	// RequestEndCall asks the platform to terminate the call after the
	// facilitator's closing words are spoken.
	RequestEndCall()
}
