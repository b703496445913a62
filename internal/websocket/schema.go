package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionToolCall invokes a phase-gated assistant tool.
	ActionToolCall Action = "tool_call"
	// ActionTiming reports a turn lifecycle signal (tts/speech timestamps).
	ActionTiming Action = "timing"
	// ActionResume asks to reconnect to an interrupted session.
	ActionResume Action = "resume"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ToolCallRequest is an inbound assistant action: tool name, free-form
// arguments, and the session the call is scoped to.
type ToolCallRequest struct {
	Action    Action          `json:"action"`
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args"`
	SessionID string          `json:"session_id"`
}

// TimingRequest reports one lifecycle signal for the current turn. The
// client timestamp is reference-only; the server assigns the authoritative
// timestamp on receipt.
type TimingRequest struct {
	Action            Action            `json:"action"`
	SessionID         string            `json:"session_id"`
	SessionQuestionID string            `json:"session_question_id"`
	EventType         string            `json:"event_type"`
	ClientTimestampMs *int64            `json:"client_timestamp_ms,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ResumeRequest asks to continue an interrupted session.
type ResumeRequest struct {
	Action    Action `json:"action"`
	SessionID string `json:"session_id"`
}

// ─── Responses (Server → Client) ────────────────────────────────────

// Timing carries the server-side timing of one processed action.
type Timing struct {
	ServerTimestamp  string `json:"server_timestamp"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// ErrorBody is the failure payload of a response envelope.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Envelope is the uniform response for every inbound action.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Timing  *Timing     `json:"timing,omitempty"`
}
