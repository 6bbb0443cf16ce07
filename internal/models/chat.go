package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleSystemError Role = "system_error"
)

// ChatMessage represents a single message in a conversation.
// Messages are immutable once appended to a session's history.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// PostMessageRequest is the payload sent to the message endpoint.
type PostMessageRequest struct {
	Message string `json:"message"`
}

// PostMessageResponse carries everything the widget needs to re-render
// after submitting a message. Notice is transient (cooldown warnings)
// and never part of the history.
type PostMessageResponse struct {
	Messages      []ChatMessage `json:"messages"`
	Mode          string        `json:"mode"`
	Notice        string        `json:"notice,omitempty"`
	AnalysisReady bool          `json:"analysis_ready"`
}

// CreateSessionResponse is returned when a new conversation starts.
type CreateSessionResponse struct {
	SessionID   string        `json:"session_id"`
	Token       string        `json:"token"`
	Greeting    ChatMessage   `json:"greeting"`
	Placeholder string        `json:"placeholder"`
	History     []ChatMessage `json:"history"`
}

// SessionStateResponse is the full renderable state of a session.
type SessionStateResponse struct {
	SessionID     string        `json:"session_id"`
	Mode          string        `json:"mode"`
	History       []ChatMessage `json:"history"`
	PendingURL    string        `json:"pending_url,omitempty"`
	AnalysisReady bool          `json:"analysis_ready"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSTypeChatMessage   = "chat_message"
	WSTypeAnalysisReady = "analysis_ready"
)

// API Error response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
