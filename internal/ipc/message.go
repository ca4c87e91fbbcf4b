package ipc

import "encoding/json"

// Envelope is the wire-format wrapper for all IPC messages.
type Envelope struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error,omitempty"`
	HMAC    string          `json:"hmac"`
}

// Message type constants for IPC communication.
const (
	TypeAuthRequest  = "auth_request"
	TypeAuthResponse = "auth_response"

	TypeScreenshot       = "take_screenshot"
	TypeScreenshotResult = "screenshot_result"

	TypeWindowList       = "list_windows"
	TypeWindowListResult = "window_list_result"

	TypePing       = "ping"
	TypePong       = "pong"
	TypeDisconnect = "disconnect"
)

// MaxMessageSize is the maximum size of a JSON IPC message (16MB).
const MaxMessageSize = 16 * 1024 * 1024

// ProtocolVersion is the current IPC protocol version.
const ProtocolVersion = 1

// AuthRequest is the first message a client sends after connecting. Proof is
// hex(HMAC-SHA256(pre-shared key, envelope ID)), so the key itself never
// crosses the pipe.
type AuthRequest struct {
	ProtocolVersion int    `json:"protocolVersion"`
	PID             int    `json:"pid"`
	Proof           string `json:"proof"`
}

// AuthResponse carries the per-session HMAC key on success.
type AuthResponse struct {
	Accepted   bool   `json:"accepted"`
	SessionKey string `json:"sessionKey,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ScreenshotRequest asks the agent to capture one frame. WindowName selects
// a window by title; when empty, Monitor selects an output. Exact requires
// an exact title match instead of a case-insensitive substring.
type ScreenshotRequest struct {
	WindowName string `json:"window_name,omitempty"`
	Monitor    *int   `json:"monitor,omitempty"`
	Exact      bool   `json:"exact,omitempty"`
}

// ScreenshotResponse reports where the capture landed. Status is "success"
// or "error"; Path is set only on success.
type ScreenshotResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// WindowEntry describes one visible window for list_windows.
type WindowEntry struct {
	Handle   uintptr `json:"handle"`
	Title    string  `json:"title"`
	Affinity uint32  `json:"affinity"`
}

// WindowListResponse is the reply to list_windows.
type WindowListResponse struct {
	Windows []WindowEntry `json:"windows"`
}
