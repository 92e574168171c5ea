// Package transport carries audio and control events between a caller and
// the orchestrator. Two wire formats exist — WebRTC for the target path and
// WebSocket for fallback and testing — behind one capability surface so the
// orchestrator never knows which one it is talking to.
package transport

import (
	"context"

	"github.com/goldvox/agentcore/pkg/audio"
)

// Transport is the one capability both adapters expose. send_audio/recv_audio
// move PCM; send_event/recv_event move the control-channel JSON protocol.
type Transport interface {
	SendAudio(frame *audio.Frame) error
	RecvAudio() <-chan *audio.Frame

	SendEvent(evt Event) error
	RecvEvent() <-chan Event

	Close() error
}

// EventType enumerates the control-channel protocol in both directions.
type EventType string

const (
	// Server to client.
	EventSessionInfo    EventType = "session_info"
	EventStatus         EventType = "status"
	EventTranscript     EventType = "transcript"
	EventResponse       EventType = "response"
	EventResponseAudio  EventType = "response_audio"
	EventError          EventType = "error"
	EventPong           EventType = "pong"

	// Client to server.
	EventText       EventType = "text"
	EventPing       EventType = "ping"
	EventEndSession EventType = "end_session"
)

// Event is the envelope for every control-channel message. Fields not used
// by a given Type are left zero; this mirrors the teacher's flat Signal/
// Command shape rather than a sum type per event.
type Event struct {
	Type EventType `json:"type"`

	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Text      string `json:"text,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`

	// AudioData carries base64-encoded PCM for the response_audio fallback
	// event, used only when the WebSocket adapter has no separate audio
	// path (it always does here, but the field exists per protocol).
	AudioData string `json:"data,omitempty"`
}

// Authenticator verifies an inbound connection before any audio or event is
// accepted. CORS/auth are out of scope for the core per the transport
// contract; this hook lets a caller wire one in without touching either
// adapter's internals. A nil Authenticator accepts every connection.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (sessionID string, err error)
}

// AllowAllAuthenticator accepts every connection, assigning the given token
// (or "anonymous", if empty) as the session ID. Used by tests and by
// deployments that delegate auth to a layer in front of this process.
type AllowAllAuthenticator struct{}

func (AllowAllAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		token = "anonymous"
	}
	return token, nil
}
