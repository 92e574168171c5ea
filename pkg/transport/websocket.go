package transport

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goldvox/agentcore/pkg/audio"
)

// wireFrame is the framing for audio over the WebSocket connection: one
// binary message per 10ms frame, holding a JSON-encoded {ts, samples}
// object with the capture timestamp and float32 samples. Binary messages
// carry audio only, kept apart from the control-channel Event JSON sent as
// text messages.
type wireFrame struct {
	CaptureTS int64     `json:"ts"`
	Samples   []float32 `json:"samples"`
}

// WebSocketTransport is the fallback/testing Transport, grounded on the
// teacher's WebSocketClient (internal/worker/websocket.go) generalized from
// a one-directional signal/command client into a full duplex Transport with
// separate audio and event channels.
type WebSocketTransport struct {
	conn   *websocket.Conn
	logger *slog.Logger

	audioOut chan *audio.Frame
	eventOut chan Event

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// upgrader is shared across connections; CheckOrigin is left permissive
// deliberately — CORS/auth are out of scope per the transport contract and
// are the Authenticator hook's job, not the upgrader's.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AcceptWebSocket upgrades an inbound HTTP request to a WebSocket Transport,
// running the Authenticator first and rejecting the upgrade on failure.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request, auth Authenticator, logger *slog.Logger) (*WebSocketTransport, string, error) {
	if auth == nil {
		auth = AllowAllAuthenticator{}
	}
	token := r.URL.Query().Get("token")
	sessionID, err := auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, "", fmt.Errorf("transport: authentication failed: %w", err)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, "", fmt.Errorf("transport: upgrade failed: %w", err)
	}

	t := newWebSocketTransport(conn, logger)
	return t, sessionID, nil
}

// DialWebSocket connects outbound as a client, used by integration tests and
// by a thin CLI client exercising the same wire protocol.
func DialWebSocket(ctx context.Context, url, token string, logger *slog.Logger) (*WebSocketTransport, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("transport: dial failed: %w", err)
	}
	return newWebSocketTransport(conn, logger), nil
}

func newWebSocketTransport(conn *websocket.Conn, logger *slog.Logger) *WebSocketTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &WebSocketTransport{
		conn:     conn,
		logger:   logger,
		audioOut: make(chan *audio.Frame, 64),
		eventOut: make(chan Event, 32),
		done:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// readLoop demultiplexes the connection: binary messages are audio frames,
// text messages are control-channel JSON events.
func (t *WebSocketTransport) readLoop() {
	defer close(t.audioOut)
	defer close(t.eventOut)

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.logger.Debug("websocket read ended", slog.Any("error", err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			var wf wireFrame
			if err := json.Unmarshal(data, &wf); err != nil {
				t.logger.Warn("malformed audio frame", slog.Any("error", err))
				continue
			}
			frame, err := audio.NewFrame(wf.Samples, wf.CaptureTS)
			if err != nil {
				t.logger.Warn("malformed audio frame", slog.Any("error", err))
				continue
			}
			select {
			case t.audioOut <- frame:
			case <-t.done:
				return
			default:
				t.logger.Warn("audio channel full, dropping frame")
			}
		case websocket.TextMessage:
			var evt Event
			if err := json.Unmarshal(data, &evt); err != nil {
				t.logger.Warn("malformed event", slog.Any("error", err))
				continue
			}
			if evt.Type == EventPing {
				_ = t.SendEvent(Event{Type: EventPong})
				continue
			}
			select {
			case t.eventOut <- evt:
			case <-t.done:
				return
			default:
				t.logger.Warn("event channel full, dropping event")
			}
		}
	}
}

func (t *WebSocketTransport) SendAudio(frame *audio.Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	wf := wireFrame{CaptureTS: frame.CaptureTS, Samples: frame.Samples[:]}
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("transport: encode audio frame: %w", err)
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (t *WebSocketTransport) RecvAudio() <-chan *audio.Frame {
	return t.audioOut
}

func (t *WebSocketTransport) SendEvent(evt Event) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(evt)
}

func (t *WebSocketTransport) RecvEvent() <-chan Event {
	return t.eventOut
}

func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

// SendResponseAudioFallback emits PCM as a base64 response_audio event
// instead of the binary frame channel, for clients that only implement the
// JSON control channel (the fallback path the protocol names explicitly).
func (t *WebSocketTransport) SendResponseAudioFallback(samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return t.SendEvent(Event{
		Type:      EventResponseAudio,
		AudioData: base64.StdEncoding.EncodeToString(buf),
	})
}
