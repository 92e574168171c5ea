package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goldvox/agentcore/pkg/audio"
)

var errAuthRejected = errors.New("rejected")

func startTestServer(t *testing.T, auth Authenticator) (*httptest.Server, chan *WebSocketTransport) {
	t.Helper()
	serverConns := make(chan *WebSocketTransport, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := AcceptWebSocket(w, r, auth, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, serverConns
}

func TestWebSocketTransportCarriesAudioAndEvents(t *testing.T) {
	srv, serverConns := startTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=abc"

	client, err := DialWebSocket(context.Background(), wsURL, "", nil)
	if err != nil {
		t.Fatalf("DialWebSocket() error = %v", err)
	}
	defer client.Close()

	server := <-serverConns
	defer server.Close()

	samples := make([]float32, audio.FrameSamples)
	for i := range samples {
		samples[i] = float32(i) / float32(audio.FrameSamples)
	}
	frame, err := audio.NewFrame(samples, 99)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}

	if err := client.SendAudio(frame); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}

	select {
	case got := <-server.RecvAudio():
		if got.CaptureTS != 99 {
			t.Errorf("CaptureTS = %d, want 99", got.CaptureTS)
		}
		if got.Samples[1] != frame.Samples[1] {
			t.Errorf("Samples[1] = %v, want %v", got.Samples[1], frame.Samples[1])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audio frame on server side")
	}

	if err := server.SendEvent(Event{Type: EventTranscript, Text: "namaste", IsFinal: true}); err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}

	select {
	case got := <-client.RecvEvent():
		if got.Type != EventTranscript || got.Text != "namaste" || !got.IsFinal {
			t.Errorf("got event %+v, want transcript/namaste/final", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event on client side")
	}
}

func TestWebSocketTransportRespondsToPingWithPong(t *testing.T) {
	srv, serverConns := startTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=abc"

	client, err := DialWebSocket(context.Background(), wsURL, "", nil)
	if err != nil {
		t.Fatalf("DialWebSocket() error = %v", err)
	}
	defer client.Close()
	server := <-serverConns
	defer server.Close()

	if err := client.SendEvent(Event{Type: EventPing}); err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}

	select {
	case got := <-client.RecvEvent():
		if got.Type != EventPong {
			t.Errorf("got event type %v, want pong", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pong")
	}
}

type rejectingAuthenticator struct{}

func (rejectingAuthenticator) Authenticate(_ context.Context, _ string) (string, error) {
	return "", errAuthRejected
}

func TestAcceptWebSocketRejectsFailedAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := AcceptWebSocket(w, r, rejectingAuthenticator{}, nil); err == nil {
			t.Error("expected AcceptWebSocket to fail auth")
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, err := DialWebSocket(context.Background(), wsURL, "", nil)
	if err == nil {
		t.Error("expected client dial to fail when server rejects the upgrade")
	}
}
