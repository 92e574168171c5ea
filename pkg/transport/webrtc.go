package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/goldvox/agentcore/pkg/audio"
)

// OpusCodec adapts between the fixed-stride float32 PCM frames used
// throughout the pipeline and the Opus payloads carried over RTP. No Opus
// binding ships in this module (none of the retrieved example repos import
// one); WebRTCTransport takes the codec as a dependency so a real encoder
// can be wired in without touching the transport. See DESIGN.md.
type OpusCodec interface {
	Encode(samples []float32) ([]byte, error)
	Decode(payload []byte) ([]float32, error)
}

// WebRTCTransport is the target-path Transport: a direct peer connection
// (no SFU) carrying one audio track each way plus one data channel for the
// control-channel Event protocol. Grounded on the teacher's pkg/job/room.go
// event-channel pattern, generalized from a LiveKit room join to a bare
// pion/webrtc peer connection since the spec calls for direct peering.
type WebRTCTransport struct {
	pc    *webrtc.PeerConnection
	codec OpusCodec

	outTrack *webrtc.TrackLocalStaticSample

	audioOut chan *audio.Frame
	eventOut chan Event

	dc   *webrtc.DataChannel
	dcMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}

	logger *slog.Logger
}

// WebRTCConfig configures a new peer connection.
type WebRTCConfig struct {
	ICEServers []webrtc.ICEServer
	Codec      OpusCodec
	Logger     *slog.Logger
}

// NewWebRTCTransport builds an unconnected peer connection, wires the
// control data channel and outbound audio track, and starts listening for
// the remote's inbound track and data channel. Call SetRemoteOffer then
// LocalAnswer to complete the handshake.
func NewWebRTCTransport(cfg WebRTCConfig) (*WebRTCTransport, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("transport: webrtc requires an OpusCodec")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("transport: register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("transport: new peer connection: %w", err)
	}

	outTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"agent-audio", "agentcore")
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: new local track: %w", err)
	}
	if _, err := pc.AddTrack(outTrack); err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: add track: %w", err)
	}

	t := &WebRTCTransport{
		pc:       pc,
		codec:    cfg.Codec,
		outTrack: outTrack,
		audioOut: make(chan *audio.Frame, 64),
		eventOut: make(chan Event, 32),
		done:     make(chan struct{}),
		logger:   logger,
	}

	pc.OnTrack(t.onRemoteTrack)
	pc.OnDataChannel(t.onDataChannel)

	dc, err := pc.CreateDataChannel("control", nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: create data channel: %w", err)
	}
	t.bindDataChannel(dc)

	return t, nil
}

// SetRemoteOffer applies the caller's SDP offer.
func (t *WebRTCTransport) SetRemoteOffer(sdp string) error {
	return t.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
}

// LocalAnswer creates, sets, and returns the local SDP answer to send back
// to the caller.
func (t *WebRTCTransport) LocalAnswer() (string, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("transport: create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("transport: set local description: %w", err)
	}
	return answer.SDP, nil
}

// AddICECandidate feeds a trickled remote ICE candidate.
func (t *WebRTCTransport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

func (t *WebRTCTransport) onDataChannel(dc *webrtc.DataChannel) {
	// The answering side's data channel arrives here instead of being
	// created locally. Each bind replaces the previous channel, so the
	// last one to arrive is used.
	t.bindDataChannel(dc)
}

func (t *WebRTCTransport) bindDataChannel(dc *webrtc.DataChannel) {
	t.dcMu.Lock()
	t.dc = dc
	t.dcMu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			t.logger.Warn("malformed control event", slog.Any("error", err))
			return
		}
		if evt.Type == EventPing {
			_ = t.SendEvent(Event{Type: EventPong})
			return
		}
		select {
		case t.eventOut <- evt:
		case <-t.done:
		default:
			t.logger.Warn("event channel full, dropping event")
		}
	})
}

func (t *WebRTCTransport) onRemoteTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		samples, err := t.codec.Decode(pkt.Payload)
		if err != nil {
			t.logger.Warn("opus decode failed", slog.Any("error", err))
			continue
		}
		for _, frame := range splitIntoFrames(samples, pkt.Timestamp) {
			select {
			case t.audioOut <- frame:
			case <-t.done:
				return
			default:
				t.logger.Warn("audio channel full, dropping frame")
			}
		}
	}
}

// splitIntoFrames re-strides a decoded Opus packet's samples (typically
// 20ms at 48kHz, already resampled to 16kHz by the codec) into the
// pipeline's fixed 10ms frames.
func splitIntoFrames(samples []float32, ts uint32) []*audio.Frame {
	var frames []*audio.Frame
	captureTS := int64(ts)
	for len(samples) >= audio.FrameSamples {
		f, err := audio.NewFrame(samples[:audio.FrameSamples], captureTS)
		if err == nil {
			frames = append(frames, f)
		}
		samples = samples[audio.FrameSamples:]
	}
	return frames
}

func (t *WebRTCTransport) SendAudio(frame *audio.Frame) error {
	payload, err := t.codec.Encode(frame.Samples[:])
	if err != nil {
		return fmt.Errorf("transport: opus encode: %w", err)
	}
	return t.outTrack.WriteSample(media.Sample{Data: payload, Duration: audio.FrameDurationMs * time.Millisecond})
}

func (t *WebRTCTransport) RecvAudio() <-chan *audio.Frame {
	return t.audioOut
}

func (t *WebRTCTransport) SendEvent(evt Event) error {
	t.dcMu.Lock()
	dc := t.dc
	t.dcMu.Unlock()
	if dc == nil {
		return fmt.Errorf("transport: data channel not established")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("transport: encode event: %w", err)
	}
	return dc.Send(data)
}

func (t *WebRTCTransport) RecvEvent() <-chan Event {
	return t.eventOut
}

func (t *WebRTCTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.pc.Close()
	})
	return err
}
