// Package fake provides a non-Opus OpusCodec stand-in for tests and local
// development, where pulling in a cgo-backed Opus encoder is undesirable.
package fake

import (
	"encoding/binary"
	"math"
)

// Codec implements transport.OpusCodec with a raw little-endian float32
// passthrough. It produces valid RTP payloads for exercising the transport
// plumbing end to end, but is not interoperable with a real Opus peer.
type Codec struct{}

func New() Codec { return Codec{} }

func (Codec) Encode(samples []float32) ([]byte, error) {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf, nil
}

func (Codec) Decode(payload []byte) ([]float32, error) {
	n := len(payload) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return samples, nil
}
