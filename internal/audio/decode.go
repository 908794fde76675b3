package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Narration payload format. This is fixed by the speech provider contract
// and never inferred from the data.
const (
	SampleRate     = 24000
	Channels       = 1
	bytesPerSample = 2
)

// Decoded is a mono PCM buffer normalized to [-1, 1].
type Decoded struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames is the number of sample frames.
func (d *Decoded) Frames() int {
	if d == nil || d.Channels == 0 {
		return 0
	}
	return len(d.Samples) / d.Channels
}

// Duration is frames / sample rate, in seconds.
func (d *Decoded) Duration() float64 {
	if d == nil || d.SampleRate == 0 {
		return 0
	}
	return float64(d.Frames()) / float64(d.SampleRate)
}

// DecodeError reports a malformed narration payload.
type DecodeError struct {
	Reason string
	Len    int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode audio (%d bytes): %s: %v", e.Len, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode audio (%d bytes): %s", e.Len, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode turns a base64 payload of 16-bit signed little-endian mono PCM at
// 24 kHz into normalized samples. A payload with an odd byte count is
// rejected rather than truncated.
func Decode(payload string) (*Decoded, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64", Len: len(payload), Err: err}
	}
	return DecodePCM(raw)
}

// DecodePCM is Decode without the base64 step.
func DecodePCM(raw []byte) (*Decoded, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}
	if len(raw)%bytesPerSample != 0 {
		return nil, &DecodeError{Reason: "odd trailing byte", Len: len(raw)}
	}

	samples := make([]float32, len(raw)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:]))
		samples[i] = float32(v) / 32768
	}
	return &Decoded{Samples: samples, SampleRate: SampleRate, Channels: Channels}, nil
}

// EncodePCM quantizes samples back to 16-bit little-endian PCM.
func EncodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(quantize(s)))
	}
	return out
}

// Encode is EncodePCM followed by base64.
func Encode(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM(samples))
}

func quantize(s float32) int16 {
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	}
	if v < math.MinInt16 {
		v = math.MinInt16
	}
	return int16(v)
}
