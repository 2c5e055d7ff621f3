package media

import (
	"errors"
	"io"
)

var (
	// ErrEncoder wraps any failure of the MP3 encoder.
	ErrEncoder = errors.New("mp3 encoder failure")

	// ErrEncoderUnavailable is returned when the binary was built without
	// an MP3 encoder (cgo disabled).
	ErrEncoderUnavailable = errors.New("mp3 encoder not available in this build")
)

// EncoderConfig describes the MP3 stream an Encoder produces.
type EncoderConfig struct {
	BitRate    int // kbps
	SampleRate int // input sample rate in Hz
	Channels   int
	Quality    int // 2 = best, 7 = fastest
}

// DefaultEncoderConfig is a 32 kbps mono stream at the synthesis rate,
// tuned for speed over fidelity.
var DefaultEncoderConfig = EncoderConfig{
	BitRate:    32,
	SampleRate: SampleRate,
	Channels:   1,
	Quality:    7,
}

// Encoder consumes little-endian 16-bit PCM through Write and emits MP3
// frames to the writer it was created with. Close flushes the remaining
// frames and releases the encoder; it must be called exactly once.
//
// An Encoder is stateful and must not be shared between goroutines.
type Encoder interface {
	io.Writer
	Close() error
}

// EncoderFactory creates an Encoder that writes to w.
type EncoderFactory func(w io.Writer, cfg EncoderConfig) (Encoder, error)
