//go:build !cgo

package media

import "io"

// NewLAMEEncoder is unavailable without cgo.
func NewLAMEEncoder(w io.Writer, cfg EncoderConfig) (Encoder, error) {
	return nil, ErrEncoderUnavailable
}

// DefaultEncoderFactory is the encoder used by the default synthesizer.
var DefaultEncoderFactory EncoderFactory = NewLAMEEncoder
