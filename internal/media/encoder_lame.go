//go:build cgo

package media

import (
	"fmt"
	"io"

	"github.com/viert/lame"
)

// lameEncoder drives libmp3lame through a configure, encode, flush cycle.
type lameEncoder struct {
	out    io.Writer
	lame   *lame.Encoder
	closed bool
}

// NewLAMEEncoder configures a LAME encoder writing MP3 frames to w.
func NewLAMEEncoder(w io.Writer, cfg EncoderConfig) (Encoder, error) {
	l := lame.Init()
	l.SetBitrate(cfg.BitRate)
	l.SetInSamplerate(cfg.SampleRate)
	l.SetNumChannels(cfg.Channels)
	l.SetQuality(cfg.Quality)

	if rc := l.InitParams(); rc < 0 {
		l.Close()
		return nil, fmt.Errorf("%w: lame init params returned %d", ErrEncoder, rc)
	}

	return &lameEncoder{out: w, lame: l}, nil
}

func (e *lameEncoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, fmt.Errorf("%w: write after close", ErrEncoder)
	}
	if len(p) == 0 {
		return 0, nil
	}
	frames, err := e.encode(p)
	if err != nil {
		return 0, err
	}
	if len(frames) > 0 {
		if _, err := e.out.Write(frames); err != nil {
			return 0, fmt.Errorf("%w: writing frames: %v", ErrEncoder, err)
		}
	}
	return len(p), nil
}

// encode calls into the binding, which slices its output buffer by the
// libmp3lame return code and panics when that code is negative.
func (e *lameEncoder) encode(p []byte) (frames []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lame encode failed: %v", ErrEncoder, r)
		}
	}()
	return e.lame.Encode(p), nil
}

// flush is encode for the final frames.
func (e *lameEncoder) flush() (tail []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lame flush failed: %v", ErrEncoder, r)
		}
	}()
	return e.lame.Flush(), nil
}

func (e *lameEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	defer e.lame.Close()

	tail, err := e.flush()
	if err != nil {
		return err
	}
	if len(tail) > 0 {
		if _, err := e.out.Write(tail); err != nil {
			return fmt.Errorf("%w: writing final frames: %v", ErrEncoder, err)
		}
	}
	return nil
}

// DefaultEncoderFactory is the encoder used by the default synthesizer.
var DefaultEncoderFactory EncoderFactory = NewLAMEEncoder
