package media

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrMalformedMorse is returned when a Morse string contains a rune
	// other than '.', '-' or ' '.
	ErrMalformedMorse = errors.New("malformed morse input")

	// ErrInvalidParams is returned for out-of-range frequency or volume.
	ErrInvalidParams = errors.New("invalid synthesis parameters")
)

// MalformedMorseError reports the first offending rune of a Morse string.
type MalformedMorseError struct {
	Rune   rune
	Offset int // byte offset into the input
}

func (e *MalformedMorseError) Error() string {
	return fmt.Sprintf("malformed morse input: unexpected %q at offset %d", e.Rune, e.Offset)
}

func (e *MalformedMorseError) Unwrap() error {
	return ErrMalformedMorse
}

// Params controls the tone of a synthesized clip.
type Params struct {
	FrequencyHz float64
	Volume      float64 // fraction of full scale, 0.0–1.0
}

// DefaultParams is a 1 kHz tone at a quarter of full scale.
var DefaultParams = Params{FrequencyHz: 1000.0, Volume: 0.25}

// Validate checks that the parameters can be rendered at rate.
func (p Params) Validate(rate int) error {
	if p.FrequencyHz <= 0 || p.FrequencyHz > float64(rate)/2 {
		return fmt.Errorf("%w: frequency must be in (0, %d] Hz, got %g", ErrInvalidParams, rate/2, p.FrequencyHz)
	}
	if p.Volume < 0 || p.Volume > 1 {
		return fmt.Errorf("%w: volume must be in [0, 1], got %g", ErrInvalidParams, p.Volume)
	}
	return nil
}

// Synthesizer renders Morse strings to MP3 clips. A Synthesizer holds no
// per-call state and is safe for concurrent use; every call creates and
// closes its own Encoder.
type Synthesizer struct {
	timing     Timing
	rate       int
	encoderCfg EncoderConfig
	newEncoder EncoderFactory
	logger     *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(s *Synthesizer) { s.timing = t }
}

// WithEncoder overrides the encoder factory and its configuration.
func WithEncoder(factory EncoderFactory, cfg EncoderConfig) Option {
	return func(s *Synthesizer) {
		s.newEncoder = factory
		s.encoderCfg = cfg
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger.With("subsystem", "synthesizer") }
}

// NewSynthesizer creates a Synthesizer at SampleRate using the default
// LAME encoder unless overridden.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		timing:     DefaultTiming,
		rate:       SampleRate,
		encoderCfg: DefaultEncoderConfig,
		newEncoder: DefaultEncoderFactory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log returns the configured logger, falling back to the process default
// at call time.
func (s *Synthesizer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// RenderPCM builds the full sample stream for morse: leading silence, one
// segment per glyph, trailing silence.
func (s *Synthesizer) RenderPCM(morse string, p Params) ([]int16, error) {
	if err := p.Validate(s.rate); err != nil {
		return nil, err
	}

	dot := Tone(p.FrequencyHz, s.timing.Dot, p.Volume, s.rate)
	dash := Tone(p.FrequencyHz, s.timing.Dash(), p.Volume, s.rate)
	gap := Silence(s.timing.Dot, s.rate)

	// Validate and size in one pass so the output is allocated once.
	total := sampleCount(s.timing.Leading, s.rate) + sampleCount(s.timing.Trailing, s.rate)
	for i, r := range morse {
		switch r {
		case '.':
			total += len(dot)
		case '-':
			total += len(dash)
		case ' ':
			total += len(gap)
		default:
			return nil, &MalformedMorseError{Rune: r, Offset: i}
		}
	}

	samples := make([]int16, 0, total)
	samples = append(samples, Silence(s.timing.Leading, s.rate)...)
	for _, r := range morse {
		switch r {
		case '.':
			samples = append(samples, dot...)
		case '-':
			samples = append(samples, dash...)
		case ' ':
			samples = append(samples, gap...)
		}
	}
	samples = append(samples, Silence(s.timing.Trailing, s.rate)...)

	return samples, nil
}

// RenderWAV returns morse framed as a mono 16-bit PCM WAV file.
func (s *Synthesizer) RenderWAV(morse string, p Params) ([]byte, error) {
	samples, err := s.RenderPCM(morse, p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(samples)*2)
	if err := WriteWAV(&buf, samples, s.rate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Synthesize renders morse and returns it as an MP3 clip. The PCM stream
// passes through a WAV container whose framing is stripped before the raw
// samples are handed to the encoder. On error no partial output is
// returned.
func (s *Synthesizer) Synthesize(morse string, p Params) ([]byte, error) {
	wav, err := s.RenderWAV(morse, p)
	if err != nil {
		return nil, err
	}

	_, pcm, err := ReadWAVBytes(wav)
	if err != nil {
		return nil, fmt.Errorf("unframing pcm: %w", err)
	}

	clip, err := s.encode(pcm)
	if err != nil {
		return nil, err
	}

	s.log().Debug("clip synthesized",
		"morse_len", len(morse),
		"pcm_bytes", len(pcm),
		"mp3_bytes", len(clip),
	)
	return clip, nil
}

// encode feeds pcm through a fresh encoder. The encoder is closed on every
// path so libmp3lame state is always released.
func (s *Synthesizer) encode(pcm []byte) ([]byte, error) {
	var buf bytes.Buffer

	enc, err := s.newEncoder(&buf, s.encoderCfg)
	if err != nil {
		if errors.Is(err, ErrEncoderUnavailable) || errors.Is(err, ErrEncoder) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEncoder, err)
	}

	closed := false
	defer func() {
		if !closed {
			enc.Close()
		}
	}()

	if _, err := enc.Write(pcm); err != nil {
		return nil, wrapEncoderErr(err)
	}

	closed = true
	if err := enc.Close(); err != nil {
		return nil, wrapEncoderErr(err)
	}

	return buf.Bytes(), nil
}

func wrapEncoderErr(err error) error {
	if errors.Is(err, ErrEncoder) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEncoder, err)
}

var defaultSynthesizer = NewSynthesizer()

// Synthesize renders morse with the default synthesizer at the given
// frequency and volume.
func Synthesize(morse string, frequencyHz, volume float64) ([]byte, error) {
	return defaultSynthesizer.Synthesize(morse, Params{FrequencyHz: frequencyHz, Volume: volume})
}
