// Package pipeline applies caller policy around the two Morse stages:
// translation results that are empty or too long are rejected before any
// audio is synthesized, and synthesized clips are cached in a ClipStore
// keyed by their text and tone parameters.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/morsecast/morsecast/internal/database/models"
	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/morse"
)

var (
	// ErrNoEncodableCharacters means the text held nothing in the symbol
	// table.
	ErrNoEncodableCharacters = errors.New("no encodable characters")

	// ErrOutputTooLarge means the Morse string exceeds the length ceiling.
	ErrOutputTooLarge = errors.New("morse output too large")
)

// User-facing messages for the two rejection cases.
const (
	CannotEncodeMessage = "Sorry, this message could not be encoded.\n\n" +
		"Morse code covers only letters (Latin and Cyrillic), digits and the following punctuation:\n" +
		morse.Punctuation + "\n\n" +
		"Most likely the message consists only of characters that have no Morse code."
	TooLongMessage = "Sorry, this message is too long."
)

// DefaultMaxMorseLength bounds synthesis cost and clip size.
const DefaultMaxMorseLength = 1024

// titleMaxRunes caps the title used to build clip filenames.
const titleMaxRunes = 64

// Synthesizer renders a Morse string to an audio clip.
type Synthesizer interface {
	Synthesize(morse string, p media.Params) ([]byte, error)
}

// ClipStore persists synthesized clips. GetByKey returns nil, nil on a miss.
// Create fails without overwriting when the cache key is already stored.
type ClipStore interface {
	GetByKey(ctx context.Context, key string) (*models.Clip, error)
	Create(ctx context.Context, clip *models.Clip) error
}

// Config holds the caller policy.
type Config struct {
	MaxMorseLength int
	Params         media.Params
	Performer      string
}

// Result is everything a transport needs to deliver one encoded message.
type Result struct {
	ClipID    string
	Text      string
	Morse     string
	Caption   string
	Audio     []byte
	Performer string
	Title     string
	Filename  string
	Cached    bool
	CreatedAt time.Time
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Translations uint64
	NoEncodable  uint64
	TooLarge     uint64
	Synthesized  uint64
	CacheHits    uint64
	Failures     uint64
	AudioBytes   uint64
}

// Service runs the text to Morse to audio pipeline. It is safe for
// concurrent use.
type Service struct {
	synth  Synthesizer
	store  ClipStore
	cfg    Config
	logger *slog.Logger

	translations atomic.Uint64
	noEncodable  atomic.Uint64
	tooLarge     atomic.Uint64
	synthesized  atomic.Uint64
	cacheHits    atomic.Uint64
	failures     atomic.Uint64
	audioBytes   atomic.Uint64
}

// NewService creates a pipeline. store may be nil to disable caching and
// persistence. Zero values in cfg fall back to the defaults.
func NewService(synth Synthesizer, store ClipStore, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxMorseLength <= 0 {
		cfg.MaxMorseLength = DefaultMaxMorseLength
	}
	if cfg.Params == (media.Params{}) {
		cfg.Params = media.DefaultParams
	}
	if cfg.Performer == "" {
		cfg.Performer = "morsecast"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		synth:  synth,
		store:  store,
		cfg:    cfg,
		logger: logger.With("subsystem", "pipeline"),
	}
}

// Config returns the policy the service was created with.
func (s *Service) Config() Config {
	return s.cfg
}

// Translate runs the first stage and applies the empty and length checks.
// The Morse string is returned alongside ErrOutputTooLarge so callers can
// still show it.
func (s *Service) Translate(text string) (string, error) {
	s.translations.Add(1)

	m := morse.Translate(text)
	if morse.IsEmpty(m) {
		s.noEncodable.Add(1)
		return "", ErrNoEncodableCharacters
	}
	if len(m) > s.cfg.MaxMorseLength {
		s.tooLarge.Add(1)
		return m, fmt.Errorf("%w: %d characters, limit %d", ErrOutputTooLarge, len(m), s.cfg.MaxMorseLength)
	}
	return m, nil
}

// Encode translates text, synthesizes its clip and stores it. A clip with
// the same text and tone parameters is served from the store. When a
// concurrent call stores the same clip first, its row is returned.
func (s *Service) Encode(ctx context.Context, text string) (*Result, error) {
	m, err := s.Translate(text)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Text:      text,
		Morse:     m,
		Caption:   morse.Caption(m),
		Performer: s.cfg.Performer,
		Title:     text,
		Filename:  Filename(s.cfg.Performer, text),
	}

	key := CacheKey(text, m, s.cfg.Params)

	if s.store != nil {
		clip, err := s.store.GetByKey(ctx, key)
		if err != nil {
			s.logger.Warn("clip cache lookup failed", "error", err)
		} else if clip != nil {
			s.cacheHits.Add(1)
			res.useStored(clip)
			return res, nil
		}
	}

	audio, err := s.synth.Synthesize(m, s.cfg.Params)
	if err != nil {
		s.failures.Add(1)
		return nil, fmt.Errorf("synthesizing clip: %w", err)
	}
	s.synthesized.Add(1)
	s.audioBytes.Add(uint64(len(audio)))

	res.Audio = audio
	res.CreatedAt = time.Now().UTC()

	if s.store == nil {
		return res, nil
	}

	clip := &models.Clip{
		ID:          uuid.NewString(),
		CacheKey:    key,
		Text:        text,
		Morse:       m,
		FrequencyHz: s.cfg.Params.FrequencyHz,
		Volume:      s.cfg.Params.Volume,
		Audio:       audio,
		AudioSize:   int64(len(audio)),
		CreatedAt:   res.CreatedAt,
	}
	if err := s.store.Create(ctx, clip); err != nil {
		// Another call may have stored the same key in the meantime.
		if stored, getErr := s.store.GetByKey(ctx, key); getErr == nil && stored != nil {
			s.logger.Debug("clip stored concurrently", "clip_id", stored.ID)
			res.useStored(stored)
			return res, nil
		}
		// The clip is still deliverable without persistence.
		s.logger.Error("failed to store clip", "error", err)
		return res, nil
	}
	res.ClipID = clip.ID

	s.logger.Debug("clip stored",
		"clip_id", clip.ID,
		"morse_len", len(m),
		"audio_bytes", len(audio),
	)
	return res, nil
}

// useStored points the result at a stored clip.
func (r *Result) useStored(clip *models.Clip) {
	r.ClipID = clip.ID
	r.Audio = clip.Audio
	r.Cached = true
	r.CreatedAt = clip.CreatedAt
}

// Synthesize renders a caller-supplied Morse string with explicit tone
// parameters. The length ceiling applies; glyph validation is left to the
// synthesizer, which fails with media.ErrMalformedMorse.
func (s *Service) Synthesize(ctx context.Context, m string, p media.Params) ([]byte, error) {
	if len(m) > s.cfg.MaxMorseLength {
		s.tooLarge.Add(1)
		return nil, fmt.Errorf("%w: %d characters, limit %d", ErrOutputTooLarge, len(m), s.cfg.MaxMorseLength)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio, err := s.synth.Synthesize(m, p)
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	s.synthesized.Add(1)
	s.audioBytes.Add(uint64(len(audio)))
	return audio, nil
}

// Stats returns a snapshot of the pipeline counters.
func (s *Service) Stats() Stats {
	return Stats{
		Translations: s.translations.Load(),
		NoEncodable:  s.noEncodable.Load(),
		TooLarge:     s.tooLarge.Load(),
		Synthesized:  s.synthesized.Load(),
		CacheHits:    s.cacheHits.Load(),
		Failures:     s.failures.Load(),
		AudioBytes:   s.audioBytes.Load(),
	}
}

// UserMessage maps a pipeline error to the text shown to an end user.
// Unknown errors get a generic message.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoEncodableCharacters):
		return CannotEncodeMessage
	case errors.Is(err, ErrOutputTooLarge):
		return TooLongMessage
	default:
		return "Sorry, something went wrong while encoding this message."
	}
}

// CacheKey identifies a clip by its text, Morse string and tone parameters.
// The text is part of the key so a stored clip's metadata always matches
// the request it is served to.
func CacheKey(text, m string, p media.Params) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(m))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(p.FrequencyHz, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(p.Volume, 'g', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// Filename builds "<performer> - <title>.mp3" with path separators and
// control characters removed and the title shortened.
func Filename(performer, title string) string {
	clean := func(s string) string {
		s = strings.Map(func(r rune) rune {
			switch {
			case r == '/' || r == '\\':
				return '_'
			case unicode.IsControl(r):
				return ' '
			}
			return r
		}, s)
		return strings.Join(strings.Fields(s), " ")
	}

	t := []rune(clean(title))
	if len(t) > titleMaxRunes {
		t = t[:titleMaxRunes]
	}
	name := clean(performer) + " - " + strings.TrimSpace(string(t))
	return name + ".mp3"
}
