package models

import "time"

// Clip is a synthesized Morse message and its MP3 audio.
type Clip struct {
	ID          string // uuid
	CacheKey    string // sha256 of morse + tone parameters
	Text        string // original input, used as the clip title
	Morse       string
	FrequencyHz float64
	Volume      float64
	Audio       []byte
	AudioSize   int64
	CreatedAt   time.Time
}
