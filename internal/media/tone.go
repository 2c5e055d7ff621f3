package media

import (
	"math"
	"time"
)

const (
	// SampleRate is the synthesis clock in Hz.
	SampleRate = 8000

	// maxAmplitude is the largest positive 16-bit signed sample.
	maxAmplitude = math.MaxInt16
)

// Timing holds the durations used to render a Morse string. All tone and
// gap lengths derive from Dot.
type Timing struct {
	Dot      time.Duration
	Leading  time.Duration
	Trailing time.Duration
}

// DefaultTiming is 75ms per dot with 250ms of lead-in and 1s of tail.
var DefaultTiming = Timing{
	Dot:      75 * time.Millisecond,
	Leading:  250 * time.Millisecond,
	Trailing: time.Second,
}

// Dash is three dots long.
func (t Timing) Dash() time.Duration {
	return 3 * t.Dot
}

// sampleCount converts a duration to a number of samples at rate.
func sampleCount(d time.Duration, rate int) int {
	return int(int64(rate) * d.Milliseconds() / 1000)
}

// Tone returns samples of a sine wave at frequencyHz lasting d, scaled to
// volume (0.0–1.0 of the int16 range). Samples are rounded to the nearest
// integer and clamped to ±32767.
func Tone(frequencyHz float64, d time.Duration, volume float64, rate int) []int16 {
	n := sampleCount(d, rate)
	samples := make([]int16, n)
	peak := volume * maxAmplitude

	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		v := math.Round(math.Sin(2.0*math.Pi*frequencyHz*t) * peak)
		samples[i] = clamp16(v)
	}

	return samples
}

// Silence returns d worth of zero samples.
func Silence(d time.Duration, rate int) []int16 {
	return make([]int16, sampleCount(d, rate))
}

func clamp16(v float64) int16 {
	switch {
	case v > maxAmplitude:
		return maxAmplitude
	case v < -maxAmplitude:
		return -maxAmplitude
	default:
		return int16(v)
	}
}

// Peak returns the largest absolute sample value.
func Peak(samples []int16) int {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
