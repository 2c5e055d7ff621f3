package media

import (
	"testing"
	"time"
)

func TestToneSampleCounts(t *testing.T) {
	dot := Tone(1000, DefaultTiming.Dot, 0.25, SampleRate)
	dash := Tone(1000, DefaultTiming.Dash(), 0.25, SampleRate)

	if len(dot) != 600 {
		t.Errorf("dot has %d samples, want 600", len(dot))
	}
	if len(dash) != 3*len(dot) {
		t.Errorf("dash has %d samples, want %d", len(dash), 3*len(dot))
	}
	if got := len(Silence(DefaultTiming.Dot, SampleRate)); got != len(dot) {
		t.Errorf("gap has %d samples, want %d", got, len(dot))
	}
}

func TestToneStartsAtZero(t *testing.T) {
	samples := Tone(1000, 10*time.Millisecond, 1.0, SampleRate)
	if samples[0] != 0 {
		t.Errorf("first sample = %d, want 0", samples[0])
	}
	// 1 kHz at 8 kHz: sample 2 sits on the crest.
	if samples[2] != maxAmplitude {
		t.Errorf("crest sample = %d, want %d", samples[2], maxAmplitude)
	}
}

func TestTonePeakMonotonicInVolume(t *testing.T) {
	prev := -1
	for _, vol := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1.0} {
		peak := Peak(Tone(1000, 50*time.Millisecond, vol, SampleRate))
		if peak < prev {
			t.Fatalf("peak at volume %g = %d, lower than previous %d", vol, peak, prev)
		}
		if peak > maxAmplitude {
			t.Fatalf("peak at volume %g = %d exceeds int16 range", vol, peak)
		}
		prev = peak
	}
	if prev != maxAmplitude {
		t.Errorf("peak at full volume = %d, want %d", prev, maxAmplitude)
	}
}

func TestToneZeroVolumeIsSilent(t *testing.T) {
	if p := Peak(Tone(1000, 50*time.Millisecond, 0, SampleRate)); p != 0 {
		t.Errorf("peak = %d, want 0", p)
	}
}

func TestClamp16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{100.4, 100},
		{40000, maxAmplitude},
		{-40000, -maxAmplitude},
		{-32768, -maxAmplitude},
	}
	for _, tt := range tests {
		if got := clamp16(tt.in); got != tt.want {
			t.Errorf("clamp16(%g) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
