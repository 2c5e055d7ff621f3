//go:build cgo

package media

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

// isMP3Frame reports whether b starts with an MPEG audio frame sync.
func isMP3Frame(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}

func TestLAMEEncoderConfig(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewLAMEEncoder(&buf, DefaultEncoderConfig)
	if err != nil {
		t.Fatalf("NewLAMEEncoder: %v", err)
	}
	defer enc.Close()

	l := enc.(*lameEncoder).lame
	if l.Bitrate() != 32 || l.InSamplerate() != 8000 || l.NumChannels() != 1 || l.Quality() != 7 {
		t.Errorf("lame configured with %d kbps, %d Hz, %d channels, quality %d",
			l.Bitrate(), l.InSamplerate(), l.NumChannels(), l.Quality())
	}
}

func TestLAMEEncoderLifecycle(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewLAMEEncoder(&buf, DefaultEncoderConfig)
	if err != nil {
		t.Fatalf("NewLAMEEncoder: %v", err)
	}

	samples, err := NewSynthesizer().RenderPCM("-.-", DefaultParams)
	if err != nil {
		t.Fatalf("RenderPCM: %v", err)
	}
	pcm := pcmBytes(samples)

	// An odd split must not lose the carried byte.
	if n, err := enc.Write(pcm[:101]); err != nil || n != 101 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if n, err := enc.Write(pcm[101:]); err != nil || n != len(pcm)-101 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !isMP3Frame(buf.Bytes()) {
		t.Fatalf("output does not start with an mp3 frame: % x", buf.Bytes()[:min(4, buf.Len())])
	}

	if err := enc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := enc.Write(pcm); !errors.Is(err, ErrEncoder) {
		t.Errorf("Write after Close error = %v, want ErrEncoder", err)
	}
}

func TestSynthesizeLAME(t *testing.T) {
	tests := []string{"", ".", "-", "...   ---   ...", ".-       -..."}
	for _, in := range tests {
		clip, err := Synthesize(in, 1000, 0.25)
		if err != nil {
			t.Fatalf("Synthesize(%q): %v", in, err)
		}
		if !isMP3Frame(clip) {
			t.Errorf("Synthesize(%q) does not start with an mp3 frame", in)
		}
	}
}

func TestSynthesizeLAMELongerMorseLongerClip(t *testing.T) {
	short, err := Synthesize(".", 1000, 0.25)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	long, err := Synthesize(".-.-.-.-.-.-.-.-.-.-", 1000, 0.25)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(long) <= len(short) {
		t.Errorf("clip sizes %d (long) <= %d (short)", len(long), len(short))
	}
}

func TestSynthesizeLAMEDeterministic(t *testing.T) {
	first, err := Synthesize("-.-. --.-", 1000, 0.25)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Synthesize("-.-. --.-", 1000, 0.25)
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("repeated synthesis is not byte-identical")
		}
	}
}

func TestSynthesizeLAMEConcurrent(t *testing.T) {
	want, err := Synthesize("... --- ...", 1000, 0.25)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Synthesize("... --- ...", 1000, 0.25)
			if err != nil {
				t.Errorf("Synthesize: %v", err)
				return
			}
			if !bytes.Equal(got, want) {
				t.Error("concurrent synthesis differs")
			}
		}()
	}
	wg.Wait()
}

func TestSynthesizeLAMEMalformed(t *testing.T) {
	if _, err := Synthesize("x", 1000, 0.25); !errors.Is(err, ErrMalformedMorse) {
		t.Fatalf("error = %v, want ErrMalformedMorse", err)
	}
}
