package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/pipeline"
)

func TestRunWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sos.wav")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-wav", "-o", path, "-volume", "0.5", "S", "O", "S"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "...       ---       ..." {
		t.Errorf("morse = %q", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	hdr, pcm, err := media.ReadWAVBytes(data)
	if err != nil {
		t.Fatalf("output is not a wav file: %v", err)
	}
	if hdr.SampleRate != media.SampleRate || hdr.NumChannels != 1 {
		t.Errorf("header = %+v", hdr)
	}
	if len(pcm) == 0 {
		t.Error("no audio data")
	}
}

func TestRunWAVToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-wav", "-o", "-", "e"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr.String())
	}
	if !bytes.HasPrefix(stdout.Bytes(), []byte("RIFF")) {
		t.Fatalf("stdout starts with %q, want a bare wav stream", stdout.Bytes()[:min(8, stdout.Len())])
	}
	if _, _, err := media.ReadWAVBytes(stdout.Bytes()); err != nil {
		t.Errorf("stdout is not a valid wav stream: %v", err)
	}
	if got := strings.TrimSpace(stderr.String()); got != "." {
		t.Errorf("stderr = %q, want the morse string", got)
	}
}

func TestRunRejections(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"nothing encodable", []string{"-wav", "😀"}, 1, pipeline.CannotEncodeMessage},
		{"too long", []string{"-wav", "-max-morse-length", "3", "hello"}, 1, pipeline.TooLongMessage},
		{"no text", nil, 2, "usage"},
		{"bad frequency", []string{"-frequency", "0", "sos"}, 2, "frequency"},
		{"bad volume", []string{"-volume", "2", "sos"}, 2, "volume"},
		{"bad log level", []string{"-log-level", "loud", "sos"}, 2, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Errorf("exit = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want containing %q", stderr.String(), tt.wantErr)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", stdout.String())
			}
		})
	}
}
