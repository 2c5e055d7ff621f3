package media

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32767}

	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, SampleRate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	b := buf.Bytes()
	if len(b) != wavHeaderSize+len(samples)*2 {
		t.Fatalf("wav size = %d, want %d", len(b), wavHeaderSize+len(samples)*2)
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatalf("bad riff header %q", b[0:12])
	}
	if got := binary.LittleEndian.Uint32(b[4:8]); got != uint32(len(b)-8) {
		t.Errorf("riff size = %d, want %d", got, len(b)-8)
	}
	if got := binary.LittleEndian.Uint32(b[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(b[28:32]); got != SampleRate*2 {
		t.Errorf("byte rate = %d, want %d", got, SampleRate*2)
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", got, len(samples)*2)
	}
}

func TestReadWAVRoundTrip(t *testing.T) {
	samples := Tone(1000, DefaultTiming.Dot, 0.5, SampleRate)

	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, SampleRate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	hdr, data, err := ReadWAVBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadWAVBytes: %v", err)
	}
	if hdr.AudioFormat != wavFormatPCM || hdr.NumChannels != 1 || hdr.BitsPerSample != 16 {
		t.Errorf("unexpected header %+v", hdr)
	}
	if !bytes.Equal(data, pcmBytes(samples)) {
		t.Error("unframed data does not match input samples")
	}
	if !bytes.Equal(data, buf.Bytes()[wavHeaderSize:]) {
		t.Error("unframed data is not the bytes after the 44-byte header")
	}
}

func TestReadWAVSkipsUnknownChunks(t *testing.T) {
	pcm := pcmBytes([]int16{5, -5, 7})

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	// Odd-sized LIST chunk with a pad byte.
	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{'a', 'b', 'c', 0})

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	_, data, err := ReadWAVBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadWAVBytes: %v", err)
	}
	if !bytes.Equal(data, pcm) {
		t.Errorf("data = %v, want %v", data, pcm)
	}
}

func TestReadWAVRejects(t *testing.T) {
	valid := func() []byte {
		var buf bytes.Buffer
		WriteWAV(&buf, []int16{1, 2, 3}, SampleRate)
		return buf.Bytes()
	}

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
	}{
		{"not riff", func(b []byte) []byte { copy(b[0:4], "RIFX"); return b }},
		{"not wave", func(b []byte) []byte { copy(b[8:12], "AVI "); return b }},
		{"ulaw", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[20:22], 7); return b }},
		{"stereo", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[22:24], 2); return b }},
		{"8 bit", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[34:36], 8); return b }},
		{"truncated data", func(b []byte) []byte { return b[:len(b)-2] }},
		{"missing data chunk", func(b []byte) []byte { return b[:36] }},
		{"short", func(b []byte) []byte { return b[:6] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ReadWAVBytes(tt.mutate(valid())); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
