package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// wavHeaderSize is the size of a canonical RIFF/WAVE header with a
	// 16-byte fmt chunk followed directly by the data chunk header.
	wavHeaderSize = 44

	// wavFormatPCM is the WAVE format code for linear PCM.
	wavFormatPCM = 1

	bitsPerSample = 16
)

// WAVHeader holds the fields of a WAV file header needed to validate a
// PCM stream.
type WAVHeader struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32 // size of the "data" chunk in bytes
}

// WriteWAV frames samples as a mono 16-bit little-endian PCM WAV stream.
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	dataSize := uint32(len(samples) * 2)

	var hdr [wavHeaderSize]byte

	// RIFF header.
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], wavHeaderSize-8+dataSize)
	copy(hdr[8:12], "WAVE")

	// fmt sub-chunk.
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)                   // sub-chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], wavFormatPCM)         // linear PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1)                    // mono
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))   // sample rate
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(hdr[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)

	// data sub-chunk.
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}

	if _, err := w.Write(pcmBytes(samples)); err != nil {
		return fmt.Errorf("writing wav data: %w", err)
	}
	return nil
}

// pcmBytes encodes samples as little-endian 16-bit PCM.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// ReadWAV parses a mono 16-bit PCM WAV stream and returns its header and
// the raw sample bytes with all framing removed.
func ReadWAV(r io.ReadSeeker) (*WAVHeader, []byte, error) {
	hdr, err := parseWAVHeader(r)
	if err != nil {
		return nil, nil, err
	}

	if hdr.AudioFormat != wavFormatPCM {
		return nil, nil, fmt.Errorf("unsupported wav format %d, need linear PCM", hdr.AudioFormat)
	}
	if hdr.NumChannels != 1 {
		return nil, nil, fmt.Errorf("unsupported channel count %d, need mono", hdr.NumChannels)
	}
	if hdr.BitsPerSample != bitsPerSample {
		return nil, nil, fmt.Errorf("unsupported bits per sample %d, need 16", hdr.BitsPerSample)
	}

	data := make([]byte, hdr.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("reading wav data: %w", err)
	}
	return hdr, data, nil
}

// ReadWAVBytes is ReadWAV over an in-memory buffer.
func ReadWAVBytes(b []byte) (*WAVHeader, []byte, error) {
	return ReadWAV(bytes.NewReader(b))
}

// parseWAVHeader reads and validates a WAV file header, positioning the
// reader at the start of audio data.
func parseWAVHeader(r io.ReadSeeker) (*WAVHeader, error) {
	// RIFF header: "RIFF" + size + "WAVE"
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, fmt.Errorf("reading riff header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" {
		return nil, errors.New("not a RIFF file")
	}
	if string(riffHeader[8:12]) != "WAVE" {
		return nil, errors.New("not a WAVE file")
	}

	hdr := &WAVHeader{}
	foundFmt := false
	foundData := false

	for !foundData {
		var chunkID [4]byte
		var chunkSize uint32

		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk id: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("reading chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			hdr.AudioFormat = binary.LittleEndian.Uint16(fmtChunk[0:2])
			hdr.NumChannels = binary.LittleEndian.Uint16(fmtChunk[2:4])
			hdr.SampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			hdr.ByteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			hdr.BlockAlign = binary.LittleEndian.Uint16(fmtChunk[12:14])
			hdr.BitsPerSample = binary.LittleEndian.Uint16(fmtChunk[14:16])
			if chunkSize > 16 {
				if _, err := r.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("skipping extra fmt data: %w", err)
				}
			}
			foundFmt = true

		case "data":
			hdr.DataSize = chunkSize
			foundData = true

		default:
			// Skip unknown chunks, padded to an even boundary.
			skip := int64(chunkSize)
			if chunkSize%2 != 0 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skipping chunk %q: %w", string(chunkID[:]), err)
			}
		}
	}

	if !foundFmt {
		return nil, errors.New("wav file missing fmt chunk")
	}
	if !foundData {
		return nil, errors.New("wav file missing data chunk")
	}
	return hdr, nil
}
