package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/morse"
	"github.com/morsecast/morsecast/internal/pipeline"
)

// translateRequest is the body of POST /translate.
type translateRequest struct {
	Text string `json:"text"`
}

// translateResponse is the shape returned by POST /translate.
type translateResponse struct {
	Morse   string `json:"morse"`
	Caption string `json:"caption"`
}

// synthesizeRequest is the body of POST /synthesize. Omitted tone fields
// fall back to the configured defaults.
type synthesizeRequest struct {
	Morse     string   `json:"morse"`
	Frequency *float64 `json:"frequency"`
	Volume    *float64 `json:"volume"`
}

// handleAlphabet lists every supported character and its pattern.
func (s *Server) handleAlphabet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, morse.Alphabet())
}

// handleTranslate converts text to its Morse string without synthesizing
// audio.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateStringLen("text", req.Text, maxTextLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	m, err := s.pipeline.Translate(req.Text)
	if err != nil {
		s.writePipelineError(w, "translate", err)
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{Morse: m, Caption: morse.Caption(m)})
}

// handleSynthesize renders a caller-supplied Morse string to MP3.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	p := s.pipeline.Config().Params
	if req.Frequency != nil {
		p.FrequencyHz = *req.Frequency
	}
	if req.Volume != nil {
		p.Volume = *req.Volume
	}

	audio, err := s.pipeline.Synthesize(r.Context(), req.Morse, p)
	if err != nil {
		s.writePipelineError(w, "synthesize", err)
		return
	}

	w.Header().Set("X-Clip-Cached", "false")
	writeAudio(w, r, "morse.mp3", audio)
}

// writePipelineError maps pipeline and synthesizer errors to responses.
// Rejections carry the user-facing message; internal failures are logged
// and answered with a generic one.
func (s *Server) writePipelineError(w http.ResponseWriter, op string, err error) {
	var malformed *media.MalformedMorseError

	switch {
	case errors.Is(err, pipeline.ErrNoEncodableCharacters):
		writeError(w, http.StatusUnprocessableEntity, pipeline.UserMessage(err))
	case errors.Is(err, pipeline.ErrOutputTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, pipeline.UserMessage(err))
	case errors.As(err, &malformed):
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("morse may only contain '.', '-' and ' ': unexpected %q at offset %d", malformed.Rune, malformed.Offset))
	case errors.Is(err, media.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrEncoderUnavailable):
		slog.Error(op+": mp3 encoder unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "audio encoding is not available")
	default:
		slog.Error(op+": failed", "error", err)
		writeError(w, http.StatusInternalServerError, pipeline.UserMessage(err))
	}
}

// writeAudio sends an MP3 clip inline under filename.
func writeAudio(w http.ResponseWriter, r *http.Request, filename string, audio []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("Content-Disposition", contentDisposition("inline", filename))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(audio); err != nil {
		slog.Debug("writing audio response", "error", err)
	}
}
