package api

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/morsecast/morsecast/internal/database/models"
	"github.com/morsecast/morsecast/internal/morse"
	"github.com/morsecast/morsecast/internal/pipeline"
)

// messageRequest is the body of POST /messages.
type messageRequest struct {
	Text string `json:"text"`
}

// messageResponse describes one encoded message and its stored clip.
type messageResponse struct {
	ID          string  `json:"id,omitempty"`
	Text        string  `json:"text"`
	Morse       string  `json:"morse"`
	Caption     string  `json:"caption"`
	FrequencyHz float64 `json:"frequency_hz"`
	Volume      float64 `json:"volume"`
	Performer   string  `json:"performer"`
	Title       string  `json:"title"`
	Filename    string  `json:"filename"`
	AudioSize   int64   `json:"audio_size"`
	AudioURL    string  `json:"audio_url,omitempty"`
	Audio       []byte  `json:"audio,omitempty"` // only when the clip could not be stored
	Cached      bool    `json:"cached"`
	CreatedAt   string  `json:"created_at"`
}

func (s *Server) toMessageResponse(c *models.Clip) messageResponse {
	performer := s.pipeline.Config().Performer
	return messageResponse{
		ID:          c.ID,
		Text:        c.Text,
		Morse:       c.Morse,
		Caption:     morse.Caption(c.Morse),
		FrequencyHz: c.FrequencyHz,
		Volume:      c.Volume,
		Performer:   performer,
		Title:       c.Text,
		Filename:    pipeline.Filename(performer, c.Text),
		AudioSize:   c.AudioSize,
		AudioURL:    audioURL(c.ID),
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func audioURL(id string) string {
	return "/api/v1/messages/" + id + "/audio"
}

// handleCreateMessage runs the full pipeline for a text message. Clients
// that accept audio/mpeg get the clip itself; everyone else gets metadata
// with a link to the audio.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("text", req.Text, maxTextLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	res, err := s.pipeline.Encode(r.Context(), req.Text)
	if err != nil {
		s.writePipelineError(w, "create message", err)
		return
	}

	if wantsAudio(r) {
		w.Header().Set("X-Morse", res.Morse)
		w.Header().Set("X-Clip-Cached", strconv.FormatBool(res.Cached))
		writeAudio(w, r, res.Filename, res.Audio)
		return
	}

	p := s.pipeline.Config().Params
	resp := messageResponse{
		ID:          res.ClipID,
		Text:        res.Text,
		Morse:       res.Morse,
		Caption:     res.Caption,
		FrequencyHz: p.FrequencyHz,
		Volume:      p.Volume,
		Performer:   res.Performer,
		Title:       res.Title,
		Filename:    res.Filename,
		AudioSize:   int64(len(res.Audio)),
		Cached:      res.Cached,
		CreatedAt:   res.CreatedAt.UTC().Format(time.RFC3339),
	}
	if res.ClipID != "" {
		resp.AudioURL = audioURL(res.ClipID)
	} else {
		resp.Audio = res.Audio
	}

	status := http.StatusCreated
	if res.Cached {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// handleListMessages returns the most recent stored clips.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, errMsg := parseLimit(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	clips, err := s.clips.List(r.Context(), limit)
	if err != nil {
		slog.Error("list messages: failed to query", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]messageResponse, len(clips))
	for i := range clips {
		items[i] = s.toMessageResponse(&clips[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetMessage returns metadata for a single stored clip.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.lookupClip(w, r, "get message")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.toMessageResponse(clip))
}

// handleGetMessageAudio serves a stored clip's MP3. Range requests are
// supported for in-browser seeking.
func (s *Server) handleGetMessageAudio(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.lookupClip(w, r, "get message audio")
	if !ok {
		return
	}

	filename := pipeline.Filename(s.pipeline.Config().Performer, clip.Text)
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", contentDisposition("inline", filename))
	w.Header().Set("X-Morse", clip.Morse)
	http.ServeContent(w, r, filename, clip.CreatedAt, bytes.NewReader(clip.Audio))
}

// handleDeleteMessage removes a stored clip.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseClipID(w, r)
	if !ok {
		return
	}

	deleted, err := s.clips.Delete(r.Context(), id)
	if err != nil {
		slog.Error("delete message: failed to delete", "error", err, "clip_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	slog.Info("clip deleted", "clip_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// lookupClip loads the clip named by the id URL parameter, writing the
// error response itself when it cannot.
func (s *Server) lookupClip(w http.ResponseWriter, r *http.Request, op string) (*models.Clip, bool) {
	id, ok := parseClipID(w, r)
	if !ok {
		return nil, false
	}

	clip, err := s.clips.GetByID(r.Context(), id)
	if err != nil {
		slog.Error(op+": failed to query", "error", err, "clip_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if clip == nil {
		writeError(w, http.StatusNotFound, "message not found")
		return nil, false
	}
	return clip, true
}

// parseClipID extracts and validates the clip ID from the URL parameter.
func parseClipID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return "", false
	}
	return id.String(), true
}

// wantsAudio reports whether the client asked for the clip itself.
func wantsAudio(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "audio/mpeg" {
			return true
		}
	}
	return false
}

// contentDisposition formats a Content-Disposition header, encoding
// non-ASCII filenames per RFC 2231.
func contentDisposition(disposition, filename string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return disposition
}
