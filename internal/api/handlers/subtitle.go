package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/video-stream/subtrans/internal/subtitle"
)

const maxSubtitleUpload = 10 << 20

type SubtitleHandler struct{}

func NewSubtitleHandler() *SubtitleHandler {
	return &SubtitleHandler{}
}

type parseRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type parseResponse struct {
	Name string `json:"name"`
	subtitle.Document
}

// Parse accepts a multipart "file" upload or a JSON {name, content} body
func (h *SubtitleHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var name, content string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxSubtitleUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			jsonError(w, "failed to read upload", http.StatusBadRequest)
			return
		}
		content, err = subtitle.Decode(raw)
		if err != nil {
			jsonError(w, "failed to decode upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		name = header.Filename
	} else {
		var req parseRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name, content = req.Name, req.Content
	}

	doc, err := subtitle.ParseFile(name, content)
	if err != nil {
		if errors.Is(err, subtitle.ErrInvalidFormat) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "failed to parse subtitle: "+err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, parseResponse{Name: name, Document: doc}, http.StatusOK)
}

type renderRequest struct {
	Cues   []subtitle.Cue      `json:"cues" validate:"required,min=1"`
	Format subtitle.Format     `json:"format"`
	Styles subtitle.StyleTable `json:"styles"`
	As     string              `json:"as" validate:"omitempty,oneof=text vtt"`
}

// Render produces the canonical text output or a WebVTT track from cues
func (h *SubtitleHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.As == "vtt" {
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
		io.WriteString(w, subtitle.ToWebVTT(req.Cues, req.Format, req.Styles))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, subtitle.Render(req.Cues))
}
