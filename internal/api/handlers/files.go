package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/storage"
	"github.com/video-stream/subtrans/internal/subtitle"
)

// extractPath extracts and URL-decodes the wildcard path from chi router
func extractPath(r *http.Request) string {
	path := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	// Clean any double slashes or trailing slashes
	decoded = strings.TrimPrefix(decoded, "/")
	decoded = strings.TrimSuffix(decoded, "/")
	return decoded
}

// FilesHandler browses the translated artifacts under SUBTITLE_PATH
type FilesHandler struct {
	subtitlePath string
}

func NewFilesHandler(subtitlePath string) *FilesHandler {
	return &FilesHandler{subtitlePath: subtitlePath}
}

func (h *FilesHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	path := extractPath(r)
	if path == "" {
		path = "."
	}

	entries, err := storage.ListDirectory(h.subtitlePath, path)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOutsideBase):
			jsonError(w, "invalid path", http.StatusBadRequest)
		case errors.Is(err, os.ErrNotExist):
			jsonError(w, "directory not found", http.StatusNotFound)
		default:
			jsonError(w, "failed to list directory", http.StatusInternalServerError)
		}
		return
	}

	jsonResponse(w, map[string]interface{}{
		"path":    path,
		"entries": entries,
	}, http.StatusOK)
}

// GetContent serves an artifact; ?as=vtt converts it to a WebVTT track
func (h *FilesHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	path := extractPath(r)
	data, err := storage.ReadArtifact(h.subtitlePath, path)
	if err != nil {
		if errors.Is(err, storage.ErrOutsideBase) {
			jsonError(w, "invalid path", http.StatusBadRequest)
			return
		}
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("as") == "vtt" {
		content, err := subtitle.Decode(data)
		if err != nil {
			jsonError(w, "failed to decode file", http.StatusInternalServerError)
			return
		}
		doc, err := subtitle.ParseFile(path, content)
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
		w.Write([]byte(subtitle.ToWebVTT(doc.Cues, doc.Format, doc.Styles)))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.Write(data)
}

func (h *FilesHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	lang := r.URL.Query().Get("language")
	results, err := storage.Search(h.subtitlePath, storage.SearchQuery{Text: q, Language: lang, Limit: 50})
	if err != nil {
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"query":   q,
		"results": results,
	}, http.StatusOK)
}
