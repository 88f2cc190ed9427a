package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"echoverse/internal/audiobook"
	"echoverse/internal/paths"
	"echoverse/internal/storage"
)

// maxFormBytes caps the submitted text size.
const maxFormBytes = 1 << 20

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, pageData{})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := r.PostFormValue("text")
	res := s.run(r, text)
	s.render(w, r, pageData{Text: text, Result: res})
}

// run detaches from the request so a closed browser tab does not abort a run
// half way; the pipeline applies its own timeout.
func (s *Server) run(r *http.Request, text string) *audiobook.Result {
	res := s.runner.Run(context.WithoutCancel(r.Context()), text)
	logFromRequest(r).Info("generate finished", "runID", res.RunID, "state", res.State, "errors", len(res.Errors))
	return res
}

type apiRequest struct {
	Text string `json:"text"`
}

type apiResponse struct {
	*audiobook.Result
	AudioURL    string `json:"audioUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func (s *Server) apiGenerate(w http.ResponseWriter, r *http.Request) {
	var req apiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	res := s.run(r, req.Text)

	resp := apiResponse{Result: res}
	status := http.StatusOK
	switch {
	case res.State == audiobook.StateIdle:
		status = http.StatusUnprocessableEntity
	case !res.HasAudio():
		status = http.StatusBadGateway
	default:
		resp.AudioURL = fmt.Sprintf("/runs/%s/audio", res.RunID)
		resp.DownloadURL = fmt.Sprintf("/runs/%s/download", res.RunID)
	}
	writeJSON(w, status, resp)
}

func (s *Server) serveAudio(download bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		f, info, err := s.audio.OpenAudio(runID)
		switch {
		case errors.Is(err, storage.ErrInvalidRunID):
			http.Error(w, "invalid run id", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrArtifactNotFound):
			http.NotFound(w, r)
			return
		case err != nil:
			logFromRequest(r).Error("open audio", "runID", runID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "audio/mpeg")
		if download {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", paths.DownloadFilename))
		} else {
			w.Header().Set("Content-Disposition", "inline")
		}
		http.ServeContent(w, r, paths.DownloadFilename, info.ModTime(), f)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
