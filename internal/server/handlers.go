package server

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/visstudy/pkg/buildinfo"
	"github.com/matzehuels/visstudy/pkg/dataset"
	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/study"
)

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Ready   bool   `json:"ready"`
}

type experimentEntry struct {
	File   string            `json:"file"`
	Fields *study.SlugFields `json:"fields,omitempty"`
}

type listResponse struct {
	Experiments []experimentEntry `json:"experiments"`
}

type detailResponse struct {
	Slug     string           `json:"slug"`
	Fields   study.SlugFields `json:"fields"`
	DataPath string           `json:"data_path"`
	SpecPath string           `json:"spec_path"`
	PagePath string           `json:"page_path"`
	Summary  dataset.Summary  `json:"summary"`
}

type indexResponse struct {
	Path string `json:"path"`
}

type removeResponse struct {
	Removed int `json:"removed"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: buildinfo.Version,
		Ready:   s.runner.Sink.Ready(),
	})
}

func (s *Server) listExperiments(w http.ResponseWriter, r *http.Request) {
	pages, err := s.runner.Sink.Pages()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := listResponse{Experiments: make([]experimentEntry, 0, len(pages))}
	for _, name := range pages {
		e := experimentEntry{File: name}
		if f, err := study.ParsePageName(name); err == nil {
			e.Fields = &f
		}
		resp.Experiments = append(resp.Experiments, e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getExperiment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	fields, err := study.ParseSlug(slug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := fields.Request()

	f, err := s.runner.Sink.Open(study.DataPath(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	rows, err := dataset.Read(f, fields.DataFormat)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Slug:     slug,
		Fields:   fields,
		DataPath: study.DataPath(req),
		SpecPath: study.SpecPath(req),
		PagePath: study.PagePath(req),
		Summary:  dataset.Summarize(rows),
	})
}

// generateExperiment decodes a request over the defaults, so clients only
// send the fields they change.
func (s *Server) generateExperiment(w http.ResponseWriter, r *http.Request) {
	req := study.DefaultRequest()
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	res, err := s.runner.GenerateChart(r.Context(), req)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) generateIndex(w http.ResponseWriter, r *http.Request) {
	var opts page.IndexOptions
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &opts); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.mu.Lock()
	path, err := s.runner.GenerateIndex(r.Context(), opts)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, indexResponse{Path: path})
}

func (s *Server) removeExperiments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n, err := s.runner.RemoveAllGenerated(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: n})
}

// =============================================================================
// Encoding
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	if err := sonic.ConfigDefault.Unmarshal(body, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigDefault.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusOf maps error codes to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, errors.ErrCodeFileNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: code})
}
