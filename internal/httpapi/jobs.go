package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"repurpose/internal/artifacts"
	"repurpose/internal/jobstore"
	"repurpose/internal/logging"
	"repurpose/internal/notifications"
	"repurpose/internal/pipeline"
)

const maxListLimit = 100

type createJobRequest struct {
	ID         string   `json:"id"`
	Transcript string   `json:"transcript"`
	Source     string   `json:"source"`
	Platforms  []string `json:"platforms"`
	Tone       string   `json:"tone"`
}

// handleCreateJob runs a job and streams its events as NDJSON. Request
// problems are reported with a JSON error before streaming starts; job
// failures arrive as error events inside the stream.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeJob(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Platforms) == 0 {
		req.Platforms = s.DefaultPlatforms
	}
	if err := s.Runner.ValidatePlatforms(req.Platforms); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Job-ID", req.ID)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	sink := pipeline.NewNDJSONSink(w)
	result, runErr := s.Runner.Run(ctx, pipeline.Job{
		ID:         req.ID,
		Transcript: req.Transcript,
		Source:     req.Source,
		Platforms:  req.Platforms,
		Tone:       req.Tone,
	}, pipeline.NewRegistry(sink))

	if s.Notifier == nil {
		return
	}
	if err := notifications.PublishOutcome(context.WithoutCancel(ctx), s.Notifier, req.ID, result, runErr); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.log()), "job notification failed", "notification_failed",
			logging.String("job_id", req.ID),
			logging.Error(err),
		)
	}
}

// decodeJob accepts either a JSON body or a multipart form whose "media"
// file is stored as the job's transcription source.
func (s *Server) decodeJob(r *http.Request) (createJobRequest, error) {
	var req createJobRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		limit := s.MaxUploadBytes
		if limit <= 0 {
			limit = defaultMaxUpload
		}
		if err := r.ParseMultipartForm(limit); err != nil {
			return req, fmt.Errorf("parse multipart: %w", err)
		}
		req.ID = r.FormValue("id")
		req.Transcript = r.FormValue("transcript")
		req.Source = r.FormValue("source")
		req.Tone = r.FormValue("tone")
		req.Platforms = splitList(r.Form["platforms"])
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid job JSON: %w", err)
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Platforms = splitList(req.Platforms)

	source, err := s.resolveSource(req.Source)
	if err != nil {
		return req, err
	}
	req.Source = source

	if r.MultipartForm == nil {
		return req, nil
	}
	file, header, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, fmt.Errorf("read media upload: %w", err)
	}
	defer file.Close()
	if s.Artifacts == nil {
		return req, errors.New("media uploads require an artifact store")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	stored, err := s.Artifacts.Put(artifacts.Key(req.ID, "input", "media", ext), file)
	if err != nil {
		return req, fmt.Errorf("store media: %w", err)
	}
	if req.Source, err = s.Artifacts.Path(stored.Key); err != nil {
		return req, err
	}
	return req, nil
}

// resolveSource admits an http(s) video URL or the key of an uploaded
// artifact, returning what the transcriber should read. Host paths are
// rejected.
func (s *Server) resolveSource(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil
	}
	if parsed, err := url.Parse(source); err == nil && parsed.Host != "" &&
		(parsed.Scheme == "http" || parsed.Scheme == "https") {
		return source, nil
	}
	if s.Artifacts == nil {
		return "", errors.New("source must be an http(s) URL")
	}
	if strings.HasPrefix(source, "/") || strings.Contains(source, "://") || path.Clean(source) != source ||
		strings.HasPrefix(source, "..") {
		return "", fmt.Errorf("source must be an http(s) URL or an artifact key, got %q", source)
	}
	if !s.Artifacts.Exists(source) {
		return "", fmt.Errorf("artifact %q not found", source)
	}
	return s.Artifacts.Path(source)
}

// splitList flattens comma separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobstore.ListFilter{Status: jobstore.Status(strings.TrimSpace(r.URL.Query().Get("status")))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}
	jobs, err := s.Jobs.List(r.Context(), filter)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if jobs == nil {
		jobs = []jobstore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *jobstore.Job {
	id := chi.URLParam(r, "id")
	job, err := s.Jobs.Get(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return nil
	}
	if job == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
		return nil
	}
	return job
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if job := s.lookup(w, r); job != nil {
		writeJSON(w, http.StatusOK, job)
	}
}

// handleGetResult returns the stored aggregate exactly as persisted.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	job := s.lookup(w, r)
	if job == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Result)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.Jobs.Delete(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if !deleted {
		writeErr(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
