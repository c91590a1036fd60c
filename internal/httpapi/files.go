package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"repurpose/internal/logging"
	"repurpose/internal/logs"
)

const (
	defaultLogLimit = 200
	logFollowWait   = 10 * time.Second
)

// handleGetArtifact serves a stored stage output such as narration audio or
// a thumbnail. Keys are the artifact store's relative paths.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if s.Artifacts == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("artifact store not configured"))
		return
	}
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		writeErr(w, http.StatusBadRequest, errors.New("invalid artifact path"))
		return
	}
	f, err := s.Artifacts.Open(clean)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	contentType := http.DetectContentType(buf[:n])
	if mimeType := mime.TypeByExtension(path.Ext(clean)); mimeType != "" {
		if contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/plain") || strings.HasPrefix(contentType, "text/xml") {
			contentType = mimeType
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

// handleLogs returns in-memory log events after ?since=, optionally waiting
// for new ones with ?follow=1.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.LogHub == nil {
		writeJSON(w, http.StatusOK, logs.StreamResponse{Events: []logging.LogEvent{}})
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit := parseLimit(query.Get("limit"), defaultLogLimit)
	follow := truthy(query.Get("follow"))
	component := strings.TrimSpace(query.Get("component"))
	jobID := strings.TrimSpace(query.Get("job"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if since == 0 && !follow {
		events, next = s.LogHub.Tail(limit)
	} else {
		ctx := r.Context()
		var err error
		if follow {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, logFollowWait)
			defer cancel()
		}
		events, next, err = s.LogHub.Fetch(ctx, since, limit, follow)
		if err != nil && ctx.Err() == nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err != nil {
			next = since
		}
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		filtered = append(filtered, evt)
	}
	writeJSON(w, http.StatusOK, logs.StreamResponse{Events: filtered, Next: next})
}

type logFileResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// handleLogFile tails the daemon log file. A missing or negative ?offset=
// returns the last ?limit= lines; ?job= keeps lines mentioning that job.
func (s *Server) handleLogFile(w http.ResponseWriter, r *http.Request) {
	if s.LogPath == "" {
		writeErr(w, http.StatusNotFound, errors.New("log file not configured"))
		return
	}
	query := r.URL.Query()
	offset := int64(-1)
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid offset %q", raw))
			return
		}
		offset = parsed
	}
	opts := logs.TailOptions{
		Offset: offset,
		Limit:  parseLimit(query.Get("limit"), defaultLogLimit),
		Follow: truthy(query.Get("follow")),
		Match:  strings.TrimSpace(query.Get("job")),
	}
	if opts.Follow {
		opts.Wait = logFollowWait
	}
	result, err := logs.Tail(r.Context(), s.LogPath, opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if result.Lines == nil {
		result.Lines = []string{}
	}
	writeJSON(w, http.StatusOK, logFileResponse{Lines: result.Lines, Offset: result.Offset})
}

func parseLimit(raw string, fallback int) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func truthy(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "1" || strings.EqualFold(raw, "true")
}
