package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"repurpose/internal/artifacts"
	"repurpose/internal/jobstore"
	"repurpose/internal/logging"
	"repurpose/internal/notifications"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
)

// Runner executes generation jobs.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job, out pipeline.Emitter) (*pipeline.Result, error)
	ValidatePlatforms(names []string) error
	Specs() []pipeline.StageSpec
}

// JobStore reads and deletes persisted job records.
type JobStore interface {
	List(ctx context.Context, filter jobstore.ListFilter) ([]jobstore.Summary, error)
	Get(ctx context.Context, id string) (*jobstore.Job, error)
	Delete(ctx context.Context, id string) (bool, error)
	Health(ctx context.Context) (jobstore.HealthSummary, error)
}

// Server exposes the generation pipeline and its job history over HTTP.
type Server struct {
	Runner    Runner
	Jobs      JobStore
	Artifacts *artifacts.LocalFS
	Notifier  notifications.Service
	Logger    *slog.Logger
	// Token enables bearer authentication on every /v1 route when set.
	Token string
	// LogPath is the log file served by /v1/logs/file.
	LogPath string
	LogHub  *logging.StreamHub
	// DefaultPlatforms applies when a request names none.
	DefaultPlatforms []string
	// MaxUploadBytes bounds multipart media uploads.
	MaxUploadBytes int64
}

const defaultMaxUpload = 512 << 20

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.Token))
		r.Get("/stages", s.handleStages)
		r.Post("/jobs", s.handleCreateJob)
		r.Group(func(r chi.Router) {
			r.Use(s.requireJobs)
			r.Get("/status", s.handleStatus)
			r.Get("/jobs", s.handleListJobs)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Get("/jobs/{id}/result", s.handleGetResult)
			r.Delete("/jobs/{id}", s.handleDeleteJob)
		})
		r.Get("/artifacts/*", s.handleGetArtifact)
		r.Get("/logs", s.handleLogs)
		r.Get("/logs/file", s.handleLogFile)
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerAuth requires "Authorization: Bearer <token>" when token is set.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeErr(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			given := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				writeErr(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger records one structured line per request and carries the
// chi request ID into the context for downstream loggers.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rid := middleware.GetReqID(ctx); rid != "" {
			ctx = services.WithRequestID(ctx, rid)
			r = r.WithContext(ctx)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.WithContext(ctx, s.log()).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

// requireJobs rejects history routes when no job store is attached.
func (s *Server) requireJobs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Jobs == nil {
			writeErr(w, http.StatusServiceUnavailable, errors.New("job store not configured"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	health, err := s.Jobs.Health(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   health,
		"stages": len(s.Runner.Specs()),
	})
}

type stageInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Mode  string `json:"mode"`
	Phase string `json:"phase"`
	After string `json:"after,omitempty"`
}

func (s *Server) handleStages(w http.ResponseWriter, _ *http.Request) {
	specs := s.Runner.Specs()
	out := make([]stageInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, stageInfo{
			ID:    spec.ID,
			Label: spec.Label,
			Mode:  string(spec.Mode),
			Phase: string(spec.Phase),
			After: spec.After,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": out})
}

func (s *Server) log() *slog.Logger {
	if s.Logger != nil {
		return logging.NewComponentLogger(s.Logger, "http-api")
	}
	return logging.NewNop()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

// statusFor maps classified service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
