package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"echoverse/internal/audiobook"
	"echoverse/internal/paths"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Runner executes one rewrite+synthesize run.
type Runner interface {
	Run(ctx context.Context, text string) *audiobook.Result
}

// AudioSource opens committed run audio.
type AudioSource interface {
	OpenAudio(runID string) (*os.File, os.FileInfo, error)
}

// Options tune the HTTP surface.
type Options struct {
	// RateLimit is the number of generate requests allowed per IP per minute; 0 disables it.
	RateLimit      int
	AllowedOrigins []string
}

// Server is the single-page presentation layer.
type Server struct {
	runner Runner
	audio  AudioSource
	opts   Options
}

func NewServer(runner Runner, audio AudioSource, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{runner: runner, audio: audio, opts: opts}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
	)

	limit := func(next http.Handler) http.Handler { return next }
	if s.opts.RateLimit > 0 {
		limit = httprate.LimitByIP(s.opts.RateLimit, time.Minute)
	}

	r.Get("/", s.index)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.With(limit).Post("/generate", s.generate)
	r.Get("/runs/{runID}/audio", s.serveAudio(false))
	r.Get("/runs/{runID}/download", s.serveAudio(true))

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
		api.With(limit).Post("/generate", s.apiGenerate)
	})
	return r
}

type pageData struct {
	Text         string
	Result       *audiobook.Result
	DownloadName string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, data pageData) {
	data.DownloadName = paths.DownloadFilename
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		logFromRequest(r).Error("render page", "err", err)
	}
}
