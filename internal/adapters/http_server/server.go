package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

type Option func(*options)

type options struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// WithTimeout bounds every request handler.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

func New(opts ...Option) *Server {
	o := options{timeout: defaultTimeout, logger: log.Logger}
	for _, fn := range opts {
		fn(&o)
	}

	m := chi.NewRouter()

	// middlewares must be registered before any route; RealIP runs first so
	// the access log sees the client address
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(o.timeout))
	m.Use(Observe(o.logger.With().Str("component", "http").Logger()))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
