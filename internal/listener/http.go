package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SourceHTTP labels signals received over HTTP.
const SourceHTTP = "http"

// HTTPSource serves a small local endpoint other processes can hit when they
// change the cart. It also exposes health and metrics.
type HTTPSource struct {
	addr      string
	coalescer *Coalescer
	gatherer  prometheus.Gatherer
	logger    zerolog.Logger
}

// NewHTTPSource binds nothing until Run. A nil gatherer disables /metrics.
func NewHTTPSource(addr string, coalescer *Coalescer, gatherer prometheus.Gatherer, logger zerolog.Logger) *HTTPSource {
	return &HTTPSource{addr: addr, coalescer: coalescer, gatherer: gatherer, logger: logger}
}

// Handler returns the router.
func (s *HTTPSource) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1/cart", func(c chi.Router) {
		c.Post("/changed", s.changed)
	})
	return r
}

func (s *HTTPSource) changed(w http.ResponseWriter, r *http.Request) {
	s.coalescer.Signal(SourceHTTP)
	s.logger.Debug().Str("request_id", middleware.GetReqID(r.Context())).Msg("cart_change_signal")
	w.WriteHeader(http.StatusAccepted)
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *HTTPSource) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("cart_signal_listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
