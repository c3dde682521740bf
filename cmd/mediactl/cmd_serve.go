package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/media"
)

// server exposes mediaOps for one page over HTTP. Requests are serialised:
// they all drive the same page and a Handle is not safe for concurrent use.
type server struct {
	cfg      *Config
	b        bridge.Bridge
	reg      *prometheus.Registry
	ops      map[string]mediaOp
	requests *prometheus.CounterVec
	mu       sync.Mutex
}

func newServer(cfg *Config, b bridge.Bridge, reg *prometheus.Registry) *server {
	s := &server{
		cfg: cfg,
		b:   b,
		reg: reg,
		ops: make(map[string]mediaOp, len(mediaOps)),
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediactl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Media requests by operation and status code.",
		}, []string{"op", "code"}),
	}
	for _, op := range mediaOps {
		s.ops[op.Name] = op
	}
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg}))

	r.Route("/media", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{op}", s.handleOp)
		r.Post("/{op}", s.handleOp)
	})
	return r
}

type opInfo struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	Arg  string `json:"arg,omitempty"`
	Read bool   `json:"read"`
}

func (s *server) handleList(w http.ResponseWriter, _ *http.Request) {
	infos := make([]opInfo, 0, len(mediaOps))
	for _, op := range mediaOps {
		infos = append(infos, opInfo{Name: op.Name, Desc: op.Desc, Arg: op.Arg, Read: op.Read})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *server) handleOp(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "op")
	op, ok := s.ops[name]
	if !ok {
		s.fail(w, name, http.StatusNotFound, fmt.Errorf("unknown operation: %s", name))
		return
	}
	if r.Method == http.MethodGet && !op.Read {
		s.fail(w, name, http.StatusMethodNotAllowed, fmt.Errorf("%s changes the element; use POST", name))
		return
	}

	q := r.URL.Query()
	params := handleParams{
		kind:   q.Get("kind"),
		id:     q.Get("id"),
		xpath:  q.Get("xpath"),
		handle: q.Get("handle"),
	}
	if params.kind == "" {
		params.kind = s.cfg.Kind
	}

	arg := ""
	if op.Arg != "" {
		arg = q.Get(op.Arg)
	}
	if op.Optional && r.Method == http.MethodGet {
		arg = ""
	}
	if op.Arg != "" && !op.Optional && arg == "" {
		s.fail(w, name, http.StatusBadRequest, fmt.Errorf("missing %s parameter", op.Arg))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	s.mu.Lock()
	result, err := s.run(ctx, op, params, arg)
	s.mu.Unlock()

	if err != nil {
		s.fail(w, name, statusFor(err), err)
		return
	}
	s.requests.WithLabelValues(name, strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, result)
}

func (s *server) run(ctx context.Context, op mediaOp, p handleParams, arg string) (interface{}, error) {
	h, err := bindHandle(ctx, s.cfg, s.b, p)
	if err != nil {
		return nil, err
	}
	return op.Run(ctx, h, arg)
}

func (s *server) fail(w http.ResponseWriter, op string, code int, err error) {
	s.requests.WithLabelValues(op, strconv.Itoa(code)).Inc()
	if code >= http.StatusInternalServerError {
		s.cfg.log.Warn("request failed", zap.String("op", op), zap.Int("code", code), zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps operation errors to HTTP status codes.
func statusFor(err error) int {
	var typeErr *bridge.TypeError
	switch {
	case errors.Is(err, media.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrNotCounting):
		return http.StatusConflict
	case errors.Is(err, bridge.ErrScript):
		return http.StatusUnprocessableEntity
	case errors.As(err, &typeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func cmdServe(cfg *Config, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := cfg.Open
	if open == nil {
		open = openBridge
	}
	b, closeBridge, err := open(ctx, cfg, cfg.log)
	if err != nil {
		var ce *connError
		if errors.As(err, &ce) {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitConnFailed
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer closeBridge()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s := newServer(cfg, instrument(cfg, b, bridge.NewMetrics(reg)), reg)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cfg.Stderr, "serving on http://%s\n", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
