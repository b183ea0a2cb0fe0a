// Package health serves liveness, readiness and detailed health endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fd1az/arbsim/internal/logger"
)

const checkTimeout = 2 * time.Second

// Status is the /health response body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
}

// Check is the outcome of one registered check.
type Check struct {
	Healthy   bool    `json:"healthy"`
	Message   string  `json:"message,omitempty"`
	LatencyMs float64 `json:"latency_ms"`
}

// CheckFunc reports whether a component is healthy, with an optional detail.
type CheckFunc func(ctx context.Context) (bool, string)

// Server runs the probe endpoints. Readiness stays false until SetReady(true),
// so traffic is refused while modules are still starting.
type Server struct {
	port    int
	version string
	logger  logger.LoggerInterface
	started time.Time
	ready   atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
	server *http.Server
}

// NewServer creates a health server listening on port once started.
func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		logger:  log,
		started: time.Now(),
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces the check called name.
func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetReady flips the readiness gate.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	return mux
}

// Start listens in the background. Listen failures are logged.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "health server failed", "port", s.port, "error", err)
		}
	}()

	return nil
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.SetReady(false)
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// evaluate runs every check concurrently, each under its own timeout.
func (s *Server) evaluate(ctx context.Context) map[string]Check {
	s.mu.RLock()
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Check, len(checks))
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			healthy, msg := fn(cctx)
			res := Check{
				Healthy:   healthy,
				Message:   msg,
				LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
			}

			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func failing(results map[string]Check) []string {
	var names []string
	for name, c := range results {
		if !c.Healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.evaluate(r.Context())

	status := Status{
		Status:    "ok",
		Checks:    results,
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if len(failing(results)) > 0 {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn(r.Context(), "health response write failed", "error", err)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
		return
	}

	if bad := failing(s.evaluate(r.Context())); len(bad) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: " + strings.Join(bad, ", ")))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
