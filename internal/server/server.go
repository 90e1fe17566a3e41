// Package server exposes a rule Engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rgehrsitz/acrex/internal/config"
	"rgehrsitz/acrex/internal/rules"
	"rgehrsitz/acrex/internal/runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// DecideResponse is the body returned by POST /v1/decide.
type DecideResponse struct {
	RequestID string       `json:"request_id"`
	Rule      string       `json:"rule"`
	Matched   bool         `json:"matched"`
	Action    rules.Action `json:"action"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// Server serves decisions from a shared Engine. The engine is read-only, so
// requests need no locking.
type Server struct {
	engine  *runtime.Engine
	config  config.ServerConfig
	metrics http.Handler
}

// New creates a server. metrics may be nil to disable /metrics.
func New(engine *runtime.Engine, cfg config.ServerConfig, metrics http.Handler) *Server {
	return &Server{engine: engine, config: cfg, metrics: metrics}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/decide", s.handleDecide)
	mux.HandleFunc("/v1/rules", s.handleRules)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return requestID(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.config.ListenAddress).Msg("Starting decision server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", s.config.ShutdownTimeout).Msg("Shutting down decision server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	id := requestIDFrom(r)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{RequestID: id, Error: "method not allowed"})
		return
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		log.Warn().Str("request_id", id).Err(err).Msg("Rejected malformed facts")
		writeJSON(w, http.StatusBadRequest, errorResponse{RequestID: id, Error: fmt.Sprintf("invalid facts: %v", err)})
		return
	}
	facts, err := rules.FactsFromMap(raw)
	if err != nil {
		log.Warn().Str("request_id", id).Err(err).Msg("Rejected malformed facts")
		writeJSON(w, http.StatusBadRequest, errorResponse{RequestID: id, Error: err.Error()})
		return
	}

	d := s.engine.Decide(facts)
	log.Info().Str("request_id", id).Str("rule", d.Rule).Str("mode", string(d.Action.Mode)).Msg("Decision served")

	writeJSON(w, http.StatusOK, DecideResponse{RequestID: id, Rule: d.Rule, Matched: d.Matched, Action: d.Action})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{RequestID: requestIDFrom(r), Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": s.engine.Rules()})
}

type ctxKey struct{}

// requestID tags every request with an id, reusing the caller's header when
// it is present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
