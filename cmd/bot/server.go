package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pauljones0/epic-free-games-bot/internal/processor"
)

const checkTimeout = 4 * time.Minute

type reconciler interface {
	Reconcile(ctx context.Context, tc processor.TriggerContext) processor.Outcome
}

// Server exposes health, metrics and an external trigger for the check.
type Server struct {
	engine  reconciler
	timeout time.Duration
	wg      sync.WaitGroup
}

func newServer(engine reconciler) *Server {
	return &Server{engine: engine, timeout: checkTimeout}
}

func (s *Server) routes(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /check", s.CheckHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

// CheckHandler starts an unattended reconciliation and returns immediately.
func (s *Server) CheckHandler(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in Reconcile", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		out := s.engine.Reconcile(ctx, processor.TriggerContext{})
		if out.Err != nil {
			slog.Error("Triggered check failed", "status", out.Status.String(), "error", out.Err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Game check started.")
}

// wait blocks until triggered checks still in flight have finished.
func (s *Server) wait() {
	s.wg.Wait()
}
