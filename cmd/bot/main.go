package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/epic-free-games-bot/internal/bot"
	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/epic"
	"github.com/pauljones0/epic-free-games-bot/internal/metrics"
	"github.com/pauljones0/epic-free-games-bot/internal/notifier"
	"github.com/pauljones0/epic-free-games-bot/internal/processor"
	"github.com/pauljones0/epic-free-games-bot/internal/scheduler"
	"github.com/pauljones0/epic-free-games-bot/internal/storage"
)

const (
	readyTimeout    = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Bot exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped.")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("critical error loading configuration: %w", err)
	}
	slog.SetDefault(newLogger(cfg, os.Stdout))
	slog.Info("Starting Epic free games bot...", "backend", cfg.StateBackend, "daily_check", cfg.DailyTime(), "timezone", cfg.Location.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("critical error initializing state store: %w", err)
	}
	defer store.Close()

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	recorder := metrics.NewRecorder(nil)
	pub := notifier.New(session, cfg, notifier.NewWebhook(cfg.DiscordWebhookURL, cfg.WebhookMinGap))
	engine := processor.New(ctx, store, epic.New(cfg), pub, cfg, processor.WithRecorder(recorder))

	sched, err := scheduler.New(engine, cfg)
	if err != nil {
		return err
	}
	b := bot.New(engine, sched, pub.Renderer(), cfg, cancel,
		bot.WithCommandObserver(recorder),
		bot.WithContext(ctx),
	)
	b.Attach(session)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer session.Close()

	srv := newServer(engine)
	var httpServer *http.Server
	if cfg.HTTPEnabled() {
		httpServer = &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv.routes(recorder.Handler()),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			slog.Info("Listening on port", "port", cfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Failed to listen and serve", "error", err)
			}
		}()
	}

	select {
	case <-b.Ready():
	case <-time.After(readyTimeout):
		slog.Warn("Discord ready event not received, starting scheduler anyway")
	case <-ctx.Done():
	}

	if ctx.Err() == nil {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	if err := sched.Stop(); err != nil {
		slog.Error("Scheduler shutdown error", "error", err)
	}
	if httpServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}
	srv.wait()
	b.Wait()
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
