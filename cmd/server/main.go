package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "watchparty/internal/adapters/http"
	wssignal "watchparty/internal/adapters/signal"
	"watchparty/internal/adapters/store"
	"watchparty/internal/app"
	"watchparty/internal/config"
	"watchparty/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DataPath).Msg("failed to open room database")
	}
	defer db.Close()

	rooms := store.NewBadgerStore(db)
	directory := store.NewDirectory()
	reconciler := core.NewReconciler(cfg.SyncTolerance, cfg.SyncQuorum, cfg.SyncMinReports)

	gateway := app.NewGateway(rooms, directory, reconciler)
	if cfg.JoinTimeout > 0 {
		gateway.JoinTimeout = cfg.JoinTimeout
	}

	limiter := wssignal.NewChatRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ctl := wssignal.NewController(gateway, limiter, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, ctl, rooms, directory)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("WatchParty server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
