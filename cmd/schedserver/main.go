package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/config"
	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/schedserver"
	"github.com/domino14/srs_scheduler/internal/stores/sqlstore"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBURI)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("opening-store")
	}
	col, err := collection.Open(ctx, store, collection.Options{
		UndoLimit:   cfg.UndoLimit,
		DisableFuzz: cfg.DisableFuzz,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("opening-collection")
	}

	schedServer := schedserver.NewServer(col)
	var opts []connect.HandlerOption
	if cfg.SecretKey != "" {
		opts = append(opts, connect.WithInterceptors(NewAuthInterceptor([]byte(cfg.SecretKey))))
		schedServer.RequireUser = true
	} else {
		log.Warn().Msg("auth-disabled")
	}
	path, handler := schedserver.NewHandler(schedServer, opts...)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	middlewares := alice.New(
		hlog.NewHandler(log.Logger),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: middlewares.Then(mux),
	}
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("got quit signal...")
		// Interrupt a long queue build so shutdown is not held up by it.
		col.SetAbort()
		ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Msgf("HTTP server Shutdown: %v", err)
		}
		cancel()
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("")
	}
	<-idleConnsClosed
	if err := col.Close(); err != nil {
		log.Error().Err(err).Msg("closing-collection")
	}
	log.Info().Msg("server gracefully shutting down")
}
