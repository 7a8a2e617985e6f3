package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/chessrules"
	appcfg "github.com/park285/cheese-relay/internal/config"
	"github.com/park285/cheese-relay/internal/gateway"
	"github.com/park285/cheese-relay/internal/journal"
	"github.com/park285/cheese-relay/internal/lobby"
	"github.com/park285/cheese-relay/internal/msgcat"
	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/room"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_error", zap.String("dir", cfg.MessagesDir), zap.Error(err))
	}

	storeOpts := []lobby.Option{
		lobby.WithRetention(cfg.RoomRetention),
		lobby.WithRules(rulesFor(cfg.Rules)),
	}
	if cfg.RedisURL != "" {
		reserver, err := lobby.OpenRedisReserver(ctx, cfg.RedisURL, cfg.ReservationTTL, cfg.InstanceID)
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer func() { _ = reserver.Close() }()
		storeOpts = append(storeOpts, lobby.WithReserver(reserver))
		logger.Info("room_reservations", zap.String("backend", "redis"), zap.Duration("ttl", cfg.ReservationTTL))
	}

	var recorder journal.Recorder = journal.Nop{}
	if cfg.DatabaseURL != "" {
		pg, err := journal.OpenPostgres(ctx, cfg.DatabaseURL, 0)
		if err != nil {
			logger.Fatal("journal_init_error", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()
		recorder = pg
		logger.Info("journal", zap.String("backend", "postgres"))
	}

	hub := gateway.NewHub(lobby.NewStore(storeOpts...),
		gateway.WithCatalog(catalog),
		gateway.WithJournal(recorder),
		gateway.WithLogger(logger),
		gateway.WithSweepInterval(cfg.SweepInterval),
		gateway.WithOutboxSize(cfg.OutboxSize),
		gateway.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gateway.NewRouter(hub),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	logger.Info("relay_listen", zap.String("addr", cfg.Addr), zap.String("rules", cfg.Rules), zap.String("instance", cfg.InstanceID))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server_error", zap.Error(err))
	}

	stopHub()
	<-hub.Done()
	logger.Info("relay_stopped")
}

func rulesFor(name string) room.Rules {
	if name == appcfg.RulesChess {
		return chessrules.New()
	}
	return room.PassThrough
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
