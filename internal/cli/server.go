package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/config"
	"bodhiment-quiz/internal/infra/memory"
	"bodhiment-quiz/internal/infra/postgres"
	redisregistry "bodhiment-quiz/internal/infra/redis"
	transport "bodhiment-quiz/internal/transport/http"
	"github.com/gorilla/securecookie"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(os.Stdout, cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	var results app.ResultStore = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		results = postgres.NewResultStore(pool)
		logger.Info("connected to postgres")
	}

	source, err := newQuestionSource(cfg, rdb, logger)
	if err != nil {
		return err
	}

	settings := quizSettings(cfg)
	factory := func(userID string) *app.Host {
		return app.NewHost(app.HostConfig{
			Source:   source,
			Identity: memory.NewStaticIdentity(userID),
			Results:  results,
			Settings: settings,
			Logger:   logger.With("user_id", userID),
		})
	}
	var hosts app.HostRegistry = memory.NewHostRegistry(factory)
	if rdb != nil {
		hosts = redisregistry.NewHostRegistry(rdb, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), factory)
	}

	secret := []byte(cfg.Server.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Warn("server.session_secret not set; identities will not survive a restart")
	}

	router := transport.NewRouter(transport.RouterConfig{
		Logger:   logger,
		Identity: transport.NewIdentity(secret),
		Hosts:    hosts,
		NewHost: func() *app.Host {
			return app.NewHost(app.HostConfig{Source: source, Settings: settings, Logger: logger})
		},
		Results: results,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", "addr", server.Addr, "generator", cfg.Generator.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
