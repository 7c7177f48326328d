package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"popquiz-service/internal/app"
	"popquiz-service/internal/auth"
	"popquiz-service/internal/catalog"
	"popquiz-service/internal/config"
	"popquiz-service/internal/infra/memory"
	pgstore "popquiz-service/internal/infra/postgres"
	redisstore "popquiz-service/internal/infra/redis"
	"popquiz-service/internal/leaderboard"
	"popquiz-service/internal/logging"
	"popquiz-service/internal/metrics"
	transport "popquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New("popquiz", cfg.Log.Env, cfg.Log.Level)
	ctx = logging.IntoContext(ctx, logger)

	cat, err := catalog.New(logger)
	if err != nil {
		return err
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
		if err := seedCatalog(ctx, cfg, cat, logger); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	storeTimeout := config.TTLDuration(cfg.Store.Timeout, leaderboard.DefaultTimeout)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.QuizLoader = cat
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	var quizRepo app.QuizRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL, logger)
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	var scores app.ScoreStore
	var accounts auth.AccountStore
	switch {
	case pool != nil:
		poll := config.TTLDuration(cfg.Store.PollInterval, pgstore.DefaultPollInterval)
		scores = pgstore.NewScoreStore(pool, poll, logger)
		accounts = pgstore.NewAccountStore(pool)
	case redisClient != nil:
		scores = redisstore.NewScoreStore(redisClient, logger)
		accounts = memory.NewAccountStore()
	default:
		scores = memory.NewScoreStore()
		accounts = memory.NewAccountStore()
	}

	m := metrics.New()
	service := app.NewQuizService(cat, quizRepo, scores, sessions, app.Options{
		SubmitTimeout: storeTimeout,
		FetchTimeout:  storeTimeout,
		Logger:        logger,
		Metrics:       m,
	})
	identity := auth.NewService(accounts, authConfig(cfg, logger), logger)

	router := transport.NewRouter(
		transport.NewAPIHandler(service, identity, logger),
		transport.NewWSHandler(service, identity, logger),
		m.Registry,
		logger,
	)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func authConfig(cfg config.Config, logger zerolog.Logger) auth.Config {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Tokens will not survive a restart.
		secret = uuid.NewString()
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral signing key")
	}
	return auth.Config{
		Secret:     []byte(secret),
		TokenTTL:   config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour),
		BcryptCost: cfg.Auth.BcryptCost,
	}
}
