package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"

	"popquiz-service/internal/app"
	"popquiz-service/internal/auth"
	"popquiz-service/internal/domain"
	pgstore "popquiz-service/internal/infra/postgres"
	pgmigrations "popquiz-service/internal/infra/postgres/migrations"
	infraredis "popquiz-service/internal/infra/redis"
	"popquiz-service/internal/leaderboard"
)

func TestPlayQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	logger := zerolog.Nop()
	quizRepo := infraredis.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute, logger)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	scores := pgstore.NewScoreStore(pool, 100*time.Millisecond, logger)
	service := app.NewQuizService(staticCategories{}, quizRepo, scores, sessionStore, app.Options{Logger: logger})

	identity := auth.NewService(pgstore.NewAccountStore(pool), auth.Config{
		Secret:     []byte("integration"),
		BcryptCost: bcrypt.MinCost,
	}, logger)
	client := auth.NewClient(identity)
	creds, err := client.SignUp(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := identity.SignUp(ctx, "Alice@example.com", "secret1"); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}

	sessionID, engine := service.Open(client)
	defer service.Close(sessionID)

	state, err := service.Start(ctx, sessionID, "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < state.Total; i++ {
		current := engine.State().Current
		option := current.CorrectOption
		if i == 0 {
			option = "wrong"
		}
		if _, err := engine.SelectAnswer(option); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if _, err := engine.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	engine.Wait()

	select {
	case n := <-engine.Notices():
		if n.Kind != domain.NoticeScoreSaved {
			t.Fatalf("expected score saved notice, got %+v", n)
		}
	default:
		t.Fatalf("expected a notice after completion")
	}

	lb, err := service.Leaderboard(ctx, creds.Identity.UserID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 {
		t.Fatalf("expected one entry, got %+v", lb.Entries)
	}
	entry := lb.Entries[0]
	if entry.Score != 1 || entry.TotalQuestions != 2 || entry.Percentage != 50 || entry.Owner != leaderboard.OwnerSelf {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

type staticCategories struct{}

func (staticCategories) Categories() []domain.Category {
	return []domain.Category{sampleQuiz().Category()}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, stop := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", addr), stop
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, stop := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	return "redis://" + addr, stop
}

// startContainer runs req and returns host:port of its first exposed port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	stop := func() { _ = container.Terminate(ctx) }

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		stop()
		t.Fatalf("%s endpoint: %v", req.Image, err)
	}
	return endpoint, stop
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string, quizzes ...domain.QuizDefinition) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pgstore.SeedQuizzes(ctx, db, quizzes); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:   "quiz-1",
		Name: "Maths",
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4"},
			{Text: "What is 3 + 3?", Options: []string{"6", "4", "5"}, CorrectOption: "6"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
