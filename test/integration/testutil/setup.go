//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/app"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/auth"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/handler"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/notify"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/repository"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/store"
)

const (
	TestJWTSecret = "integration-test-secret-0123456789abcdef"
	TestDBHost    = "localhost"
	TestDBPort    = 5435
	TestDBUser    = "mxshare"
	TestDBPass    = "mxshare"
	TestDBName    = "mxshare_test"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	Store  *store.Postgres
	Hub    *notify.Hub
	JWTMgr *auth.JWTManager
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "mxshare")
}

func ensureTestDB() error {
	if os.Getenv("TEST_DATABASE_URL") != "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}
	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		if err := infra.RunMigrations(testDSN(), quiet); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sharedPool, poolErr = infra.NewPostgresPool(ctx, testDSN(), 10)
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router and a Postgres progress store.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	pg := store.NewPostgres(pool, repository.NewGamificationRepository(), repository.NewOutboxRepository())
	catalog := quest.MustDefaultCatalog()
	hub := notify.NewHub(logger)
	engine := progression.New(pg, catalog, hub, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)),
		progression.WithLogger(logger))

	dedupe, err := guard.NewIdempotencyGuard(1024)
	if err != nil {
		t.Fatalf("idempotency guard: %v", err)
	}
	jwtMgr := auth.NewJWTManager(TestJWTSecret, time.Hour, time.Hour)

	router := app.NewRouter(app.RouterDeps{
		Engine:      engine,
		Catalog:     catalog,
		Hub:         hub,
		JWTMgr:      jwtMgr,
		Logger:      logger,
		Dedupe:      dedupe,
		RerollLimit: 100,
		HealthChecks: map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error { return infra.HealthCheck(ctx, pool) },
		},
		CORSAllowedOrigins: []string{"*"},
	})

	server := httptest.NewServer(router)
	env := &TestEnv{
		Server: server,
		Pool:   pool,
		Store:  pg,
		Hub:    hub,
		JWTMgr: jwtMgr,
		t:      t,
	}

	t.Cleanup(func() {
		server.Close()
		env.CleanAll()
	})
	env.CleanAll()
	return env
}
