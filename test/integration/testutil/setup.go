//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/attaboy/lifestats/internal/app"
	"github.com/attaboy/lifestats/internal/auth"
	"github.com/attaboy/lifestats/internal/guard"
	"github.com/attaboy/lifestats/internal/infra"
	"github.com/attaboy/lifestats/internal/repository"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/attaboy/lifestats/internal/stats"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TestJWTSecret     = "integration-test-secret"
	TestDBHost        = "localhost"
	TestDBPort        = 5435
	TestDBUser        = "lifestats"
	TestDBPass        = "lifestats"
	TestDBName        = "lifestats_test"
	TestNotifyChannel = "record_changes"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Engine *stats.Engine
	Stores source.Stores
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "lifestats")
}

func ensureTestDB() error {
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

func runMigrations() error {
	m, err := newMigrate("file://"+filepath.ToSlash(filepath.Join(findProjectRoot(), "db", "migrations")), testDSN())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !isNoChange(err) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}
		if err := runMigrations(); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router, a Postgres-backed stats engine and the NOTIFY listener.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Clean before wiring so the first recompute sees empty tables.
	env := &TestEnv{Pool: pool, t: t}
	env.CleanAll()

	ctx, cancel := context.WithCancel(context.Background())

	set := source.NewSet()
	stores := repository.NewStores(pool, set, nil)

	listener := infra.NewChangeListener(pool, TestNotifyChannel, infra.DispatchSink{Dispatcher: set}, logger)
	go listener.Run(ctx)

	engine := stats.NewEngine(logger, stats.WithWindow(10*time.Millisecond))
	if err := engine.Configure(ctx, stores.Sources()); err != nil {
		cancel()
		t.Fatalf("configure engine: %v", err)
	}

	jwtMgr := auth.NewJWTManager(TestJWTSecret, time.Hour)
	router := app.NewRouter(app.RouterDeps{
		Engine:             engine,
		Stores:             stores,
		Backend:            infra.BackendPostgres,
		DB:                 pool,
		Logger:             logger,
		JWTMgr:             jwtMgr,
		AuthEnabled:        true,
		RateLimiter:        guard.NewRateLimiter(1000, time.Minute),
		Idempotency:        guard.NewIdempotencyGuard(time.Minute),
		CORSAllowedOrigins: "*",
	})

	env.Server = httptest.NewServer(router)
	env.JWTMgr = jwtMgr
	env.Engine = engine
	env.Stores = stores

	t.Cleanup(func() {
		env.Server.Close()
		engine.Close()
		cancel()
		env.CleanAll()
	})

	return env
}
