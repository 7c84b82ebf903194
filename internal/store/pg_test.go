//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	// Check if we should use an external database (for CI or local development)
	dsn := os.Getenv("TEST_DB_DSN")
	var err error

	if dsn != "" {
		fmt.Printf("Using external database\n")
	} else {
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			terminateContainer(ctx)
			os.Exit(1)
		}

		fmt.Printf("Started PostgreSQL container\n")
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		terminateContainer(ctx)
		os.Exit(1)
	}

	if err := Migrate(ctx, testDB); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		terminateContainer(ctx)
		os.Exit(1)
	}

	code := m.Run()

	terminateContainer(ctx)
	os.Exit(code)
}

func terminateContainer(ctx context.Context) {
	if pgContainer == nil {
		return
	}
	if err := pgContainer.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
	}
}

// initPGTestDB starts a transaction per test for isolation
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

// cleanupPGTestDB is a no-op; the t.Cleanup rollback restores the state
func cleanupPGTestDB(t *testing.T) {}

// TestPostgreSQLStore runs all store tests against PostgreSQL
func TestPostgreSQLStore(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}

	RunStoreTests(t, initPGTestDB, cleanupPGTestDB)
}
