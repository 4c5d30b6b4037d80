//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raceiq/raceiq-core-go/pkg/db/migrate"
	database "github.com/raceiq/raceiq-core-go/pkg/db/postgres"
)

// create a pg connection pool for the raceiq testdatabase
func SetupTestDB() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("raceiq-core-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	if err = migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}

	pool := database.InitWithURL(dbURL)
	return pool
}

// use an already running database (TESTDB_URL) instead of a container
func SetupExternalTestDB() *pgxpool.Pool {
	dbURL := os.Getenv("TESTDB_URL")
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearTimingEventTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from raceiq.timing_event")
}

func ClearTelemetrySampleTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from raceiq.telemetry_sample")
}

func ClearImportRunTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from raceiq.import_run")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearTimingEventTable(pool)
	ClearTelemetrySampleTable(pool)
	ClearImportRunTable(pool)
}
