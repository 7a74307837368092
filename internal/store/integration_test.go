//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dating-api/internal/config"
)

var pgConfig config.DatabaseConfig

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "dating_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}

	pgConfig = config.DatabaseConfig{
		Type: "postgres",
		Postgres: config.PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Username: "postgres",
			Password: "password",
			Database: "dating_test",
			SSLMode:  "disable",
		},
		MaxOpenConns: 10,
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, pgConfig)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().ExecContext(ctx, "TRUNCATE likes, photos, users")
	require.NoError(t, err)
	return s
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, newPostgresStore)
}
