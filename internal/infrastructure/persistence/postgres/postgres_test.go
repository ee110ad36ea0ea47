package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/domain/shared"
)

func TestPoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://u:p@localhost:5432/roster?sslmode=disable"
	cfg.MaxConns = 7

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "roster", pc.ConnConfig.Database)
}

func TestPoolConfig_Invalid(t *testing.T) {
	_, err := Config{}.PoolConfig()
	assert.Error(t, err)

	_, err = Config{URL: "postgres://%zz"}.PoolConfig()
	assert.Error(t, err)
}

func TestGetMigrations_Ordered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL, m.Name)
		assert.NotEmpty(t, m.DownSQL, m.Name)
	}
}

func TestNewMigratorWithMigrations_SortsByVersion(t *testing.T) {
	m := NewMigratorWithMigrations(nil, []Migration{{Version: 3}, {Version: 1}, {Version: 2}})
	assert.Equal(t, 1, m.migrations[0].Version)
	assert.Equal(t, 3, m.migrations[2].Version)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTEGRATION (requires ROSTER_TEST_DATABASE_URL)
// ══════════════════════════════════════════════════════════════════════════════

func testConnection(t *testing.T) *Connection {
	t.Helper()
	url := os.Getenv("ROSTER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROSTER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.ConnectAttempts = 1
	conn, err := NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	m := NewMigrator(conn)
	for {
		v, err := m.Rollback(ctx)
		require.NoError(t, err)
		if v == 0 {
			break
		}
	}
	return conn
}

func TestSaveError_ConstraintViolationsAreMalformed(t *testing.T) {
	for _, code := range []string{"23505", "23514"} {
		err := saveError(fmt.Errorf("copy students: %w", &pgconn.PgError{Code: code}))
		assert.ErrorIs(t, err, shared.ErrMalformedRecord, code)

		var pgErr *pgconn.PgError
		assert.ErrorAs(t, err, &pgErr)
	}

	plain := errors.New("connection reset")
	assert.Same(t, plain, saveError(plain))
	assert.False(t, errors.Is(saveError(&pgconn.PgError{Code: "40001"}), shared.ErrMalformedRecord))
}

func TestRosterStore_Integration(t *testing.T) {
	conn := testConnection(t)
	ctx := context.Background()
	store := NewRosterStore(conn, nil)

	// Before migrations the store reports nothing persisted.
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrSnapshotMissing)

	applied, err := NewMigrator(conn).Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(GetMigrations()), applied)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrSnapshotMissing)

	r := roster.New()
	require.NoError(t, r.Add("s2", "Bob"))
	require.NoError(t, r.Add("s1", "Ann"))
	require.NoError(t, r.UpdateGrade("s1", "Math", 80))
	require.NoError(t, r.UpdateGrade("s1", "Art", 90.5))
	require.NoError(t, r.Save(ctx, store))

	restored := roster.New()
	loaded, err := restored.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded)
	require.Equal(t, 2, restored.Len())
	assert.Equal(t, "s2", restored.All()[0].ID())

	s1, _ := restored.Find("s1")
	assert.Equal(t, "[Math: 80.00, Art: 90.50]", s1.SubjectsString())

	info, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.StudentCount)

	status, err := NewMigrator(conn).Status(ctx)
	require.NoError(t, err)
	for _, m := range status {
		assert.True(t, m.IsApplied, m.Name)
	}
}
