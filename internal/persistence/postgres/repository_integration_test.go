//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/attendance/internal/domain"
	"example.com/attendance/internal/migrations"
)

func startDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("attendance"),
		postgrescontainer.WithUsername("attendance"),
		postgrescontainer.WithPassword("attendance"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("pgx"))
	require.NoError(t, goose.Up(db, "."))
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startDatabase(t))

	externalID := uuid.NewString()
	first, err := repo.GetOrCreateUser(ctx, externalID, "Alice")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.GetOrCreateUser(ctx, externalID, "Alice Updated")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Alice Updated", second.DisplayName)
}

func TestCreateAttendanceTypeEnforcesUniqueName(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startDatabase(t))

	name := "Type-" + uuid.NewString()
	created, err := repo.CreateAttendanceType(ctx, name, "first")
	require.NoError(t, err)
	require.True(t, created.Active)

	_, err = repo.CreateAttendanceType(ctx, name, "second")
	require.ErrorIs(t, err, domain.ErrDuplicateTypeName)
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewRepository(pool)

	user, err := repo.GetOrCreateUser(ctx, uuid.NewString(), "Alice")
	require.NoError(t, err)

	at, err := repo.AttendanceTypeByName(ctx, "Regular Work")
	require.NoError(t, err)
	require.NotNil(t, at)

	latest, err := repo.LatestRecord(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, latest)

	clockIn, err := repo.CreateRecord(ctx, user.ID, domain.RecordClockIn, &at.ID, "morning")
	require.NoError(t, err)
	require.False(t, clockIn.RecordedAt.IsZero())

	clockOut, err := repo.CreateRecord(ctx, user.ID, domain.RecordClockOut, nil, "")
	require.NoError(t, err)

	latest, err = repo.LatestRecord(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, clockOut.ID, latest.ID)

	count, err := repo.CountRecords(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	recent, err := repo.RecentRecords(ctx, user.ID, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, clockOut.ID, recent[0].ID)

	inRange, err := repo.RecordsInRange(ctx, user.ID,
		clockIn.RecordedAt, clockOut.RecordedAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	require.Equal(t, clockIn.ID, inRange[0].ID)

	// Both writes must have queued an outbox event alongside the record.
	var pending int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = 'attendance.recorded' AND published_at IS NULL`).Scan(&pending)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pending, 2)
}

func TestCreateRecordRejectsUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startDatabase(t))

	_, err := repo.CreateRecord(ctx, 999999, domain.RecordClockIn, nil, "")
	require.ErrorIs(t, err, domain.ErrForeignKey)
}

func TestDeactivateAttendanceType(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startDatabase(t))

	name := "Type-" + uuid.NewString()
	_, err := repo.CreateAttendanceType(ctx, name, "")
	require.NoError(t, err)

	require.NoError(t, repo.DeactivateAttendanceType(ctx, name))

	at, err := repo.AttendanceTypeByName(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, at)
	require.False(t, at.Active)

	err = repo.DeactivateAttendanceType(ctx, "missing-"+uuid.NewString())
	require.ErrorIs(t, err, domain.ErrTypeNotFound)
}
