// Package postgres implements the attendance store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/attendance/internal/domain"
	"example.com/attendance/internal/events"
	"example.com/attendance/internal/observability"
)

// Repository provides Postgres-backed persistence for users, attendance
// types, attendance records, and the outbox. It enforces uniqueness and
// referential constraints; validity rules live in the engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreateUser resolves the chat identity, creating the row on first
// contact. The upsert keeps display_name fresh without a read-then-write
// race on concurrent first interactions.
func (r *Repository) GetOrCreateUser(ctx context.Context, externalID, displayName string) (domain.User, error) {
	const query = `INSERT INTO users (external_id, display_name) VALUES ($1, $2)
        ON CONFLICT (external_id) DO UPDATE SET display_name = EXCLUDED.display_name
        RETURNING id, external_id, display_name, created_at`

	var user domain.User
	row := r.pool.QueryRow(ctx, query, externalID, displayName)
	if err := row.Scan(&user.ID, &user.ExternalID, &user.DisplayName, &user.CreatedAt); err != nil {
		return domain.User{}, fmt.Errorf("get or create user: %w", err)
	}
	return user, nil
}

// CreateAttendanceType inserts a type and records the creation event in
// the same transaction.
func (r *Repository) CreateAttendanceType(ctx context.Context, name, description string) (domain.AttendanceType, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.AttendanceType{}, err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO attendance_types (name, description) VALUES ($1, $2)
        RETURNING id, name, COALESCE(description, ''), active`

	var at domain.AttendanceType
	row := tx.QueryRow(ctx, query, name, nullIfEmpty(description))
	if err := row.Scan(&at.ID, &at.Name, &at.Description, &at.Active); err != nil {
		if isUniqueViolation(err) {
			return domain.AttendanceType{}, domain.ErrDuplicateTypeName
		}
		return domain.AttendanceType{}, fmt.Errorf("create attendance type: %w", err)
	}

	if err := insertOutbox(ctx, tx, "attendance_type.created", fmt.Sprint(at.ID), at.Name, events.AttendanceTypeCreated{
		TypeID:      at.ID,
		Name:        at.Name,
		Description: at.Description,
	}); err != nil {
		return domain.AttendanceType{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.AttendanceType{}, err
	}
	return at, nil
}

// ListAttendanceTypes returns types in creation order.
func (r *Repository) ListAttendanceTypes(ctx context.Context, includeInactive bool) ([]domain.AttendanceType, error) {
	query := `SELECT id, name, COALESCE(description, ''), active FROM attendance_types`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AttendanceType
	for rows.Next() {
		var at domain.AttendanceType
		if err := rows.Scan(&at.ID, &at.Name, &at.Description, &at.Active); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

// AttendanceTypeByName looks up a type by exact name. Returns nil when
// absent.
func (r *Repository) AttendanceTypeByName(ctx context.Context, name string) (*domain.AttendanceType, error) {
	const query = `SELECT id, name, COALESCE(description, ''), active FROM attendance_types WHERE name = $1`
	return r.scanType(r.pool.QueryRow(ctx, query, name))
}

// AttendanceTypeByID looks up a type by id. Returns nil when absent.
func (r *Repository) AttendanceTypeByID(ctx context.Context, id int64) (*domain.AttendanceType, error) {
	const query = `SELECT id, name, COALESCE(description, ''), active FROM attendance_types WHERE id = $1`
	return r.scanType(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanType(row pgx.Row) (*domain.AttendanceType, error) {
	var at domain.AttendanceType
	if err := row.Scan(&at.ID, &at.Name, &at.Description, &at.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &at, nil
}

// DeactivateAttendanceType soft-disables a type by name. Rows referencing
// it are untouched.
func (r *Repository) DeactivateAttendanceType(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE attendance_types SET active = FALSE WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTypeNotFound
	}
	return nil
}

// CreateRecord inserts a record with a store-assigned timestamp and
// appends the attendance.recorded event to the outbox in the same
// transaction.
func (r *Repository) CreateRecord(ctx context.Context, userID int64, kind domain.RecordKind, typeID *int64, notes string) (domain.AttendanceRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO attendance_records (user_id, kind, attendance_type_id, notes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, kind, attendance_type_id, recorded_at, COALESCE(notes, '')`

	var record domain.AttendanceRecord
	row := tx.QueryRow(ctx, query, userID, kind, typeID, nullIfEmpty(notes))
	if err := row.Scan(&record.ID, &record.UserID, &record.Kind, &record.TypeID, &record.RecordedAt, &record.Notes); err != nil {
		if isForeignKeyViolation(err) {
			return domain.AttendanceRecord{}, domain.ErrForeignKey
		}
		return domain.AttendanceRecord{}, fmt.Errorf("create record: %w", err)
	}

	var externalID string
	if err := tx.QueryRow(ctx, `SELECT external_id FROM users WHERE id = $1`, userID).Scan(&externalID); err != nil {
		return domain.AttendanceRecord{}, err
	}

	if err := insertOutbox(ctx, tx, "attendance.recorded", fmt.Sprint(record.ID), externalID, events.AttendanceRecorded{
		RecordID:   record.ID,
		UserID:     record.UserID,
		ExternalID: externalID,
		Kind:       string(record.Kind),
		TypeID:     record.TypeID,
		RecordedAt: record.RecordedAt,
	}); err != nil {
		return domain.AttendanceRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.AttendanceRecord{}, err
	}
	observability.RecordAttendancePersisted(record.RecordedAt)
	return record, nil
}

const recordColumns = `id, user_id, kind, attendance_type_id, recorded_at, COALESCE(notes, '')`

// LatestRecord returns the user's newest record, ties on recorded_at
// broken by the highest id. Returns nil when the user has no history.
func (r *Repository) LatestRecord(ctx context.Context, userID int64) (*domain.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records
        WHERE user_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT 1`

	var record domain.AttendanceRecord
	row := r.pool.QueryRow(ctx, query, userID)
	if err := row.Scan(&record.ID, &record.UserID, &record.Kind, &record.TypeID, &record.RecordedAt, &record.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// RecordsInRange returns records with start <= recorded_at < end in
// ascending order.
func (r *Repository) RecordsInRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records
        WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at < $3
        ORDER BY recorded_at, id`
	return r.queryRecords(ctx, query, userID, start, end)
}

// RecordsForUser returns the full history in ascending order.
func (r *Repository) RecordsForUser(ctx context.Context, userID int64) ([]domain.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records
        WHERE user_id = $1 ORDER BY recorded_at, id`
	return r.queryRecords(ctx, query, userID)
}

// RecentRecords returns up to limit records, newest first.
func (r *Repository) RecentRecords(ctx context.Context, userID int64, limit int) ([]domain.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records
        WHERE user_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT $2`
	return r.queryRecords(ctx, query, userID, limit)
}

// CountRecords returns the user's total record count.
func (r *Repository) CountRecords(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]domain.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AttendanceRecord
	for rows.Next() {
		var record domain.AttendanceRecord
		if err := rows.Scan(&record.ID, &record.UserID, &record.Kind, &record.TypeID, &record.RecordedAt, &record.Notes); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// EventMetadata describes how an outbox event is routed.
type EventMetadata struct {
	Topic         string
	AggregateType string
}

var eventCatalog = map[string]EventMetadata{
	"attendance.recorded": {
		Topic:         "attendance_events",
		AggregateType: "attendance_record",
	},
	"attendance_type.created": {
		Topic:         "attendance_type_events",
		AggregateType: "attendance_type",
	},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateID, partitionKey string, payload any) error {
	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, stmt, meta.AggregateType, aggregateID, eventType, meta.Topic, partitionKey, body)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
