// Package domain implements the attendance business rules: clock-in and
// clock-out validity, duplicate prevention, status derivation, and the
// weekly reporting views.
package domain

import (
	"context"
	"strings"
	"time"
)

// Repository captures the persistence operations the engine builds on.
// It performs no business validation of its own.
type Repository interface {
	GetOrCreateUser(ctx context.Context, externalID, displayName string) (User, error)
	CreateAttendanceType(ctx context.Context, name, description string) (AttendanceType, error)
	ListAttendanceTypes(ctx context.Context, includeInactive bool) ([]AttendanceType, error)
	AttendanceTypeByName(ctx context.Context, name string) (*AttendanceType, error)
	AttendanceTypeByID(ctx context.Context, id int64) (*AttendanceType, error)
	DeactivateAttendanceType(ctx context.Context, name string) error
	CreateRecord(ctx context.Context, userID int64, kind RecordKind, typeID *int64, notes string) (AttendanceRecord, error)
	LatestRecord(ctx context.Context, userID int64) (*AttendanceRecord, error)
	RecordsInRange(ctx context.Context, userID int64, start, end time.Time) ([]AttendanceRecord, error)
	RecordsForUser(ctx context.Context, userID int64) ([]AttendanceRecord, error)
	CountRecords(ctx context.Context, userID int64) (int, error)
	RecentRecords(ctx context.Context, userID int64, limit int) ([]AttendanceRecord, error)
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLocation sets the zone used for week boundaries and day grouping.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.loc = loc
	}
}

// Service is the attendance engine. It holds no state between calls;
// current status is always derived from the record log.
type Service struct {
	repo  Repository
	clock Clock
	loc   *time.Location
}

// NewService constructs a Service with the system clock and UTC week
// boundaries unless overridden.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		clock: SystemClock{},
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClockInResult is returned on a successful clock-in.
type ClockInResult struct {
	Record   AttendanceRecord
	TypeName string
}

// ClockOutResult is returned on a successful clock-out. Elapsed is the
// time since the paired clock-in.
type ClockOutResult struct {
	Record  AttendanceRecord
	Elapsed time.Duration
}

// ClockIn records the start of a work session. The referenced type must
// exist and be active, and the user's latest record must not already be
// a clock-in.
func (s *Service) ClockIn(ctx context.Context, externalUserID, displayName, typeName, notes string) (*ClockInResult, error) {
	user, err := s.repo.GetOrCreateUser(ctx, externalUserID, displayName)
	if err != nil {
		return nil, err
	}

	at, err := s.repo.AttendanceTypeByName(ctx, strings.TrimSpace(typeName))
	if err != nil {
		return nil, err
	}
	if at == nil || !at.Active {
		return nil, ErrUnknownAttendanceType
	}

	notes, err = cleanNotes(notes)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestRecord(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Kind == RecordClockIn {
		return nil, ErrAlreadyClockedIn
	}

	record, err := s.repo.CreateRecord(ctx, user.ID, RecordClockIn, &at.ID, notes)
	if err != nil {
		return nil, err
	}

	return &ClockInResult{Record: record, TypeName: at.Name}, nil
}

// ClockOut closes the user's open session. The latest record must be a
// clock-in.
func (s *Service) ClockOut(ctx context.Context, externalUserID, displayName, notes string) (*ClockOutResult, error) {
	user, err := s.repo.GetOrCreateUser(ctx, externalUserID, displayName)
	if err != nil {
		return nil, err
	}

	notes, err = cleanNotes(notes)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestRecord(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Kind != RecordClockIn {
		return nil, ErrNotClockedIn
	}

	record, err := s.repo.CreateRecord(ctx, user.ID, RecordClockOut, nil, notes)
	if err != nil {
		return nil, err
	}

	return &ClockOutResult{Record: record, Elapsed: record.RecordedAt.Sub(latest.RecordedAt)}, nil
}

// SummaryRecord annotates a record with its resolved type name.
type SummaryRecord struct {
	Record   AttendanceRecord
	TypeName string
}

// UserSummary is the per-user overview returned by Summary.
type UserSummary struct {
	User           User
	TotalRecords   int
	Status         CurrentStatus
	LatestClockIn  *time.Time
	LatestClockOut *time.Time
	Recent         []SummaryRecord
}

// Summary reports the total record count, the derived current status,
// and the most recent records in descending order.
func (s *Service) Summary(ctx context.Context, externalUserID, displayName string) (*UserSummary, error) {
	user, err := s.repo.GetOrCreateUser(ctx, externalUserID, displayName)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountRecords(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.RecentRecords(ctx, user.ID, recentRecordsLimit)
	if err != nil {
		return nil, err
	}

	summary := &UserSummary{
		User:         user,
		TotalRecords: total,
		Status:       StatusNoHistory,
		Recent:       make([]SummaryRecord, 0, len(recent)),
	}

	typeNames := make(map[int64]string)
	for i, record := range recent {
		if i == 0 {
			if record.Kind == RecordClockIn {
				summary.Status = StatusClockedIn
			} else {
				summary.Status = StatusClockedOut
			}
		}
		switch record.Kind {
		case RecordClockIn:
			if summary.LatestClockIn == nil {
				ts := record.RecordedAt
				summary.LatestClockIn = &ts
			}
		case RecordClockOut:
			if summary.LatestClockOut == nil {
				ts := record.RecordedAt
				summary.LatestClockOut = &ts
			}
		}

		name, err := s.typeName(ctx, typeNames, record.TypeID)
		if err != nil {
			return nil, err
		}
		summary.Recent = append(summary.Recent, SummaryRecord{Record: record, TypeName: name})
	}

	return summary, nil
}

// FullHistory returns the user's complete record log in ascending order
// with type names resolved.
func (s *Service) FullHistory(ctx context.Context, externalUserID, displayName string) ([]SummaryRecord, error) {
	user, err := s.repo.GetOrCreateUser(ctx, externalUserID, displayName)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.RecordsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	typeNames := make(map[int64]string)
	out := make([]SummaryRecord, 0, len(records))
	for _, record := range records {
		name, err := s.typeName(ctx, typeNames, record.TypeID)
		if err != nil {
			return nil, err
		}
		out = append(out, SummaryRecord{Record: record, TypeName: name})
	}
	return out, nil
}

// AddAttendanceType registers a new category of work.
func (s *Service) AddAttendanceType(ctx context.Context, name, description string) (*AttendanceType, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, validationErrorf("attendance type name cannot be empty")
	}
	if len(name) > MaxTypeNameLength {
		return nil, validationErrorf("attendance type name exceeds %d characters", MaxTypeNameLength)
	}
	if len(description) > MaxTypeDescLength {
		return nil, validationErrorf("description exceeds %d characters", MaxTypeDescLength)
	}

	at, err := s.repo.CreateAttendanceType(ctx, name, description)
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// AttendanceTypeList partitions all known types for display.
type AttendanceTypeList struct {
	Active   []AttendanceType
	Inactive []AttendanceType
}

// Total returns the number of types across both partitions.
func (l *AttendanceTypeList) Total() int {
	return len(l.Active) + len(l.Inactive)
}

// ListAttendanceTypes returns every type, partitioned by active flag, in
// creation order within each partition.
func (s *Service) ListAttendanceTypes(ctx context.Context) (*AttendanceTypeList, error) {
	all, err := s.repo.ListAttendanceTypes(ctx, true)
	if err != nil {
		return nil, err
	}

	list := &AttendanceTypeList{}
	for _, at := range all {
		if at.Active {
			list.Active = append(list.Active, at)
		} else {
			list.Inactive = append(list.Inactive, at)
		}
	}
	return list, nil
}

// DeactivateAttendanceType soft-disables a type. Historical records keep
// referencing it and still resolve its name.
func (s *Service) DeactivateAttendanceType(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErrorf("attendance type name cannot be empty")
	}
	return s.repo.DeactivateAttendanceType(ctx, name)
}

// typeName resolves a type id to its name through a per-call cache.
// Inactive types resolve normally so history stays readable.
func (s *Service) typeName(ctx context.Context, cache map[int64]string, id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	if name, ok := cache[*id]; ok {
		return name, nil
	}
	at, err := s.repo.AttendanceTypeByID(ctx, *id)
	if err != nil {
		return "", err
	}
	name := ""
	if at != nil {
		name = at.Name
	}
	cache[*id] = name
	return name, nil
}

// cleanNotes trims surrounding whitespace and enforces the length bound.
// Oversized notes are rejected, not truncated.
func cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if len(notes) > MaxNotesLength {
		return "", validationErrorf("notes exceed %d characters", MaxNotesLength)
	}
	return notes, nil
}
