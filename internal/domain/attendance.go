package domain

import "time"

// RecordKind distinguishes the two event kinds in the attendance log.
type RecordKind string

const (
	RecordClockIn  RecordKind = "clock_in"
	RecordClockOut RecordKind = "clock_out"
)

// Input bounds enforced by the engine before anything is written.
const (
	MaxNotesLength     = 500
	MaxTypeNameLength  = 50
	MaxTypeDescLength  = 200
	recentRecordsLimit = 5
)

// User is one chat-platform identity. ExternalID is immutable after
// creation; DisplayName is refreshed on every interaction.
type User struct {
	ID          int64
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
}

// AttendanceType is a named category of work. Inactive types are kept so
// historical records still resolve.
type AttendanceType struct {
	ID          int64
	Name        string
	Description string
	Active      bool
}

// AttendanceRecord is a single clock-in or clock-out event. Records are
// immutable once created; RecordedAt is assigned by the store.
type AttendanceRecord struct {
	ID         int64
	UserID     int64
	Kind       RecordKind
	TypeID     *int64
	RecordedAt time.Time
	Notes      string
}

// CurrentStatus is derived from the most recent record and never stored.
type CurrentStatus string

const (
	StatusClockedIn  CurrentStatus = "clocked_in"
	StatusClockedOut CurrentStatus = "clocked_out"
	StatusNoHistory  CurrentStatus = "no_history"
)
