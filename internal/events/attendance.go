// Package events defines the payloads published through the outbox.
package events

import "time"

// AttendanceRecorded is emitted whenever a clock-in or clock-out record
// is accepted.
type AttendanceRecorded struct {
	RecordID   int64     `json:"record_id"`
	UserID     int64     `json:"user_id"`
	ExternalID string    `json:"external_id"`
	Kind       string    `json:"kind"`
	TypeID     *int64    `json:"type_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AttendanceTypeCreated is emitted when a new attendance type is
// registered.
type AttendanceTypeCreated struct {
	TypeID      int64  `json:"type_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
