package api

import (
	"errors"
	"strings"
	"time"

	"example.com/attendance/internal/domain"
)

// ClockInRequest is the payload for POST /v1/attendance/clock-in.
type ClockInRequest struct {
	ExternalUserID string `json:"external_user_id"`
	DisplayName    string `json:"display_name"`
	AttendanceType string `json:"attendance_type"`
	Notes          string `json:"notes,omitempty"`
}

// Validate ensures request correctness before the engine is invoked.
func (r ClockInRequest) Validate() error {
	if strings.TrimSpace(r.ExternalUserID) == "" {
		return errors.New("external_user_id is required")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return errors.New("display_name is required")
	}
	if strings.TrimSpace(r.AttendanceType) == "" {
		return errors.New("attendance_type is required")
	}
	return nil
}

// ClockOutRequest is the payload for POST /v1/attendance/clock-out.
type ClockOutRequest struct {
	ExternalUserID string `json:"external_user_id"`
	DisplayName    string `json:"display_name"`
	Notes          string `json:"notes,omitempty"`
}

// Validate ensures request correctness before the engine is invoked.
func (r ClockOutRequest) Validate() error {
	if strings.TrimSpace(r.ExternalUserID) == "" {
		return errors.New("external_user_id is required")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return errors.New("display_name is required")
	}
	return nil
}

// CreateTypeRequest is the payload for POST /v1/attendance-types.
type CreateTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RecordView exposes one attendance record.
type RecordView struct {
	RecordID   int64     `json:"record_id"`
	Kind       string    `json:"kind"`
	TypeName   string    `json:"type_name,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	Notes      string    `json:"notes,omitempty"`
}

// ClockInResponse describes the response body for clock-in.
type ClockInResponse struct {
	Record   RecordView `json:"record"`
	TypeName string     `json:"type_name"`
}

// ClockOutResponse describes the response body for clock-out.
type ClockOutResponse struct {
	Record         RecordView `json:"record"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
}

// AttendanceTypeView exposes one attendance type.
type AttendanceTypeView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// TypeListResponse partitions types for display.
type TypeListResponse struct {
	Active   []AttendanceTypeView `json:"active"`
	Inactive []AttendanceTypeView `json:"inactive"`
	Total    int                  `json:"total"`
}

// SummaryResponse is the per-user overview.
type SummaryResponse struct {
	ExternalUserID string       `json:"external_user_id"`
	DisplayName    string       `json:"display_name"`
	TotalRecords   int          `json:"total_records"`
	Status         string       `json:"status"`
	LatestClockIn  *time.Time   `json:"latest_clock_in,omitempty"`
	LatestClockOut *time.Time   `json:"latest_clock_out,omitempty"`
	Recent         []RecordView `json:"recent"`
}

// SessionView exposes one paired (or incomplete) session.
type SessionView struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	TypeName        string     `json:"type_name,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// DayView groups the sessions of one calendar day.
type DayView struct {
	Day          string        `json:"day"`
	Sessions     []SessionView `json:"sessions"`
	TotalSeconds float64       `json:"total_seconds"`
}

// WeekStatsView aggregates a reporting week.
type WeekStatsView struct {
	TotalSeconds    float64 `json:"total_seconds"`
	ActiveDays      int     `json:"active_days"`
	AverageHoursDay float64 `json:"average_hours_per_active_day"`
	TopTypeName     string  `json:"top_type_name,omitempty"`
	TopTypeSessions int     `json:"top_type_sessions,omitempty"`
}

// WeekResponse is the full week-history view.
type WeekResponse struct {
	WeekStart  time.Time     `json:"week_start"`
	WeekEnd    time.Time     `json:"week_end"`
	Days       []DayView     `json:"days"`
	Stats      WeekStatsView `json:"stats"`
	Incomplete []SessionView `json:"incomplete"`
}

func toRecordView(record domain.AttendanceRecord, typeName string) RecordView {
	return RecordView{
		RecordID:   record.ID,
		Kind:       string(record.Kind),
		TypeName:   typeName,
		RecordedAt: record.RecordedAt,
		Notes:      record.Notes,
	}
}

func toTypeView(at domain.AttendanceType) AttendanceTypeView {
	return AttendanceTypeView{
		ID:          at.ID,
		Name:        at.Name,
		Description: at.Description,
		Active:      at.Active,
	}
}

func toSummaryView(summary *domain.UserSummary) SummaryResponse {
	resp := SummaryResponse{
		ExternalUserID: summary.User.ExternalID,
		DisplayName:    summary.User.DisplayName,
		TotalRecords:   summary.TotalRecords,
		Status:         string(summary.Status),
		LatestClockIn:  summary.LatestClockIn,
		LatestClockOut: summary.LatestClockOut,
		Recent:         make([]RecordView, 0, len(summary.Recent)),
	}
	for _, item := range summary.Recent {
		resp.Recent = append(resp.Recent, toRecordView(item.Record, item.TypeName))
	}
	return resp
}

func toSessionView(session domain.Session) SessionView {
	view := SessionView{
		Start:           session.Start,
		DurationSeconds: session.Duration.Seconds(),
		TypeName:        session.TypeName,
		Notes:           session.Notes,
	}
	if !session.End.IsZero() {
		end := session.End
		view.End = &end
	}
	return view
}

func toWeekView(report *domain.WeekReport) WeekResponse {
	resp := WeekResponse{
		WeekStart:  report.WeekStart,
		WeekEnd:    report.WeekEnd,
		Days:       make([]DayView, 0, len(report.Days)),
		Incomplete: make([]SessionView, 0, len(report.Incomplete)),
		Stats: WeekStatsView{
			TotalSeconds:    report.Stats.Total.Seconds(),
			ActiveDays:      report.Stats.ActiveDays,
			AverageHoursDay: report.Stats.AverageHoursDay,
			TopTypeSessions: report.Stats.TopTypeSessions,
		},
	}
	if report.Stats.TopType != nil {
		resp.Stats.TopTypeName = report.Stats.TopType.Name
	}
	for _, day := range report.Days {
		view := DayView{
			Day:          day.Day.Format(time.DateOnly),
			Sessions:     make([]SessionView, 0, len(day.Sessions)),
			TotalSeconds: day.Total.Seconds(),
		}
		for _, session := range day.Sessions {
			view.Sessions = append(view.Sessions, toSessionView(session))
		}
		resp.Days = append(resp.Days, view)
	}
	for _, session := range report.Incomplete {
		resp.Incomplete = append(resp.Incomplete, toSessionView(session))
	}
	return resp
}
