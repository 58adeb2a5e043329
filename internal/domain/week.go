package domain

import (
	"context"
	"time"
)

// Session is one paired clock-in/clock-out inside a reporting week. An
// incomplete session has a zero End and Duration.
type Session struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	TypeID   *int64
	TypeName string
	Notes    string
}

// DayBreakdown groups the completed sessions of one calendar day.
type DayBreakdown struct {
	Day      time.Time
	Sessions []Session
	Total    time.Duration
}

// WeekStats aggregates the completed sessions of a week.
type WeekStats struct {
	Total           time.Duration
	ActiveDays      int
	AverageHoursDay float64
	TopType         *AttendanceType
	TopTypeSessions int
}

// WeekReport is the full result of WeekHistory.
type WeekReport struct {
	WeekStart  time.Time
	WeekEnd    time.Time
	Days       []DayBreakdown
	Stats      WeekStats
	Incomplete []Session
}

// WeekHistory reports the sessions, per-day totals, and weekly statistics
// for the given week. Offset 0 is the current week, -1 the previous one;
// weeks run Monday 00:00 inclusive to the next Monday 00:00 exclusive in
// the configured zone.
func (s *Service) WeekHistory(ctx context.Context, externalUserID, displayName string, weekOffset int) (*WeekReport, error) {
	if weekOffset != 0 && weekOffset != -1 {
		return nil, validationErrorf("week offset must be 0 or -1")
	}

	user, err := s.repo.GetOrCreateUser(ctx, externalUserID, displayName)
	if err != nil {
		return nil, err
	}

	start := weekStart(s.clock.Now().In(s.loc)).AddDate(0, 0, 7*weekOffset)
	end := start.AddDate(0, 0, 7)

	records, err := s.repo.RecordsInRange(ctx, user.ID, start, end)
	if err != nil {
		return nil, err
	}

	report := &WeekReport{WeekStart: start, WeekEnd: end}
	sessions, incomplete := pairSessions(records)
	report.Incomplete = incomplete

	typeNames := make(map[int64]string)
	typeCounts := make(map[int64]int)
	for i := range sessions {
		session := &sessions[i]
		session.TypeName, err = s.typeName(ctx, typeNames, session.TypeID)
		if err != nil {
			return nil, err
		}
		if session.TypeID != nil {
			typeCounts[*session.TypeID]++
		}

		day := dayOf(session.Start.In(s.loc))
		if n := len(report.Days); n == 0 || !report.Days[n-1].Day.Equal(day) {
			report.Days = append(report.Days, DayBreakdown{Day: day})
		}
		last := &report.Days[len(report.Days)-1]
		last.Sessions = append(last.Sessions, *session)
		last.Total += session.Duration
	}
	for i := range report.Incomplete {
		report.Incomplete[i].TypeName, err = s.typeName(ctx, typeNames, report.Incomplete[i].TypeID)
		if err != nil {
			return nil, err
		}
	}

	for _, day := range report.Days {
		report.Stats.Total += day.Total
	}
	report.Stats.ActiveDays = len(report.Days)
	if report.Stats.ActiveDays > 0 {
		report.Stats.AverageHoursDay = report.Stats.Total.Hours() / float64(report.Stats.ActiveDays)
	}

	if topID, count, ok := topType(typeCounts); ok {
		at, err := s.repo.AttendanceTypeByID(ctx, topID)
		if err != nil {
			return nil, err
		}
		report.Stats.TopType = at
		report.Stats.TopTypeSessions = count
	}

	return report, nil
}

// pairSessions walks records in timestamp order, pairing each clock-in
// with the next clock-out. Clock-ins left open at range end (or shadowed
// by a later clock-in) are reported as incomplete; clock-outs with no
// open clock-in belong to a session that started before the range and
// are skipped.
func pairSessions(records []AttendanceRecord) (sessions, incomplete []Session) {
	var open *Session
	for _, record := range records {
		switch record.Kind {
		case RecordClockIn:
			if open != nil {
				incomplete = append(incomplete, *open)
			}
			open = &Session{Start: record.RecordedAt, TypeID: record.TypeID, Notes: record.Notes}
		case RecordClockOut:
			if open == nil {
				continue
			}
			open.End = record.RecordedAt
			open.Duration = open.End.Sub(open.Start)
			sessions = append(sessions, *open)
			open = nil
		}
	}
	if open != nil {
		incomplete = append(incomplete, *open)
	}
	return sessions, incomplete
}

// topType picks the type with the most sessions, ties broken by the
// earliest-created (lowest) id.
func topType(counts map[int64]int) (int64, int, bool) {
	var (
		bestID    int64
		bestCount int
		found     bool
	)
	for id, count := range counts {
		if !found || count > bestCount || (count == bestCount && id < bestID) {
			bestID, bestCount, found = id, count, true
		}
	}
	return bestID, bestCount, found
}

// weekStart returns Monday 00:00:00 of t's week in t's location.
func weekStart(t time.Time) time.Time {
	day := dayOf(t)
	back := (int(t.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -back)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
