package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
	AttendanceStatusLate    AttendanceStatus = "Late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single ledger row. At most one record exists per
// (student, date) pair; repeated marks update the row in place.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
}

// RosterRow is one editable entry in the per-date marking roster. Students
// without a persisted record for the date appear with status Present and an
// empty remark; the roster never shows a student as unmarked.
type RosterRow struct {
	StudentID   string           `json:"student_id"`
	StudentNo   string           `json:"student_no"`
	StudentName string           `json:"student_name"`
	Status      AttendanceStatus `json:"status"`
	Remarks     *string          `json:"remarks,omitempty"`
}

// Roster is the full marking view for one calendar date.
type Roster struct {
	Date time.Time   `json:"date"`
	Rows []RosterRow `json:"rows"`
}

// AttendanceHistoryEntry is the public per-student history shape.
type AttendanceHistoryEntry struct {
	Date   time.Time        `db:"date" json:"date"`
	Status AttendanceStatus `db:"status" json:"status"`
}

// AttendanceSummary aggregates lifetime per-status counts for a student.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

// NormalizeDate truncates a timestamp to day granularity in UTC. The ledger
// keys records by calendar date only.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
