package models

import "time"

// DailyReportEntry summarises one calendar day. PresentPercentage is computed
// against the total student count and is 0 when no students exist.
type DailyReportEntry struct {
	Date              time.Time `json:"date"`
	PresentCount      int       `json:"present_count"`
	AbsentCount       int       `json:"absent_count"`
	LateCount         int       `json:"late_count"`
	TotalStudents     int       `json:"total_students"`
	PresentPercentage float64   `json:"present_percentage"`
}

// RangeReport covers [StartDate, EndDate] inclusive with one entry per day,
// including days with no records, plus range-wide totals.
type RangeReport struct {
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	Entries      []DailyReportEntry `json:"entries"`
	TotalPresent int                `json:"total_present"`
	TotalAbsent  int                `json:"total_absent"`
	TotalLate    int                `json:"total_late"`
}
