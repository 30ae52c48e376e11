package models

import "time"

// AdminDashboard shows today's marking progress across the whole school.
// NotMarked counts students without a persisted record for the day.
type AdminDashboard struct {
	Date          time.Time `json:"date"`
	TotalStudents int       `json:"total_students"`
	PresentCount  int       `json:"present_count"`
	AbsentCount   int       `json:"absent_count"`
	LateCount     int       `json:"late_count"`
	NotMarked     int       `json:"not_marked"`
}

// StudentDashboard is the self-service overview for a logged-in student.
type StudentDashboard struct {
	Student        Student            `json:"student"`
	Today          *AttendanceRecord  `json:"today,omitempty"`
	Recent         []AttendanceRecord `json:"recent"`
	Totals         AttendanceSummary  `json:"totals"`
	RecentAbsences []AttendanceRecord `json:"recent_absences"`
}
