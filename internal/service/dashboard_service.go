package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/repository"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
)

const (
	recentWindowDays    = 30
	exceptionWindowDays = 7
	recentLimit         = 10
)

type dashboardLedger interface {
	CountsByDate(ctx context.Context, date time.Time) ([]repository.StatusCount, error)
	FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, from, to *time.Time, limit int) ([]models.AttendanceRecord, error)
	ListExceptionsByStudent(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceRecord, error)
	SummaryByStudent(ctx context.Context, studentID string) (*models.AttendanceSummary, error)
	HistoryByStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error)
}

type dashboardDirectory interface {
	Count(ctx context.Context) (int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error)
}

// DashboardService assembles the admin overview, the student self-service
// view, and public per-student history lookups.
type DashboardService struct {
	ledger   dashboardLedger
	students dashboardDirectory
	logger   *zap.Logger
}

func NewDashboardService(ledger dashboardLedger, students dashboardDirectory, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{ledger: ledger, students: students, logger: logger}
}

// AdminOverview summarises today's marking. NotMarked is the enrolled
// headcount minus every persisted record for the day.
func (s *DashboardService) AdminOverview(ctx context.Context) (*models.AdminDashboard, error) {
	today := models.NormalizeDate(time.Now().UTC())

	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	counts, err := s.ledger.CountsByDate(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	dash := &models.AdminDashboard{Date: today, TotalStudents: total}
	marked := 0
	for _, c := range counts {
		marked += c.Count
		switch c.Status {
		case models.AttendanceStatusPresent:
			dash.PresentCount = c.Count
		case models.AttendanceStatusAbsent:
			dash.AbsentCount = c.Count
		case models.AttendanceStatusLate:
			dash.LateCount = c.Count
		}
	}
	dash.NotMarked = total - marked
	if dash.NotMarked < 0 {
		dash.NotMarked = 0
	}
	return dash, nil
}

// StudentOverview builds the self-service dashboard for one student.
func (s *DashboardService) StudentOverview(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	today := models.NormalizeDate(time.Now().UTC())
	dash := &models.StudentDashboard{Student: *student}

	todayRec, err := s.ledger.FindByStudentAndDate(ctx, studentID, today)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's record")
	}
	dash.Today = todayRec

	from := today.AddDate(0, 0, -recentWindowDays)
	recent, err := s.ledger.ListByStudent(ctx, studentID, &from, &today, recentLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent records")
	}
	dash.Recent = recent

	totals, err := s.ledger.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	dash.Totals = *totals

	since := today.AddDate(0, 0, -exceptionWindowDays)
	exceptions, err := s.ledger.ListExceptionsByStudent(ctx, studentID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent absences")
	}
	dash.RecentAbsences = exceptions

	return dash, nil
}

// StudentHistory lists a student's records within an optional window.
// Missing bounds default to the last thirty days ending today.
func (s *DashboardService) StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	today := models.NormalizeDate(time.Now().UTC())
	if to == nil {
		to = &today
	}
	if from == nil {
		start := to.AddDate(0, 0, -recentWindowDays)
		from = &start
	}

	records, err := s.ledger.ListByStudent(ctx, studentID, from, to, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	return records, nil
}

// HistoryByStudentNo resolves a student by the public student number and
// returns the full date/status history, most recent first.
func (s *DashboardService) HistoryByStudentNo(ctx context.Context, studentNo string) ([]models.AttendanceHistoryEntry, error) {
	student, err := s.students.FindByStudentNo(ctx, studentNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	history, err := s.ledger.HistoryByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return history, nil
}
