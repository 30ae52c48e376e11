package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/repository"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
)

type dashboardLedgerStub struct {
	counts       []repository.StatusCount
	today        *models.AttendanceRecord
	byStudent    []models.AttendanceRecord
	exceptions   []models.AttendanceRecord
	summary      models.AttendanceSummary
	history      []models.AttendanceHistoryEntry
	historyCalls []string
}

func (l *dashboardLedgerStub) CountsByDate(ctx context.Context, date time.Time) ([]repository.StatusCount, error) {
	return l.counts, nil
}

func (l *dashboardLedgerStub) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	if l.today == nil {
		return nil, sql.ErrNoRows
	}
	return l.today, nil
}

func (l *dashboardLedgerStub) ListByStudent(ctx context.Context, studentID string, from, to *time.Time, limit int) ([]models.AttendanceRecord, error) {
	return l.byStudent, nil
}

func (l *dashboardLedgerStub) ListExceptionsByStudent(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceRecord, error) {
	return l.exceptions, nil
}

func (l *dashboardLedgerStub) SummaryByStudent(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	return &l.summary, nil
}

func (l *dashboardLedgerStub) HistoryByStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error) {
	l.historyCalls = append(l.historyCalls, studentID)
	return l.history, nil
}

type dashboardDirectoryStub struct {
	total int
	byID  map[string]*models.Student
	byNo  map[string]*models.Student
}

func (d dashboardDirectoryStub) Count(ctx context.Context) (int, error) {
	return d.total, nil
}

func (d dashboardDirectoryStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := d.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (d dashboardDirectoryStub) FindByStudentNo(ctx context.Context, studentNo string) (*models.Student, error) {
	student, ok := d.byNo[studentNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func TestAdminOverviewCountsUnmarkedStudents(t *testing.T) {
	today := models.NormalizeDate(time.Now().UTC())
	ledger := &dashboardLedgerStub{counts: []repository.StatusCount{
		{Date: today, Status: models.AttendanceStatusPresent, Count: 12},
		{Date: today, Status: models.AttendanceStatusAbsent, Count: 2},
		{Date: today, Status: models.AttendanceStatusLate, Count: 1},
	}}
	svc := NewDashboardService(ledger, dashboardDirectoryStub{total: 20}, nil)

	dash, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, dash.TotalStudents)
	assert.Equal(t, 12, dash.PresentCount)
	assert.Equal(t, 2, dash.AbsentCount)
	assert.Equal(t, 1, dash.LateCount)
	assert.Equal(t, 5, dash.NotMarked)
}

func TestStudentOverview(t *testing.T) {
	remark := "traffic"
	today := &models.AttendanceRecord{Status: models.AttendanceStatusLate, Remarks: &remark}
	ledger := &dashboardLedgerStub{
		today:      today,
		byStudent:  []models.AttendanceRecord{{Status: models.AttendanceStatusPresent}},
		exceptions: []models.AttendanceRecord{{Status: models.AttendanceStatusAbsent}},
		summary:    models.AttendanceSummary{Present: 18, Absent: 1, Late: 1, Total: 20},
	}
	directory := dashboardDirectoryStub{byID: map[string]*models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S001", FirstName: "Alice", LastName: "Anders"},
	}}
	svc := NewDashboardService(ledger, directory, nil)

	dash, err := svc.StudentOverview(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "S001", dash.Student.StudentNo)
	require.NotNil(t, dash.Today)
	assert.Equal(t, models.AttendanceStatusLate, dash.Today.Status)
	assert.Len(t, dash.Recent, 1)
	assert.Len(t, dash.RecentAbsences, 1)
	assert.Equal(t, 20, dash.Totals.Total)
}

func TestStudentOverviewNoRecordToday(t *testing.T) {
	directory := dashboardDirectoryStub{byID: map[string]*models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S001"},
	}}
	svc := NewDashboardService(&dashboardLedgerStub{}, directory, nil)

	dash, err := svc.StudentOverview(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Nil(t, dash.Today)
}

func TestHistoryByStudentNo(t *testing.T) {
	ledger := &dashboardLedgerStub{history: []models.AttendanceHistoryEntry{
		{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Status: models.AttendanceStatusPresent},
	}}
	directory := dashboardDirectoryStub{byNo: map[string]*models.Student{
		"S001": {ID: "stu-1", StudentNo: "S001"},
	}}
	svc := NewDashboardService(ledger, directory, nil)

	history, err := svc.HistoryByStudentNo(context.Background(), "S001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []string{"stu-1"}, ledger.historyCalls, "lookup must use the internal id")
}

func TestHistoryByStudentNoUnknownStudent(t *testing.T) {
	svc := NewDashboardService(&dashboardLedgerStub{}, dashboardDirectoryStub{}, nil)

	_, err := svc.HistoryByStudentNo(context.Background(), "S999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
