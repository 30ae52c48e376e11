package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryUpsertBatchCommits(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "stu-1", sqlmock.AnyArg(), "Present", nil, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "stu-2", sqlmock.AnyArg(), "Absent", nil, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	date := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	records := []models.AttendanceRecord{
		{StudentID: "stu-1", Date: date, Status: models.AttendanceStatusPresent, MarkedBy: "admin-1", MarkedAt: date},
		{StudentID: "stu-2", Date: date, Status: models.AttendanceStatusAbsent, MarkedBy: "admin-1", MarkedAt: date},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), records))
	assert.NotEmpty(t, records[0].ID, "upsert assigns ids")
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), records[0].Date, "dates are normalized to midnight UTC")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{StudentID: "stu-1", Date: date, Status: models.AttendanceStatusPresent},
		{StudentID: "stu-2", Date: date, Status: models.AttendanceStatusLate},
	}
	err := repo.UpsertBatch(context.Background(), records)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "a failing row must roll the whole batch back")
}

func TestAttendanceRepositoryUpsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	require.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountsByDateRange(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"date", "status", "cnt"}).
		AddRow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "Present", 12).
		AddRow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "Absent", 3).
		AddRow(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), "Present", 14)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT date, status, COUNT(*) AS cnt FROM attendance WHERE date >= $1 AND date <= $2 GROUP BY date, status ORDER BY date")).
		WithArgs(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(rows)

	counts, err := repo.CountsByDateRange(context.Background(),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, models.AttendanceStatusPresent, counts[0].Status)
	assert.Equal(t, 12, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummaryByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"status", "cnt"}).
		AddRow("Present", 18).
		AddRow("Absent", 1).
		AddRow("Late", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS cnt FROM attendance WHERE student_id = $1 GROUP BY status")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	summary, err := repo.SummaryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 18, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 1, summary.Late)
	assert.Equal(t, 20, summary.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByStudentBounds(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "status", "remarks", "marked_by", "marked_at"}).
		AddRow("att-1", "stu-1", to, "Present", nil, "admin-1", to)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, date, status, remarks, marked_by, marked_at FROM attendance WHERE student_id = $1 AND date >= $2 AND date <= $3 ORDER BY date DESC LIMIT 10")).
		WithArgs("stu-1", from, to).
		WillReturnRows(rows)

	records, err := repo.ListByStudent(context.Background(), "stu-1", &from, &to, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "att-1", records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
