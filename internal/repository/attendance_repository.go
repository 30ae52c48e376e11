package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
)

// AttendanceRepository handles persistence for the attendance ledger. The
// (student_id, date) uniqueness constraint lives in the database; every write
// path goes through an upsert so concurrent marks for the same pair serialize
// in the store.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = "id, student_id, date, status, remarks, marked_by, marked_at"

// ListByDate returns all records for one calendar date keyed for roster merge.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE date = $1", attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, models.NormalizeDate(date)); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}

// UpsertBatch applies one roster submission atomically: every row is upserted
// on (student_id, date) inside a single transaction, so the submission either
// commits whole or not at all.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance (id, student_id, date, status, remarks, marked_by, marked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at`

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Date = models.NormalizeDate(rec.Date)
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Remarks, rec.MarkedBy, rec.MarkedAt); err != nil {
			return fmt.Errorf("upsert attendance for student %s: %w", rec.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	committed = true
	return nil
}

// StatusCount is one per-status aggregation row.
type StatusCount struct {
	Date   time.Time               `db:"date"`
	Status models.AttendanceStatus `db:"status"`
	Count  int                     `db:"cnt"`
}

// CountsByDate aggregates per-status counts for one calendar date.
func (r *AttendanceRepository) CountsByDate(ctx context.Context, date time.Time) ([]StatusCount, error) {
	const query = `SELECT date, status, COUNT(*) AS cnt FROM attendance WHERE date = $1 GROUP BY date, status`
	var rows []StatusCount
	if err := r.db.SelectContext(ctx, &rows, query, models.NormalizeDate(date)); err != nil {
		return nil, fmt.Errorf("count attendance by date: %w", err)
	}
	return rows, nil
}

// CountsByDateRange aggregates per-status counts for every day in
// [start, end]; days without records produce no rows and are zero-filled by
// the reporting service.
func (r *AttendanceRepository) CountsByDateRange(ctx context.Context, start, end time.Time) ([]StatusCount, error) {
	const query = `SELECT date, status, COUNT(*) AS cnt FROM attendance WHERE date >= $1 AND date <= $2 GROUP BY date, status ORDER BY date`
	var rows []StatusCount
	if err := r.db.SelectContext(ctx, &rows, query, models.NormalizeDate(start), models.NormalizeDate(end)); err != nil {
		return nil, fmt.Errorf("count attendance by range: %w", err)
	}
	return rows, nil
}

// HistoryByStudent returns the full history for a student, most recent first.
func (r *AttendanceRepository) HistoryByStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error) {
	const query = `SELECT date, status FROM attendance WHERE student_id = $1 ORDER BY date DESC`
	var rows []models.AttendanceHistoryEntry
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}

// ListByStudent returns records for a student, optionally bounded by dates
// and limited, most recent first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, from, to *time.Time, limit int) ([]models.AttendanceRecord, error) {
	where := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, models.NormalizeDate(*from))
	}
	if to != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, models.NormalizeDate(*to))
	}
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE %s ORDER BY date DESC", attendanceColumns, strings.Join(where, " AND "))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return records, nil
}

// ListExceptionsByStudent returns Absent/Late records since the given date,
// most recent first. Feeds the student dashboard notification strip.
func (r *AttendanceRepository) ListExceptionsByStudent(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE student_id = $1 AND date >= $2 AND status IN ($3, $4) ORDER BY date DESC`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, models.NormalizeDate(since), models.AttendanceStatusAbsent, models.AttendanceStatusLate); err != nil {
		return nil, fmt.Errorf("list attendance exceptions: %w", err)
	}
	return records, nil
}

// SummaryByStudent aggregates lifetime per-status counts for a student.
func (r *AttendanceRepository) SummaryByStudent(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance WHERE student_id = $1 GROUP BY status`
	var rows []StatusCount
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch row.Status {
		case models.AttendanceStatusPresent:
			summary.Present += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		case models.AttendanceStatusLate:
			summary.Late += row.Count
		}
		summary.Total += row.Count
	}
	return summary, nil
}

// FindByStudentAndDate fetches the single record for a (student, date) pair.
func (r *AttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = $1 AND date = $2", attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, models.NormalizeDate(date)); err != nil {
		return nil, err
	}
	return &record, nil
}
