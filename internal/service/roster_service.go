package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
)

const dateLayout = "2006-01-02"

// reportCachePattern matches every cached report key. Submitting a roster
// can change any daily or range report that covers the date, so the whole
// namespace is invalidated.
const reportCachePattern = "reports:*"

type rosterStudentDirectory interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type rosterLedger interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error
}

type rosterCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RosterEntry is one student's row in a roster submission.
type RosterEntry struct {
	StudentID string  `json:"studentId" validate:"required,uuid4"`
	Status    string  `json:"status" validate:"required,oneof=Present Absent Late"`
	Remarks   *string `json:"remarks" validate:"omitempty,max=500"`
}

// SubmitRosterRequest carries a full day's marking. The submission is
// all-or-nothing: every row is written in one transaction or none are.
type SubmitRosterRequest struct {
	Date string        `json:"date" validate:"required"`
	Rows []RosterEntry `json:"rows" validate:"required,min=1,dive"`
}

// RosterService drives the daily marking workflow.
type RosterService struct {
	students rosterStudentDirectory
	ledger   rosterLedger
	cache    rosterCacheInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

func NewRosterService(students rosterStudentDirectory, ledger rosterLedger, cache rosterCacheInvalidator, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		students: students,
		ledger:   ledger,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

// LoadRoster returns the marking sheet for a date. Every enrolled student
// gets a row; students with no saved record for the date default to
// Present with an empty remark. A zero date means today.
func (s *RosterService) LoadRoster(ctx context.Context, date time.Time) (*models.Roster, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	date = models.NormalizeDate(date)

	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	records, err := s.ledger.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}

	byStudent := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	rows := make([]models.RosterRow, 0, len(students))
	for _, st := range students {
		row := models.RosterRow{
			StudentID:   st.ID,
			StudentNo:   st.StudentNo,
			StudentName: st.FullName(),
			Status:      models.AttendanceStatusPresent,
		}
		if rec, ok := byStudent[st.ID]; ok {
			row.Status = rec.Status
			row.Remarks = rec.Remarks
		}
		rows = append(rows, row)
	}

	return &models.Roster{Date: date, Rows: rows}, nil
}

// SubmitRoster saves a day's marking. Rows are upserted keyed on
// (student, date), so resubmitting a day overwrites the earlier marks.
func (s *RosterService) SubmitRoster(ctx context.Context, req SubmitRosterRequest, markedBy string) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	date = models.NormalizeDate(date)

	now := time.Now().UTC()
	records := make([]models.AttendanceRecord, 0, len(req.Rows))
	for _, row := range req.Rows {
		records = append(records, models.AttendanceRecord{
			StudentID: row.StudentID,
			Date:      date,
			Status:    models.AttendanceStatus(row.Status),
			Remarks:   row.Remarks,
			MarkedBy:  markedBy,
			MarkedAt:  now,
		})
	}

	if err := s.ledger.UpsertBatch(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, reportCachePattern); err != nil {
			s.logger.Warn("failed to invalidate report cache", zap.Error(err))
		}
	}

	s.logger.Info("roster submitted",
		zap.String("date", date.Format(dateLayout)),
		zap.Int("rows", len(records)),
		zap.String("marked_by", markedBy))
	return nil
}
