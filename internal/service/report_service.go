package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/repository"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/export"
)

type reportLedger interface {
	CountsByDate(ctx context.Context, date time.Time) ([]repository.StatusCount, error)
	CountsByDateRange(ctx context.Context, start, end time.Time) ([]repository.StatusCount, error)
}

type reportDirectory interface {
	Count(ctx context.Context) (int, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportService aggregates the attendance ledger into daily and range
// reports. Results are cached in Redis when a cache is configured; a
// submitted roster invalidates the whole report namespace.
type ReportService struct {
	ledger   reportLedger
	students reportDirectory
	cache    reportCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

func NewReportService(ledger reportLedger, students reportDirectory, cache reportCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		ledger:   ledger,
		students: students,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// cacheGet reads a cached report and records hit/miss metrics.
func (s *ReportService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

// Daily builds the report for a single date. A zero date means today.
// presentPercentage is 0 when no students are enrolled.
func (s *ReportService) Daily(ctx context.Context, date time.Time) (*models.DailyReportEntry, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	date = models.NormalizeDate(date)

	cacheKey := fmt.Sprintf("reports:daily:%s", date.Format(dateLayout))
	if s.cache != nil {
		var cached models.DailyReportEntry
		if s.cacheGet(ctx, cacheKey, &cached) {
			return &cached, nil
		}
	}

	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	counts, err := s.ledger.CountsByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	entry := buildDailyEntry(date, total, counts)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entry, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return entry, nil
}

// Range builds one entry per calendar day between start and end inclusive.
// Days with no records produce zero-filled entries.
func (s *ReportService) Range(ctx context.Context, start, end time.Time) (*models.RangeReport, error) {
	start = models.NormalizeDate(start)
	end = models.NormalizeDate(end)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}

	cacheKey := fmt.Sprintf("reports:range:%s:%s", start.Format(dateLayout), end.Format(dateLayout))
	if s.cache != nil {
		var cached models.RangeReport
		if s.cacheGet(ctx, cacheKey, &cached) {
			return &cached, nil
		}
	}

	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	counts, err := s.ledger.CountsByDateRange(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	byDate := make(map[string][]repository.StatusCount)
	for _, c := range counts {
		key := c.Date.Format(dateLayout)
		byDate[key] = append(byDate[key], c)
	}

	report := &models.RangeReport{StartDate: start, EndDate: end}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		entry := buildDailyEntry(d, total, byDate[d.Format(dateLayout)])
		report.Entries = append(report.Entries, *entry)
		report.TotalPresent += entry.PresentCount
		report.TotalAbsent += entry.AbsentCount
		report.TotalLate += entry.LateCount
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return report, nil
}

// Export renders a range report as CSV or PDF and returns the payload
// with a suggested filename.
func (s *ReportService) Export(ctx context.Context, start, end time.Time, format string) ([]byte, string, error) {
	report, err := s.Range(ctx, start, end)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Present", "Absent", "Late", "Total Students", "Present %"},
	}
	for _, e := range report.Entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":           e.Date.Format(dateLayout),
			"Present":        fmt.Sprintf("%d", e.PresentCount),
			"Absent":         fmt.Sprintf("%d", e.AbsentCount),
			"Late":           fmt.Sprintf("%d", e.LateCount),
			"Total Students": fmt.Sprintf("%d", e.TotalStudents),
			"Present %":      fmt.Sprintf("%.1f", e.PresentPercentage),
		})
	}

	name := fmt.Sprintf("attendance_%s_%s", report.StartDate.Format("20060102"), report.EndDate.Format("20060102"))
	switch format {
	case "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export csv")
		}
		return payload, name + ".csv", nil
	case "pdf":
		title := fmt.Sprintf("Attendance %s to %s", report.StartDate.Format(dateLayout), report.EndDate.Format(dateLayout))
		payload, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export pdf")
		}
		return payload, name + ".pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildDailyEntry(date time.Time, totalStudents int, counts []repository.StatusCount) *models.DailyReportEntry {
	entry := &models.DailyReportEntry{Date: date, TotalStudents: totalStudents}
	for _, c := range counts {
		switch c.Status {
		case models.AttendanceStatusPresent:
			entry.PresentCount = c.Count
		case models.AttendanceStatusAbsent:
			entry.AbsentCount = c.Count
		case models.AttendanceStatusLate:
			entry.LateCount = c.Count
		}
	}
	if totalStudents > 0 {
		entry.PresentPercentage = float64(entry.PresentCount) / float64(totalStudents) * 100
	}
	return entry
}
