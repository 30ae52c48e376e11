package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/service"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/response"
)

// ReportHandler exposes daily and range reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Daily godoc
// @Summary Attendance summary for one date
// @Tags Reports
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/daily [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	report, err := h.reports.Daily(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Range godoc
// @Summary Attendance summary per day over a date range
// @Tags Reports
// @Produce json
// @Param startDate query string true "Start date (YYYY-MM-DD)"
// @Param endDate query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/range [get]
func (h *ReportHandler) Range(c *gin.Context) {
	start, end, err := h.parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Range(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export a range report as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param startDate query string true "Start date (YYYY-MM-DD)"
// @Param endDate query string true "End date (YYYY-MM-DD)"
// @Param format query string true "csv or pdf"
// @Success 200
// @Security BearerAuth
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	start, end, err := h.parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, filename, err := h.reports.Export(c.Request.Context(), start, end, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if c.Query("format") == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}

func (h *ReportHandler) parseRange(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.Query("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate must use YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, c.Query("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must use YYYY-MM-DD")
	}
	return start, end, nil
}
