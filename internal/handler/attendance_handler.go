package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/service"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/response"
)

const dateLayout = "2006-01-02"

// AttendanceHandler exposes the marking workflow and public history
// lookups.
type AttendanceHandler struct {
	roster     *service.RosterService
	dashboards *service.DashboardService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(roster *service.RosterService, dashboards *service.DashboardService) *AttendanceHandler {
	return &AttendanceHandler{roster: roster, dashboards: dashboards}
}

// GetRoster godoc
// @Summary Load the marking sheet for a date
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/roster [get]
func (h *AttendanceHandler) GetRoster(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	roster, err := h.roster.LoadRoster(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// SubmitRoster godoc
// @Summary Submit a day's marking
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SubmitRosterRequest true "Roster payload"
// @Success 204
// @Security BearerAuth
// @Router /attendance/roster [post]
func (h *AttendanceHandler) SubmitRoster(c *gin.Context) {
	var req service.SubmitRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	markedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		markedBy = claims.UserID
	}
	if err := h.roster.SubmitRoster(c.Request.Context(), req, markedBy); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentHistory godoc
// @Summary Attendance history for a student by public student number
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student number"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{studentId} [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	history, err := h.dashboards.HistoryByStudentNo(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
