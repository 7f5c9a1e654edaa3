package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/SAP-F-2025/proctoring-service/internal/validator"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeEngineUnavailable  = "ENGINE_UNAVAILABLE"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionInactive    = "SESSION_INACTIVE"
	CodeDecodeFailed       = "DECODE_FAILED"
	CodeInterviewNotFound  = "INTERVIEW_NOT_FOUND"
	CodeInterviewCompleted = "INTERVIEW_COMPLETED"
	CodeReportNotFound     = "REPORT_NOT_FOUND"
	CodeEventNotFound      = "EVENT_NOT_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"

	// room for the JSON envelope around the encoded frame
	maxFrameBody = validator.MaxFramePayload + 4<<10
)

type ProctoringHandler struct {
	BaseHandler
	proctoringService services.ProctoringService
	exportService     services.ReportExportService
}

func NewProctoringHandler(
	proctoringService services.ProctoringService,
	exportService services.ReportExportService,
	logger utils.Logger,
) *ProctoringHandler {
	return &ProctoringHandler{
		BaseHandler:       NewBaseHandler(logger),
		proctoringService: proctoringService,
		exportService:     exportService,
	}
}

// StartMonitoring opens a monitoring session for an interview
// @Summary Start monitoring
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Success 200 {object} services.StartMonitoringResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/start [post]
func (h *ProctoringHandler) StartMonitoring(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	h.LogRequest(c, "Starting CV monitoring", "interview_id", interviewID)

	resp, err := h.proctoringService.StartMonitoring(c.Request.Context(), interviewID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AnalyzeFrame runs the detector bank on one captured frame
// @Summary Analyze frame
// @Tags proctoring
// @Accept json
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Param frame body models.AnalyzeFrameRequest true "Encoded frame"
// @Success 200 {object} models.FrameResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/frames [post]
func (h *ProctoringHandler) AnalyzeFrame(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFrameBody)

	var req models.AnalyzeFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.RespondWithError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Frame payload too large", err)
			return
		}
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Invalid request payload", err, err.Error())
		return
	}

	result, err := h.proctoringService.AnalyzeFrame(c.Request.Context(), interviewID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStatus returns the live snapshot of a session
// @Summary Monitoring status
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Success 200 {object} models.SessionStatus
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/status [get]
func (h *ProctoringHandler) GetStatus(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	status, err := h.proctoringService.GetStatus(c.Request.Context(), interviewID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// StopMonitoring ends the session and returns the final report
// @Summary Stop monitoring
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Success 200 {object} models.SessionReport
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/stop [post]
func (h *ProctoringHandler) StopMonitoring(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	h.LogRequest(c, "Stopping CV monitoring", "interview_id", interviewID)

	report, err := h.proctoringService.StopMonitoring(c.Request.Context(), interviewID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// RemoveSession drops the in-memory session of an interview
// @Summary Remove session
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id} [delete]
func (h *ProctoringHandler) RemoveSession(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	if err := h.proctoringService.RemoveSession(c.Request.Context(), interviewID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Monitoring session removed", gin.H{"interview_id": interviewID})
}

// GetReport returns the report stored on the interview record
// @Summary Stored monitoring report
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Success 200 {object} models.SessionReport
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/report [get]
func (h *ProctoringHandler) GetReport(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	report, err := h.proctoringService.GetReport(c.Request.Context(), interviewID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportReport downloads the stored report as a workbook, or the stored
// warnings as CSV with ?format=csv
// @Summary Export monitoring report
// @Tags proctoring
// @Produce octet-stream
// @Param interview_id path uint true "Interview ID"
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/report/export [get]
func (h *ProctoringHandler) ExportReport(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	h.LogRequest(c, "Exporting monitoring report", "interview_id", interviewID, "format", format)

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = h.exportService.ExportReportExcel(c.Request.Context(), interviewID)
		contentType = xlsxContentType
	case "csv":
		data, err = h.exportService.ExportEventsCSV(c.Request.Context(), interviewID)
		contentType = csvContentType
	default:
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Unsupported export format", nil, format)
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+services.ExportFileName(interviewID, format, time.Now()))
	c.Data(http.StatusOK, contentType, data)
}

// ListEvents lists the warnings persisted for an interview
// @Summary List proctoring events
// @Tags proctoring
// @Produce json
// @Param interview_id path uint true "Interview ID"
// @Param severity query string false "Severity filter"
// @Param type query string false "Detection type filter"
// @Param review_status query string false "Review status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.EventListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/interviews/{interview_id}/events [get]
func (h *ProctoringHandler) ListEvents(c *gin.Context) {
	interviewID := ParseUintIDParam(c, "interview_id")
	if interviewID == 0 {
		return
	}

	var query models.ProctoringEventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Invalid query parameters", err, err.Error())
		return
	}

	resp, err := h.proctoringService.ListEvents(c.Request.Context(), interviewID, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReviewEvent records a reviewer's decision on a persisted warning
// @Summary Review proctoring event
// @Tags proctoring
// @Accept json
// @Produce json
// @Param event_id path uint true "Event ID"
// @Param review body models.ReviewEventRequest true "Review decision"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/events/{event_id}/review [patch]
func (h *ProctoringHandler) ReviewEvent(c *gin.Context) {
	eventID := ParseUintIDParam(c, "event_id")
	if eventID == 0 {
		return
	}

	var req models.ReviewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Reviewing proctoring event", "event_id", eventID, "review_status", req.ReviewStatus)

	if err := h.proctoringService.ReviewEvent(c.Request.Context(), eventID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Event reviewed", gin.H{"event_id": eventID, "review_status": req.ReviewStatus})
}

// Health reports whether frame analysis is available
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} services.HealthStatus
// @Router /health [get]
func (h *ProctoringHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.proctoringService.Health(c.Request.Context()))
}

func (h *ProctoringHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Validation failed", err, validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusConflict, CodeInterviewCompleted, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEngineUnavailable):
		h.RespondWithError(c, http.StatusServiceUnavailable, CodeEngineUnavailable, "CV monitoring not available", err)
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeSessionNotFound, "Monitoring not started for this interview", err)
	case errors.Is(err, services.ErrSessionInactive):
		h.RespondWithError(c, http.StatusConflict, CodeSessionInactive, "Monitoring is not active", err)
	case errors.Is(err, services.ErrDecodeFailed):
		h.RespondWithError(c, http.StatusBadRequest, CodeDecodeFailed, "Failed to decode frame", err)
	case errors.Is(err, services.ErrInterviewNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeInterviewNotFound, "Interview not found", err)
	case errors.Is(err, services.ErrReportNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeReportNotFound, "Monitoring report not available", err)
	case errors.Is(err, services.ErrEventNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeEventNotFound, "Proctoring event not found", err)
	case errors.Is(err, services.ErrFrameTimeout):
		h.RespondWithError(c, http.StatusGatewayTimeout, CodeTimeout, "Frame analysis timed out", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
	}
}
