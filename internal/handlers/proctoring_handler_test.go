package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type MockProctoringService struct {
	mock.Mock
}

func (m *MockProctoringService) StartMonitoring(ctx context.Context, interviewID uint) (*services.StartMonitoringResponse, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StartMonitoringResponse), args.Error(1)
}

func (m *MockProctoringService) AnalyzeFrame(ctx context.Context, interviewID uint, req *models.AnalyzeFrameRequest) (*models.FrameResult, error) {
	args := m.Called(ctx, interviewID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FrameResult), args.Error(1)
}

func (m *MockProctoringService) GetStatus(ctx context.Context, interviewID uint) (*models.SessionStatus, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionStatus), args.Error(1)
}

func (m *MockProctoringService) StopMonitoring(ctx context.Context, interviewID uint) (*models.SessionReport, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionReport), args.Error(1)
}

func (m *MockProctoringService) RemoveSession(ctx context.Context, interviewID uint) error {
	return m.Called(ctx, interviewID).Error(0)
}

func (m *MockProctoringService) GetReport(ctx context.Context, interviewID uint) (*models.SessionReport, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionReport), args.Error(1)
}

func (m *MockProctoringService) ListEvents(ctx context.Context, interviewID uint, query *models.ProctoringEventQuery) (*services.EventListResponse, error) {
	args := m.Called(ctx, interviewID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EventListResponse), args.Error(1)
}

func (m *MockProctoringService) ReviewEvent(ctx context.Context, eventID uint, req *models.ReviewEventRequest) error {
	return m.Called(ctx, eventID, req).Error(0)
}

func (m *MockProctoringService) Health(ctx context.Context) *services.HealthStatus {
	return m.Called(ctx).Get(0).(*services.HealthStatus)
}

type MockReportExportService struct {
	mock.Mock
}

func (m *MockReportExportService) ExportReportExcel(ctx context.Context, interviewID uint) ([]byte, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockReportExportService) ExportEventsCSV(ctx context.Context, interviewID uint) ([]byte, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func setupRouter() (*gin.Engine, *MockProctoringService, *MockReportExportService) {
	gin.SetMode(gin.TestMode)
	svc := &MockProctoringService{}
	export := &MockReportExportService{}
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.Use(utils.RequestID(), utils.ContextLogger(logger))
	NewHandlerManager(svc, export, logger).SetupRoutes(router)
	return router, svc, export
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestProctoringHandler_StartMonitoring(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("StartMonitoring", mock.Anything, uint(12)).
			Return(&services.StartMonitoringResponse{Success: true, InterviewID: 12}, nil)

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/12/start", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))
		var resp services.StartMonitoringResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, uint(12), resp.InterviewID)
	})

	t.Run("InvalidID", func(t *testing.T) {
		router, svc, _ := setupRouter()

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/abc/start", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeValidationFailed, decodeError(t, w).Code)
		svc.AssertNotCalled(t, "StartMonitoring", mock.Anything, mock.Anything)
	})

	t.Run("CompletedInterview", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("StartMonitoring", mock.Anything, uint(3)).
			Return(nil, services.NewBusinessRuleError("interview_completed", "monitoring cannot start on a completed interview", nil))

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/3/start", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, CodeInterviewCompleted, decodeError(t, w).Code)
	})
}

func TestProctoringHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"engine unavailable", services.ErrEngineUnavailable, http.StatusServiceUnavailable, CodeEngineUnavailable},
		{"session not found", services.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
		{"session inactive", services.ErrSessionInactive, http.StatusConflict, CodeSessionInactive},
		{"decode failed", fmt.Errorf("%w: bad header", services.ErrDecodeFailed), http.StatusBadRequest, CodeDecodeFailed},
		{"interview not found", services.ErrInterviewNotFound, http.StatusNotFound, CodeInterviewNotFound},
		{"timeout", services.ErrFrameTimeout, http.StatusGatewayTimeout, CodeTimeout},
		{"validation", apperrors.ValidationErrors{{Field: "frame", Message: "invalid"}}, http.StatusBadRequest, CodeValidationFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			router, svc, _ := setupRouter()
			svc.On("AnalyzeFrame", mock.Anything, uint(1), mock.Anything).Return(nil, c.err)

			w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/1/frames", map[string]string{"frame": "aGVsbG8="})

			assert.Equal(t, c.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, c.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestProctoringHandler_AnalyzeFrame(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("AnalyzeFrame", mock.Anything, uint(1), &models.AnalyzeFrameRequest{Frame: "aGVsbG8="}).
			Return(&models.FrameResult{Success: true, InterviewID: 1, FrameNumber: 4, RiskLevel: models.RiskLow}, nil)

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/1/frames", map[string]string{"frame": "aGVsbG8="})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.FrameResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.FrameNumber)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		router, svc, _ := setupRouter()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/proctoring/interviews/1/frames", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "AnalyzeFrame", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OversizedBody", func(t *testing.T) {
		router, svc, _ := setupRouter()
		body := `{"frame":"` + strings.Repeat("A", maxFrameBody) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/proctoring/interviews/1/frames", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, CodePayloadTooLarge, decodeError(t, w).Code)
		svc.AssertNotCalled(t, "AnalyzeFrame", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProctoringHandler_SessionEndpoints(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("GetStatus", mock.Anything, uint(5)).
			Return(&models.SessionStatus{InterviewID: 5, Active: true, FrameCount: 30}, nil)

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/5/status", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.SessionStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 30, resp.FrameCount)
	})

	t.Run("Stop", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("StopMonitoring", mock.Anything, uint(5)).
			Return(&models.SessionReport{Success: true, InterviewID: 5, TotalFramesAnalyzed: 30}, nil)

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/5/stop", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.SessionReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 30, resp.TotalFramesAnalyzed)
	})

	t.Run("StopNeverStarted", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("StopMonitoring", mock.Anything, uint(6)).Return(nil, services.ErrSessionNotFound)

		w := perform(router, http.MethodPost, "/api/v1/proctoring/interviews/6/stop", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, CodeSessionNotFound, decodeError(t, w).Code)
	})

	t.Run("Remove", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("RemoveSession", mock.Anything, uint(5)).Return(nil)

		w := perform(router, http.MethodDelete, "/api/v1/proctoring/interviews/5", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp SuccessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("ReportMissing", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("GetReport", mock.Anything, uint(5)).Return(nil, services.ErrReportNotFound)

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/5/report", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, CodeReportNotFound, decodeError(t, w).Code)
	})
}

func TestProctoringHandler_ExportReport(t *testing.T) {
	t.Run("Excel", func(t *testing.T) {
		router, _, export := setupRouter()
		export.On("ExportReportExcel", mock.Anything, uint(7)).Return([]byte("xlsx-bytes"), nil)

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/7/report/export", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "interview_7_proctoring_")
		assert.Equal(t, "xlsx-bytes", w.Body.String())
	})

	t.Run("CSV", func(t *testing.T) {
		router, _, export := setupRouter()
		export.On("ExportEventsCSV", mock.Anything, uint(7)).Return([]byte("a,b\n"), nil)

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/7/report/export?format=csv", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		router, _, export := setupRouter()

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/7/report/export?format=pdf", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		export.AssertNotCalled(t, "ExportReportExcel", mock.Anything, mock.Anything)
	})
}

func TestProctoringHandler_Events(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("ListEvents", mock.Anything, uint(7), mock.MatchedBy(func(q *models.ProctoringEventQuery) bool {
			return q.Severity == "critical" && q.Limit == 10
		})).Return(&services.EventListResponse{Events: []*models.ProctoringEvent{{ID: 1}}, Total: 1, Limit: 10}, nil)

		w := perform(router, http.MethodGet, "/api/v1/proctoring/interviews/7/events?severity=critical&limit=10", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp services.EventListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.Total)
	})

	t.Run("Review", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("ReviewEvent", mock.Anything, uint(9), &models.ReviewEventRequest{ReviewStatus: models.ReviewReviewed, Reviewer: "hr@example.com"}).
			Return(nil)

		w := perform(router, http.MethodPatch, "/api/v1/proctoring/events/9/review",
			map[string]string{"review_status": "reviewed", "reviewer": "hr@example.com"})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("ReviewUnknownEvent", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("ReviewEvent", mock.Anything, uint(9), mock.Anything).Return(services.ErrEventNotFound)

		w := perform(router, http.MethodPatch, "/api/v1/proctoring/events/9/review",
			map[string]string{"review_status": "reviewed", "reviewer": "hr@example.com"})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, CodeEventNotFound, decodeError(t, w).Code)
	})
}

func TestProctoringHandler_Health(t *testing.T) {
	router, svc, _ := setupRouter()
	svc.On("Health", mock.Anything).Return(&services.HealthStatus{
		Status:            "degraded",
		Service:           "proctoring-service",
		ProctoringEnabled: false,
	})

	w := perform(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["proctoring_enabled"])
	assert.Equal(t, "proctoring-service", resp["service"])
}
