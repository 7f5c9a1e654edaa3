package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/llm"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/validator"
)

const (
	defaultFrameTimeout = 5 * time.Second
	summaryTimeout      = 15 * time.Second
	defaultEventLimit   = 50
)

// ProctoringService is the application facade over the monitoring engine
type ProctoringService interface {
	StartMonitoring(ctx context.Context, interviewID uint) (*StartMonitoringResponse, error)
	AnalyzeFrame(ctx context.Context, interviewID uint, req *models.AnalyzeFrameRequest) (*models.FrameResult, error)
	GetStatus(ctx context.Context, interviewID uint) (*models.SessionStatus, error)
	StopMonitoring(ctx context.Context, interviewID uint) (*models.SessionReport, error)
	RemoveSession(ctx context.Context, interviewID uint) error

	GetReport(ctx context.Context, interviewID uint) (*models.SessionReport, error)
	ListEvents(ctx context.Context, interviewID uint, query *models.ProctoringEventQuery) (*EventListResponse, error)
	ReviewEvent(ctx context.Context, eventID uint, req *models.ReviewEventRequest) error

	Health(ctx context.Context) *HealthStatus
}

type StartMonitoringResponse struct {
	Success     bool      `json:"success"`
	InterviewID uint      `json:"interview_id"`
	StartedAt   time.Time `json:"started_at"`
	Message     string    `json:"message"`
}

type EventListResponse struct {
	Events []*models.ProctoringEvent `json:"events"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

type HealthStatus struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	ProctoringEnabled bool   `json:"proctoring_enabled"`
	ActiveSessions    int    `json:"active_sessions"`
	Error             string `json:"error,omitempty"`
}

// ProctoringDeps collects the collaborators of the proctoring service.
// StatusCache and Summarizer may be nil.
type ProctoringDeps struct {
	Engine       *proctoring.Engine
	Repo         repositories.Repository
	Publisher    events.EventPublisher
	StatusCache  *cache.StatusCache
	Summarizer   llm.Summarizer
	Validator    *validator.Validator
	Logger       *slog.Logger
	FrameTimeout time.Duration
}

type proctoringService struct {
	engine       *proctoring.Engine
	repo         repositories.Repository
	publisher    events.EventPublisher
	statusCache  *cache.StatusCache
	summarizer   llm.Summarizer
	validator    *validator.Validator
	logger       *slog.Logger
	ops          *ServiceLogger
	frameTimeout time.Duration
}

func NewProctoringService(deps ProctoringDeps) ProctoringService {
	timeout := deps.FrameTimeout
	if timeout <= 0 {
		timeout = defaultFrameTimeout
	}
	return &proctoringService{
		engine:       deps.Engine,
		repo:         deps.Repo,
		publisher:    deps.Publisher,
		statusCache:  deps.StatusCache,
		summarizer:   deps.Summarizer,
		validator:    deps.Validator,
		logger:       deps.Logger,
		ops:          NewServiceLogger(deps.Logger, LogConfig{Service: "proctoring-service", Component: "proctoring"}),
		frameTimeout: timeout,
	}
}

func (s *proctoringService) StartMonitoring(ctx context.Context, interviewID uint) (resp *StartMonitoringResponse, err error) {
	op := s.ops.WithOperation(ctx, "start_monitoring", interviewID)
	defer func() { op.LogResult(err) }()

	if !s.engine.Enabled() {
		return nil, ErrEngineUnavailable
	}

	interview, err := s.repo.Interview().GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status == models.InterviewCompleted {
		return nil, NewBusinessRuleError("interview_completed", "monitoring cannot start on a completed interview",
			map[string]interface{}{"interview_id": interviewID})
	}

	if err := s.engine.Start(interviewID); err != nil {
		return nil, err
	}
	status, err := s.engine.Status(interviewID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Interview().MarkInProgress(ctx, interviewID, status.StartedAt); err != nil {
		s.logger.Error("Failed to mark interview in progress", "interview_id", interviewID, "error", err)
	}
	s.publish(ctx, events.NewProctoringStartedEvent(interviewID, status.StartedAt))
	s.statusCache.Set(ctx, status)

	op.LogAudit(AuditEventCreate, interviewID, "proctoring_session", "", nil)

	return &StartMonitoringResponse{
		Success:     true,
		InterviewID: interviewID,
		StartedAt:   status.StartedAt,
		Message:     "CV monitoring started",
	}, nil
}

func (s *proctoringService) AnalyzeFrame(ctx context.Context, interviewID uint, req *models.AnalyzeFrameRequest) (result *models.FrameResult, err error) {
	op := s.ops.WithOperation(ctx, "analyze_frame", interviewID)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// The deadline reaches the model calls. A detector that overruns it fails
	// open, so a slow model yields a degraded result; ErrFrameTimeout only
	// reports a deadline that passed before detection started.
	frameCtx, cancel := context.WithTimeout(ctx, s.frameTimeout)
	defer cancel()

	result, err = s.engine.AnalyzeFrame(frameCtx, interviewID, req.Frame)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrFrameTimeout
		}
		return nil, err
	}

	if len(result.Warnings) > 0 {
		s.recordWarnings(ctx, result)
	}
	if status, err := s.engine.Status(interviewID); err == nil {
		s.statusCache.Set(ctx, status)
	}

	return result, nil
}

// recordWarnings publishes and persists the warning-level detections of one
// frame. Failures are logged; the frame result is already final.
func (s *proctoringService) recordWarnings(ctx context.Context, result *models.FrameResult) {
	var startedAt time.Time
	if status, err := s.engine.Status(result.InterviewID); err == nil {
		startedAt = status.StartedAt
	}

	rows := make([]*models.ProctoringEvent, 0, len(result.Warnings))
	for _, d := range result.Detections {
		if !d.IsWarning() {
			continue
		}
		s.publish(ctx, events.NewProctoringWarningEvent(result.InterviewID, result.FrameNumber, d))

		row, err := newProctoringEventRow(result.InterviewID, result.FrameNumber, startedAt, d)
		if err != nil {
			s.logger.Warn("Failed to encode detection details", "interview_id", result.InterviewID, "error", err)
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return
	}
	if err := s.repo.ProctoringEvent().CreateBatch(ctx, rows); err != nil {
		s.logger.Error("Failed to persist proctoring events",
			"interview_id", result.InterviewID,
			"count", len(rows),
			"error", err)
	}
}

func newProctoringEventRow(interviewID uint, frameNumber int, startedAt time.Time, d models.Detection) (*models.ProctoringEvent, error) {
	details := d.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	offset := 0
	if !startedAt.IsZero() && d.Timestamp.After(startedAt) {
		offset = int(d.Timestamp.Sub(startedAt).Seconds())
	}

	return &models.ProctoringEvent{
		InterviewID:   interviewID,
		Type:          d.Type(),
		Data:          datatypes.JSON(data),
		Severity:      d.Severity,
		Confidence:    d.Confidence,
		Message:       d.Message,
		ScreenshotURL: d.Screenshot,
		FrameNumber:   frameNumber,
		TimeOffset:    offset,
		DetectedAt:    d.Timestamp,
		ReviewStatus:  models.ReviewPending,
	}, nil
}

func (s *proctoringService) GetStatus(ctx context.Context, interviewID uint) (*models.SessionStatus, error) {
	status, err := s.engine.Status(interviewID)
	if err == nil {
		return status, nil
	}

	// Another replica may own the session
	if errors.Is(err, ErrSessionNotFound) {
		if cached, ok := s.statusCache.Get(ctx, interviewID); ok {
			return cached, nil
		}
	}
	return nil, err
}

func (s *proctoringService) StopMonitoring(ctx context.Context, interviewID uint) (report *models.SessionReport, err error) {
	op := s.ops.WithOperation(ctx, "stop_monitoring", interviewID)
	defer func() { op.LogResult(err) }()

	report, err = s.engine.Stop(interviewID)
	if err != nil {
		return nil, err
	}

	if s.summarizer != nil {
		sumCtx, cancel := context.WithTimeout(ctx, summaryTimeout)
		summary, err := s.summarizer.Summarize(sumCtx, report)
		cancel()
		if err != nil {
			s.logger.Warn("Failed to summarize monitoring report", "interview_id", interviewID, "error", err)
		} else {
			report.Summary = summary
		}
	}

	// The report is returned even when it cannot be stored
	if err := s.repo.Interview().SaveMonitoringReport(ctx, interviewID, report); err != nil {
		s.logger.Error("Failed to save monitoring report", "interview_id", interviewID, "error", err)
	}

	s.publish(ctx, events.NewProctoringStoppedEvent(report))
	if status, err := s.engine.Status(interviewID); err == nil {
		s.statusCache.Set(ctx, status)
	}

	op.LogAudit(AuditEventUpdate, interviewID, "proctoring_session", "", map[string]interface{}{
		"risk_level":     report.RiskLevel,
		"total_warnings": report.TotalWarnings,
	})

	return report, nil
}

func (s *proctoringService) RemoveSession(ctx context.Context, interviewID uint) (err error) {
	op := s.ops.WithOperation(ctx, "remove_session", interviewID)
	defer func() { op.LogResult(err) }()

	if err := s.engine.Remove(interviewID); err != nil {
		return err
	}
	s.statusCache.Delete(ctx, interviewID)

	op.LogAudit(AuditEventDelete, interviewID, "proctoring_session", "", nil)
	return nil
}

func (s *proctoringService) GetReport(ctx context.Context, interviewID uint) (*models.SessionReport, error) {
	interview, err := s.repo.Interview().GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if len(interview.CVMonitoringReport) == 0 {
		return nil, ErrReportNotFound
	}

	var report models.SessionReport
	if err := json.Unmarshal(interview.CVMonitoringReport, &report); err != nil {
		return nil, fmt.Errorf("failed to decode monitoring report: %w", err)
	}
	return &report, nil
}

func (s *proctoringService) ListEvents(ctx context.Context, interviewID uint, query *models.ProctoringEventQuery) (*EventListResponse, error) {
	if query == nil {
		query = &models.ProctoringEventQuery{}
	}
	if err := s.validator.Validate(query); err != nil {
		return nil, err
	}

	exists, err := s.repo.Interview().Exists(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrInterviewNotFound
	}

	filters := eventFilters(query)
	list, total, err := s.repo.ProctoringEvent().ListByInterview(ctx, interviewID, filters)
	if err != nil {
		return nil, err
	}

	return &EventListResponse{
		Events: list,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func eventFilters(q *models.ProctoringEventQuery) repositories.ProctoringEventFilters {
	filters := repositories.ProctoringEventFilters{
		DateFrom:  q.DateFrom,
		DateTo:    q.DateTo,
		Limit:     q.Limit,
		Offset:    q.Offset,
		SortOrder: q.SortOrder,
	}
	if filters.Limit == 0 {
		filters.Limit = defaultEventLimit
	}
	if q.Severity != "" {
		sev := models.Severity(q.Severity)
		filters.Severity = &sev
	}
	if q.Type != "" {
		t := q.Type
		filters.Type = &t
	}
	if q.ReviewStatus != "" {
		rs := models.ReviewStatus(q.ReviewStatus)
		filters.ReviewStatus = &rs
	}
	return filters
}

func (s *proctoringService) ReviewEvent(ctx context.Context, eventID uint, req *models.ReviewEventRequest) (err error) {
	op := s.ops.WithOperation(ctx, "review_event", 0)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := s.repo.ProctoringEvent().UpdateReview(ctx, eventID, req.ReviewStatus, req.Reviewer, req.Notes); err != nil {
		return err
	}

	op.LogAudit(AuditEventUpdate, eventID, "proctoring_event", req.Reviewer, map[string]interface{}{
		"review_status": req.ReviewStatus,
	})
	return nil
}

func (s *proctoringService) Health(_ context.Context) *HealthStatus {
	health := &HealthStatus{
		Status:            "healthy",
		Service:           "proctoring-service",
		ProctoringEnabled: s.engine.Enabled(),
	}
	if !health.ProctoringEnabled {
		health.Status = "degraded"
		if cause := s.engine.Err(); cause != nil {
			health.Error = cause.Error()
		}
		return health
	}
	health.ActiveSessions = len(s.engine.ActiveSessions())
	return health
}

func (s *proctoringService) publish(ctx context.Context, event *events.ProctoringEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProctoringEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish proctoring event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}
