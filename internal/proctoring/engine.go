package proctoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// statusWarnings is the number of recent warnings included in a status snapshot.
const statusWarnings = 5

// ScreenshotStore persists an annotated copy of the frame that produced a
// warning and returns a reference to it.
type ScreenshotStore interface {
	Save(ctx context.Context, interviewID uint, d models.Detection, frame *Frame) (string, error)
}

// Engine owns every proctoring session. Sessions for different interviews are
// independent; calls for the same interview are serialized.
type Engine struct {
	cfg         Config
	bank        []detector
	screenshots ScreenshotStore
	logger      *slog.Logger
	now         func() time.Time
	err         error

	mu       sync.RWMutex
	sessions map[uint]*session
}

type Option func(*Engine)

func WithScreenshotStore(store ScreenshotStore) Option {
	return func(e *Engine) {
		e.screenshots = store
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(m *Models, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		bank:     newDetectorBank(m, cfg),
		logger:   logger.With("component", "proctoring_engine"),
		now:      time.Now,
		sessions: make(map[uint]*session),
	}
	if m == nil {
		e.err = ErrModelsNotLoaded
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDisabledEngine returns an engine that rejects every operation with
// ErrEngineUnavailable. cause is kept for diagnostics.
func NewDisabledEngine(cause error, logger *slog.Logger) *Engine {
	if cause == nil {
		cause = ErrModelsNotLoaded
	}
	e := NewEngine(nil, DefaultConfig(), logger)
	e.err = cause
	return e
}

func (e *Engine) Enabled() bool {
	return e.err == nil
}

// Err is the reason the engine is disabled, or nil.
func (e *Engine) Err() error {
	return e.err
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Start opens a fresh session. An existing session for the same interview,
// active or stopped, is discarded.
func (e *Engine) Start(interviewID uint) error {
	if !e.Enabled() {
		return ErrEngineUnavailable
	}

	s := newSession(interviewID, e.now(), e.cfg)

	e.mu.Lock()
	_, replaced := e.sessions[interviewID]
	e.sessions[interviewID] = s
	e.mu.Unlock()

	e.logger.Info("Proctoring session started",
		"interview_id", interviewID,
		"replaced", replaced)
	return nil
}

func (e *Engine) AnalyzeFrame(ctx context.Context, interviewID uint, frameData string) (*models.FrameResult, error) {
	if !e.Enabled() {
		return nil, ErrEngineUnavailable
	}

	s, err := e.session(interviewID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrSessionInactive
	}

	started := time.Now()

	frame, err := DecodeFrame(frameData, e.cfg.MaxFramePixels)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.frameCount++
	in := frameInput{frame: frame, now: e.now(), number: s.frameCount}

	degraded := false
	var detections []models.Detection
	for _, d := range e.bank {
		found, ok := e.runDetector(ctx, d, in, s)
		if !ok {
			degraded = true
		}
		detections = append(detections, found...)
	}

	warnings := make([]models.Warning, 0)
	for i := range detections {
		if detections[i].IsWarning() {
			detections[i].Screenshot = e.saveScreenshot(ctx, interviewID, detections[i], frame)
		}
		s.record(detections[i])
		if detections[i].IsWarning() {
			warnings = append(warnings, models.NewWarning(detections[i]))
		}
	}

	s.riskScore, s.riskLevel = Score(s.history.items(), e.cfg.RiskWindow, in.now)

	elapsed := time.Since(started)
	s.processingTotal += elapsed
	if degraded {
		s.degradedFrames++
	}

	if detections == nil {
		detections = make([]models.Detection, 0)
	}

	return &models.FrameResult{
		Success:          true,
		InterviewID:      interviewID,
		FrameNumber:      s.frameCount,
		Detections:       detections,
		Warnings:         warnings,
		RiskScore:        s.riskScore,
		RiskLevel:        s.riskLevel,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
		Degraded:         degraded,
	}, nil
}

// Stop ends an active session and returns its final report. The session is
// kept for Status until Remove or the next Start.
func (e *Engine) Stop(interviewID uint) (*models.SessionReport, error) {
	if !e.Enabled() {
		return nil, ErrEngineUnavailable
	}

	s, err := e.session(interviewID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrSessionInactive
	}

	s.active = false
	s.endedAt = e.now()

	report := buildReport(s)
	s.riskScore, s.riskLevel = report.FinalRiskScore, report.RiskLevel

	e.logger.Info("Proctoring session stopped",
		"interview_id", interviewID,
		"frames", report.TotalFramesAnalyzed,
		"detections", report.TotalDetections,
		"warnings", report.TotalWarnings,
		"risk_level", report.RiskLevel)
	return report, nil
}

// Status returns a snapshot of the session in any state. Active sessions are
// rescored against the current time.
func (e *Engine) Status(interviewID uint) (*models.SessionStatus, error) {
	if !e.Enabled() {
		return nil, ErrEngineUnavailable
	}

	s, err := e.session(interviewID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	score, level := s.riskScore, s.riskLevel
	if s.active {
		score, level = Score(s.history.items(), e.cfg.RiskWindow, e.now())
	}

	return &models.SessionStatus{
		InterviewID:    interviewID,
		Active:         s.active,
		StartedAt:      s.startedAt,
		FrameCount:     s.frameCount,
		DetectionCount: s.totalDetections,
		WarningCount:   s.totalWarnings,
		RiskScore:      score,
		RiskLevel:      level,
		RecentWarnings: s.recentWarnings(statusWarnings),
	}, nil
}

// Remove drops the session from memory.
func (e *Engine) Remove(interviewID uint) error {
	if !e.Enabled() {
		return ErrEngineUnavailable
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[interviewID]; !ok {
		return ErrSessionNotFound
	}
	delete(e.sessions, interviewID)
	return nil
}

// ActiveSessions lists the interviews currently being monitored.
func (e *Engine) ActiveSessions() []uint {
	e.mu.RLock()
	all := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		all = append(all, s)
	}
	e.mu.RUnlock()

	ids := make([]uint, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		if s.active {
			ids = append(ids, s.interviewID)
		}
		s.mu.Unlock()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SelfTest runs the detector bank once on a blank frame through a throwaway
// session and reports how many detectors failed.
func (e *Engine) SelfTest(ctx context.Context) error {
	if !e.Enabled() {
		return ErrEngineUnavailable
	}

	s := newSession(0, e.now(), e.cfg)
	in := frameInput{frame: NewFrame(640, 480), now: e.now(), number: 1}

	failed := 0
	found := 0
	for _, d := range e.bank {
		dets, ok := e.runDetector(ctx, d, in, s)
		if !ok {
			failed++
		}
		found += len(dets)
	}

	e.logger.Info("Proctoring self-test finished",
		"detectors", len(e.bank),
		"failed", failed,
		"detections", found)

	if failed == len(e.bank) {
		return fmt.Errorf("self-test: all %d detectors failed", failed)
	}
	return nil
}

func (e *Engine) session(interviewID uint) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.sessions[interviewID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// runDetector is the fail-open boundary around a single detector. ok is false
// when the detector errored or panicked; its detections are then dropped.
func (e *Engine) runDetector(ctx context.Context, d detector, in frameInput, s *session) (found []models.Detection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Detector panicked",
				"detector", d.name(),
				"interview_id", s.interviewID,
				"frame", in.number,
				"panic", fmt.Sprint(r))
			found, ok = nil, false
		}
	}()

	found, err := d.detect(ctx, in, s)
	if err != nil {
		e.logger.Warn("Detector failed",
			"detector", d.name(),
			"interview_id", s.interviewID,
			"frame", in.number,
			"error", err)
		return nil, false
	}
	return found, true
}

func (e *Engine) saveScreenshot(ctx context.Context, interviewID uint, d models.Detection, frame *Frame) *string {
	if e.screenshots == nil {
		return nil
	}
	ref, err := e.screenshots.Save(ctx, interviewID, d, frame)
	if err != nil {
		e.logger.Warn("Failed to save screenshot",
			"interview_id", interviewID,
			"type", d.Type(),
			"error", err)
		return nil
	}
	return &ref
}
