package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

type MockInterviewRepository struct {
	mock.Mock
}

func (m *MockInterviewRepository) GetByID(ctx context.Context, id uint) (*models.Interview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interview), args.Error(1)
}

func (m *MockInterviewRepository) Exists(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockInterviewRepository) MarkInProgress(ctx context.Context, id uint, startedAt time.Time) error {
	args := m.Called(ctx, id, startedAt)
	return args.Error(0)
}

func (m *MockInterviewRepository) SaveMonitoringReport(ctx context.Context, id uint, report *models.SessionReport) error {
	args := m.Called(ctx, id, report)
	return args.Error(0)
}

type MockProctoringEventRepository struct {
	mock.Mock
}

func (m *MockProctoringEventRepository) Create(ctx context.Context, event *models.ProctoringEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProctoringEventRepository) CreateBatch(ctx context.Context, events []*models.ProctoringEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockProctoringEventRepository) ListByInterview(ctx context.Context, interviewID uint, filters repositories.ProctoringEventFilters) ([]*models.ProctoringEvent, int64, error) {
	args := m.Called(ctx, interviewID, filters)
	var list []*models.ProctoringEvent
	if v := args.Get(0); v != nil {
		list = v.([]*models.ProctoringEvent)
	}
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockProctoringEventRepository) CountBySeverity(ctx context.Context, interviewID uint) (map[models.Severity]int64, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Severity]int64), args.Error(1)
}

func (m *MockProctoringEventRepository) UpdateReview(ctx context.Context, id uint, status models.ReviewStatus, reviewer string, notes *string) error {
	args := m.Called(ctx, id, status, reviewer, notes)
	return args.Error(0)
}

func (m *MockProctoringEventRepository) DeleteByInterview(ctx context.Context, interviewID uint) error {
	args := m.Called(ctx, interviewID)
	return args.Error(0)
}

type mockRepository struct {
	interviews *MockInterviewRepository
	events     *MockProctoringEventRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		interviews: &MockInterviewRepository{},
		events:     &MockProctoringEventRepository{},
	}
}

func (r *mockRepository) Interview() repositories.InterviewRepository {
	return r.interviews
}

func (r *mockRepository) ProctoringEvent() repositories.ProctoringEventRepository {
	return r.events
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, report *models.SessionReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

// stubModels returns fixed inference results for every frame.
type stubModels struct {
	mu      sync.Mutex
	faces   []proctoring.FaceBox
	objects []proctoring.ObjectBox
}

func (s *stubModels) DetectFaces(_ context.Context, _ *proctoring.Frame) ([]proctoring.FaceBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faces, nil
}

func (s *stubModels) DetectObjects(_ context.Context, _ *proctoring.Frame) ([]proctoring.ObjectBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects, nil
}

func (s *stubModels) setObjects(boxes ...proctoring.ObjectBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = boxes
}

// blockingFaces never answers before the caller gives up.
type blockingFaces struct{}

func (blockingFaces) DetectFaces(ctx context.Context, _ *proctoring.Frame) ([]proctoring.FaceBox, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
