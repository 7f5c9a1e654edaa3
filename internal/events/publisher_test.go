package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

func TestMockEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := NewMockEventPublisher(logger)
	ctx := context.Background()

	started := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.PublishProctoringEvent(ctx, NewProctoringStartedEvent(42, started)))

	shot := "cv_screenshots/42_face_absence.jpg"
	detection := models.Detection{
		Timestamp:  started.Add(time.Minute),
		Kind:       models.KindFaceAbsence,
		Severity:   models.SeverityHigh,
		Confidence: 1,
		Message:    "Candidate not visible in frame",
		Screenshot: &shot,
	}
	require.NoError(t, publisher.PublishProctoringEvent(ctx, NewProctoringWarningEvent(42, 31, detection)))

	report := &models.SessionReport{InterviewID: 42, TotalFramesAnalyzed: 31, RiskLevel: models.RiskMedium}
	require.NoError(t, publisher.PublishProctoringEvent(ctx, NewProctoringStoppedEvent(report)))

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 3)
	assert.Equal(t, EventProctoringStarted, published[0].Type)
	assert.Equal(t, EventProctoringWarning, published[1].Type)
	assert.Equal(t, EventProctoringStopped, published[2].Type)

	for _, e := range published {
		assert.Equal(t, "proctoring-service", e.Source)
		_, err := uuid.Parse(e.ID)
		assert.NoError(t, err)
		id, ok := interviewIDOf(&e)
		assert.True(t, ok)
		assert.Equal(t, uint(42), id)
	}

	warning, ok := published[1].Data.(ProctoringWarningEvent)
	require.True(t, ok)
	assert.Equal(t, "face_absence", warning.Type)
	assert.Equal(t, 31, warning.FrameNumber)
	assert.Equal(t, &shot, warning.Screenshot)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestPartitionByInterview(t *testing.T) {
	msg := message.NewMessage("1", nil)
	msg.Metadata.Set("interview_id", "42")

	key, err := partitionByInterview("proctoring", msg)
	require.NoError(t, err)
	assert.Equal(t, "42", key)
}
