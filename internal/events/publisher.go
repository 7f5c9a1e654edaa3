package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing proctoring events
type EventPublisher interface {
	PublishProctoringEvent(ctx context.Context, event *ProctoringEvent) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.NewWithPartitioningMarshaler(partitionByInterview),
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishProctoringEvent publishes a proctoring event to Kafka
func (p *KafkaEventPublisher) PublishProctoringEvent(ctx context.Context, event *ProctoringEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal proctoring event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.SetContext(ctx)

	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	if id, ok := interviewIDOf(event); ok {
		msg.Metadata.Set("interview_id", strconv.FormatUint(uint64(id), 10))
	}

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish proctoring event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish proctoring event: %w", err)
	}

	p.logger.Debug("Published proctoring event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// partitionByInterview keeps the events of one interview on one partition.
func partitionByInterview(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get("interview_id"), nil
}

func interviewIDOf(event *ProctoringEvent) (uint, bool) {
	switch data := event.Data.(type) {
	case ProctoringStartedEvent:
		return data.InterviewID, true
	case ProctoringWarningEvent:
		return data.InterviewID, true
	case ProctoringStoppedEvent:
		return data.InterviewID, true
	default:
		return 0, false
	}
}

// MockEventPublisher keeps events in memory; used for tests and when Kafka is disabled
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []ProctoringEvent
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]ProctoringEvent, 0),
		Logger: logger,
	}
}

// PublishProctoringEvent stores the event in memory
func (m *MockEventPublisher) PublishProctoringEvent(ctx context.Context, event *ProctoringEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	m.Logger.Debug("Mock: Published proctoring event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events
func (m *MockEventPublisher) GetPublishedEvents() []ProctoringEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProctoringEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// ClearEvents clears all published events
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]ProctoringEvent, 0)
}
