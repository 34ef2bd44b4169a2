package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/pkg/jobs"
)

type eventOutbox interface {
	Append(ctx context.Context, payload []byte) error
}

type jobSubmitter interface {
	Submit(job jobs.Job) error
}

// Notifier publishes domain events for out-of-band delivery.
type Notifier interface {
	Publish(ctx context.Context, event models.Event)
}

// NotificationService serialises events and hands them to the background
// queue, whose workers append them to the outbox. Publishing never fails the
// caller: the state change that produced the event is already committed.
type NotificationService struct {
	outbox  eventOutbox
	queue   jobSubmitter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs the service. Without a queue, events are appended inline.
func NewNotificationService(outbox eventOutbox, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{outbox: outbox, metrics: metrics, logger: logger, now: time.Now}
}

// UseQueue routes publishing through q.
func (s *NotificationService) UseQueue(q jobSubmitter) {
	s.queue = q
}

// Publish enqueues event for delivery.
func (s *NotificationService) Publish(ctx context.Context, event models.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal event failed", zap.String("type", string(event.Type)), zap.Error(err))
		s.metrics.EventPublished(string(event.Type), false)
		return
	}

	if s.queue != nil {
		job := jobs.Job{ID: event.ID, Kind: string(event.Type), Payload: payload, QueuedAt: event.OccurredAt}
		err := s.queue.Submit(job)
		if err == nil {
			return
		}
		s.logger.Warn("event queue rejected job, appending inline",
			zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
	}
	if err := s.append(ctx, string(event.Type), payload); err != nil {
		s.logger.Error("publish event failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("application_id", event.ApplicationID),
			zap.Error(err))
	}
}

// Handle is the queue handler delivering a job to the outbox.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	return s.append(ctx, job.Kind, job.Payload)
}

// Discarded records an event the queue gave up delivering.
func (s *NotificationService) Discarded(job jobs.Job, err error) {
	s.metrics.EventDiscarded(job.Kind)
	s.logger.Error("event dropped",
		zap.String("event_id", job.ID),
		zap.String("type", job.Kind),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
}

func (s *NotificationService) append(ctx context.Context, eventType string, payload []byte) error {
	if s.outbox == nil {
		return nil
	}
	err := s.outbox.Append(ctx, payload)
	s.metrics.EventPublished(eventType, err == nil)
	return err
}
