package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/pkg/jobs"
)

type memoryOutbox struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (o *memoryOutbox) Append(ctx context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.payloads = append(o.payloads, payload)
	return nil
}

func (o *memoryOutbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.payloads)
}

type rejectingQueue struct{}

func (rejectingQueue) Submit(job jobs.Job) error {
	return errors.New("queue full")
}

func TestNotificationServicePublishInline(t *testing.T) {
	outbox := &memoryOutbox{}
	svc := NewNotificationService(outbox, nil, zap.NewNop())

	svc.Publish(context.Background(), models.Event{Type: models.EventMentorApproved, ApplicationID: "app-1", Email: "ada@example.com"})
	require.Equal(t, 1, outbox.count())

	var event models.Event
	require.NoError(t, json.Unmarshal(outbox.payloads[0], &event))
	assert.Equal(t, models.EventMentorApproved, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNotificationServicePublishThroughQueue(t *testing.T) {
	outbox := &memoryOutbox{}
	svc := NewNotificationService(outbox, nil, zap.NewNop())
	queue := jobs.NewDispatcher("events", svc.Handle, jobs.Config{Workers: 2, OnDiscard: svc.Discarded})
	queue.Run(context.Background())
	svc.UseQueue(queue)

	for i := 0; i < 5; i++ {
		svc.Publish(context.Background(), models.Event{Type: models.EventResultAvailable, ApplicationID: "app-1"})
	}
	queue.Shutdown()
	assert.Equal(t, 5, outbox.count())
}

func TestNotificationServiceFallsBackWhenQueueRejects(t *testing.T) {
	outbox := &memoryOutbox{}
	svc := NewNotificationService(outbox, nil, zap.NewNop())
	svc.UseQueue(rejectingQueue{})

	svc.Publish(context.Background(), models.Event{Type: models.EventTokenIssued, OccurredAt: time.Now()})
	assert.Equal(t, 1, outbox.count())
}

func TestNotificationServiceHandleReportsOutboxErrors(t *testing.T) {
	svc := NewNotificationService(&memoryOutbox{err: errors.New("redis down")}, nil, zap.NewNop())
	err := svc.Handle(context.Background(), jobs.Job{Kind: "ResultAvailable", Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestNotificationServiceCountsDiscardedEvents(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&memoryOutbox{}, metrics, zap.NewNop())

	svc.Discarded(jobs.Job{ID: "evt-1", Kind: "TokenIssued", Attempt: 3}, errors.New("redis down"))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `assessment_events_discarded_total{type="TokenIssued"} 1`)
}
