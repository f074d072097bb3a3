package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/billing-backend/pkg/config"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubPubSub struct{ err error }

func (s stubPubSub) Ping(context.Context) error { return s.err }

func (s stubPubSub) BillingPublisher() *gcppubsub.Publisher { return nil }

type stubOutboxRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *stubOutboxRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if len(r.events) > limit {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *stubOutboxRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubOutboxRepo) MarkFailed(id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

type stubResult struct{ err error }

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{err: p.err}
}

func newTestService(t *testing.T, repo *stubOutboxRepo, pub *stubPublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         stubPinger{},
		PubSub:     stubPubSub{},
		Repository: repo,
		Publisher:  pub,
	})
	require.NoError(t, err)
	return svc
}

func outboxEvent(id uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.OutboxEventTokensGranted,
		AggregateType: enums.OutboxAggregateTokenLedger,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"tokens":110}`),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	eventID := uuid.New()
	repo := &stubOutboxRepo{events: []models.OutboxEvent{outboxEvent(eventID)}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, []byte(`{"tokens":110}`), pub.messages[0].Data)
	assert.Equal(t, string(enums.OutboxEventTokensGranted), pub.messages[0].Attributes["event_type"])
	assert.Equal(t, []uuid.UUID{eventID}, repo.published)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	repo := &stubOutboxRepo{events: []models.OutboxEvent{outboxEvent(first), outboxEvent(second)}}
	pub := &stubPublisher{err: errors.New("topic unavailable")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{first, second}, repo.failed)
	assert.Empty(t, repo.published)
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &stubOutboxRepo{}
	svc := newTestService(t, repo, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessBatchFetchError(t *testing.T) {
	repo := &stubOutboxRepo{fetchErr: errors.New("connection reset")}
	svc := newTestService(t, repo, &stubPublisher{})

	_, err := svc.processBatch(context.Background())

	require.Error(t, err)
}

func TestRunStopsWhenDependencyUnavailable(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         stubPinger{err: errors.New("db down")},
		PubSub:     stubPubSub{},
		Repository: &stubOutboxRepo{},
		Publisher:  &stubPublisher{},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
}
