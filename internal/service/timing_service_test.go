package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// fakeTimingStore keeps events in memory with the same uniqueness rule as
// the timing_events table.
type fakeTimingStore struct {
	events map[uuid.UUID]map[model.TimingEventType]*model.TimingEvent
}

func newFakeTimingStore() *fakeTimingStore {
	return &fakeTimingStore{events: map[uuid.UUID]map[model.TimingEventType]*model.TimingEvent{}}
}

func (f *fakeTimingStore) InsertOrGet(_ context.Context, e *model.TimingEvent) (*model.TimingEvent, bool, error) {
	byType, ok := f.events[e.SessionQuestionID]
	if !ok {
		byType = map[model.TimingEventType]*model.TimingEvent{}
		f.events[e.SessionQuestionID] = byType
	}
	if existing, ok := byType[e.EventType]; ok {
		return existing, false, nil
	}
	stored := *e
	stored.ID = uuid.New()
	byType[e.EventType] = &stored
	return &stored, true, nil
}

func (f *fakeTimingStore) ListBySessionQuestion(_ context.Context, sessionQuestionID uuid.UUID) ([]model.TimingEvent, error) {
	var out []model.TimingEvent
	for _, e := range f.events[sessionQuestionID] {
		out = append(out, *e)
	}
	return out, nil
}

func newTestTimingService(store *fakeTimingStore, clock func() time.Time) *TimingService {
	s := NewTimingService(store, zerolog.Nop())
	if clock != nil {
		s.now = clock
	}
	return s
}

func TestRecordEventIdempotent(t *testing.T) {
	store := newFakeTimingStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	svc := newTestTimingService(store, func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	})

	turnID := uuid.New()

	first, created, err := svc.RecordEvent(context.Background(), turnID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	assert.True(t, created)

	// A retransmit arrives one second later; the original must survive.
	second, created, err := svc.RecordEvent(context.Background(), turnID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ServerTimestamp, second.ServerTimestamp)
}

func TestRecordEventRejectsUnknownType(t *testing.T) {
	svc := newTestTimingService(newFakeTimingStore(), nil)

	_, _, err := svc.RecordEvent(context.Background(), uuid.New(), "tts_resume", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)
}

func TestRecordEventLatencyClampedAtZero(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTimingService(newFakeTimingStore(), func() time.Time { return base })

	// Client clock one second ahead of the server.
	ahead := base.Add(time.Second).UnixMilli()
	e, _, err := svc.RecordEvent(context.Background(), uuid.New(), model.TimingSpeechStart, &ahead, nil)
	require.NoError(t, err)
	require.NotNil(t, e.LatencyMs)
	assert.Equal(t, int64(0), *e.LatencyMs)

	// Client clock two seconds behind.
	behind := base.Add(-2 * time.Second).UnixMilli()
	e, _, err = svc.RecordEvent(context.Background(), uuid.New(), model.TimingSpeechStart, &behind, nil)
	require.NoError(t, err)
	require.NotNil(t, e.LatencyMs)
	assert.Equal(t, int64(2000), *e.LatencyMs)
}

func TestBreakdownTimerStartIsEarlierOfTTSEndAndSpeechStart(t *testing.T) {
	store := newFakeTimingStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc := newTestTimingService(store, func() time.Time { return now })

	turnID := uuid.New()

	// Barge-in: the player starts speaking before the question audio ends.
	now = base
	_, _, err := svc.RecordEvent(context.Background(), turnID, model.TimingTTSStart, nil, nil)
	require.NoError(t, err)
	now = base.Add(3 * time.Second)
	_, _, err = svc.RecordEvent(context.Background(), turnID, model.TimingSpeechStart, nil, nil)
	require.NoError(t, err)
	now = base.Add(5 * time.Second)
	_, _, err = svc.RecordEvent(context.Background(), turnID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)
	now = base.Add(8 * time.Second)
	_, _, err = svc.RecordEvent(context.Background(), turnID, model.TimingAnswerReceived, nil, nil)
	require.NoError(t, err)

	b, err := svc.Breakdown(context.Background(), turnID)
	require.NoError(t, err)
	require.NotNil(t, b.TimerStart)
	assert.Equal(t, base.Add(3*time.Second), *b.TimerStart)
	require.NotNil(t, b.ResponseTime)
	assert.Equal(t, 5*time.Second, *b.ResponseTime)
}

func TestBreakdownPartialEvents(t *testing.T) {
	store := newFakeTimingStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc := newTestTimingService(store, func() time.Time { return now })

	turnID := uuid.New()

	// Only tts_end recorded: timer start known, response time not.
	_, _, err := svc.RecordEvent(context.Background(), turnID, model.TimingTTSEnd, nil, nil)
	require.NoError(t, err)

	b, err := svc.Breakdown(context.Background(), turnID)
	require.NoError(t, err)
	require.NotNil(t, b.TimerStart)
	assert.Equal(t, base, *b.TimerStart)
	assert.Nil(t, b.ResponseTime)

	// A turn with no events at all yields an empty breakdown, not an error.
	b, err = svc.Breakdown(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, b.TimerStart)
	assert.Nil(t, b.ResponseTime)
}
