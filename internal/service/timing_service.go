package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/model"
)

// Domain Errors
var ErrInvalidEventType = errors.New("unknown timing event type")

// timingEventStore is the persistence surface the recorder needs.
// *repository.TimingEventRepository satisfies it.
type timingEventStore interface {
	InsertOrGet(ctx context.Context, e *model.TimingEvent) (*model.TimingEvent, bool, error)
	ListBySessionQuestion(ctx context.Context, sessionQuestionID uuid.UUID) ([]model.TimingEvent, error)
}

// TimingService records server-authoritative lifecycle timestamps for a turn
// and derives the scoring clock from them. Writes are idempotent: the first
// event of each type wins and repeats return the original.
type TimingService struct {
	events timingEventStore
	now    func() time.Time
	log    zerolog.Logger
}

// NewTimingService creates a new TimingService.
func NewTimingService(events timingEventStore, log zerolog.Logger) *TimingService {
	return &TimingService{
		events: events,
		now:    time.Now,
		log:    log.With().Str("component", "timing_service").Logger(),
	}
}

// RecordEvent captures one lifecycle timestamp. The server clock is the
// authoritative one; the optional client timestamp is only used to compute a
// latency estimate, clamped at zero so a skewed client clock can never
// produce a negative latency. The returned bool reports whether this call
// created the event (false means the duplicate path returned the original).
func (s *TimingService) RecordEvent(
	ctx context.Context,
	sessionQuestionID uuid.UUID,
	eventType model.TimingEventType,
	clientTimestampMs *int64,
	metadata map[string]string,
) (*model.TimingEvent, bool, error) {
	if !eventType.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidEventType, eventType)
	}

	serverTS := s.now().UTC()

	event := &model.TimingEvent{
		SessionQuestionID: sessionQuestionID,
		EventType:         eventType,
		ServerTimestamp:   serverTS,
		Metadata:          metadata,
	}
	if clientTimestampMs != nil {
		clientTS := time.UnixMilli(*clientTimestampMs).UTC()
		event.ClientTimestamp = &clientTS

		latency := serverTS.Sub(clientTS).Milliseconds()
		if latency < 0 {
			latency = 0
		}
		event.LatencyMs = &latency
	}

	stored, created, err := s.events.InsertOrGet(ctx, event)
	if err != nil {
		return nil, false, fmt.Errorf("record timing event: %w", err)
	}
	if !created {
		s.log.Debug().
			Str("session_question_id", sessionQuestionID.String()).
			Str("event_type", string(eventType)).
			Msg("duplicate timing event ignored")
	}
	return stored, created, nil
}

// Breakdown assembles the derived timing view of a turn from whatever events
// exist. Missing events leave the corresponding fields nil; the caller
// decides what a partial breakdown means (scoring treats it as no time
// bonus).
func (s *TimingService) Breakdown(ctx context.Context, sessionQuestionID uuid.UUID) (*model.TimingBreakdown, error) {
	events, err := s.events.ListBySessionQuestion(ctx, sessionQuestionID)
	if err != nil {
		return nil, fmt.Errorf("list timing events: %w", err)
	}

	b := &model.TimingBreakdown{}
	for i := range events {
		ts := events[i].ServerTimestamp
		switch events[i].EventType {
		case model.TimingTTSStart:
			b.TTSStart = &ts
		case model.TimingTTSEnd:
			b.TTSEnd = &ts
		case model.TimingSpeechStart:
			b.SpeechStart = &ts
		case model.TimingAnswerReceived:
			b.AnswerReceived = &ts
		}
	}

	// The scoring clock starts at the earlier of question-audio end and
	// player speech onset, so barge-in answers are timed from when the
	// player actually started, not from the end of a prompt they skipped.
	switch {
	case b.TTSEnd != nil && b.SpeechStart != nil:
		if b.SpeechStart.Before(*b.TTSEnd) {
			b.TimerStart = b.SpeechStart
		} else {
			b.TimerStart = b.TTSEnd
		}
	case b.TTSEnd != nil:
		b.TimerStart = b.TTSEnd
	case b.SpeechStart != nil:
		b.TimerStart = b.SpeechStart
	}

	if b.TimerStart != nil && b.AnswerReceived != nil {
		rt := b.AnswerReceived.Sub(*b.TimerStart)
		if rt < 0 {
			rt = 0
		}
		b.ResponseTime = &rt
	}

	return b, nil
}
