package model

import (
	"time"

	"github.com/google/uuid"
)

// TimingEventType enumerates the four lifecycle timestamps of a turn.
type TimingEventType string

const (
	TimingTTSStart       TimingEventType = "tts_start"
	TimingTTSEnd         TimingEventType = "tts_end"
	TimingSpeechStart    TimingEventType = "speech_start"
	TimingAnswerReceived TimingEventType = "answer_received"
)

// Valid reports whether t is one of the known event types.
func (t TimingEventType) Valid() bool {
	switch t {
	case TimingTTSStart, TimingTTSEnd, TimingSpeechStart, TimingAnswerReceived:
		return true
	}
	return false
}

// TimingEvent is an immutable, server-timestamped lifecycle record.
// At most one event exists per (session_question_id, event_type); a repeated
// write returns the original identity without inserting a second row.
type TimingEvent struct {
	ID                uuid.UUID         `json:"id"`
	SessionQuestionID uuid.UUID         `json:"session_question_id"`
	EventType         TimingEventType   `json:"event_type"`
	ServerTimestamp   time.Time         `json:"server_timestamp"`
	ClientTimestamp   *time.Time        `json:"client_timestamp,omitempty"`
	LatencyMs         *int64            `json:"latency_ms,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// TimingBreakdown is the derived, non-persisted view over a turn's recorded
// events. Any field may be nil when the corresponding event is absent.
type TimingBreakdown struct {
	TTSStart       *time.Time `json:"tts_start,omitempty"`
	TTSEnd         *time.Time `json:"tts_end,omitempty"`
	SpeechStart    *time.Time `json:"speech_start,omitempty"`
	AnswerReceived *time.Time `json:"answer_received,omitempty"`
	// TimerStart is min(tts_end, speech_start) when both are present,
	// else whichever exists. The anti-cheat scoring clock starts here.
	TimerStart *time.Time `json:"timer_start,omitempty"`
	// ResponseTime is answer_received minus timer_start when both ends are known.
	ResponseTime *time.Duration `json:"response_time,omitempty"`
}

// ResponseTimeMs returns the response time in milliseconds, or nil.
func (b *TimingBreakdown) ResponseTimeMs() *int64 {
	if b.ResponseTime == nil {
		return nil
	}
	ms := b.ResponseTime.Milliseconds()
	return &ms
}
