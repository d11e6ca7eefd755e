package models

import (
	"time"

	"github.com/google/uuid"
)

type CallState string

const (
	CallStateIdle       CallState = "IDLE"
	CallStateRinging    CallState = "RINGING"
	CallStateConnected  CallState = "CONNECTED"
	CallStateInDialogue CallState = "IN_DIALOGUE"
	CallStateCompleted  CallState = "COMPLETED"
	CallStateFailed     CallState = "FAILED"
)

// Terminal reports whether no further call events are accepted in this state.
func (s CallState) Terminal() bool {
	return s == CallStateCompleted || s == CallStateFailed
}

// SupportedLanguages is the fixed set of spoken languages the agent handles.
var SupportedLanguages = []string{"en", "hi", "mr", "te"}

func LanguageSupported(language string) bool {
	for _, l := range SupportedLanguages {
		if l == language {
			return true
		}
	}
	return false
}

type CallSession struct {
	ID          uuid.UUID `db:"id"`
	PhoneNumber string    `db:"phone_number"`
	Language    string    `db:"language"`
	TTSEngine   string    `db:"tts_engine"`
	State       CallState `db:"state"`
	StartedAt   time.Time `db:"started_at"`
	EndedAt     time.Time `db:"ended_at"`
}

// DialogueTurn is one utterance-in, response-out cycle. Immutable once
// appended to its session.
type DialogueTurn struct {
	SessionID      uuid.UUID `db:"session_id"`
	Ordinal        int       `db:"ordinal"`
	Utterance      string    `db:"utterance"`
	Intent         string    `db:"intent"`
	Answer         *KnowledgeAnswer
	SpokenResponse string    `db:"spoken_response"`
	Failed         bool      `db:"failed"`
	FailReason     string    `db:"fail_reason"`
	Timestamp      time.Time `db:"timestamp"`
}
