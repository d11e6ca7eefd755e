package service

import (
	"sync"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/telephony"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns one call's lifecycle state and transcript. All writes go
// through its methods; readers get snapshots. The turn queue guarantees
// per-session sequential turn processing.
type Session struct {
	ID          uuid.UUID
	CallID      string
	PhoneNumber string
	Language    string
	TTSEngine   string
	StartedAt   time.Time

	logger *zap.Logger

	mu       sync.Mutex
	state    models.CallState
	endedAt  time.Time
	turns    []models.DialogueTurn
	failures int

	queue    chan string
	done     chan struct{}
	doneOnce sync.Once
}

func newSession(callID, phoneNumber, language, engine string, queueSize int, logger *zap.Logger) *Session {
	return &Session{
		ID:          uuid.New(),
		CallID:      callID,
		PhoneNumber: phoneNumber,
		Language:    language,
		TTSEngine:   engine,
		StartedAt:   time.Now(),
		logger:      logger,
		state:       models.CallStateIdle,
		queue:       make(chan string, queueSize),
		done:        make(chan struct{}),
	}
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() models.CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session record and its transcript.
func (s *Session) Snapshot() (models.CallSession, []models.DialogueTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.CallSession{
		ID:          s.ID,
		PhoneNumber: s.PhoneNumber,
		Language:    s.Language,
		TTSEngine:   s.TTSEngine,
		State:       s.state,
		StartedAt:   s.StartedAt,
		EndedAt:     s.endedAt,
	}
	turns := make([]models.DialogueTurn, len(s.turns))
	copy(turns, s.turns)
	return record, turns
}

// Apply drives the state machine with a telephony event. It returns the
// resulting state and whether the event caused a transition. Events
// delivered to a terminal session are logged and discarded.
func (s *Session) Apply(kind telephony.EventKind) (models.CallState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		s.logger.Info("Event discarded, session already terminal",
			zap.String("session_id", s.ID.String()),
			zap.String("state", string(s.state)),
			zap.String("event", string(kind)),
		)
		return s.state, false
	}

	next, ok := transition(s.state, kind)
	if !ok {
		s.logger.Warn("Event not valid in current state, discarded",
			zap.String("session_id", s.ID.String()),
			zap.String("state", string(s.state)),
			zap.String("event", string(kind)),
		)
		return s.state, false
	}

	s.setStateLocked(next)
	return next, true
}

// ForceFail moves a non-terminal session to FAILED outside the normal
// event flow (ring timeout, turn-failure limit).
func (s *Session) ForceFail(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return false
	}
	s.logger.Warn("Session forced to FAILED",
		zap.String("session_id", s.ID.String()),
		zap.String("reason", reason),
	)
	s.setStateLocked(models.CallStateFailed)
	return true
}

func (s *Session) setStateLocked(next models.CallState) {
	prev := s.state
	s.state = next
	if next.Terminal() {
		s.endedAt = time.Now()
		s.doneOnce.Do(func() { close(s.done) })
	}
	s.logger.Info("Call state transition",
		zap.String("session_id", s.ID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
}

func transition(state models.CallState, kind telephony.EventKind) (models.CallState, bool) {
	switch state {
	case models.CallStateIdle:
		if kind == telephony.EventIncoming {
			return models.CallStateRinging, true
		}
	case models.CallStateRinging:
		switch kind {
		case telephony.EventAnswered:
			return models.CallStateConnected, true
		case telephony.EventHangup:
			return models.CallStateCompleted, true
		}
	case models.CallStateConnected:
		switch kind {
		case telephony.EventUtteranceReady:
			return models.CallStateInDialogue, true
		case telephony.EventHangup:
			return models.CallStateCompleted, true
		case telephony.EventConnectionDropped:
			return models.CallStateFailed, true
		}
	case models.CallStateInDialogue:
		switch kind {
		case telephony.EventUtteranceReady:
			return models.CallStateInDialogue, true
		case telephony.EventHangup:
			return models.CallStateCompleted, true
		case telephony.EventConnectionDropped:
			return models.CallStateFailed, true
		}
	}
	return state, false
}

// appendTurn records a completed turn and tracks the consecutive-failure
// count. Turns are immutable once appended.
func (s *Session) appendTurn(turn models.DialogueTurn) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn.SessionID = s.ID
	turn.Ordinal = len(s.turns)
	s.turns = append(s.turns, turn)

	if turn.Failed {
		s.failures++
	} else {
		s.failures = 0
	}
	return s.failures
}

// enqueue queues an utterance for sequential processing; a full queue drops
// the utterance rather than blocking the event loop.
func (s *Session) enqueue(utterance string) bool {
	select {
	case s.queue <- utterance:
		return true
	default:
		s.logger.Warn("Utterance queue full, dropped",
			zap.String("session_id", s.ID.String()),
		)
		return false
	}
}
