package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/telephony"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallStore persists terminal sessions for audit.
type CallStore interface {
	SaveSession(ctx context.Context, session *models.CallSession, turns []models.DialogueTurn) error
}

// CallManager runs many concurrent call sessions, each internally
// sequential. It consumes the telephony event stream, drives each session's
// state machine, and coordinates dialogue turns against the NLU, retrieval,
// and TTS collaborators.
type CallManager struct {
	bridge    telephony.Bridge
	interp    Interpreter
	retrieval *RetrievalService
	router    *TTSRouter
	synth     Synthesizer
	store     CallStore
	cfg       *config.CallConfig
	logger    *zap.Logger

	mu        sync.Mutex
	byCallID  map[string]*Session
	byID      map[uuid.UUID]*Session
	active    atomic.Int64
	turnsWait sync.WaitGroup
}

func NewCallManager(
	bridge telephony.Bridge,
	interp Interpreter,
	retrieval *RetrievalService,
	router *TTSRouter,
	synth Synthesizer,
	store CallStore,
	cfg *config.CallConfig,
	logger *zap.Logger,
) *CallManager {
	return &CallManager{
		bridge:    bridge,
		interp:    interp,
		retrieval: retrieval,
		router:    router,
		synth:     synth,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		byCallID:  make(map[string]*Session),
		byID:      make(map[uuid.UUID]*Session),
	}
}

// ActiveCalls is the number of sessions not yet terminal.
func (m *CallManager) ActiveCalls() int64 {
	return m.active.Load()
}

// Run consumes the bridge event stream until the context ends or the
// stream closes.
func (m *CallManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.bridge.Events():
			if !ok {
				return
			}
			m.dispatch(ctx, ev)
		}
	}
}

func (m *CallManager) dispatch(ctx context.Context, ev telephony.Event) {
	switch ev.Kind {
	case telephony.EventIncoming:
		sess := m.register(ev.CallID, ev.PhoneNumber, "en", EngineAuto)
		sess.Apply(telephony.EventIncoming)
		m.armRingTimeout(sess)
	case telephony.EventAnswered, telephony.EventUtteranceReady,
		telephony.EventHangup, telephony.EventConnectionDropped:
		sess, ok := m.lookup(ev.CallID)
		if !ok {
			m.logger.Warn("Event for unknown call, discarded",
				zap.String("call_id", ev.CallID),
				zap.String("kind", string(ev.Kind)),
			)
			return
		}
		state, changed := sess.Apply(ev.Kind)
		if !changed {
			return
		}
		if ev.Kind == telephony.EventUtteranceReady {
			sess.enqueue(ev.Text)
		}
		if state.Terminal() {
			m.retire(sess)
		}
	}
}

// StartOutbound validates the request, creates a session, and dials.
// Validation failures happen before any session exists.
func (m *CallManager) StartOutbound(ctx context.Context, phoneNumber, language, engine string) (*Session, error) {
	if !models.LanguageSupported(language) {
		return nil, fmt.Errorf("%w: unsupported language %q", models.ErrValidation, language)
	}
	if engine == "" {
		engine = EngineAuto
	}
	if !m.router.KnownEngine(engine) {
		return nil, fmt.Errorf("%w: unsupported tts engine %q", models.ErrValidation, engine)
	}

	sess := m.register(telephony.NewCallID(), phoneNumber, language, engine)

	// The session must be RINGING before the dial is initiated: the bridge
	// may deliver answered or utterance events while Dial is still in
	// flight, and an IDLE session would discard them.
	sess.Apply(telephony.EventIncoming)
	m.armRingTimeout(sess)

	if err := m.bridge.Dial(ctx, sess.CallID, phoneNumber); err != nil {
		sess.ForceFail("dial failed")
		m.retire(sess)
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return sess, nil
}

// Get returns an in-memory session by its id.
func (m *CallManager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[id]
	return sess, ok
}

func (m *CallManager) register(callID, phoneNumber, language, engine string) *Session {
	sess := newSession(callID, phoneNumber, language, engine, m.cfg.UtteranceQueueSize, m.logger)

	m.mu.Lock()
	m.byCallID[callID] = sess
	m.byID[sess.ID] = sess
	m.mu.Unlock()
	m.active.Add(1)

	m.turnsWait.Add(1)
	go m.turnLoop(sess)

	m.logger.Info("Call session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("call_id", callID),
		zap.String("phone_number", phoneNumber),
		zap.String("language", language),
	)
	return sess
}

func (m *CallManager) lookup(callID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byCallID[callID]
	return sess, ok
}

func (m *CallManager) armRingTimeout(sess *Session) {
	time.AfterFunc(m.cfg.RingTimeout, func() {
		if sess.State() != models.CallStateRinging {
			return
		}
		if sess.ForceFail("no answer within ring timeout") {
			m.retire(sess)
		}
	})
}

// retire persists a terminal session for audit and drops the active count.
// The session stays addressable in memory for status queries.
func (m *CallManager) retire(sess *Session) {
	m.active.Add(-1)

	record, turns := sess.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.SaveSession(ctx, &record, turns); err != nil {
		m.logger.Error("Failed to persist call session",
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}
}

// turnLoop processes a session's utterances strictly one at a time in
// arrival order. It exits once the session is terminal; queued utterances
// behind a terminal transition are never dispatched.
func (m *CallManager) turnLoop(sess *Session) {
	defer m.turnsWait.Done()
	for {
		select {
		case <-sess.Done():
			return
		case utterance := <-sess.queue:
			if sess.State().Terminal() {
				return
			}
			m.processTurn(sess, utterance)
		}
	}
}

// processTurn drives one dialogue turn to completion: NLU, then retrieval
// or a templated response, then TTS routing and synthesis, then playback.
// Collaborator failures fail the turn, not the call; the session fails only
// after the configured number of consecutive turn failures. A session gone
// terminal while the turn was in flight discards the result.
func (m *CallManager) processTurn(sess *Session, utterance string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.TurnTimeout)
	defer cancel()

	turn := models.DialogueTurn{
		Utterance: utterance,
		Timestamp: time.Now(),
	}

	interp, err := m.interp.Interpret(ctx, utterance, sess.Language)
	if err != nil {
		m.failTurn(sess, turn, fmt.Sprintf("nlu: %v", err))
		return
	}
	turn.Intent = interp.Intent

	var response string
	if interp.Intent == IntentAskQuestion {
		answer, err := m.retrieval.Answer(ctx, utterance)
		if err != nil {
			m.failTurn(sess, turn, fmt.Sprintf("retrieval: %v", err))
			return
		}
		turn.Answer = answer
		response = answer.Answer
	} else {
		response = templatedResponse(interp.Intent)
	}
	turn.SpokenResponse = response

	engine, err := m.router.Route(sess.Language, sess.TTSEngine)
	if err != nil {
		m.failTurn(sess, turn, fmt.Sprintf("tts route: %v", err))
		return
	}

	audio, err := m.synth.Synthesize(ctx, response, sess.Language, engine)
	if err != nil {
		fallback, ok := m.router.Fallback(sess.Language, engine)
		if !ok {
			m.failTurn(sess, turn, fmt.Sprintf("tts synth: %v", err))
			return
		}
		m.logger.Warn("Synthesis failed, retrying with fallback engine",
			zap.String("session_id", sess.ID.String()),
			zap.String("engine", engine),
			zap.String("fallback", fallback),
			zap.Error(err),
		)
		audio, err = m.synth.Synthesize(ctx, response, sess.Language, fallback)
		if err != nil {
			m.failTurn(sess, turn, fmt.Sprintf("tts synth: %v", err))
			return
		}
	}

	// Hangup may have arrived while the collaborators were running; the
	// calls are not aborted mid-flight but their result is discarded.
	if sess.State().Terminal() {
		m.logger.Info("Turn result discarded, session terminal",
			zap.String("session_id", sess.ID.String()),
		)
		return
	}

	if err := m.bridge.SendPlayback(ctx, sess.CallID, audio); err != nil {
		m.failTurn(sess, turn, fmt.Sprintf("playback: %v", err))
		return
	}
	sess.appendTurn(turn)

	if interp.Intent == IntentGoodbye {
		if err := m.bridge.Hangup(ctx, sess.CallID); err != nil {
			m.logger.Warn("Hangup failed",
				zap.String("session_id", sess.ID.String()),
				zap.Error(err),
			)
		}
	}
}

func (m *CallManager) failTurn(sess *Session, turn models.DialogueTurn, reason string) {
	if sess.State().Terminal() {
		return
	}
	turn.Failed = true
	turn.FailReason = reason
	failures := sess.appendTurn(turn)

	m.logger.Warn("Dialogue turn failed",
		zap.String("session_id", sess.ID.String()),
		zap.String("reason", reason),
		zap.Int("consecutive_failures", failures),
	)

	if failures >= m.cfg.MaxTurnFailures {
		if sess.ForceFail("consecutive turn failure limit reached") {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.bridge.Hangup(ctx, sess.CallID); err != nil {
				m.logger.Warn("Hangup after failure limit failed",
					zap.String("session_id", sess.ID.String()),
					zap.Error(err),
				)
			}
			m.retire(sess)
		}
	}
}

func templatedResponse(intent string) string {
	switch intent {
	case IntentGreet:
		return "Hello! Thank you for calling. How can I help you today?"
	case IntentGoodbye:
		return "Thank you for calling. Goodbye!"
	case IntentThanks:
		return "You're welcome! Is there anything else I can help you with?"
	default:
		return "I'm sorry, could you rephrase that?"
	}
}
