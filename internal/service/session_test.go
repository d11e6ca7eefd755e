package service

import (
	"testing"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/telephony"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	return newSession("sim-1", "+1000", "en", EngineAuto, 16, zap.NewNop())
}

func TestSession_HappyPathTransitions(t *testing.T) {
	sess := testSession(t)
	assert.Equal(t, models.CallStateIdle, sess.State())

	state, changed := sess.Apply(telephony.EventIncoming)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateRinging, state)

	state, changed = sess.Apply(telephony.EventAnswered)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateConnected, state)

	state, changed = sess.Apply(telephony.EventUtteranceReady)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateInDialogue, state)

	// Further utterances keep the session in dialogue.
	state, changed = sess.Apply(telephony.EventUtteranceReady)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateInDialogue, state)

	state, changed = sess.Apply(telephony.EventHangup)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateCompleted, state)

	select {
	case <-sess.Done():
	default:
		t.Fatal("done channel must be closed on a terminal transition")
	}
}

func TestSession_InvalidEventDiscarded(t *testing.T) {
	sess := testSession(t)

	// Answered before ringing is not a valid transition.
	state, changed := sess.Apply(telephony.EventAnswered)
	assert.False(t, changed)
	assert.Equal(t, models.CallStateIdle, state)
}

func TestSession_TerminalStateDiscardsEvents(t *testing.T) {
	sess := testSession(t)
	sess.Apply(telephony.EventIncoming)
	sess.Apply(telephony.EventHangup)
	assert.Equal(t, models.CallStateCompleted, sess.State())

	for _, kind := range []telephony.EventKind{
		telephony.EventAnswered,
		telephony.EventUtteranceReady,
		telephony.EventConnectionDropped,
		telephony.EventHangup,
	} {
		state, changed := sess.Apply(kind)
		assert.False(t, changed, "event %s", kind)
		assert.Equal(t, models.CallStateCompleted, state)
	}
}

func TestSession_ConnectionDroppedFails(t *testing.T) {
	sess := testSession(t)
	sess.Apply(telephony.EventIncoming)
	sess.Apply(telephony.EventAnswered)
	sess.Apply(telephony.EventUtteranceReady)

	state, changed := sess.Apply(telephony.EventConnectionDropped)
	assert.True(t, changed)
	assert.Equal(t, models.CallStateFailed, state)
}

func TestSession_ForceFail(t *testing.T) {
	sess := testSession(t)
	sess.Apply(telephony.EventIncoming)

	assert.True(t, sess.ForceFail("no answer within ring timeout"))
	assert.Equal(t, models.CallStateFailed, sess.State())

	// Already terminal, a second force is a no-op.
	assert.False(t, sess.ForceFail("again"))
}

func TestSession_ConsecutiveFailureCount(t *testing.T) {
	sess := testSession(t)

	assert.Equal(t, 1, sess.appendTurn(models.DialogueTurn{Failed: true}))
	assert.Equal(t, 2, sess.appendTurn(models.DialogueTurn{Failed: true}))
	// A successful turn resets the streak.
	assert.Equal(t, 0, sess.appendTurn(models.DialogueTurn{}))
	assert.Equal(t, 1, sess.appendTurn(models.DialogueTurn{Failed: true}))
}

func TestSession_SnapshotCopiesTranscript(t *testing.T) {
	sess := testSession(t)
	sess.appendTurn(models.DialogueTurn{Utterance: "Hello"})
	sess.appendTurn(models.DialogueTurn{Utterance: "What services do you offer?"})

	record, turns := sess.Snapshot()
	assert.Equal(t, sess.ID, record.ID)
	assert.Len(t, turns, 2)
	assert.Equal(t, 0, turns[0].Ordinal)
	assert.Equal(t, 1, turns[1].Ordinal)
	assert.Equal(t, sess.ID, turns[0].SessionID)

	// Mutating the snapshot must not reach the session.
	turns[0].Utterance = "changed"
	_, again := sess.Snapshot()
	assert.Equal(t, "Hello", again[0].Utterance)
}
