package telephony

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nextEvent(t *testing.T, bridge *SimBridge) Event {
	t.Helper()
	select {
	case ev := <-bridge.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
		return Event{}
	}
}

func TestSimBridge_ScriptPingPong(t *testing.T) {
	bridge := NewSimBridge(zap.NewNop())
	callID := NewCallID()
	script := []string{"Hello", "What services do you offer?", "Goodbye"}
	bridge.Prepare(callID, script)

	require.NoError(t, bridge.Dial(context.Background(), callID, "+1000"))

	ev := nextEvent(t, bridge)
	assert.Equal(t, EventAnswered, ev.Kind)
	assert.Equal(t, "+1000", ev.PhoneNumber)

	// Each playback releases the next scripted utterance.
	for _, want := range script {
		ev = nextEvent(t, bridge)
		require.Equal(t, EventUtteranceReady, ev.Kind)
		assert.Equal(t, want, ev.Text)
		require.NoError(t, bridge.SendPlayback(context.Background(), callID, []byte("audio")))
	}

	ev = nextEvent(t, bridge)
	assert.Equal(t, EventHangup, ev.Kind)
}

func TestSimBridge_DialWithoutPrepareUsesDefaultScript(t *testing.T) {
	bridge := NewSimBridge(zap.NewNop())
	callID := NewCallID()

	require.NoError(t, bridge.Dial(context.Background(), callID, "+1000"))

	ev := nextEvent(t, bridge)
	assert.Equal(t, EventAnswered, ev.Kind)
	ev = nextEvent(t, bridge)
	require.Equal(t, EventUtteranceReady, ev.Kind)
	assert.Equal(t, DefaultScript[0], ev.Text)
}

func TestSimBridge_HangupStopsScript(t *testing.T) {
	bridge := NewSimBridge(zap.NewNop())
	callID := NewCallID()
	bridge.Prepare(callID, []string{"Hello", "Question"})

	require.NoError(t, bridge.Dial(context.Background(), callID, "+1000"))
	nextEvent(t, bridge) // answered
	nextEvent(t, bridge) // first utterance

	require.NoError(t, bridge.Hangup(context.Background(), callID))
	ev := nextEvent(t, bridge)
	assert.Equal(t, EventHangup, ev.Kind)

	// Playback after hangup releases nothing further.
	require.NoError(t, bridge.SendPlayback(context.Background(), callID, []byte("audio")))
	select {
	case ev := <-bridge.Events():
		t.Fatalf("unexpected event after hangup: %s", ev.Kind)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewCallID(t *testing.T) {
	id := NewCallID()
	assert.True(t, strings.HasPrefix(id, "sim-"))
}
