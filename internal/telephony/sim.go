package telephony

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimBridge is an in-process bridge used by the call-simulation endpoint and
// tests. Dialing a call emits an answered event followed by the first
// scripted utterance; each playback the agent sends releases the next
// utterance, and a hangup event follows the last one. A watchdog advances
// the script if the agent never plays anything back (a failed turn), so a
// simulated call always terminates.
type SimBridge struct {
	logger   *zap.Logger
	events   chan Event
	watchdog time.Duration

	mu    sync.Mutex
	calls map[string]*simCall
}

type simCall struct {
	phoneNumber string
	script      []string
	next        int
	timer       *time.Timer
	done        bool
}

func NewSimBridge(logger *zap.Logger) *SimBridge {
	return &SimBridge{
		logger:   logger,
		events:   make(chan Event, 64),
		watchdog: 2 * time.Second,
		calls:    make(map[string]*simCall),
	}
}

// DefaultScript is the caller side of a simulated dialogue.
var DefaultScript = []string{
	"Hello",
	"What services do you offer?",
	"How much does it cost?",
	"Thank you, goodbye",
}

// Prepare registers the scripted utterances the simulated caller will speak
// on the given call. Must be called before Dial.
func (b *SimBridge) Prepare(callID string, script []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[callID] = &simCall{script: script}
}

func (b *SimBridge) Connect(ctx context.Context) error { return nil }

func (b *SimBridge) Disconnect() error { return nil }

func (b *SimBridge) Events() <-chan Event { return b.events }

func (b *SimBridge) Dial(ctx context.Context, callID, phoneNumber string) error {
	b.mu.Lock()
	call, ok := b.calls[callID]
	if !ok {
		call = &simCall{script: DefaultScript}
		b.calls[callID] = call
	}
	call.phoneNumber = phoneNumber
	b.mu.Unlock()

	b.emit(Event{Kind: EventAnswered, CallID: callID, PhoneNumber: phoneNumber})
	b.advance(callID)
	return nil
}

func (b *SimBridge) SendPlayback(ctx context.Context, callID string, audio []byte) error {
	b.logger.Debug("Simulated playback",
		zap.String("call_id", callID),
		zap.Int("audio_bytes", len(audio)),
	)
	b.advance(callID)
	return nil
}

func (b *SimBridge) Hangup(ctx context.Context, callID string) error {
	b.finish(callID)
	return nil
}

// advance releases the next scripted utterance, or hangs up when the script
// is exhausted.
func (b *SimBridge) advance(callID string) {
	b.mu.Lock()
	call, ok := b.calls[callID]
	if !ok || call.done {
		b.mu.Unlock()
		return
	}
	if call.timer != nil {
		call.timer.Stop()
		call.timer = nil
	}
	if call.next >= len(call.script) {
		call.done = true
		b.mu.Unlock()
		b.emit(Event{Kind: EventHangup, CallID: callID, PhoneNumber: call.phoneNumber})
		return
	}
	text := call.script[call.next]
	call.next++
	call.timer = time.AfterFunc(b.watchdog, func() { b.advance(callID) })
	phoneNumber := call.phoneNumber
	b.mu.Unlock()

	b.emit(Event{Kind: EventUtteranceReady, CallID: callID, PhoneNumber: phoneNumber, Text: text})
}

func (b *SimBridge) finish(callID string) {
	b.mu.Lock()
	call, ok := b.calls[callID]
	if !ok || call.done {
		b.mu.Unlock()
		return
	}
	call.done = true
	if call.timer != nil {
		call.timer.Stop()
	}
	phoneNumber := call.phoneNumber
	b.mu.Unlock()

	b.emit(Event{Kind: EventHangup, CallID: callID, PhoneNumber: phoneNumber})
}

func (b *SimBridge) emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("Simulated event dropped, queue full",
			zap.String("call_id", ev.CallID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// NewCallID builds a simulation call id in the sim-<timestamp> form.
func NewCallID() string {
	return fmt.Sprintf("sim-%d", time.Now().UnixNano())
}
