package telephony

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventIncoming          EventKind = "incoming"
	EventAnswered          EventKind = "answered"
	EventUtteranceReady    EventKind = "utterance-ready"
	EventHangup            EventKind = "hangup"
	EventConnectionDropped EventKind = "connection-dropped"
)

// Event is one signaling event translated from the PBX. For
// EventUtteranceReady, Text carries the transcribed utterance.
type Event struct {
	Kind        EventKind
	CallID      string
	PhoneNumber string
	Text        string
	Timestamp   time.Time
}

// Bridge is the narrow contract over the external telephony collaborator.
// Implementations translate PBX signaling into Events and expose the
// playback/hangup/dial actions the dialogue pipeline needs.
type Bridge interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Events() <-chan Event
	Dial(ctx context.Context, callID, phoneNumber string) error
	SendPlayback(ctx context.Context, callID string, audio []byte) error
	Hangup(ctx context.Context, callID string) error
}

// Supervisor keeps a bridge connected, retrying with bounded exponential
// backoff. Exhausting the retry budget is an operator-visible fault: it is
// logged at error level and reflected in Healthy until the next successful
// connect.
type Supervisor struct {
	bridge  Bridge
	cfg     *config.TelephonyConfig
	logger  *zap.Logger
	healthy atomic.Bool
}

func NewSupervisor(bridge Bridge, cfg *config.TelephonyConfig, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		bridge: bridge,
		cfg:    cfg,
		logger: logger,
	}
}

// Run blocks until the bridge is connected or the retry budget is exhausted.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.cfg.BackoffBase
	var lastErr error

	for attempt := 0; attempt < s.cfg.ReconnectLimit; attempt++ {
		if err := s.bridge.Connect(ctx); err != nil {
			lastErr = err
			s.logger.Warn("Telephony bridge connect failed",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.cfg.BackoffMax {
				backoff = s.cfg.BackoffMax
			}
			continue
		}
		s.healthy.Store(true)
		s.logger.Info("Telephony bridge connected")
		return nil
	}

	s.healthy.Store(false)
	s.logger.Error("Telephony bridge reconnect budget exhausted",
		zap.Int("attempts", s.cfg.ReconnectLimit),
		zap.Error(lastErr),
	)
	return lastErr
}

func (s *Supervisor) Healthy() bool {
	return s.healthy.Load()
}

// Disconnect tears down the underlying bridge connection.
func (s *Supervisor) Disconnect() error {
	s.healthy.Store(false)
	return s.bridge.Disconnect()
}
