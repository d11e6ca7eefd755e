package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSessionHistory struct {
	session *models.CallSession
	turns   []models.DialogueTurn
	err     error
}

func (s *stubSessionHistory) GetSession(ctx context.Context, id uuid.UUID) (*models.CallSession, []models.DialogueTurn, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.session, s.turns, nil
}

// emptyCallManager is a manager holding no sessions, so GetCall must go
// through the persisted history.
func emptyCallManager() *service.CallManager {
	cfg := &config.CallConfig{
		TurnTimeout:        time.Second,
		RingTimeout:        time.Second,
		MaxTurnFailures:    3,
		UtteranceQueueSize: 1,
	}
	return service.NewCallManager(nil, nil, nil, nil, nil, nil, cfg, zap.NewNop())
}

func newCallTestApp(history SessionHistory) *fiber.App {
	h := NewCallHandler(emptyCallManager(), history, zap.NewNop())
	app := fiber.New()
	app.Get("/api/call/:id", h.GetCall)
	return app
}

func TestCallHandler_GetCallReadsPersistedSession(t *testing.T) {
	id := uuid.New()
	started := time.Now().Add(-time.Minute)
	history := &stubSessionHistory{
		session: &models.CallSession{
			ID:          id,
			PhoneNumber: "+1000",
			Language:    "en",
			TTSEngine:   "google",
			State:       models.CallStateCompleted,
			StartedAt:   started,
			EndedAt:     started.Add(30 * time.Second),
		},
		turns: []models.DialogueTurn{
			{SessionID: id, Utterance: "Hello", Intent: "greet", SpokenResponse: "Hello!", Timestamp: started},
		},
	}
	app := newCallTestApp(history)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/call/"+id.String(), nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body dto.CallResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id.String(), body.CallID)
	assert.Equal(t, string(models.CallStateCompleted), body.State)
	assert.Equal(t, 30, body.DurationSec)
	require.Len(t, body.Turns, 1)
	assert.Equal(t, "greet", body.Turns[0].Intent)
}

func TestCallHandler_GetCallUnknownSessionIs404(t *testing.T) {
	app := newCallTestApp(&stubSessionHistory{err: models.ErrNotFound})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/call/"+uuid.NewString(), nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCallHandler_GetCallRejectsMalformedID(t *testing.T) {
	app := newCallTestApp(&stubSessionHistory{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/call/not-a-uuid", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
