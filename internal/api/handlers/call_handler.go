package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHistory reads persisted sessions that are no longer held in memory,
// such as calls from before a restart.
type SessionHistory interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.CallSession, []models.DialogueTurn, error)
}

type CallHandler struct {
	manager *service.CallManager
	history SessionHistory
	logger  *zap.Logger

	// How long a simulated call may run before the handler reports its
	// current, non-terminal state instead of blocking.
	simWait time.Duration
}

func NewCallHandler(manager *service.CallManager, history SessionHistory, logger *zap.Logger) *CallHandler {
	return &CallHandler{
		manager: manager,
		history: history,
		logger:  logger,
		simWait: 30 * time.Second,
	}
}

// SimulateCall godoc
// @Summary Simulate a phone call
// @Description Drive a scripted call through the full dialogue pipeline
// @Tags calls
// @Accept json
// @Produce json
// @Param request body dto.SimulateCallRequest true "Call parameters"
// @Success 200 {object} dto.CallResponse
// @Failure 400 {object} map[string]string
// @Router /api/call/simulate [post]
func (h *CallHandler) SimulateCall(c *fiber.Ctx) error {
	var req dto.SimulateCallRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PhoneNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Phone number is required",
		})
	}
	if req.Language == "" {
		req.Language = "en"
	}

	sess, err := h.manager.StartOutbound(c.Context(), req.PhoneNumber, req.Language, req.Engine)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("Failed to start simulated call", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start call",
		})
	}

	select {
	case <-sess.Done():
	case <-time.After(h.simWait):
		h.logger.Warn("Simulated call still running, reporting current state",
			zap.String("session_id", sess.ID.String()),
		)
	}

	record, turns := sess.Snapshot()
	return c.JSON(buildCallResponse(&record, turns, req.Engine))
}

// GetCall godoc
// @Summary Get a call session
// @Description Snapshot of a session's state and transcript
// @Tags calls
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.CallResponse
// @Failure 404 {object} map[string]string
// @Router /api/call/{id} [get]
func (h *CallHandler) GetCall(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	if sess, ok := h.manager.Get(id); ok {
		record, turns := sess.Snapshot()
		return c.JSON(buildCallResponse(&record, turns, record.TTSEngine))
	}

	// Not in memory; the session may have been persisted by an earlier run.
	record, turns, err := h.history.GetSession(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Call session not found",
			})
		}
		h.logger.Error("Failed to load persisted call session",
			zap.String("session_id", id.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load call session",
		})
	}
	return c.JSON(buildCallResponse(record, turns, record.TTSEngine))
}

func buildCallResponse(record *models.CallSession, turns []models.DialogueTurn, engine string) dto.CallResponse {
	duration := 0
	if !record.EndedAt.IsZero() {
		duration = int(record.EndedAt.Sub(record.StartedAt).Seconds())
	}

	resp := dto.CallResponse{
		CallID:      record.ID.String(),
		PhoneNumber: record.PhoneNumber,
		Language:    record.Language,
		Engine:      engine,
		State:       string(record.State),
		DurationSec: duration,
		Message: fmt.Sprintf("Call %s with %d dialogue turns in %s language.",
			callOutcome(record.State), len(turns), record.Language),
		Turns: make([]dto.CallTurnResponse, len(turns)),
	}
	for i, turn := range turns {
		resp.Turns[i] = dto.CallTurnResponse{
			Utterance:      turn.Utterance,
			Intent:         turn.Intent,
			SpokenResponse: turn.SpokenResponse,
			Failed:         turn.Failed,
			FailReason:     turn.FailReason,
			Timestamp:      turn.Timestamp.Format(time.RFC3339),
		}
	}
	return resp
}

func callOutcome(state models.CallState) string {
	switch state {
	case models.CallStateCompleted:
		return "completed successfully"
	case models.CallStateFailed:
		return "failed"
	default:
		return "still in progress"
	}
}
