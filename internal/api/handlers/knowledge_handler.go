package handlers

import (
	"errors"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	retrieval *service.RetrievalService
	logger    *zap.Logger
}

func NewKnowledgeHandler(knowledge *service.KnowledgeService, retrieval *service.RetrievalService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		retrieval: retrieval,
		logger:    logger,
	}
}

// AnswerQuestion godoc
// @Summary Answer a question from the knowledge base
// @Description Find relevant document sections and compose an answer with confidence and sources
// @Tags knowledge
// @Accept json
// @Produce json
// @Param request body dto.QuestionRequest true "Question"
// @Success 200 {object} dto.QuestionResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/knowledge/question [post]
func (h *KnowledgeHandler) AnswerQuestion(c *fiber.Ctx) error {
	var req dto.QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}
	if req.Language == "" {
		req.Language = "en"
	}

	// Cold knowledge base: run a just-in-time full re-ingest so the first
	// question after startup still sees uploaded documents.
	processed, err := h.knowledge.HasProcessed(c.Context())
	if err != nil {
		h.logger.Error("Failed to check knowledge state", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Knowledge base unavailable",
		})
	}
	if !processed {
		if err := h.knowledge.ReingestAll(c.Context(), false); err != nil {
			h.logger.Warn("Just-in-time re-ingest failed", zap.Error(err))
		}
	}

	answer, err := h.retrieval.Answer(c.Context(), req.Question)
	if err != nil {
		if errors.Is(err, models.ErrServiceUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Knowledge base unavailable",
			})
		}
		h.logger.Error("Failed to answer question", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer question",
		})
	}

	return c.JSON(dto.QuestionResponse{
		Question:     req.Question,
		Language:     req.Language,
		Answer:       answer.Answer,
		Confidence:   answer.Confidence,
		Sources:      answer.Sources,
		QuestionType: string(answer.QuestionType),
	})
}
