package handlers

import (
	"errors"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/telephony"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SystemHandler struct {
	knowledgeService *service.KnowledgeService
	router           *service.TTSRouter
	synth            service.Synthesizer
	manager          *service.CallManager
	supervisor       *telephony.Supervisor
	logger           *zap.Logger
}

func NewSystemHandler(
	knowledgeService *service.KnowledgeService,
	router *service.TTSRouter,
	synth service.Synthesizer,
	manager *service.CallManager,
	supervisor *telephony.Supervisor,
	logger *zap.Logger,
) *SystemHandler {
	return &SystemHandler{
		knowledgeService: knowledgeService,
		router:           router,
		synth:            synth,
		manager:          manager,
		supervisor:       supervisor,
		logger:           logger,
	}
}

// Health godoc
// @Summary Service health
// @Description Readiness of the telephony bridge and knowledge base
// @Tags system
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /api/health [get]
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	knowledgeReady, err := h.knowledgeService.HasProcessed(c.Context())
	if err != nil {
		h.logger.Warn("Knowledge readiness check failed", zap.Error(err))
	}

	resp := dto.HealthResponse{
		Status:             "healthy",
		TelephonyConnected: h.supervisor.Healthy(),
		KnowledgeReady:     knowledgeReady,
		ActiveCalls:        h.manager.ActiveCalls(),
		SupportedLanguages: models.SupportedLanguages,
		TTSEngines:         h.router.EngineNames(),
	}
	if !resp.TelephonyConnected {
		resp.Status = "degraded"
	}
	return c.JSON(resp)
}

// TTSDemo godoc
// @Summary Synthesize demo speech
// @Description Route a text snippet to a TTS engine and report the result
// @Tags system
// @Accept json
// @Produce json
// @Param request body dto.TTSDemoRequest true "Text to speak"
// @Success 200 {object} dto.TTSDemoResponse
// @Failure 400 {object} map[string]string
// @Router /api/tts/demo [post]
func (h *SystemHandler) TTSDemo(c *fiber.Ctx) error {
	var req dto.TTSDemoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		req.Text = "Hello, this is a demo of the calling agent."
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.Engine == "" {
		req.Engine = service.EngineAuto
	}

	engine, err := h.router.Route(req.Language, req.Engine)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedLanguage) ||
			errors.Is(err, models.ErrNoEngineForLanguage) ||
			errors.Is(err, models.ErrUnsupportedEngineLanguage) ||
			errors.Is(err, models.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("TTS routing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to route speech synthesis",
		})
	}

	audio, err := h.synth.Synthesize(c.Context(), req.Text, req.Language, engine)
	if err != nil {
		h.logger.Error("Speech synthesis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to synthesize speech",
		})
	}

	return c.JSON(dto.TTSDemoResponse{
		Text:       req.Text,
		Language:   req.Language,
		Engine:     engine,
		AudioBytes: len(audio),
	})
}
