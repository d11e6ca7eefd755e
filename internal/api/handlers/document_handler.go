package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	knowledge *service.KnowledgeService
	logger    *zap.Logger
}

func NewDocumentHandler(knowledge *service.KnowledgeService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		knowledge: knowledge,
		logger:    logger,
	}
}

// UploadDocument godoc
// @Summary Upload a knowledge document
// @Description Upload a PDF, Word, Excel, CSV, or text file for the knowledge base
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param description formData string false "Document description"
// @Param category formData string false "Document category" default(general)
// @Security Bearer
// @Success 201 {object} dto.UploadDocumentResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/documents/upload [post]
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	doc, err := h.knowledge.Upload(c.Context(), src, file.Filename,
		c.FormValue("description"), c.FormValue("category", "general"))
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("Failed to upload document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadDocumentResponse{
		Status:     "success",
		Message:    "Document uploaded successfully",
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Category:   doc.Category,
	})
}

// ListDocuments godoc
// @Summary List uploaded documents
// @Description Get all knowledge documents, newest first
// @Tags documents
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.DocumentListResponse
// @Router /api/v1/documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.knowledge.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	resp := dto.DocumentListResponse{Documents: make([]dto.DocumentResponse, len(docs))}
	for i, doc := range docs {
		resp.Documents[i] = dto.DocumentResponse{
			ID:          doc.ID,
			FileName:    doc.FileName,
			Description: doc.Description,
			Category:    doc.Category,
			UploadTime:  doc.UploadTime.Format(time.RFC3339),
			Size:        doc.Size,
			Extension:   doc.Extension,
			Status:      string(doc.Status),
		}
	}
	return c.JSON(resp)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Description Remove a document, its content, and its sections
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Security Bearer
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.knowledge.Delete(c.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		h.logger.Error("Failed to delete document",
			zap.String("document_id", id),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Document deleted successfully",
	})
}

// GetDocumentSummary godoc
// @Summary Get a document summary
// @Description Section count, titles, and text length of a processed document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Security Bearer
// @Success 200 {object} dto.DocumentSummaryResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/{id}/summary [get]
func (h *DocumentHandler) GetDocumentSummary(c *fiber.Ctx) error {
	id := c.Params("id")
	summary, err := h.knowledge.Summary(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found or not processed",
			})
		}
		h.logger.Error("Failed to build document summary",
			zap.String("document_id", id),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build document summary",
		})
	}
	return c.JSON(summary)
}

// ProcessAllDocuments godoc
// @Summary Re-ingest all documents
// @Description Process every unprocessed or failed document in the background
// @Tags documents
// @Produce json
// @Security Bearer
// @Success 200 {object} map[string]string
// @Router /api/v1/documents/process [post]
func (h *DocumentHandler) ProcessAllDocuments(c *fiber.Ctx) error {
	// Detached from the request context: the response returns immediately.
	go func() {
		if err := h.knowledge.ReingestAll(context.Background(), false); err != nil {
			h.logger.Error("Background re-ingest failed", zap.Error(err))
		}
	}()

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Document processing started in the background",
	})
}
