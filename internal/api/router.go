package api

import (
	"os"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/docs"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/api/handlers"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/auth"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	docHandler *handlers.DocumentHandler,
	knowledgeHandler *handlers.KnowledgeHandler,
	callHandler *handlers.CallHandler,
	systemHandler *handlers.SystemHandler,
	jwtManager *auth.JWTManager,
	uploadDir string,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo // ensure docs package is imported and init() is called
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded knowledge documents
	if _, err := os.Stat(uploadDir); err == nil {
		app.Static("/uploads", uploadDir)
	} else {
		appLogger.Warn("Upload directory not found, uploads will not be served",
			zap.String("dir", uploadDir))
	}

	// Public API
	app.Get("/api/health", systemHandler.Health)
	app.Post("/api/tts/demo", systemHandler.TTSDemo)
	app.Post("/api/knowledge/question", knowledgeHandler.AnswerQuestion)

	calls := app.Group("/api/call")
	calls.Post("/simulate", callHandler.SimulateCall)
	calls.Get("/:id", callHandler.GetCall)

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	documents := protected.Group("/documents")
	documents.Post("/upload", docHandler.UploadDocument)
	documents.Get("", docHandler.ListDocuments)
	documents.Delete("/:id", docHandler.DeleteDocument)
	documents.Get("/:id/summary", docHandler.GetDocumentSummary)
	documents.Post("/process", docHandler.ProcessAllDocuments)

	return app
}
