package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/api"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/api/handlers"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/repository"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/telephony"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/auth"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/logger"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/postgres"

	"go.uber.org/zap"
)

// @title AI Calling Agent API
// @version 1.0
// @description Telephone dialogue agent answering questions from an uploaded knowledge base

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting AI Calling Agent service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	docRepo := repository.NewDocumentRepository(db, appLogger)
	sectionRepo := repository.NewSectionRepository(db, appLogger)
	callRepo := repository.NewCallRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	extractService := service.NewExtractService(cfg.Knowledge.SectionMaxChars, appLogger)
	knowledgeService := service.NewKnowledgeService(
		docRepo, sectionRepo, extractService, &cfg.Upload, &cfg.Knowledge, appLogger)
	retrievalService := service.NewRetrievalService(sectionRepo, &cfg.Knowledge, appLogger)
	knowledgeService.OnCorpusChange(retrievalService.Invalidate)

	ttsRouter := service.NewTTSRouter(appLogger)
	synthesizer := service.NewDemoSynthesizer(appLogger)

	var interpreter service.Interpreter
	if cfg.GigaChat.APIKey != "" {
		llmInterp, err := service.NewGigaChatInterpreter(&cfg.GigaChat, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize LLM interpreter", zap.Error(err))
		}
		defer llmInterp.Close()
		interpreter = llmInterp
	} else {
		appLogger.Info("No LLM API key configured, using rule-based intent interpreter")
		interpreter = service.NewRuleInterpreter(appLogger)
	}

	// Telephony bridge and call orchestration
	bridge := telephony.NewSimBridge(appLogger)
	supervisor := telephony.NewSupervisor(bridge, &cfg.Telephony, appLogger)
	if err := supervisor.Run(ctx); err != nil {
		appLogger.Fatal("Failed to connect telephony bridge", zap.Error(err))
	}

	callManager := service.NewCallManager(
		bridge, interpreter, retrievalService, ttsRouter, synthesizer, callRepo, &cfg.Call, appLogger)

	knowledgeService.Start(ctx)
	go callManager.Run(ctx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	docHandler := handlers.NewDocumentHandler(knowledgeService, appLogger)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService, retrievalService, appLogger)
	callHandler := handlers.NewCallHandler(callManager, callRepo, appLogger)
	systemHandler := handlers.NewSystemHandler(
		knowledgeService, ttsRouter, synthesizer, callManager, supervisor, appLogger)

	// Setup router
	app := api.SetupRouter(
		authHandler, docHandler, knowledgeHandler, callHandler, systemHandler,
		jwtManager, cfg.Upload.Dir, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	cancel()
	knowledgeService.Stop()
	if err := supervisor.Disconnect(); err != nil {
		appLogger.Error("Telephony bridge disconnect error", zap.Error(err))
	}
}
