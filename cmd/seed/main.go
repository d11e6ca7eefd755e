package main

import (
	"context"
	"log"
	"strings"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/repository"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/service"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/logger"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/postgres"

	"go.uber.org/zap"
)

// Seeds the knowledge base with sample company documents so the agent can
// answer questions out of the box.

type seedDocument struct {
	fileName    string
	description string
	category    string
	content     string
}

var seedDocuments = []seedDocument{
	{
		fileName:    "company_services.txt",
		description: "Overview of offered services",
		category:    "services",
		content: `Our Services

We offer AI-powered telephone calling agents for customer support.
Our services include automated outbound calling, inbound call answering,
and multilingual voice support in English, Hindi, Marathi and Telugu.

Integration Options

The calling agent integrates with existing PBX systems and CRM platforms.
Custom dialogue scripts and knowledge bases are supported.`,
	},
	{
		fileName:    "pricing_plans.txt",
		description: "Pricing and subscription plans",
		category:    "pricing",
		content: `Pricing Plans

The starter plan cost is 99 dollars per month and includes 500 call minutes.
The business plan cost is 299 dollars per month with 2000 call minutes.
Enterprise pricing is custom and includes a dedicated account manager.

Billing

All plans are billed monthly and can be cancelled at any time.
Unused minutes do not roll over to the next month.`,
	},
	{
		fileName:    "contact_details.txt",
		description: "Contact and support channels",
		category:    "contact",
		content: `Contact Us

You can reach our support team by phone at +1-800-555-0100 or by
email at support@example.com. Office hours are 9am to 6pm on weekdays.

Head Office

Our head office is located in Pune, India, with satellite offices
in Hyderabad and Mumbai.`,
	},
	{
		fileName:    "technology_stack.txt",
		description: "How the platform works",
		category:    "technology",
		content: `Technology

The platform uses speech recognition, a retrieval-based knowledge engine
and text to speech synthesis. Google and Indic TTS engines are routed
per language, with automatic fallback when an engine is unavailable.

Reliability

Calls are supervised with automatic reconnection and every dialogue
turn is persisted for audit.`,
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	docRepo := repository.NewDocumentRepository(db, appLogger)
	sectionRepo := repository.NewSectionRepository(db, appLogger)
	extractService := service.NewExtractService(cfg.Knowledge.SectionMaxChars, appLogger)
	knowledgeService := service.NewKnowledgeService(
		docRepo, sectionRepo, extractService, &cfg.Upload, &cfg.Knowledge, appLogger)

	for _, doc := range seedDocuments {
		created, err := knowledgeService.Upload(ctx,
			strings.NewReader(doc.content), doc.fileName, doc.description, doc.category)
		if err != nil {
			appLogger.Fatal("Failed to upload seed document",
				zap.String("file", doc.fileName), zap.Error(err))
		}
		appLogger.Info("Seed document uploaded",
			zap.String("id", created.ID),
			zap.String("file", doc.fileName),
		)
	}

	// Ingest synchronously so the knowledge base is ready when this exits.
	if err := knowledgeService.ReingestAll(ctx, true); err != nil {
		appLogger.Fatal("Failed to ingest seed documents", zap.Error(err))
	}

	appLogger.Info("Knowledge base seeded", zap.Int("documents", len(seedDocuments)))
}
