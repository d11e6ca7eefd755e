package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// Dialogue intents. IntentAskQuestion routes the turn through the
// retrieval engine; everything else gets a templated response.
const (
	IntentGreet       = "greet"
	IntentGoodbye     = "goodbye"
	IntentThanks      = "thanks"
	IntentAskQuestion = "ask_question"
)

type Interpretation struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

// Interpreter is the NLU collaborator contract; it may time out.
type Interpreter interface {
	Interpret(ctx context.Context, utterance, language string) (*Interpretation, error)
}

// RuleInterpreter classifies intents from lexical cues. It is the default
// when no LLM backend is configured and the fallback the system can always
// run offline.
type RuleInterpreter struct {
	logger *zap.Logger
}

func NewRuleInterpreter(logger *zap.Logger) *RuleInterpreter {
	return &RuleInterpreter{logger: logger}
}

func (i *RuleInterpreter) Interpret(ctx context.Context, utterance, language string) (*Interpretation, error) {
	lower := strings.ToLower(utterance)
	switch {
	case containsAny(lower, "bye", "goodbye", "see you", "hang up"):
		return &Interpretation{Intent: IntentGoodbye}, nil
	case containsAny(lower, "thank", "thanks"):
		return &Interpretation{Intent: IntentThanks}, nil
	case containsAny(lower, "hello", "hi ", "hey", "good morning", "good afternoon", "good evening", "namaste") || lower == "hi":
		return &Interpretation{Intent: IntentGreet}, nil
	default:
		// Anything else is treated as a question for the knowledge base.
		return &Interpretation{Intent: IntentAskQuestion}, nil
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

const nluSystemInstruction = `You are an intent classifier for a telephone agent.
Classify the caller utterance into exactly one intent:
- greet: greetings and small talk openings
- goodbye: the caller wants to end the call
- thanks: gratitude without a further request
- ask_question: the caller asks for information

Respond with ONLY a JSON object, no markdown, no commentary:
{"intent": "<one of the intents>", "entities": {"<name>": "<value>"}}`

// GigaChatInterpreter classifies intents through the GigaChat API.
type GigaChatInterpreter struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

func NewGigaChatInterpreter(cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatInterpreter, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = nluSystemInstruction
	model.Temperature = 0.1

	return &GigaChatInterpreter{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (i *GigaChatInterpreter) Interpret(ctx context.Context, utterance, language string) (*Interpretation, error) {
	prompt := fmt.Sprintf("Language: %s\nUtterance: %s", language, utterance)
	resp, err := i.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to interpret utterance: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from NLU model")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	// The model occasionally wraps JSON in markdown fences or prose.
	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("invalid NLU response format: %s", content)
	}

	var interp Interpretation
	if err := json.Unmarshal([]byte(content[jsonStart:jsonEnd+1]), &interp); err != nil {
		return nil, fmt.Errorf("failed to parse NLU response: %w", err)
	}

	switch interp.Intent {
	case IntentGreet, IntentGoodbye, IntentThanks, IntentAskQuestion:
	default:
		i.logger.Debug("Unknown intent from model, treating as question",
			zap.String("intent", interp.Intent),
		)
		interp.Intent = IntentAskQuestion
	}
	return &interp, nil
}

func (i *GigaChatInterpreter) Close() {
	i.client.Close()
}
