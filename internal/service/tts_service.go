package service

import (
	"context"
	"fmt"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"

	"go.uber.org/zap"
)

const EngineAuto = "auto"

type ttsEngine struct {
	name      string
	languages map[string]struct{}
}

func (e ttsEngine) supports(language string) bool {
	_, ok := e.languages[language]
	return ok
}

// TTSRouter maps (language, requested engine) to a concrete synthesis
// engine. Engines are held in priority order for "auto" resolution.
type TTSRouter struct {
	engines []ttsEngine
	logger  *zap.Logger
}

func NewTTSRouter(logger *zap.Logger) *TTSRouter {
	return &TTSRouter{
		engines: []ttsEngine{
			{name: "google", languages: set("en", "hi", "mr", "te")},
			{name: "indic", languages: set("hi", "mr", "te")},
		},
		logger: logger,
	}
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

// Route resolves the engine for a language. The language is validated
// before any engine is consulted; an explicit engine must support the
// language, and "auto" picks the first capable engine in priority order.
func (r *TTSRouter) Route(language, requested string) (string, error) {
	if !models.LanguageSupported(language) {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedLanguage, language)
	}

	if requested == "" || requested == EngineAuto {
		for _, engine := range r.engines {
			if engine.supports(language) {
				return engine.name, nil
			}
		}
		return "", fmt.Errorf("%w: %q", models.ErrNoEngineForLanguage, language)
	}

	for _, engine := range r.engines {
		if engine.name != requested {
			continue
		}
		if !engine.supports(language) {
			return "", fmt.Errorf("%w: engine %q does not support %q",
				models.ErrUnsupportedEngineLanguage, requested, language)
		}
		return engine.name, nil
	}
	return "", fmt.Errorf("%w: unknown tts engine %q", models.ErrValidation, requested)
}

// Fallback returns the next engine, in priority order, that supports the
// language and differs from exclude.
func (r *TTSRouter) Fallback(language, exclude string) (string, bool) {
	for _, engine := range r.engines {
		if engine.name != exclude && engine.supports(language) {
			return engine.name, true
		}
	}
	return "", false
}

// KnownEngine reports whether the name is "auto" or a configured engine.
func (r *TTSRouter) KnownEngine(name string) bool {
	if name == EngineAuto {
		return true
	}
	for _, engine := range r.engines {
		if engine.name == name {
			return true
		}
	}
	return false
}

func (r *TTSRouter) EngineNames() []string {
	names := make([]string, len(r.engines))
	for i, engine := range r.engines {
		names[i] = engine.name
	}
	return names
}

// Synthesizer is the TTS collaborator contract; it may fail per engine.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language, engine string) ([]byte, error)
}

// DemoSynthesizer produces placeholder audio for environments without a
// real synthesis backend, deterministic per input.
type DemoSynthesizer struct {
	logger *zap.Logger
}

func NewDemoSynthesizer(logger *zap.Logger) *DemoSynthesizer {
	return &DemoSynthesizer{logger: logger}
}

func (s *DemoSynthesizer) Synthesize(ctx context.Context, text, language, engine string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}
	s.logger.Debug("Demo synthesis",
		zap.String("language", language),
		zap.String("engine", engine),
		zap.Int("chars", len(text)),
	)
	return []byte(fmt.Sprintf("demo-audio[%s/%s]:%s", engine, language, text)), nil
}
