package service

import (
	"context"
	"testing"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTTSRouter_RouteAuto(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	// "auto" resolves in priority order, so it is deterministic per language.
	for _, language := range []string{"en", "hi", "mr", "te"} {
		engine, err := router.Route(language, EngineAuto)
		assert.NoError(t, err)
		assert.Equal(t, "google", engine, "language %s", language)
	}

	engine, err := router.Route("hi", "")
	assert.NoError(t, err)
	assert.Equal(t, "google", engine)
}

func TestTTSRouter_RouteExplicit(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	engine, err := router.Route("hi", "indic")
	assert.NoError(t, err)
	assert.Equal(t, "indic", engine)

	engine, err = router.Route("en", "google")
	assert.NoError(t, err)
	assert.Equal(t, "google", engine)
}

func TestTTSRouter_UnsupportedLanguage(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	_, err := router.Route("fr", EngineAuto)
	assert.ErrorIs(t, err, models.ErrUnsupportedLanguage)

	// Language is validated before the engine, even an unknown one.
	_, err = router.Route("fr", "azure")
	assert.ErrorIs(t, err, models.ErrUnsupportedLanguage)
}

func TestTTSRouter_EngineDoesNotSupportLanguage(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	_, err := router.Route("en", "indic")
	assert.ErrorIs(t, err, models.ErrUnsupportedEngineLanguage)
}

func TestTTSRouter_UnknownEngine(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	_, err := router.Route("en", "azure")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTTSRouter_Fallback(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	fallback, ok := router.Fallback("hi", "google")
	assert.True(t, ok)
	assert.Equal(t, "indic", fallback)

	// English has a single capable engine, nothing to fall back to.
	_, ok = router.Fallback("en", "google")
	assert.False(t, ok)
}

func TestTTSRouter_KnownEngine(t *testing.T) {
	router := NewTTSRouter(zap.NewNop())

	assert.True(t, router.KnownEngine(EngineAuto))
	assert.True(t, router.KnownEngine("google"))
	assert.True(t, router.KnownEngine("indic"))
	assert.False(t, router.KnownEngine("azure"))
}

func TestDemoSynthesizer(t *testing.T) {
	synth := NewDemoSynthesizer(zap.NewNop())

	audio, err := synth.Synthesize(context.Background(), "hello", "en", "google")
	assert.NoError(t, err)
	assert.Equal(t, []byte("demo-audio[google/en]:hello"), audio)

	_, err = synth.Synthesize(context.Background(), "", "en", "google")
	assert.Error(t, err)
}
