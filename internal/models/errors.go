package models

import "errors"

// Error taxonomy. Validation and not-found errors surface directly to the
// caller of the triggering operation; collaborator errors during a dialogue
// turn are absorbed by the turn (the session continues) unless the
// consecutive-failure limit is exceeded.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("service unavailable")

	// TTS routing errors, caller-input class, never retried.
	ErrUnsupportedLanguage       = errors.New("unsupported language")
	ErrNoEngineForLanguage       = errors.New("no tts engine supports this language")
	ErrUnsupportedEngineLanguage = errors.New("tts engine does not support this language")
)
