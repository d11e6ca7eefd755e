package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRuleInterpreter(t *testing.T) {
	interp := NewRuleInterpreter(zap.NewNop())

	cases := []struct {
		utterance string
		want      string
	}{
		{"Hello", IntentGreet},
		{"hi", IntentGreet},
		{"Good morning", IntentGreet},
		{"Thank you, goodbye", IntentGoodbye},
		{"bye", IntentGoodbye},
		{"Thanks a lot", IntentThanks},
		{"What services do you offer?", IntentAskQuestion},
		{"How much does it cost?", IntentAskQuestion},
	}
	for _, tc := range cases {
		got, err := interp.Interpret(context.Background(), tc.utterance, "en")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Intent, "utterance: %q", tc.utterance)
	}
}

func TestTemplatedResponse(t *testing.T) {
	assert.Contains(t, templatedResponse(IntentGreet), "help")
	assert.Contains(t, templatedResponse(IntentGoodbye), "Goodbye")
	assert.Contains(t, templatedResponse(IntentThanks), "welcome")
	assert.Contains(t, templatedResponse("unknown"), "rephrase")
}
