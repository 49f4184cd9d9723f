// internal/services/llm_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteCachesIdenticalRequests(t *testing.T) {
	calls := 0
	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				calls++
				return textResponse("first"), nil
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				calls++
				return textResponse("second"), nil
			},
		},
	}

	svc := newTestLLMService(provider)
	req := llm.CompletionRequest{Model: "m", Prompt: "same prompt", Temperature: 0.3}

	first, err := svc.Complete(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Text, second.Text)
}

func TestCompleteDistinguishesRequests(t *testing.T) {
	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse("a"), nil
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse("b"), nil
			},
		},
	}

	svc := newTestLLMService(provider)

	first, err := svc.Complete(context.Background(), llm.CompletionRequest{Prompt: "one"})
	require.NoError(t, err)
	second, err := svc.Complete(context.Background(), llm.CompletionRequest{Prompt: "two"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Text, second.Text)
}

func TestCompleteWithoutProvider(t *testing.T) {
	svc := newTestLLMService(nil)
	assert.False(t, svc.IsReady())

	_, err := svc.Complete(context.Background(), llm.CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未配置")
}

func TestImageProviderTypeAssertion(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{})

	provider, err := svc.ImageProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider)

	speech, err := svc.SpeechProvider()
	require.Error(t, err)
	assert.Nil(t, speech)
}
