// internal/services/story_service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorySchemaShape(t *testing.T) {
	schema := storySchema(4)
	text := string(schema)

	assert.Contains(t, text, `"minItems":4`)
	assert.Contains(t, text, `"maxItems":4`)
	assert.Contains(t, text, `"image_prompt"`)
}

func TestBuildStoryPromptIncludesConstraints(t *testing.T) {
	svc := NewStoryService(newTestLLMService(&fakeProvider{}))

	prompt := svc.BuildStoryPrompt(GenerateStoryRequest{
		Prompt:   "a fox who learns to share",
		AgeGroup: "6-8",
		Language: "English",
		Style:    "bedtime",
		Sections: 5,
	})

	assert.Contains(t, prompt, "a fox who learns to share")
	assert.Contains(t, prompt, "6-8")
	assert.Contains(t, prompt, "English")
	assert.Contains(t, prompt, "exactly 5 sections")
	assert.Contains(t, prompt, "image_prompt")
}

func TestGenerateStoryDraftFirstAttemptSucceeds(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				assert.Equal(t, llm.ResponseFormatJSONSchema, req.ResponseFormat)
				assert.NotEmpty(t, req.Schema)
				return textResponse(`{"title":"Fox","sections":[
					{"id":1,"text":"One.","image_prompt":"p1"},
					{"id":2,"text":"Two.","image_prompt":"p2"}]}`), nil
			},
		},
	}

	svc := NewStoryService(newTestLLMService(provider))
	draft, err := svc.GenerateStoryDraft(context.Background(), GenerateStoryRequest{
		Prompt:   "fox",
		Sections: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Fox", draft.Title)
	require.Len(t, draft.Sections, 2)
	require.NotNil(t, draft.Usage)
	assert.Equal(t, "fake-model", draft.Usage.Model)
	require.NotNil(t, draft.Usage.TotalTokens)
	assert.Equal(t, 30, *draft.Usage.TotalTokens)
}

func TestGenerateStoryDraftFallsBackToSecondAttempt(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return nil, &llm.APIError{StatusCode: 400, Message: "json_schema not supported", Provider: "Fake"}
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				assert.Equal(t, llm.ResponseFormatJSONObject, req.ResponseFormat)
				return textResponse(`Here is your story: {"sections":[
					{"id":1,"text":"One.","image_prompt":"p1"},
					{"id":2,"text":"Two.","image_prompt":"p2"}]}`), nil
			},
		},
	}

	svc := NewStoryService(newTestLLMService(provider))
	draft, err := svc.GenerateStoryDraft(context.Background(), GenerateStoryRequest{
		Prompt:    "fox",
		Sections:  2,
		TitleHint: "The Fox",
	})
	require.NoError(t, err)

	require.Len(t, draft.Sections, 2)
	assert.Equal(t, "The Fox", draft.Title)
	assert.Equal(t, 2, provider.completeIdx)
}

func TestGenerateStoryDraftResplitsWrongCount(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse(`{"sections":[
					{"id":1,"text":"One. Two. Three. Four.","image_prompt":"p"}]}`), nil
			},
		},
	}

	svc := NewStoryService(newTestLLMService(provider))
	draft, err := svc.GenerateStoryDraft(context.Background(), GenerateStoryRequest{
		Prompt:   "fox",
		Sections: 4,
	})
	require.NoError(t, err)
	require.Len(t, draft.Sections, 4)
	for i, section := range draft.Sections {
		assert.Equal(t, i+1, section.ID)
		assert.NotEmpty(t, section.Text)
	}
}

func TestGenerateStoryDraftBothAttemptsFail(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return nil, &llm.APIError{StatusCode: 500, Message: "boom", Provider: "Fake"}
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse("complete nonsense without json"), nil
			},
		},
	}

	svc := NewStoryService(newTestLLMService(provider))
	_, err := svc.GenerateStoryDraft(context.Background(), GenerateStoryRequest{
		Prompt:   "fox",
		Sections: 3,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsGenerationFailedError(err))

	// 最后一次失败原因保留在错误链中
	assert.True(t, apperrors.IsGenerationFailedError(err))
	assert.Contains(t, strings.ToLower(err.Error()), "json")
}

func TestGenerateStoryDraftBackfillsSectionDefaults(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse(`{"title":"Fox","sections":[
					{"id":42,"text":"One."},
					{"id":7,"text":"Two."}]}`), nil
			},
		},
	}

	svc := NewStoryService(newTestLLMService(provider))
	draft, err := svc.GenerateStoryDraft(context.Background(), GenerateStoryRequest{
		Prompt:   "fox",
		Sections: 2,
	})
	require.NoError(t, err)

	// 成功后的兜底保证ID为1..n且每章有标题
	require.Len(t, draft.Sections, 2)
	for i, section := range draft.Sections {
		assert.Equal(t, i+1, section.ID)
		assert.Equal(t, fmt.Sprintf("Section %d", i+1), section.Title)
	}
}

func TestClampSections(t *testing.T) {
	assert.Equal(t, 1, clampSections(0))
	assert.Equal(t, 1, clampSections(-5))
	assert.Equal(t, 10, clampSections(42))
	assert.Equal(t, 7, clampSections(7))
}
