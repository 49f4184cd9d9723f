// internal/services/learning_service_test.go
package services

import (
	"context"
	"testing"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func learningStory() *models.StoryRecord {
	return &models.StoryRecord{
		ID:       "s1",
		Language: "en",
		AgeGroup: "6-8",
		Sections: []models.StorySection{
			{ID: 1, Text: "A fox learned to share berries with friends."},
		},
	}
}

func TestGenerateLearningPack(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				assert.Equal(t, llm.ResponseFormatJSONSchema, req.ResponseFormat)
				return textResponse(`{
					"summary": "A fox shares berries.",
					"questions": [
						{"question": "What did the fox share?", "answer": "Berries."},
						{"question": "", "answer": "dropped"},
						{"question": "Who were they shared with?", "answer": "Friends."}
					],
					"vocab": [
						{"word": "share", "meaning": "to give part of something", "example": "I share my toys."},
						{"word": "", "meaning": "dropped"}
					]
				}`), nil
			},
		},
	}

	svc := NewLearningService(newTestLLMService(provider))
	pack, err := svc.GenerateLearningPack(context.Background(), learningStory())
	require.NoError(t, err)

	assert.Equal(t, "s1", pack.StoryID)
	assert.Equal(t, "A fox shares berries.", pack.Summary)

	// 空白问题与词条被丢弃
	require.Len(t, pack.Questions, 2)
	require.Len(t, pack.Vocab, 1)
	assert.Equal(t, "share", pack.Vocab[0].Word)
}

func TestGenerateLearningPackFallsBack(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse("not json"), nil
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse(`{"summary":"S","questions":[{"question":"Q?","answer":"A."}],"vocab":[]}`), nil
			},
		},
	}

	svc := NewLearningService(newTestLLMService(provider))
	pack, err := svc.GenerateLearningPack(context.Background(), learningStory())
	require.NoError(t, err)
	require.Len(t, pack.Questions, 1)
}

func TestGenerateLearningPackBothAttemptsFail(t *testing.T) {
	useTempDirs(t)

	provider := &fakeProvider{
		completions: []func(req llm.CompletionRequest) (*llm.CompletionResponse, error){
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse("garbage"), nil
			},
			func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return textResponse(`{"summary":"S","questions":[]}`), nil
			},
		},
	}

	svc := NewLearningService(newTestLLMService(provider))
	_, err := svc.GenerateLearningPack(context.Background(), learningStory())
	require.Error(t, err)
	assert.True(t, apperrors.IsGenerationFailedError(err))
}

func TestBuildManualLearningPack(t *testing.T) {
	svc := NewLearningService(newTestLLMService(&fakeProvider{}))
	story := learningStory()

	pack, err := svc.BuildManualLearningPack(story, models.LearningPack{
		Questions: []models.LearningQuestion{{Question: "Q?", Answer: "A."}},
	})
	require.NoError(t, err)
	assert.True(t, pack.Manual)
	assert.Equal(t, story.ID, pack.StoryID)
	assert.NotEmpty(t, pack.Summary)

	_, err = svc.BuildManualLearningPack(story, models.LearningPack{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.BuildManualLearningPack(story, models.LearningPack{
		Questions: []models.LearningQuestion{{Question: " ", Answer: "A."}},
	})
	assert.True(t, apperrors.IsValidationError(err))
}
