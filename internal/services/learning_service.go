// internal/services/learning_service.go
package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Corphon/KidStoryMCP/internal/config"
	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/utils"
)

const learningTemperature = 0.4

// LearningService 生成故事配套学习材料
type LearningService struct {
	llm    *LLMService
	logger *utils.Logger
}

// NewLearningService 创建学习材料服务
func NewLearningService(llmService *LLMService) *LearningService {
	return &LearningService{
		llm:    llmService,
		logger: utils.GetLogger(),
	}
}

// learningSchema 学习材料的JSON模式
func learningSchema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{"type": "string"},
			"questions": map[string]interface{}{
				"type":     "array",
				"minItems": 3,
				"maxItems": 5,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{"type": "string"},
						"answer":   map[string]interface{}{"type": "string"},
					},
					"required":             []string{"question", "answer"},
					"additionalProperties": false,
				},
			},
			"vocab": map[string]interface{}{
				"type":     "array",
				"minItems": 3,
				"maxItems": 8,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"word":    map[string]interface{}{"type": "string"},
						"meaning": map[string]interface{}{"type": "string"},
						"example": map[string]interface{}{"type": "string"},
					},
					"required":             []string{"word", "meaning", "example"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"summary", "questions", "vocab"},
		"additionalProperties": false,
	}

	data, _ := json.Marshal(schema)
	return data
}

// buildLearningPrompt 构建学习材料提示词
func buildLearningPrompt(story *models.StoryRecord) string {
	var sb strings.Builder

	sb.WriteString("Create learning material for this children's story.\n")
	if story.Language != "" {
		sb.WriteString("Use the same language as the story (" + story.Language + ").\n")
	}
	if story.AgeGroup != "" {
		sb.WriteString("Target age group: " + story.AgeGroup + ".\n")
	}
	sb.WriteString("Return ONLY a JSON object with \"summary\" (2-3 sentences), " +
		"\"questions\" (3-5 comprehension questions with answers) and " +
		"\"vocab\" (3-8 useful words with a simple meaning and an example sentence).\n\n")
	sb.WriteString("Story:\n")
	for _, section := range story.Sections {
		sb.WriteString(section.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

// normalizeLearningPack 丢弃空条目并补默认摘要
func normalizeLearningPack(payload interface{}, story *models.StoryRecord) *models.LearningPack {
	pack := &models.LearningPack{StoryID: story.ID}

	data, ok := payload.(map[string]interface{})
	if !ok {
		return pack
	}

	if summary, ok := data["summary"].(string); ok {
		pack.Summary = strings.TrimSpace(summary)
	}

	if questions, ok := data["questions"].([]interface{}); ok {
		for _, item := range questions {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			question := firstString(entry, []string{"question", "q"})
			answer := firstString(entry, []string{"answer", "a"})
			if question == "" || answer == "" {
				continue
			}
			pack.Questions = append(pack.Questions, models.LearningQuestion{
				Question: question,
				Answer:   answer,
			})
		}
	}

	vocabList, ok := data["vocab"].([]interface{})
	if !ok {
		vocabList, _ = data["vocabulary"].([]interface{})
	}
	for _, item := range vocabList {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		word := firstString(entry, []string{"word", "term"})
		meaning := firstString(entry, []string{"meaning", "definition"})
		if word == "" || meaning == "" {
			continue
		}
		pack.Vocab = append(pack.Vocab, models.VocabEntry{
			Word:    word,
			Meaning: meaning,
			Example: firstString(entry, []string{"example", "sentence"}),
		})
	}

	if pack.Summary == "" && len(story.Sections) > 0 {
		pack.Summary = utils.TruncateText(story.Sections[0].Text, 200)
	}

	return pack
}

// GenerateLearningPack 两段式学习材料生成，与故事生成同样的回退策略
func (s *LearningService) GenerateLearningPack(ctx context.Context, story *models.StoryRecord) (*models.LearningPack, error) {
	cfg := config.GetCurrentConfig()
	prompt := buildLearningPrompt(story)

	attempts := []llm.CompletionRequest{
		{
			Model:          cfg.LearningModel,
			Prompt:         prompt,
			Temperature:    learningTemperature,
			ResponseFormat: llm.ResponseFormatJSONSchema,
			SchemaName:     "learning_pack",
			Schema:         learningSchema(),
		},
		{
			Model:          cfg.LearningModel,
			Prompt:         prompt + "\nRespond with valid JSON only, no other text.",
			Temperature:    learningTemperature,
			ResponseFormat: llm.ResponseFormatJSONObject,
		},
	}

	var lastErr error
	for i, completionReq := range attempts {
		resp, err := s.llm.Complete(ctx, completionReq)
		if err != nil {
			lastErr = err
		} else {
			payload, parseErr := ParseStoryJSON(resp.Text)
			if parseErr != nil {
				lastErr = parseErr
			} else {
				pack := normalizeLearningPack(payload, story)
				if len(pack.Questions) > 0 {
					return pack, nil
				}
				lastErr = apperrors.NewEmptySectionError("学习材料中没有可用的问题", nil)
			}
		}

		s.logger.Warn("学习材料生成尝试失败", map[string]interface{}{
			"attempt": i + 1,
			"error":   lastErr.Error(),
		})

		if ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.NewGenerationFailedError("两次学习材料生成尝试均失败", lastErr)
}

// BuildManualLearningPack 校验手工提交的学习材料
func (s *LearningService) BuildManualLearningPack(story *models.StoryRecord, pack models.LearningPack) (*models.LearningPack, error) {
	if len(pack.Questions) == 0 {
		return nil, apperrors.NewValidationError("学习材料至少需要一个问题", nil)
	}

	for _, question := range pack.Questions {
		if strings.TrimSpace(question.Question) == "" || strings.TrimSpace(question.Answer) == "" {
			return nil, apperrors.NewValidationError("问题与答案都不能为空", nil)
		}
	}

	pack.StoryID = story.ID
	pack.Manual = true
	if pack.Summary == "" && len(story.Sections) > 0 {
		pack.Summary = utils.TruncateText(story.Sections[0].Text, 200)
	}

	return &pack, nil
}
