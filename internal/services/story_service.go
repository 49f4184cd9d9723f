// internal/services/story_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Corphon/KidStoryMCP/internal/config"
	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/utils"
)

const (
	// 章节数允许区间
	MinSections = 1
	MaxSections = 10

	firstAttemptTemperature  = 0.7
	secondAttemptTemperature = 0.3
	storyMaxTokens           = 4000
)

// GenerateStoryRequest 故事生成参数
type GenerateStoryRequest struct {
	Prompt    string `json:"prompt"`
	AgeGroup  string `json:"age_group"`
	Language  string `json:"language"`
	Style     string `json:"style"`
	Sections  int    `json:"sections"`
	TitleHint string `json:"title_hint"`
}

// StoryService 编排故事文本生成
type StoryService struct {
	llm    *LLMService
	logger *utils.Logger
}

// NewStoryService 创建故事服务
func NewStoryService(llmService *LLMService) *StoryService {
	return &StoryService{
		llm:    llmService,
		logger: utils.GetLogger(),
	}
}

// storySchema 构建章节数严格为 n 的故事JSON模式
func storySchema(n int) json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
			"sections": map[string]interface{}{
				"type":     "array",
				"minItems": n,
				"maxItems": n,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":           map[string]interface{}{"type": "integer"},
						"text":         map[string]interface{}{"type": "string"},
						"image_prompt": map[string]interface{}{"type": "string"},
					},
					"required":             []string{"id", "text", "image_prompt"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"title", "sections"},
		"additionalProperties": false,
	}

	data, _ := json.Marshal(schema)
	return data
}

// BuildStoryPrompt 构建故事生成提示词
func (s *StoryService) BuildStoryPrompt(req GenerateStoryRequest) string {
	var sb strings.Builder

	sb.WriteString("Write a children's story based on this idea: ")
	sb.WriteString(req.Prompt)
	sb.WriteString("\n")

	if req.AgeGroup != "" {
		sb.WriteString(fmt.Sprintf("Target age group: %s.", req.AgeGroup))
		if hint, ok := models.AgeLevelHints[req.AgeGroup]; ok {
			sb.WriteString(" ")
			sb.WriteString(hint)
		}
		sb.WriteString("\n")
	}

	if req.Language != "" {
		sb.WriteString(fmt.Sprintf("Write the story in %s.\n", req.Language))
	}

	if req.Style != "" {
		sb.WriteString(fmt.Sprintf("Story style: %s.\n", req.Style))
	}

	if req.TitleHint != "" {
		sb.WriteString(fmt.Sprintf("Suggested title: %s.\n", req.TitleHint))
	}

	sb.WriteString(fmt.Sprintf(
		"Split the story into exactly %d sections. "+
			"Return ONLY a JSON object with a \"title\" string and a \"sections\" array. "+
			"Each section must have \"id\" (1-based integer), \"text\" (the story text) "+
			"and \"image_prompt\" (a child-friendly illustration description).",
		req.Sections))

	return sb.String()
}

// clampSections 把章节数限制在允许区间
func clampSections(n int) int {
	if n < MinSections {
		return MinSections
	}
	if n > MaxSections {
		return MaxSections
	}
	return n
}

// usageFromResponse 从完成响应提取令牌用量，缺失字段保持为空
func usageFromResponse(resp *llm.CompletionResponse) *models.StoryUsage {
	if resp == nil {
		return nil
	}

	usage := &models.StoryUsage{
		Model:    resp.ModelName,
		Provider: resp.ProviderName,
	}
	if resp.PromptTokens > 0 {
		v := resp.PromptTokens
		usage.PromptTokens = &v
	}
	if resp.OutputTokens > 0 {
		v := resp.OutputTokens
		usage.OutputTokens = &v
	}
	if resp.TokensUsed > 0 {
		v := resp.TokensUsed
		usage.TotalTokens = &v
	}
	return usage
}

// GenerateStoryDraft 两段式故事生成
//
// 第一次尝试用严格JSON模式约束与较高温度；任何提供者错误或
// 解析、规范化失败都会触发第二次尝试，改用宽松的json_object
// 约束与较低温度。两次都失败时返回 generation_failed。
func (s *StoryService) GenerateStoryDraft(ctx context.Context, req GenerateStoryRequest) (*models.StoryDraft, error) {
	req.Sections = clampSections(req.Sections)

	cfg := config.GetCurrentConfig()
	prompt := s.BuildStoryPrompt(req)

	attempts := []llm.CompletionRequest{
		{
			Model:          cfg.StoryModel,
			Prompt:         prompt,
			Temperature:    firstAttemptTemperature,
			MaxTokens:      storyMaxTokens,
			ResponseFormat: llm.ResponseFormatJSONSchema,
			SchemaName:     "children_story",
			Schema:         storySchema(req.Sections),
		},
		{
			Model:          cfg.StoryModel,
			Prompt:         prompt + "\nRespond with valid JSON only, no other text.",
			Temperature:    secondAttemptTemperature,
			MaxTokens:      storyMaxTokens,
			ResponseFormat: llm.ResponseFormatJSONObject,
		},
	}

	var lastErr error
	for i, completionReq := range attempts {
		draft, err := s.runAttempt(ctx, completionReq, req.Sections)
		if err == nil {
			s.applyDraftDefaults(draft, req)
			return draft, nil
		}

		lastErr = err
		s.logger.Warn("故事生成尝试失败", map[string]interface{}{
			"attempt": i + 1,
			"error":   err.Error(),
		})

		if ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.NewGenerationFailedError("两次故事生成尝试均失败", lastErr)
}

// runAttempt 单次生成：调用模型、解析、规范化
func (s *StoryService) runAttempt(ctx context.Context, completionReq llm.CompletionRequest, n int) (*models.StoryDraft, error) {
	resp, err := s.llm.Complete(ctx, completionReq)
	if err != nil {
		return nil, err
	}

	payload, err := ParseStoryJSON(resp.Text)
	if err != nil {
		return nil, err
	}

	draft, err := NormalizeStoryDraft(payload, resp.Text, n)
	if err != nil {
		return nil, err
	}

	draft.Usage = usageFromResponse(resp)
	return draft, nil
}

// applyDraftDefaults 成功后的幂等兜底：补全标题、重排ID
func (s *StoryService) applyDraftDefaults(draft *models.StoryDraft, req GenerateStoryRequest) {
	if draft.Title == "" {
		if req.TitleHint != "" {
			draft.Title = req.TitleHint
		} else {
			draft.Title = "Story: " + utils.TruncateText(req.Prompt, 60)
		}
	}

	for i := range draft.Sections {
		draft.Sections[i].ID = i + 1
		if draft.Sections[i].Title == "" {
			draft.Sections[i].Title = fmt.Sprintf("Section %d", i+1)
		}
	}
}
