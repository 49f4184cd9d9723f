// internal/llm/providers/openai/openai.go
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4.1-mini",
				"dall-e-2",
				"dall-e-3",
				"gpt-image-1",
				"gpt-4o-mini-tts",
			},
			baseURL: "https://api.openai.com/v1",
		}
	})
}

type Provider struct {
	apiKey            string
	baseURL           string
	client            *http.Client
	defaultModel      string
	imageToolModel    string // 响应式API图像工具使用的文本模型
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("OpenAI API密钥未提供")
	}

	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 120 * time.Second}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "gpt-4o-mini"
	}

	if model, exists := config["image_tool_model"]; exists && model != "" {
		p.imageToolModel = model
	} else {
		p.imageToolModel = "gpt-4.1-mini"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

// apiError 读取错误响应体并转换为 llm.APIError
func (p *Provider) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	// 尝试解析标准错误信封
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return &llm.APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   p.GetName(),
	}
}

// postJSON 发送JSON请求并返回原始响应
func (p *Provider) postJSON(ctx context.Context, path string, body map[string]interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	return p.client.Do(httpReq)
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	// 构建请求
	messages := []map[string]string{
		{"role": "user", "content": req.Prompt},
	}

	if req.SystemPrompt != "" {
		messages = append([]map[string]string{
			{"role": "system", "content": req.SystemPrompt},
		}, messages...)
	}

	requestBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}

	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}

	// 输出格式约束
	switch req.ResponseFormat {
	case llm.ResponseFormatJSONSchema:
		schemaName := req.SchemaName
		if schemaName == "" {
			schemaName = "payload"
		}
		requestBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schemaName,
				"strict": true,
				"schema": req.Schema,
			},
		}
	case llm.ResponseFormatJSONObject:
		requestBody["response_format"] = map[string]interface{}{
			"type": "json_object",
		}
	}

	// 发送请求
	httpResp, err := p.postJSON(ctx, "/chat/completions", requestBody)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.apiError(httpResp)
	}

	// 解析响应
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("OpenAI未返回任何结果")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}

// isGPTImageModel gpt-image 系列模型的请求参数与 dall-e 不同
func isGPTImageModel(model string) bool {
	return len(model) >= 9 && model[:9] == "gpt-image"
}

// GenerateImage 通过图像API生成插图
func (p *Provider) GenerateImage(ctx context.Context, req llm.ImageRequest) (*llm.ImageResponse, error) {
	requestBody := map[string]interface{}{
		"model":  req.Model,
		"prompt": req.Prompt,
		"n":      1,
	}

	if req.Size != "" && req.Size != "auto" {
		requestBody["size"] = req.Size
	}

	if isGPTImageModel(req.Model) {
		// gpt-image 只返回 b64，且支持质量参数
		if req.Quality != "" {
			requestBody["quality"] = req.Quality
		}
	} else {
		requestBody["response_format"] = "b64_json"
	}

	httpResp, err := p.postJSON(ctx, "/images/generations", requestBody)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.apiError(httpResp)
	}

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
			URL     string `json:"url"`
		} `json:"data"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Data) == 0 {
		return nil, errors.New("图像API未返回任何数据")
	}

	return &llm.ImageResponse{
		B64JSON:   response.Data[0].B64JSON,
		URL:       response.Data[0].URL,
		ModelName: req.Model,
	}, nil
}

// GenerateImageWithTool 通过响应式API的内置图像工具生成插图
func (p *Provider) GenerateImageWithTool(ctx context.Context, req llm.ImageRequest) (*llm.ImageResponse, error) {
	tool := map[string]interface{}{
		"type": "image_generation",
	}
	if req.Quality != "" {
		tool["quality"] = req.Quality
	}

	requestBody := map[string]interface{}{
		"model": p.imageToolModel,
		"input": req.Prompt,
		"tools": []interface{}{tool},
	}

	httpResp, err := p.postJSON(ctx, "/responses", requestBody)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.apiError(httpResp)
	}

	var response struct {
		Output []struct {
			Type   string `json:"type"`
			Result string `json:"result"`
		} `json:"output"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	// 在输出项中查找图像工具调用结果
	for _, item := range response.Output {
		if item.Type == "image_generation_call" && item.Result != "" {
			return &llm.ImageResponse{
				B64JSON:   item.Result,
				ModelName: p.imageToolModel,
			}, nil
		}
	}

	return nil, errors.New("响应式API未返回图像结果")
}

// SynthesizeSpeech 通过语音API合成章节朗读音频
func (p *Provider) SynthesizeSpeech(ctx context.Context, req llm.SpeechRequest) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}

	requestBody := map[string]interface{}{
		"model": model,
		"voice": voice,
		"input": req.Input,
	}
	if req.Format != "" {
		requestBody["response_format"] = req.Format
	}

	httpResp, err := p.postJSON(ctx, "/audio/speech", requestBody)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.apiError(httpResp)
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取音频响应失败: %w", err)
	}

	return audio, nil
}
