// internal/llm/interface.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// 错误定义
var ErrUnknownProvider = errors.New("未知的AI提供者")

// 响应格式约束
const (
	ResponseFormatJSONSchema = "json_schema"
	ResponseFormatJSONObject = "json_object"
)

// CompletionRequest 请求参数标准化
type CompletionRequest struct {
	Prompt         string          `json:"prompt"`
	SystemPrompt   string          `json:"system_prompt,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float32         `json:"temperature,omitempty"`
	Model          string          `json:"model,omitempty"`
	ResponseFormat string          `json:"response_format,omitempty"` // "json_schema" | "json_object" | ""
	SchemaName     string          `json:"schema_name,omitempty"`
	Schema         json.RawMessage `json:"schema,omitempty"` // ResponseFormat 为 json_schema 时必填
}

// CompletionResponse 响应结构标准化
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// ImageRequest 图像生成请求
type ImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// ImageResponse 图像生成响应，B64JSON 与 URL 二者至少其一非空
type ImageResponse struct {
	B64JSON   string `json:"b64_json,omitempty"`
	URL       string `json:"url,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

// SpeechRequest 语音合成请求
type SpeechRequest struct {
	Model  string `json:"model,omitempty"`
	Voice  string `json:"voice,omitempty"`
	Input  string `json:"input"`
	Format string `json:"format,omitempty"`
}

// APIError 上游API的非200响应
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API错误(%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Provider 定义所有LLM提供者必须实现的接口
type Provider interface {
	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 获取支持的模型列表
	GetSupportedModels() []string

	// 文本生成
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ImageProvider 支持图像生成的提供者
type ImageProvider interface {
	// 图像API直接生成
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)

	// 终极回退：通过内置图像工具的响应式API生成
	GenerateImageWithTool(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// SpeechProvider 支持语音合成的提供者
type SpeechProvider interface {
	SynthesizeSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// 注册表和工厂函数类型
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register 注册提供者工厂
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider 创建指定名称的提供者实例
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	provider := factory()
	err := provider.Initialize(config)
	return provider, err
}

// ListProviders 返回所有已注册的提供者名称
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// GetSupportedModelsForProvider 获取指定提供商支持的模型列表
func GetSupportedModelsForProvider(name string) []string {
	factory, exists := providers[name]
	if !exists {
		return []string{}
	}

	provider := factory()
	return provider.GetSupportedModels()
}
