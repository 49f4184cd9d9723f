// internal/services/fake_provider_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/utils"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// fakeProvider 按调用次序返回预置结果
type fakeProvider struct {
	completions []func(req llm.CompletionRequest) (*llm.CompletionResponse, error)
	completeIdx int

	imageFn func(req llm.ImageRequest) (*llm.ImageResponse, error)
	toolFn  func(req llm.ImageRequest) (*llm.ImageResponse, error)

	mu         sync.Mutex
	imageCalls []llm.ImageRequest
}

func (p *fakeProvider) Initialize(config map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                           { return "Fake" }
func (p *fakeProvider) GetSupportedModels() []string              { return []string{"fake-model"} }

func (p *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.completeIdx >= len(p.completions) {
		return textResponse(`{}`), nil
	}
	fn := p.completions[p.completeIdx]
	p.completeIdx++
	return fn(req)
}

func (p *fakeProvider) GenerateImage(ctx context.Context, req llm.ImageRequest) (*llm.ImageResponse, error) {
	p.mu.Lock()
	p.imageCalls = append(p.imageCalls, req)
	p.mu.Unlock()
	return p.imageFn(req)
}

func (p *fakeProvider) GenerateImageWithTool(ctx context.Context, req llm.ImageRequest) (*llm.ImageResponse, error) {
	if p.toolFn == nil {
		return nil, &llm.APIError{StatusCode: 500, Message: "tool unavailable", Provider: "Fake"}
	}
	return p.toolFn(req)
}

func textResponse(text string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Text:         text,
		ModelName:    "fake-model",
		ProviderName: "Fake",
		PromptTokens: 10,
		OutputTokens: 20,
		TokensUsed:   30,
	}
}

func newTestLLMService(provider llm.Provider) *LLMService {
	return &LLMService{
		provider:     provider,
		providerName: "fake",
		cache:        gocache.New(time.Minute, time.Minute),
		logger:       utils.GetLogger(),
	}
}

// useTempDirs 把配置目录指向临时目录，避免测试污染工作区
func useTempDirs(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("MEDIA_DIR", t.TempDir())
	t.Setenv("LOG_DIR", t.TempDir())
}

// imageServiceFor 构建不限速的插图服务
func imageServiceFor(provider llm.Provider) *ImageService {
	svc := NewImageService(newTestLLMService(provider))
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	return svc
}
