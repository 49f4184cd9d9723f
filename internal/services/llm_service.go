// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/config"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/utils"
	gocache "github.com/patrickmn/go-cache"
)

// LLMService 管理当前LLM提供者并缓存完成结果
type LLMService struct {
	mu           sync.RWMutex
	provider     llm.Provider
	providerName string
	cache        *gocache.Cache
	logger       *utils.Logger
}

// NewLLMService 根据当前配置创建LLM服务
func NewLLMService() (*LLMService, error) {
	svc := &LLMService{
		cache:  gocache.New(30*time.Minute, 1*time.Hour),
		logger: utils.GetLogger(),
	}

	cfg := config.GetCurrentConfig()
	if cfg.LLMConfig["api_key"] == "" {
		// 未配置密钥时服务保持未就绪，调用时返回明确错误
		svc.logger.Warn("LLM提供者未配置API密钥", map[string]interface{}{
			"provider": cfg.LLMProvider,
		})
		return svc, nil
	}

	if err := svc.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		return nil, err
	}

	return svc, nil
}

// UpdateProvider 切换或重新初始化提供者
func (s *LLMService) UpdateProvider(name string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(name, providerConfig)
	if err != nil {
		return fmt.Errorf("初始化提供者失败: %w", err)
	}

	s.mu.Lock()
	s.provider = provider
	s.providerName = name
	s.mu.Unlock()

	s.logger.Info("LLM提供者已就绪", map[string]interface{}{
		"provider": provider.GetName(),
	})

	return nil
}

// IsReady 返回提供者是否已初始化
func (s *LLMService) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil
}

// getProvider 返回当前提供者
func (s *LLMService) getProvider() (llm.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.provider == nil {
		return nil, errors.New("LLM提供者未配置")
	}
	return s.provider, nil
}

// cacheKey 由模型、格式、温度与提示词生成缓存键
func cacheKey(req llm.CompletionRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f|%s|%s",
		req.Model, req.ResponseFormat, req.Temperature, req.SystemPrompt, req.Prompt)))
	return hex.EncodeToString(sum[:])
}

// Complete 执行文本生成，相同请求在缓存期内直接复用
func (s *LLMService) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	provider, err := s.getProvider()
	if err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if cached, found := s.cache.Get(key); found {
		if resp, ok := cached.(*llm.CompletionResponse); ok {
			s.logger.Debug("完成结果命中缓存", map[string]interface{}{
				"model": req.Model,
			})
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("文本生成完成", map[string]interface{}{
		"model":       resp.ModelName,
		"provider":    resp.ProviderName,
		"tokens":      resp.TokensUsed,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	s.cache.Set(key, resp, gocache.DefaultExpiration)
	return resp, nil
}

// ImageProvider 返回支持图像生成的当前提供者
func (s *LLMService) ImageProvider() (llm.ImageProvider, error) {
	provider, err := s.getProvider()
	if err != nil {
		return nil, err
	}

	imageProvider, ok := provider.(llm.ImageProvider)
	if !ok {
		return nil, fmt.Errorf("提供者 %s 不支持图像生成", provider.GetName())
	}
	return imageProvider, nil
}

// SpeechProvider 返回支持语音合成的当前提供者
func (s *LLMService) SpeechProvider() (llm.SpeechProvider, error) {
	provider, err := s.getProvider()
	if err != nil {
		return nil, err
	}

	speechProvider, ok := provider.(llm.SpeechProvider)
	if !ok {
		return nil, fmt.Errorf("提供者 %s 不支持语音合成", provider.GetName())
	}
	return speechProvider, nil
}
