// internal/services/image_service.go
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/config"
	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	safeImageSuffix = " Gentle, colorful children's book illustration, safe and friendly for young kids, no text."

	// 内容策略拒绝后的替代提示
	safeGenericPrompt = "A gentle, colorful children's book illustration of a happy animal friend in a sunny meadow."

	maxPromptLen         = 600
	parallelSectionLimit = 3
)

// 插图提示中需要剔除的词汇
var badImageTerms = []string{
	"nude", "nudity", "naked", "lingerie", "bikini", "swimsuit", "swimwear",
	"bathing suit", "bra", "underwear", "cleavage", "sexy", "erotic", "porn",
	"blood", "gore", "weapon", "gun", "knife", "kill", "murder",
	"alcohol", "drug", "smoking", "cigarette",
}

// 上游错误消息中标识内容策略拒绝的片段
var contentPolicyMarkers = []string{"content_policy", "safety", "rejected", "violation"}

// 各模型族允许的图像尺寸
var allowedImageSizes = map[string]map[string]bool{
	"gpt-image": {"1024x1024": true, "1024x1536": true, "1536x1024": true, "auto": true},
	"dall-e-2":  {"256x256": true, "512x512": true, "1024x1024": true},
	"dall-e-3":  {"1024x1024": true, "1792x1024": true, "1024x1792": true},
}

// badTermPatterns 按词边界匹配，多词条目允许任意空白分隔
var badTermPatterns = compileBadTermPatterns()

func compileBadTermPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(badImageTerms))
	for _, term := range badImageTerms {
		parts := strings.Fields(term)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+strings.Join(parts, `\s+`)+`\b`))
	}
	return patterns
}

// GeneratedImage 一次成功的插图生成结果
type GeneratedImage struct {
	Data  []byte
	Model string
}

// ImageService 编排多候选模型的插图生成
type ImageService struct {
	llm     *LLMService
	limiter *rate.Limiter
	client  *http.Client
	logger  *utils.Logger
}

// NewImageService 创建插图服务
func NewImageService(llmService *LLMService) *ImageService {
	return &ImageService{
		llm:     llmService,
		limiter: rate.NewLimiter(rate.Every(1200*time.Millisecond), 2),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  utils.GetLogger(),
	}
}

// SanitizeImagePrompt 剔除不适合儿童的词汇并追加安全后缀
func SanitizeImagePrompt(prompt, style string) string {
	text := utils.CollapseWhitespace(prompt)
	for _, pattern := range badTermPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	text = utils.CollapseWhitespace(text)
	text = utils.TruncateText(text, maxPromptLen)

	if style != "" {
		text += ", " + style + " style"
	}
	return text + "." + safeImageSuffix
}

// CandidateModels 构建去重后的候选模型链，末尾总有 dall-e-2 兜底
func CandidateModels(cfg *config.AppConfig) []string {
	raw := make([]string, 0, len(cfg.ImageFallbacks)+2)
	raw = append(raw, cfg.ImageModel)
	raw = append(raw, cfg.ImageFallbacks...)
	raw = append(raw, "dall-e-2")

	seen := make(map[string]bool)
	candidates := make([]string, 0, len(raw))
	for _, model := range raw {
		if model == "" || seen[model] {
			continue
		}
		// gpt-image 系列需要显式开启
		if strings.HasPrefix(model, "gpt-image") && !cfg.AllowGPTImage {
			continue
		}
		seen[model] = true
		candidates = append(candidates, model)
	}
	return candidates
}

// sizeFamily 取模型对应的尺寸族
func sizeFamily(model string) string {
	if strings.HasPrefix(model, "gpt-image") {
		return "gpt-image"
	}
	if strings.HasPrefix(model, "dall-e-3") {
		return "dall-e-3"
	}
	if strings.HasPrefix(model, "dall-e") {
		return "dall-e-2"
	}
	return ""
}

// NormalizeImageSize 把请求尺寸规范为候选模型支持的尺寸
func NormalizeImageSize(model, requested string) string {
	family := sizeFamily(model)
	allowed, known := allowedImageSizes[family]
	if !known {
		if requested == "" {
			return "1024x1024"
		}
		return requested
	}

	if requested != "" && allowed[requested] {
		return requested
	}
	return "1024x1024"
}

// isPolicyRejection 判断是否为内容策略拒绝
func isPolicyRejection(err error) bool {
	message := strings.ToLower(err.Error())
	for _, marker := range contentPolicyMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// isVerificationError 组织未验证时跳过该候选
func isVerificationError(err error) bool {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden &&
			strings.Contains(strings.ToLower(apiErr.Message), "verify")
	}
	return false
}

// fetchImageBytes 把提供者响应转成图像字节
func (s *ImageService) fetchImageBytes(ctx context.Context, resp *llm.ImageResponse) ([]byte, error) {
	if resp.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(resp.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("解码图像数据失败: %w", err)
		}
		return data, nil
	}

	if resp.URL != "" {
		req, err := http.NewRequestWithContext(ctx, "GET", resp.URL, nil)
		if err != nil {
			return nil, err
		}
		httpResp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("下载图像失败: %w", err)
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("下载图像失败: HTTP %d", httpResp.StatusCode)
		}
		return io.ReadAll(httpResp.Body)
	}

	return nil, errors.New("图像响应中既无数据也无URL")
}

// tryCandidate 单个候选模型的生成尝试，策略拒绝时用替代提示重试一次
func (s *ImageService) tryCandidate(ctx context.Context, provider llm.ImageProvider, model, prompt, size, quality string) (*GeneratedImage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := llm.ImageRequest{
		Model:   model,
		Prompt:  prompt,
		Size:    size,
		Quality: quality,
	}

	resp, err := provider.GenerateImage(ctx, req)
	if err != nil {
		if isVerificationError(err) {
			return nil, err
		}

		if isPolicyRejection(err) {
			s.logger.Warn("插图提示被内容策略拒绝，改用替代提示重试", map[string]interface{}{
				"model": model,
			})

			if waitErr := s.limiter.Wait(ctx); waitErr != nil {
				return nil, waitErr
			}

			req.Prompt = safeGenericPrompt
			resp, err = provider.GenerateImage(ctx, req)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	data, err := s.fetchImageBytes(ctx, resp)
	if err != nil {
		return nil, err
	}

	return &GeneratedImage{Data: data, Model: model}, nil
}

// GenerateIllustration 顺序遍历候选模型生成插图
//
// 候选链为配置模型、回退列表与 dall-e-2 兜底；全部失败后
// 最后尝试响应式API的图像工具。仍失败返回 image_generation_failed。
func (s *ImageService) GenerateIllustration(ctx context.Context, prompt, size, style string) (*GeneratedImage, error) {
	provider, err := s.llm.ImageProvider()
	if err != nil {
		return nil, err
	}

	cfg := config.GetCurrentConfig()
	sanitized := SanitizeImagePrompt(prompt, style)

	if size == "" {
		size = cfg.DefaultImageSize
	}

	var lastErr error
	for _, model := range CandidateModels(cfg) {
		image, err := s.tryCandidate(ctx, provider, model, sanitized, NormalizeImageSize(model, size), cfg.ImageQuality)
		if err == nil {
			return image, nil
		}

		lastErr = err
		s.logger.Warn("插图候选模型失败", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})

		if ctx.Err() != nil {
			return nil, apperrors.NewImageGenerationFailedError("插图生成被取消", ctx.Err())
		}
	}

	// 终极回退：响应式API的内置图像工具
	if err := s.limiter.Wait(ctx); err == nil {
		resp, toolErr := provider.GenerateImageWithTool(ctx, llm.ImageRequest{
			Prompt:  sanitized,
			Quality: cfg.ImageQuality,
		})
		if toolErr == nil {
			data, decodeErr := s.fetchImageBytes(ctx, resp)
			if decodeErr == nil {
				return &GeneratedImage{Data: data, Model: resp.ModelName}, nil
			}
			toolErr = decodeErr
		}
		lastErr = toolErr
	}

	return nil, apperrors.NewImageGenerationFailedError("所有插图候选模型均失败", lastErr)
}

// SectionImageResult 批量插图回调参数
type SectionImageResult struct {
	Index int
	Image *GeneratedImage
}

// IllustrateSections 并行为每个章节生成插图
//
// 章节之间并行，单个章节内部的候选链保持串行。onResult 在每个
// 章节成功后被调用（可能来自不同goroutine，由调用方保证安全）。
func (s *ImageService) IllustrateSections(
	ctx context.Context,
	sections []models.StorySection,
	size, style string,
	onResult func(result SectionImageResult) error,
	onProgress func(done, total int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelSectionLimit)

	var done int32
	total := len(sections)

	for i := range sections {
		i := i
		g.Go(func() error {
			image, err := s.GenerateIllustration(ctx, sections[i].ImagePrompt, size, style)
			if err != nil {
				return fmt.Errorf("章节 %d 插图生成失败: %w", sections[i].ID, err)
			}

			if err := onResult(SectionImageResult{Index: i, Image: image}); err != nil {
				return err
			}

			if onProgress != nil {
				onProgress(int(atomic.AddInt32(&done, 1)), total)
			}
			return nil
		})
	}

	return g.Wait()
}
