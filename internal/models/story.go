// internal/models/story.go
package models

import "time"

// 故事状态
const (
	StoryStatusReady            = "ready"
	StoryStatusGeneratingImages = "generating_images"
	StoryStatusGeneratingAudio  = "generating_audio"
)

// StorySection 故事章节
type StorySection struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
	ImageURL    string `json:"image_url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
}

// StoryUsage 单次生成的令牌用量，字段缺失时保持为空
type StoryUsage struct {
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
	PromptTokens *int   `json:"prompt_tokens,omitempty"`
	OutputTokens *int   `json:"output_tokens,omitempty"`
	TotalTokens  *int   `json:"total_tokens,omitempty"`
}

// StoryDraft 生成器输出的规范化草稿
type StoryDraft struct {
	Title    string         `json:"title"`
	Sections []StorySection `json:"sections"`
	Usage    *StoryUsage    `json:"usage,omitempty"`
}

// StoryRecord 持久化的故事记录
type StoryRecord struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Prompt    string         `json:"prompt"`
	AgeGroup  string         `json:"age_group"`
	Language  string         `json:"language"`
	Style     string         `json:"style,omitempty"`
	ChildID   string         `json:"child_id,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	Sections  []StorySection `json:"sections"`
	Usage     *StoryUsage    `json:"usage,omitempty"`
}

// ShareRecord 故事分享令牌
type ShareRecord struct {
	Token     string     `json:"token"`
	StoryID   string     `json:"story_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired 判断分享令牌是否已过期
func (s *ShareRecord) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// AgeLevelHints 按年龄段给出的写作提示
var AgeLevelHints = map[string]string{
	"3-5":   "Use very simple words and very short sentences. Repetition is good.",
	"6-8":   "Use simple words and short sentences. A little humor is welcome.",
	"9-12":  "Use richer vocabulary and longer sentences, but keep it friendly.",
	"13-15": "Use age-appropriate vocabulary with more complex plot points.",
}

// StyleChoices 支持的故事风格
var StyleChoices = []string{
	"adventure",
	"fairy tale",
	"funny",
	"bedtime",
	"educational",
	"mystery",
}

// ImageStyleChoices 支持的插图风格
var ImageStyleChoices = []string{
	"watercolor",
	"cartoon",
	"paper cutout",
	"crayon drawing",
	"soft pastel",
}

// SafeWordsBlocklist 按类别分组的儿童安全屏蔽词
var SafeWordsBlocklist = map[string][]string{
	"violence": {"kill", "murder", "blood", "weapon", "gun", "knife", "gore"},
	"adult":    {"alcohol", "drugs", "sex", "nude", "nudity", "bra", "bikini"},
}
