// internal/services/report_service.go
package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/models"
)

var (
	wordPattern     = regexp.MustCompile(`[A-Za-z0-9']+`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// blocklistPattern 屏蔽词的词边界匹配模式
type blocklistPattern struct {
	category string
	term     string
	re       *regexp.Regexp
}

var blocklistPatterns = compileBlocklistPatterns()

func compileBlocklistPatterns() []blocklistPattern {
	var patterns []blocklistPattern
	for category, terms := range models.SafeWordsBlocklist {
		for _, term := range terms {
			parts := strings.Fields(term)
			for i := range parts {
				parts[i] = regexp.QuoteMeta(parts[i])
			}
			patterns = append(patterns, blocklistPattern{
				category: category,
				term:     term,
				re:       regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`),
			})
		}
	}
	return patterns
}

// ReportService 计算故事的可读性与安全性指标
type ReportService struct{}

// NewReportService 创建报告服务
func NewReportService() *ReportService {
	return &ReportService{}
}

// countSyllables 英文单词音节估算：数元音组，结尾的e减一，至少为1
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	previousVowel := false

	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !previousVowel {
			count++
		}
		previousVowel = isVowel
	}

	if count > 1 && strings.HasSuffix(word, "e") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// countSentences 按句末标点切分统计句子数
func countSentences(text string) int {
	count := 0
	for _, part := range sentencePattern.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

// isEnglish 语言为空或以en开头时按英文处理
func isEnglish(lang string) bool {
	lower := strings.ToLower(strings.TrimSpace(lang))
	return lower == "" || strings.HasPrefix(lower, "en") || lower == "english"
}

// scanTerms 扫描文本中的屏蔽词命中
func scanTerms(text, where string, sectionID int) []models.TermHit {
	var hits []models.TermHit
	for _, pattern := range blocklistPatterns {
		if pattern.re.MatchString(text) {
			hits = append(hits, models.TermHit{
				Category: pattern.category,
				Term:     pattern.term,
				Where:    where,
				Section:  sectionID,
			})
		}
	}
	return hits
}

// CheckPromptSafety 故事创建前的儿童安全检查
func CheckPromptSafety(prompt string) error {
	hits := scanTerms(prompt, "prompt", 0)
	if len(hits) == 0 {
		return nil
	}

	terms := make([]string, 0, len(hits))
	for _, hit := range hits {
		terms = append(terms, hit.Term)
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("提示词包含不适合儿童的内容: %s", strings.Join(terms, ", ")), nil)
}

// BuildReport 生成故事报告
//
// Flesch-Kincaid 等级只对英文故事计算；屏蔽词扫描覆盖章节
// 正文与插图提示。
func (s *ReportService) BuildReport(story *models.StoryRecord) *models.StoryReport {
	report := &models.StoryReport{
		StoryID: story.ID,
		English: isEnglish(story.Language),
	}

	totalSyllables := 0
	for _, section := range story.Sections {
		words := wordPattern.FindAllString(section.Text, -1)
		report.WordCount += len(words)
		report.SentenceCount += countSentences(section.Text)
		for _, word := range words {
			totalSyllables += countSyllables(word)
		}

		report.TermHits = append(report.TermHits, scanTerms(section.Text, "text", section.ID)...)
		report.TermHits = append(report.TermHits, scanTerms(section.ImagePrompt, "image_prompt", section.ID)...)
	}

	if len(story.Sections) > 0 {
		report.AvgWordsPerSection = math.Round(float64(report.WordCount)/float64(len(story.Sections))*100) / 100
	}

	if report.English && report.WordCount > 0 && report.SentenceCount > 0 {
		grade := 0.39*(float64(report.WordCount)/float64(report.SentenceCount)) +
			11.8*(float64(totalSyllables)/float64(report.WordCount)) - 15.59
		grade = math.Round(grade*100) / 100
		report.FleschKincaidGrade = &grade
	}

	report.Safe = len(report.TermHits) == 0
	return report
}
