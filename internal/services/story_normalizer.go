// internal/services/story_normalizer.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/utils"
)

// 模型返回里各字段的候选键名，按优先级排列
var (
	sectionListKeys = []string{"sections", "chapters", "pages", "parts", "story"}
	scalarTextKeys  = []string{"text", "story", "content", "output", "body"}
	sectionTextKeys = []string{"text", "content", "story", "body"}
	imagePromptKeys = []string{"image_prompt", "imagePrompt", "illustration_prompt", "prompt"}
	titleKeys       = []string{"title", "heading", "name"}
)

const defaultImagePromptPrefix = "Kids book illustration of: "

// firstString 按键名顺序取第一个非空字符串值
func firstString(m map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if value, ok := m[key]; ok {
			if text, ok := value.(string); ok {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

// findSectionList 在载荷中查找章节数组，包括嵌套在 story 对象里的情况
func findSectionList(payload map[string]interface{}) []interface{} {
	for _, key := range sectionListKeys {
		value, ok := payload[key]
		if !ok {
			continue
		}

		if list, ok := value.([]interface{}); ok && len(list) > 0 {
			return list
		}

		// 有些模型把整个故事包在 story 对象里
		if key == "story" {
			if inner, ok := value.(map[string]interface{}); ok {
				for _, innerKey := range sectionListKeys {
					if list, ok := inner[innerKey].([]interface{}); ok && len(list) > 0 {
						return list
					}
				}
			}
		}
	}
	return nil
}

// joinListTexts 把数组元素的文本按空格拼接，元素可以是字符串或对象
func joinListTexts(list []interface{}) string {
	var parts []string
	for _, item := range list {
		switch value := item.(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				parts = append(parts, trimmed)
			}
		case map[string]interface{}:
			if text := firstString(value, sectionTextKeys); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// flattenNestedJSON 章节文本本身是JSON时展开一层
//
// 嵌套对象里带章节数组时把各项文本拼接成一段；否则取标量文本键。
func flattenNestedJSON(text string) (string, string, string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return "", "", "", false
	}

	var nested interface{}
	if err := json.Unmarshal([]byte(trimmed), &nested); err != nil {
		return "", "", "", false
	}

	switch value := nested.(type) {
	case map[string]interface{}:
		if list := findSectionList(value); list != nil {
			if joined := joinListTexts(list); joined != "" {
				return joined, firstString(value, imagePromptKeys), firstString(value, titleKeys), true
			}
		}

		innerText := firstString(value, sectionTextKeys)
		if innerText == "" {
			return "", "", "", false
		}
		return innerText, firstString(value, imagePromptKeys), firstString(value, titleKeys), true

	case []interface{}:
		if joined := joinListTexts(value); joined != "" {
			return joined, "", "", true
		}
	}

	return "", "", "", false
}

// extractSection 从数组元素提取一个章节，文本为空时返回 false
func extractSection(item interface{}) (models.StorySection, bool) {
	var section models.StorySection

	switch value := item.(type) {
	case string:
		section.Text = strings.TrimSpace(value)
	case map[string]interface{}:
		section.Text = firstString(value, sectionTextKeys)
		section.ImagePrompt = firstString(value, imagePromptKeys)
		section.Title = firstString(value, titleKeys)
	default:
		return section, false
	}

	// 文本字段里塞了嵌套JSON时展开
	if text, prompt, title, ok := flattenNestedJSON(section.Text); ok {
		section.Text = text
		if section.ImagePrompt == "" {
			section.ImagePrompt = prompt
		}
		if section.Title == "" {
			section.Title = title
		}
	}

	if section.Text == "" {
		return section, false
	}
	return section, true
}

// NormalizeStoryDraft 把任意形状的模型载荷规范为恰好 n 个章节的草稿
//
// 章节数不等于 n 时无条件把全部文本合并重切，保证输出总是 n 段、
// ID 为 1..n、每段都有标题和插图提示。rawText 是模型原始返回，
// 载荷完全不可用时作为重切的最后来源。
func NormalizeStoryDraft(payload interface{}, rawText string, n int) (*models.StoryDraft, error) {
	title := ""
	var list []interface{}
	scalar := ""

	switch value := payload.(type) {
	case map[string]interface{}:
		title = firstString(value, titleKeys)
		list = findSectionList(value)
		if list == nil {
			scalar = firstString(value, scalarTextKeys)
		}
	case []interface{}:
		list = value
	case string:
		scalar = strings.TrimSpace(value)
	}

	var sections []models.StorySection
	for _, item := range list {
		if section, ok := extractSection(item); ok {
			sections = append(sections, section)
		}
	}

	// 章节数不符时合并全部文本重新切分
	if len(sections) != n {
		var parts []string
		for _, section := range sections {
			parts = append(parts, section.Text)
		}
		combined := strings.TrimSpace(strings.Join(parts, " "))
		if combined == "" {
			combined = scalar
		}
		if combined == "" {
			combined = utils.CollapseWhitespace(rawText)
		}
		if combined == "" {
			return nil, apperrors.NewEmptySectionError("模型返回中没有任何可用的故事文本", nil)
		}

		chunks := SplitIntoSections(combined, n)
		sections = make([]models.StorySection, 0, n)
		for _, chunk := range chunks {
			sections = append(sections, models.StorySection{Text: chunk})
		}
	}

	// 补默认值并重排ID
	for i := range sections {
		sections[i].ID = i + 1
		if sections[i].Title == "" {
			sections[i].Title = fmt.Sprintf("Section %d", i+1)
		}
		if sections[i].ImagePrompt == "" {
			sections[i].ImagePrompt = defaultImagePromptPrefix + utils.TruncateText(sections[i].Text, 200)
		}
	}

	return &models.StoryDraft{
		Title:    title,
		Sections: sections,
	}, nil
}
