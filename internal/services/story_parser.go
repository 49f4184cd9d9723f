// internal/services/story_parser.go
package services

import (
	"encoding/json"
	"strings"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
)

// stripCodeFences 去掉模型常见的markdown代码块包装
func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		// 去掉第一行的 ``` 或 ```json
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		// 去掉结尾围栏
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}

// extractJSONBody 从噪声文本中截取最外层的JSON对象或数组
func extractJSONBody(text string) (string, bool) {
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start := objStart
	endCh := "}"
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		endCh = "]"
	}
	if start < 0 {
		return "", false
	}

	end := strings.LastIndex(text, endCh)
	if end <= start {
		return "", false
	}

	return text[start : end+1], true
}

// ParseStoryJSON 解析模型返回的JSON载荷
//
// 先直接解析；失败时去掉围栏并截取首个 { 或 [ 到最后一个配对
// 括号之间的子串重试。两者都失败返回 malformed_response 错误。
func ParseStoryJSON(raw string) (interface{}, error) {
	var payload interface{}

	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, apperrors.NewMalformedResponseError("模型返回为空", nil)
	}

	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return payload, nil
	}

	cleaned := stripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		return payload, nil
	}

	if body, ok := extractJSONBody(cleaned); ok {
		if err := json.Unmarshal([]byte(body), &payload); err == nil {
			return payload, nil
		}
	}

	return nil, apperrors.NewMalformedResponseError("模型返回无法解析为JSON", nil)
}
