// internal/utils/text.go
package utils

import "strings"

// TruncateText 按字符数截断文本（按 rune 计数，避免截断多字节字符）
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}

// CollapseWhitespace 将连续空白压缩为单个空格并去除首尾空白
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
