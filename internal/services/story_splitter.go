// internal/services/story_splitter.go
package services

import (
	"strings"

	"github.com/Corphon/KidStoryMCP/internal/utils"
)

// splitSentences 在句末标点([.!?]连续一个或多个)后的空白处切分
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			// 吞掉连续的句末标点
			for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
				i++
				current.WriteRune(runes[i])
			}
			// 后面跟空白才算句子边界
			if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\t' || runes[i+1] == '\n') {
				if sentence := strings.TrimSpace(current.String()); sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
				// 跳过边界空白
				for i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\t' || runes[i+1] == '\n') {
					i++
				}
			}
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}

// SplitIntoSections 将纯文本确定性地切分为恰好 n 段
func SplitIntoSections(text string, n int) []string {
	if n < 1 {
		n = 1
	}

	text = utils.CollapseWhitespace(text)
	if text == "" {
		// 没有可切分的文本，由调用方决定如何失败
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	// 每段句子数向上取整
	size := (len(sentences) + n - 1) / n
	if size < 1 {
		size = 1
	}

	var chunks []string
	for i := 0; i < len(sentences); i += size {
		end := i + size
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
	}

	// 不足时复制最后一段补齐
	for len(chunks) < n {
		chunks = append(chunks, chunks[len(chunks)-1])
	}

	// 超出时把多余部分并入第 n 段
	if len(chunks) > n {
		chunks[n-1] = strings.Join(chunks[n-1:], " ")
		chunks = chunks[:n]
	}

	return chunks
}
