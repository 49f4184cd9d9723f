// internal/models/report.go
package models

// TermHit 屏蔽词命中
type TermHit struct {
	Category string `json:"category"`
	Term     string `json:"term"`
	Where    string `json:"where"` // "text" 或 "image_prompt"
	Section  int    `json:"section"`
}

// StoryReport 故事可读性与安全性报告
type StoryReport struct {
	StoryID            string    `json:"story_id"`
	WordCount          int       `json:"word_count"`
	SentenceCount      int       `json:"sentence_count"`
	AvgWordsPerSection float64   `json:"avg_words_per_section"`
	FleschKincaidGrade *float64  `json:"flesch_kincaid_grade,omitempty"`
	English            bool      `json:"english"`
	TermHits           []TermHit `json:"term_hits"`
	Safe               bool      `json:"safe"`
}
