// internal/models/learning.go
package models

// LearningQuestion 阅读理解问题
type LearningQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// VocabEntry 词汇条目
type VocabEntry struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Example string `json:"example,omitempty"`
}

// LearningPack 故事配套学习材料
type LearningPack struct {
	StoryID   string             `json:"story_id"`
	Summary   string             `json:"summary"`
	Questions []LearningQuestion `json:"questions"`
	Vocab     []VocabEntry       `json:"vocab"`
	Manual    bool               `json:"manual,omitempty"`
}
