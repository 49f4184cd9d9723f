// internal/services/library_service.go
package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/storage"
	"github.com/google/uuid"
)

const (
	storiesDir  = "stories"
	sharesDir   = "shares"
	learningDir = "learning"
)

// LibraryService 持久化故事、分享令牌、学习材料与媒体文件
type LibraryService struct {
	data  *storage.FileStorage
	media *storage.FileStorage
}

// NewLibraryService 创建故事库服务
func NewLibraryService(dataDir, mediaDir string) (*LibraryService, error) {
	dataStore, err := storage.NewFileStorage(dataDir)
	if err != nil {
		return nil, err
	}

	mediaStore, err := storage.NewFileStorage(mediaDir)
	if err != nil {
		return nil, err
	}

	return &LibraryService{
		data:  dataStore,
		media: mediaStore,
	}, nil
}

// SaveStory 保存故事记录，首次保存时补全ID与创建时间
func (s *LibraryService) SaveStory(record *models.StoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = models.StoryStatusReady
	}

	return s.data.SaveJSONFile(storiesDir, record.ID+".json", record)
}

// GetStory 按ID读取故事记录
func (s *LibraryService) GetStory(id string) (*models.StoryRecord, error) {
	if !s.data.FileExists(storiesDir, id+".json") {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("故事不存在: %s", id), nil)
	}

	var record models.StoryRecord
	if err := s.data.LoadJSONFile(storiesDir, id+".json", &record); err != nil {
		return nil, apperrors.NewProcessingError("读取故事记录失败", err)
	}
	return &record, nil
}

// ListStories 列出全部故事，按创建时间倒序
func (s *LibraryService) ListStories() ([]*models.StoryRecord, error) {
	files, err := s.data.ListFiles(storiesDir)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取故事目录失败", err)
	}

	records := make([]*models.StoryRecord, 0, len(files))
	for _, filename := range files {
		if !strings.HasSuffix(filename, ".json") {
			continue
		}

		var record models.StoryRecord
		if err := s.data.LoadJSONFile(storiesDir, filename, &record); err != nil {
			// 跳过损坏的记录
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// DeleteStory 删除故事记录及其媒体文件
func (s *LibraryService) DeleteStory(id string) error {
	if !s.data.FileExists(storiesDir, id+".json") {
		return apperrors.NewNotFoundError(fmt.Sprintf("故事不存在: %s", id), nil)
	}

	if err := s.data.DeleteFile(storiesDir, id+".json"); err != nil {
		return apperrors.NewProcessingError("删除故事记录失败", err)
	}

	// 媒体与学习材料尽力清理
	_ = s.media.DeleteDir(id)
	if s.data.FileExists(learningDir, id+".json") {
		_ = s.data.DeleteFile(learningDir, id+".json")
	}

	return nil
}

// SaveSectionImage 保存章节插图并返回媒体URL
func (s *LibraryService) SaveSectionImage(storyID string, sectionID int, imageData []byte) (string, error) {
	filename := fmt.Sprintf("sec_%d.png", sectionID)
	if err := s.media.SaveFile(storyID, filename, imageData); err != nil {
		return "", apperrors.NewProcessingError("保存插图失败", err)
	}
	return fmt.Sprintf("/media/%s/%s", storyID, filename), nil
}

// SaveSectionAudio 保存章节朗读音频并返回媒体URL
func (s *LibraryService) SaveSectionAudio(storyID string, sectionID int, audioData []byte) (string, error) {
	filename := fmt.Sprintf("sec_%d.mp3", sectionID)
	if err := s.media.SaveFile(storyID, filename, audioData); err != nil {
		return "", apperrors.NewProcessingError("保存音频失败", err)
	}
	return fmt.Sprintf("/media/%s/%s", storyID, filename), nil
}

// SaveOneOffImage 保存一次性插图并返回媒体URL
func (s *LibraryService) SaveOneOffImage(imageData []byte) (string, error) {
	filename := uuid.New().String() + ".png"
	if err := s.media.SaveFile("oneoff", filename, imageData); err != nil {
		return "", apperrors.NewProcessingError("保存插图失败", err)
	}
	return "/media/oneoff/" + filename, nil
}

// LoadMediaFile 读取媒体文件内容
func (s *LibraryService) LoadMediaFile(storyID, filename string) ([]byte, error) {
	return s.media.LoadFile(storyID, filename)
}

// MediaRoot 媒体文件根目录，供静态文件路由使用
func (s *LibraryService) MediaRoot() string {
	return s.media.BaseDir
}

// CreateShare 为故事创建分享令牌，ttl为0表示永不过期
func (s *LibraryService) CreateShare(storyID string, ttl time.Duration) (*models.ShareRecord, error) {
	if _, err := s.GetStory(storyID); err != nil {
		return nil, err
	}

	share := &models.ShareRecord{
		Token:     uuid.New().String(),
		StoryID:   storyID,
		CreatedAt: time.Now().UTC(),
	}
	if ttl > 0 {
		expires := share.CreatedAt.Add(ttl)
		share.ExpiresAt = &expires
	}

	if err := s.data.SaveJSONFile(sharesDir, share.Token+".json", share); err != nil {
		return nil, apperrors.NewProcessingError("保存分享令牌失败", err)
	}
	return share, nil
}

// ResolveShare 按令牌取回故事，过期或不存在都返回未找到
func (s *LibraryService) ResolveShare(token string) (*models.StoryRecord, error) {
	if !s.data.FileExists(sharesDir, token+".json") {
		return nil, apperrors.NewNotFoundError("分享链接不存在", nil)
	}

	var share models.ShareRecord
	if err := s.data.LoadJSONFile(sharesDir, token+".json", &share); err != nil {
		return nil, apperrors.NewProcessingError("读取分享令牌失败", err)
	}

	if share.Expired(time.Now().UTC()) {
		return nil, apperrors.NewNotFoundError("分享链接已过期", nil)
	}

	return s.GetStory(share.StoryID)
}

// SaveLearningPack 保存学习材料
func (s *LibraryService) SaveLearningPack(pack *models.LearningPack) error {
	return s.data.SaveJSONFile(learningDir, pack.StoryID+".json", pack)
}

// GetLearningPack 读取学习材料
func (s *LibraryService) GetLearningPack(storyID string) (*models.LearningPack, error) {
	if !s.data.FileExists(learningDir, storyID+".json") {
		return nil, apperrors.NewNotFoundError("学习材料不存在", nil)
	}

	var pack models.LearningPack
	if err := s.data.LoadJSONFile(learningDir, storyID+".json", &pack); err != nil {
		return nil, apperrors.NewProcessingError("读取学习材料失败", err)
	}
	return &pack, nil
}
