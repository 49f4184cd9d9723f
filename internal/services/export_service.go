// internal/services/export_service.go
package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/models"
)

// ExportService 故事打包导出
type ExportService struct {
	library *LibraryService
}

// NewExportService 创建导出服务
func NewExportService(library *LibraryService) *ExportService {
	return &ExportService{library: library}
}

// BuildZip 打包故事JSON与已生成的媒体文件
func (s *ExportService) BuildZip(story *models.StoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	storyJSON, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		return nil, apperrors.NewProcessingError("序列化故事失败", err)
	}

	entry, err := writer.Create("story.json")
	if err != nil {
		return nil, apperrors.NewProcessingError("创建压缩包条目失败", err)
	}
	if _, err := entry.Write(storyJSON); err != nil {
		return nil, apperrors.NewProcessingError("写入压缩包失败", err)
	}

	// 媒体文件缺失时跳过，不中断导出
	for _, section := range story.Sections {
		for _, mediaURL := range []string{section.ImageURL, section.AudioURL} {
			if mediaURL == "" {
				continue
			}

			filename := path.Base(mediaURL)
			data, err := s.library.LoadMediaFile(story.ID, filename)
			if err != nil {
				continue
			}

			entry, err := writer.Create(fmt.Sprintf("media/%s", filename))
			if err != nil {
				return nil, apperrors.NewProcessingError("创建压缩包条目失败", err)
			}
			if _, err := entry.Write(data); err != nil {
				return nil, apperrors.NewProcessingError("写入压缩包失败", err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, apperrors.NewProcessingError("关闭压缩包失败", err)
	}

	return buf.Bytes(), nil
}
