// internal/services/export_service_test.go
package services

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string][]byte)
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[file.Name] = content
	}
	return entries
}

func TestBuildZipWithMedia(t *testing.T) {
	library := newTestLibrary(t)

	record := sampleStory()
	require.NoError(t, library.SaveStory(record))

	url, err := library.SaveSectionImage(record.ID, 1, []byte("png-bytes"))
	require.NoError(t, err)
	record.Sections[0].ImageURL = url
	require.NoError(t, library.SaveStory(record))

	data, err := NewExportService(library).BuildZip(record)
	require.NoError(t, err)

	entries := zipEntries(t, data)
	assert.Contains(t, string(entries["story.json"]), record.Title)
	assert.Equal(t, []byte("png-bytes"), entries["media/sec_1.png"])
}

func TestBuildZipSkipsMissingMedia(t *testing.T) {
	library := newTestLibrary(t)

	record := sampleStory()
	require.NoError(t, library.SaveStory(record))
	record.Sections[0].ImageURL = "/media/" + record.ID + "/sec_1.png"

	data, err := NewExportService(library).BuildZip(record)
	require.NoError(t, err)

	entries := zipEntries(t, data)
	require.Len(t, entries, 1)
	assert.Contains(t, entries, "story.json")
}

func TestBuildZipAudioEntries(t *testing.T) {
	library := newTestLibrary(t)

	record := sampleStory()
	require.NoError(t, library.SaveStory(record))

	url, err := library.SaveSectionAudio(record.ID, 1, []byte("mp3-bytes"))
	require.NoError(t, err)
	record.Sections[0].AudioURL = url

	data, err := NewExportService(library).BuildZip(record)
	require.NoError(t, err)

	entries := zipEntries(t, data)
	assert.Equal(t, []byte("mp3-bytes"), entries["media/sec_1.mp3"])
}

func TestTTSRequiresSpeechProvider(t *testing.T) {
	library := newTestLibrary(t)
	record := sampleStory()
	require.NoError(t, library.SaveStory(record))

	svc := NewTTSService(newTestLLMService(&fakeProvider{}), library)
	err := svc.SynthesizeStory(context.Background(), record, "")
	require.Error(t, err)
	assert.Equal(t, models.StoryStatusReady, record.Status)
}
