// internal/storage/file_storage_test.go
package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.SaveFile("sub", "a.txt", []byte("hello")))

	data, err := fs.LoadFile("sub", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// 第二次读取走缓存
	data, err = fs.LoadFile("sub", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestSaveInvalidatesCache(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.SaveFile("sub", "a.txt", []byte("v1")))
	_, err = fs.LoadFile("sub", "a.txt")
	require.NoError(t, err)

	require.NoError(t, fs.SaveFile("sub", "a.txt", []byte("v2")))
	data, err := fs.LoadFile("sub", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestJSONRoundtrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, fs.SaveJSONFile("records", "p.json", payload{Name: "fox", Count: 3}))

	var loaded payload
	require.NoError(t, fs.LoadJSONFile("records", "p.json", &loaded))
	assert.Equal(t, "fox", loaded.Name)
	assert.Equal(t, 3, loaded.Count)
}

func TestFileExistsAndDelete(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	assert.False(t, fs.FileExists("d", "x.txt"))
	require.NoError(t, fs.SaveFile("d", "x.txt", []byte("x")))
	assert.True(t, fs.FileExists("d", "x.txt"))

	require.NoError(t, fs.DeleteFile("d", "x.txt"))
	assert.False(t, fs.FileExists("d", "x.txt"))

	assert.Error(t, fs.DeleteFile("d", "x.txt"))
}

func TestListFiles(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	files, err := fs.ListFiles("empty")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, fs.SaveFile("docs", "a.json", []byte("{}")))
	require.NoError(t, fs.SaveFile("docs", "b.json", []byte("{}")))

	files, err = fs.ListFiles("docs")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDeleteDir(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.SaveFile("gone", "a.txt", []byte("a")))
	require.NoError(t, fs.DeleteDir("gone"))
	assert.False(t, fs.FileExists("gone", "a.txt"))
	assert.Error(t, fs.DeleteDir("gone"))
}
