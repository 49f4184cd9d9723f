// internal/services/story_parser_test.go
package services

import (
	"testing"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoryJSONDirect(t *testing.T) {
	payload, err := ParseStoryJSON(`{"title":"Fox","sections":[]}`)
	require.NoError(t, err)

	data, ok := payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Fox", data["title"])
}

func TestParseStoryJSONMarkdownFence(t *testing.T) {
	raw := "```json\n{\"title\":\"Fox\"}\n```"
	payload, err := ParseStoryJSON(raw)
	require.NoError(t, err)

	data := payload.(map[string]interface{})
	assert.Equal(t, "Fox", data["title"])
}

func TestParseStoryJSONLeadingNoise(t *testing.T) {
	raw := `Here is your story: {"title":"Fox","sections":[{"id":1,"text":"Hi.","image_prompt":"fox"}]} Enjoy!`
	payload, err := ParseStoryJSON(raw)
	require.NoError(t, err)

	data := payload.(map[string]interface{})
	assert.Equal(t, "Fox", data["title"])
	assert.Len(t, data["sections"], 1)
}

func TestParseStoryJSONTopLevelArray(t *testing.T) {
	payload, err := ParseStoryJSON(`noise ["one", "two"] trailing`)
	require.NoError(t, err)

	list, ok := payload.([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestParseStoryJSONUnrecoverable(t *testing.T) {
	_, err := ParseStoryJSON("this is not json at all")
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedResponseError(err))
}

func TestParseStoryJSONEmpty(t *testing.T) {
	_, err := ParseStoryJSON("   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedResponseError(err))
}
