// internal/services/story_normalizer_test.go
package services

import (
	"encoding/json"
	"strings"
	"testing"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestNormalizeWellFormedPayload(t *testing.T) {
	payload := mustParse(t, `{
		"title": "The Brave Fox",
		"sections": [
			{"id": 7, "title": "Start", "text": "A fox lived in a forest.", "image_prompt": "a fox in a forest"},
			{"id": 9, "text": "The fox found a friend.", "image_prompt": "two foxes playing"}
		]
	}`)

	draft, err := NormalizeStoryDraft(payload, "", 2)
	require.NoError(t, err)

	assert.Equal(t, "The Brave Fox", draft.Title)
	require.Len(t, draft.Sections, 2)

	// ID总是重排为1..n
	assert.Equal(t, 1, draft.Sections[0].ID)
	assert.Equal(t, 2, draft.Sections[1].ID)
	assert.Equal(t, "Start", draft.Sections[0].Title)
	assert.Equal(t, "Section 2", draft.Sections[1].Title)
	assert.Equal(t, "a fox in a forest", draft.Sections[0].ImagePrompt)
}

func TestNormalizeAlternateListKeys(t *testing.T) {
	for _, key := range []string{"sections", "chapters", "pages", "parts", "story"} {
		payload := mustParse(t, `{"`+key+`": [{"text": "One sentence here."}]}`)

		draft, err := NormalizeStoryDraft(payload, "", 1)
		require.NoError(t, err, "key=%s", key)
		require.Len(t, draft.Sections, 1)
		assert.Equal(t, "One sentence here.", draft.Sections[0].Text)
	}
}

func TestNormalizeNestedStoryObject(t *testing.T) {
	payload := mustParse(t, `{"story": {"sections": [{"text": "Inside the wrapper."}]}}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)
	assert.Equal(t, "Inside the wrapper.", draft.Sections[0].Text)
}

func TestNormalizeBareStringSections(t *testing.T) {
	payload := mustParse(t, `{"sections": ["The fox ran.", "The fox slept."]}`)

	draft, err := NormalizeStoryDraft(payload, "", 2)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 2)
	assert.Equal(t, "The fox ran.", draft.Sections[0].Text)
	assert.True(t, strings.HasPrefix(draft.Sections[0].ImagePrompt, "Kids book illustration of: "))
}

func TestNormalizeTopLevelArray(t *testing.T) {
	payload := mustParse(t, `[{"text": "First part."}, {"text": "Second part."}]`)

	draft, err := NormalizeStoryDraft(payload, "", 2)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 2)
}

func TestNormalizeNestedJSONInText(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"text": "{\"text\": \"The real story text.\", \"image_prompt\": \"a castle\"}"}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)
	assert.Equal(t, "The real story text.", draft.Sections[0].Text)
	assert.Equal(t, "a castle", draft.Sections[0].ImagePrompt)
}

func TestNormalizeNestedSectionListInText(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"text": "{\"sections\":[{\"text\":\"A brave fox ran.\"},{\"text\":\"It found a friend.\"}]}"}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)

	// 嵌套章节数组的文本被拼接，不保留原始JSON字符串
	assert.Equal(t, "A brave fox ran. It found a friend.", draft.Sections[0].Text)
}

func TestNormalizeNestedListAliasesInText(t *testing.T) {
	for _, key := range []string{"sections", "chapters", "pages", "parts", "story"} {
		payload := mustParse(t, `{"sections": [
			{"text": "{\"`+key+`\":[\"First bit.\",\"Second bit.\"]}"}
		]}`)

		draft, err := NormalizeStoryDraft(payload, "", 1)
		require.NoError(t, err, "key=%s", key)
		require.Len(t, draft.Sections, 1)
		assert.Equal(t, "First bit. Second bit.", draft.Sections[0].Text, "key=%s", key)
	}
}

func TestNormalizeNestedArrayInText(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"text": "[{\"text\":\"One piece.\"},\"Two piece.\"]"}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)
	assert.Equal(t, "One piece. Two piece.", draft.Sections[0].Text)
}

func TestNormalizeAlternateFieldKeys(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"content": "Body via content.", "imagePrompt": "camel-case prompt", "heading": "H"}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)
	assert.Equal(t, "Body via content.", draft.Sections[0].Text)
	assert.Equal(t, "camel-case prompt", draft.Sections[0].ImagePrompt)
	assert.Equal(t, "H", draft.Sections[0].Title)
}

func TestNormalizeResplitOnCountMismatch(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"text": "One. Two. Three. Four. Five. Six.", "image_prompt": "original prompt"}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 3)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 3)

	// 重切后的章节用默认插图提示，不保留原提示
	for i, section := range draft.Sections {
		assert.Equal(t, i+1, section.ID)
		assert.NotEmpty(t, section.Text)
		assert.True(t, strings.HasPrefix(section.ImagePrompt, "Kids book illustration of: "))
	}
}

func TestNormalizeScalarFallback(t *testing.T) {
	for _, key := range []string{"text", "story", "content", "output", "body"} {
		payload := mustParse(t, `{"`+key+`": "Alpha. Beta. Gamma. Delta."}`)

		draft, err := NormalizeStoryDraft(payload, "", 2)
		require.NoError(t, err, "key=%s", key)
		require.Len(t, draft.Sections, 2)
	}
}

func TestNormalizeRawTextFallback(t *testing.T) {
	payload := mustParse(t, `{"unexpected": 42}`)

	draft, err := NormalizeStoryDraft(payload, "Once there was a fox. It was brave.", 2)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 2)
	assert.Equal(t, "Once there was a fox.", draft.Sections[0].Text)
}

func TestNormalizeSkipsEmptySections(t *testing.T) {
	payload := mustParse(t, `{"sections": [
		{"text": "  "},
		{"text": "Real text here."},
		{"text": ""}
	]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)
	require.Len(t, draft.Sections, 1)
	assert.Equal(t, "Real text here.", draft.Sections[0].Text)
}

func TestNormalizeNothingExtractable(t *testing.T) {
	payload := mustParse(t, `{"unexpected": 42}`)

	_, err := NormalizeStoryDraft(payload, "   ", 3)
	require.Error(t, err)
	assert.True(t, apperrors.IsEmptySectionError(err))
}

func TestNormalizeDefaultImagePromptTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	payload := mustParse(t, `{"sections": [{"text": `+mustQuote(long)+`}]}`)

	draft, err := NormalizeStoryDraft(payload, "", 1)
	require.NoError(t, err)

	prompt := draft.Sections[0].ImagePrompt
	assert.True(t, strings.HasPrefix(prompt, "Kids book illustration of: "))
	assert.LessOrEqual(t, len(prompt), len("Kids book illustration of: ")+200)
}

func mustQuote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
