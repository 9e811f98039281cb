package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_GenerationPrompts(t *testing.T) {
	prompt, err := Get(GenerationFile, "requirements.system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "functional_requirements")
	assert.Contains(t, prompt, "non_functional_requirements")

	prompt, err = Get(GenerationFile, "diagram.system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "mermaid_diagram")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get(ReviewFile, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet(ReviewFile, "flow.system"))
	})
}

func TestEveryStageHasSystemAndUserPrompt(t *testing.T) {
	for _, file := range []string{GenerationFile, ReviewFile} {
		keys, err := Keys(file)
		require.NoError(t, err)
		require.NotEmpty(t, keys)

		for _, key := range keys {
			base, ok := strings.CutSuffix(key, ".system")
			if !ok {
				continue
			}
			assert.Contains(t, keys, base+".user", "%s has no user prompt for %s", file, base)
			assert.Contains(t, MustGet(file, key), "JSON only", "%s should ask for JSON", key)
		}
	}
}

func TestKeys_Sorted(t *testing.T) {
	keys, err := Keys(GenerationFile)
	require.NoError(t, err)
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "data_model.user")
}

func TestFormat(t *testing.T) {
	result := Format("System design topic: {{.Topic}}{{.APIDesign}}", map[string]string{
		"Topic":     "Design a URL Shortener",
		"APIDesign": "",
	})
	assert.Equal(t, "System design topic: Design a URL Shortener", result)
}

func TestFormat_UnknownPlaceholderKept(t *testing.T) {
	result := Format("{{.Topic}} / {{.Other}}", map[string]string{"Topic": "Chat"})
	assert.Equal(t, "Chat / {{.Other}}", result)
}

func TestFormat_NoData(t *testing.T) {
	assert.Equal(t, "{{.Topic}}", Format("{{.Topic}}", nil))
}

func TestBullets(t *testing.T) {
	assert.Equal(t, "(none)", Bullets(nil, "(none)"))
	assert.Equal(t, "- Cache\n- Database", Bullets([]string{"Cache", "Database"}, "(none)"))
}
