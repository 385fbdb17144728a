package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveHighlight_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".classwind", "config.yaml")

	require.NoError(t, SaveHighlight(path, HighlightConfig{Color: "#FF0000", Timeout: 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "highlight:")
	assert.Contains(t, string(data), "color: '#FF0000'")
	assert.Contains(t, string(data), "timeout: 3")
}

func TestSaveHighlight_PreservesOtherSectionsAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# top comment
run_on_save: true
highlight:
  # how highlights look
  color: "#111111" # old color
  timeout: 7
sort:
  custom_prefix: tw-
`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))

	require.NoError(t, SaveHighlight(path, HighlightConfig{Color: "success", Timeout: 2.5}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# top comment")
	assert.Contains(t, content, "# how highlights look")
	assert.Contains(t, content, "run_on_save: true")
	assert.Contains(t, content, "custom_prefix: tw-")
	assert.NotContains(t, content, "#111111")

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, HighlightConfig{Color: "success", Timeout: 2.5}, cfg.Highlight)
	assert.True(t, cfg.RunOnSave)
}

func TestSaveHighlight_AddsMissingSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_on_save: false\n"), 0o600))

	require.NoError(t, SaveHighlight(path, HighlightConfig{Color: "#abcdef", Timeout: 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_on_save: false")
	assert.Contains(t, string(data), "color: '#abcdef'")
}

func TestSaveHighlight_ReplacesNullSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("highlight:\n"), 0o600))

	require.NoError(t, SaveHighlight(path, HighlightConfig{Color: "info", Timeout: 4}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "color: info")
	assert.Contains(t, string(data), "timeout: 4")
}

func TestSaveHighlight_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SaveHighlight(path, HighlightConfig{Color: "#abc", Timeout: 0}))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSaveHighlight_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("highlight: [unclosed\n"), 0o600))

	require.Error(t, SaveHighlight(path, HighlightConfig{Color: "#abc", Timeout: 1}))
}

func TestSaveHighlight_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveHighlight(path, HighlightConfig{Color: "#abc", Timeout: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
