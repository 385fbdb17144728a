package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYAML(t *testing.T, content string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return Decode(v)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "#f59e0b", d.Highlight.Color)
	assert.Equal(t, 7.0, d.Highlight.Timeout)
	assert.Equal(t, 7*time.Second, d.Highlight.Duration())
	assert.True(t, d.Sort.RemoveDuplicates)
	assert.Equal(t, "rustywind", d.Project.Command)
	assert.NoError(t, Validate(d))
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	cfg, err := loadYAML(t, DefaultConfigTemplate())
	require.NoError(t, err)

	want := Defaults()
	assert.Equal(t, want.Highlight, cfg.Highlight)
	assert.Equal(t, want.Sort, cfg.Sort)
	assert.Equal(t, want.Project.Command, cfg.Project.Command)
	assert.Equal(t, want.IgnoreMissingConfig, cfg.IgnoreMissingConfig)
	assert.Equal(t, want.RunOnSave, cfg.RunOnSave)
	assert.Empty(t, cfg.ClassRegex)
}

func TestDecode_AllSections(t *testing.T) {
	cfg, err := loadYAML(t, `
config_path: order/classorder.yaml
ignore_missing_config: true
run_on_save: true
highlight:
  color: info
  timeout: 1.5
sort:
  remove_duplicates: false
  prepend_custom_classes: true
  custom_prefix: tw-
project:
  command: npx
  args: [rustywind]
class_regex:
  html: 'klass="([^"]+)"'
  javascriptreact:
    - 'cn\(([^)]*)\)'
    - '"([^"]+)"'
  css:
    regex: '@apply ([^;]+);'
    separator: '\s+'
    replacement: ' '
flags:
  occurrence-diff: true
`)
	require.NoError(t, err)

	assert.Equal(t, "order/classorder.yaml", cfg.ConfigPath)
	assert.True(t, cfg.IgnoreMissingConfig)
	assert.True(t, cfg.RunOnSave)
	assert.Equal(t, 1500*time.Millisecond, cfg.Highlight.Duration())
	assert.Equal(t, "#3b82f6", cfg.Highlight.ResolvedColor())
	assert.Equal(t, SortConfig{RemoveDuplicates: false, PrependCustomClasses: true, CustomPrefix: "tw-"}, cfg.Sort)
	assert.Equal(t, []string{"rustywind"}, cfg.Project.Args)
	assert.True(t, cfg.Flags["occurrence-diff"])

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	require.Len(t, catalog["html"], 1)
	require.Len(t, catalog["javascriptreact"][0].Chain, 1)
	require.NotNil(t, catalog["css"][0].Separator)
	require.NotEmpty(t, catalog["vue"], "built-in rules stay for languages not overridden")

	inv := cfg.ProjectInvocation("/w")
	assert.Equal(t, "npx rustywind /w --write", inv.String())
}

func TestDecode_InvalidRule(t *testing.T) {
	_, err := loadYAML(t, "class_regex:\n  html: '(unclosed'\n")
	require.Error(t, err)
}

func TestValidateHighlight(t *testing.T) {
	tests := []struct {
		name    string
		h       HighlightConfig
		wantErr bool
	}{
		{"hex6", HighlightConfig{Color: "#aabbcc", Timeout: 1}, false},
		{"hex3", HighlightConfig{Color: "#abc", Timeout: 1}, false},
		{"hex8", HighlightConfig{Color: "#aabbcc80", Timeout: 1}, false},
		{"token", HighlightConfig{Color: "Warning", Timeout: 1}, false},
		{"zero timeout", HighlightConfig{Color: "#abc", Timeout: 0}, true},
		{"negative timeout", HighlightConfig{Color: "#abc", Timeout: -2}, true},
		{"bad color", HighlightConfig{Color: "orange-ish", Timeout: 1}, true},
		{"empty color", HighlightConfig{Timeout: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHighlight(tt.h)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{Exporter: "stdout", SampleRate: 0.5}))
	require.Error(t, ValidateTracing(TracingConfig{SampleRate: 1.5}))
	require.Error(t, ValidateTracing(TracingConfig{Exporter: "jaeger"}))
	require.Error(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp"}))
}

func TestValidateProject(t *testing.T) {
	require.NoError(t, ValidateProject(ProjectConfig{Command: "rustywind"}))
	require.Error(t, ValidateProject(ProjectConfig{Command: "  "}))
}

func TestRankingOverride(t *testing.T) {
	assert.Equal(t, "", Config{}.RankingOverride("/w"))
	assert.Equal(t, filepath.Join("/w", "a.yaml"), Config{ConfigPath: "a.yaml"}.RankingOverride("/w"))
	assert.Equal(t, "/abs/a.yaml", Config{ConfigPath: "/abs/a.yaml"}.RankingOverride("/w"))
	assert.Equal(t, "a.yaml", Config{ConfigPath: "a.yaml"}.RankingOverride(""))
}

func TestHighlightAnnotation(t *testing.T) {
	a := HighlightConfig{Color: "error", Timeout: 2}.Annotation()
	assert.Equal(t, "#ef4444", a.Color)
	assert.Equal(t, 2*time.Second, a.Timeout)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".classwind", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestChangedSections(t *testing.T) {
	base := Defaults()

	changed := base
	changed.Highlight.Color = "#000000"
	changed.Sort.CustomPrefix = "tw-"
	changed.ConfigPath = "x.yaml"
	changed.Flags = map[string]bool{"occurrence-diff": true}

	assert.Equal(t,
		[]string{SectionRanking, SectionHighlight, SectionSort, SectionFlags},
		ChangedSections(base, changed))
	assert.Empty(t, ChangedSections(base, Defaults()))
}

func TestWatch_PublishesChangedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("highlight:\n  color: '#111111'\n  timeout: 7\n"), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Decode(v)
	require.NoError(t, err)

	got := make(chan []string, 4)
	Watch(v, cfg, func(_ Config, sections []string) { got <- sections })

	require.NoError(t, os.WriteFile(path, []byte("highlight:\n  color: '#222222'\n  timeout: 7\n"), 0o600))

	select {
	case sections := <-got:
		require.Equal(t, []string{SectionHighlight}, sections)
	case <-time.After(3 * time.Second):
		t.Fatal("no config change observed")
	}
}
