// Package config provides configuration types, defaults, loading and
// validation for classwind.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/batch"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/matcher"
)

// Config holds all configuration options for classwind.
type Config struct {
	// ClassRegex overrides extraction rules per language id. See
	// matcher.ParseCatalog for the accepted shapes.
	ClassRegex map[string]any `mapstructure:"class_regex"`

	// IgnoreMissingConfig silences the notice raised when no ranking file is
	// found. The sort is still skipped.
	IgnoreMissingConfig bool `mapstructure:"ignore_missing_config"`

	// ConfigPath points at a ranking file, overriding the directory walk.
	// Relative paths resolve against the workspace root.
	ConfigPath string `mapstructure:"config_path"`

	RunOnSave bool            `mapstructure:"run_on_save"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Sort      SortConfig      `mapstructure:"sort"`
	Project   ProjectConfig   `mapstructure:"project"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// HighlightConfig controls the moved-token highlights.
type HighlightConfig struct {
	// Color is a hex color ("#f59e0b", "#f59e0b80") or one of the names in
	// HighlightTokens.
	Color string `mapstructure:"color" yaml:"color"`
	// Timeout is the highlight lifetime in seconds.
	Timeout float64 `mapstructure:"timeout" yaml:"timeout"`
}

// HighlightTokens are the named highlight colors.
var HighlightTokens = map[string]string{
	"warning": "#f59e0b",
	"info":    "#3b82f6",
	"success": "#10b981",
	"error":   "#ef4444",
	"accent":  "#8b5cf6",
}

// Duration returns the timeout as a duration.
func (h HighlightConfig) Duration() time.Duration {
	return time.Duration(h.Timeout * float64(time.Second))
}

// ResolvedColor returns the hex color, resolving named tokens.
func (h HighlightConfig) ResolvedColor() string {
	if hex, ok := HighlightTokens[strings.ToLower(h.Color)]; ok {
		return hex
	}
	return h.Color
}

// Annotation converts the section into the lifecycle manager's form.
func (h HighlightConfig) Annotation() annotate.HighlightConfig {
	return annotate.HighlightConfig{Color: h.ResolvedColor(), Timeout: h.Duration()}
}

// SortConfig holds canonicalizer options.
type SortConfig struct {
	RemoveDuplicates     bool   `mapstructure:"remove_duplicates"`
	PrependCustomClasses bool   `mapstructure:"prepend_custom_classes"`
	CustomPrefix         string `mapstructure:"custom_prefix"`
}

// ProjectConfig configures the whole-project batch tool.
type ProjectConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend: "none", "file", "stdout"
	// or "otlp". Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Catalog returns the built-in extraction rules with the configured
// overrides applied.
func (c Config) Catalog() (matcher.Catalog, error) {
	overrides, err := matcher.ParseCatalog(c.ClassRegex)
	if err != nil {
		return nil, err
	}
	return matcher.DefaultCatalog().Merge(overrides), nil
}

// RankingOverride resolves ConfigPath against root. It returns "" when no
// override is configured.
func (c Config) RankingOverride(root string) string {
	if c.ConfigPath == "" {
		return ""
	}
	if filepath.IsAbs(c.ConfigPath) || root == "" {
		return c.ConfigPath
	}
	return filepath.Join(root, c.ConfigPath)
}

// ProjectInvocation builds the batch tool invocation for root.
func (c Config) ProjectInvocation(root string) batch.Invocation {
	return batch.Invocation{Command: c.Project.Command, Args: c.Project.Args, Root: root}
}

const (
	DirName  = ".classwind"
	FileName = "config.yaml"
)

// LocalConfigPath is the per-project config file, relative to the working
// directory.
func LocalConfigPath() string {
	return filepath.Join(DirName, FileName)
}

// UserConfigDir returns ~/.config/classwind, or "" when the home directory
// is unknown.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "classwind")
}

func DefaultTracesFilePath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

func Defaults() Config {
	return Config{
		IgnoreMissingConfig: false,
		RunOnSave:           false,
		Highlight: HighlightConfig{
			Color:   annotate.DefaultColor,
			Timeout: annotate.DefaultTimeout.Seconds(),
		},
		Sort: SortConfig{
			RemoveDuplicates: true,
		},
		Project: ProjectConfig{
			Command: batch.DefaultCommand,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // derived from the user config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// SetDefaults registers Defaults on v so unset keys decode to them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("ignore_missing_config", d.IgnoreMissingConfig)
	v.SetDefault("run_on_save", d.RunOnSave)
	v.SetDefault("highlight.color", d.Highlight.Color)
	v.SetDefault("highlight.timeout", d.Highlight.Timeout)
	v.SetDefault("sort.remove_duplicates", d.Sort.RemoveDuplicates)
	v.SetDefault("sort.prepend_custom_classes", d.Sort.PrependCustomClasses)
	v.SetDefault("project.command", d.Project.Command)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks every section.
func Validate(c Config) error {
	if err := ValidateHighlight(c.Highlight); err != nil {
		return err
	}
	if _, err := matcher.ParseCatalog(c.ClassRegex); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	if err := ValidateProject(c.Project); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

func ValidateHighlight(h HighlightConfig) error {
	if h.Timeout <= 0 {
		return fmt.Errorf("highlight.timeout must be greater than 0 seconds, got %v", h.Timeout)
	}
	if h.Color == "" {
		return fmt.Errorf("highlight.color is required")
	}
	if _, ok := HighlightTokens[strings.ToLower(h.Color)]; ok {
		return nil
	}
	if !hexColor.MatchString(h.Color) {
		return fmt.Errorf("highlight.color must be a hex color or one of warning, info, success, error, accent, got %q", h.Color)
	}
	return nil
}

func ValidateProject(p ProjectConfig) error {
	if strings.TrimSpace(p.Command) == "" {
		return fmt.Errorf("project.command must not be empty")
	}
	return nil
}

func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// DefaultConfigTemplate returns the commented config written by `init`.
func DefaultConfigTemplate() string {
	return `# classwind configuration

# Ranking file override. By default classwind walks up from each file looking
# for classorder.yaml, classorder.yml, classorder.toml or classorder.json (also
# inside a .classwind/ directory). Relative paths resolve against the
# workspace root.
# config_path: .classwind/classorder.yaml

# Skip the sort quietly instead of reporting an error when no ranking file
# is found.
ignore_missing_config: false

# Sort documents right before they are saved (editor bridge only).
run_on_save: false

# Highlights placed over classes that moved.
highlight:
  color: "#f59e0b"   # hex color, or one of: warning, info, success, error, accent
  timeout: 7         # seconds before highlights disappear

sort:
  remove_duplicates: true
  prepend_custom_classes: false   # put unknown classes first instead of last
  # custom_prefix: tw-            # used when the ranking file sets no prefix

# Whole-project sorting runs an external tool as:
#   <command> [args...] <workspace root> --write
project:
  command: rustywind
  # args: ["--custom-regex", "class=\"([^\"]+)\""]

# Extraction rules per language id. A rule is a regex whose first non-empty
# capture group is the class list, a list of regexes applied one inside the
# other, or an object:
#   regex: <regex or list>
#   separator: <regex splitting the list, default whitespace>
#   replacement: <string joining the sorted list, default a single space>
# class_regex:
#   html: '\bclass\s*=\s*["'']([^"'']+)["'']'
#   javascriptreact:
#     - '\bclassName\s*=\s*\{([^}]+)\}'
#     - '["''`+"`"+`]([^"''`+"`"+`]+)["''`+"`"+`]'
#   css:
#     regex: '\B@apply\s+([^;]+?)\s*;'

# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/classwind/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# flags:
#   occurrence-diff: false   # judge duplicate classes one occurrence at a time
#   presence-diff: false     # only highlight classes new to the list
#   watch-ranking: true      # reload ranking files when they change
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}
