package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply does not race with the preview's input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var version = "dev"

// state is what every subcommand shares once the root command has loaded
// the configuration.
type state struct {
	cfgFile string
	debug   bool

	viper *viper.Viper
	cfg   config.Config
	// configPath is the file the config was read from, or the local default
	// path when none was found.
	configPath string

	tracing    *tracing.Provider
	logCleanup func()
}

// NewRootCmd builds the classwind command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *state) {
	st := &state{}

	root := &cobra.Command{
		Use:   "classwind",
		Short: "Sort utility classes in markup and highlight what moved",
		Long: `classwind puts the utility classes in class attributes into a
canonical order taken from a ranking file (classorder.yaml), and shows which
tokens moved.

It runs as a one-shot formatter (sort, sort-selection), as a wrapper around a
whole-project tool (project), as a terminal preview (preview), or as a
WebSocket bridge for editor extensions (serve).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&st.cfgFile, "config", "c", "",
		"config file (default: .classwind/config.yaml, then ~/.config/classwind/config.yaml)")
	root.PersistentFlags().BoolVarP(&st.debug, "debug", "d", false,
		"write debug logs (also enabled by "+log.EnvDebug+")")

	root.AddCommand(
		newSortCmd(st),
		newSortSelectionCmd(st),
		newProjectCmd(st),
		newPreviewCmd(st),
		newServeCmd(st),
		newInitCmd(st),
	)
	return root, st
}

func (st *state) setup(cmd *cobra.Command) error {
	if st.debug || log.DebugRequested() {
		logPath := os.Getenv("CLASSWIND_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		st.logCleanup = cleanup
		log.Info(log.CatConfig, "classwind starting", "command", cmd.Name(), "version", version)
	}

	// init writes the config; it must not fail on a broken one.
	if cmd.Name() == "init" {
		return nil
	}

	st.viper = viper.New()
	cfg, used, err := loadConfig(st.viper, st.cfgFile)
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.configPath = used
	if st.configPath == "" {
		st.configPath = config.LocalConfigPath()
	}
	log.Debug(log.CatConfig, "config loaded", "path", used)

	tracesPath := cfg.Tracing.FilePath
	if tracesPath == "" {
		tracesPath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     tracesPath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	st.tracing = provider
	return nil
}

// teardown flushes traces and closes the log. It runs whether or not the
// command succeeded.
func (st *state) teardown() {
	if st.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := st.tracing.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatConfig, "Tracing shutdown failed", err)
		}
		cancel()
	}
	if st.logCleanup != nil {
		st.logCleanup()
	}
}

// loadConfig reads the configuration into v. Lookup order: explicit, then
// .classwind/config.yaml in the working directory, then
// ~/.config/classwind/config.yaml. No file at all means defaults. It returns
// the file used, if any.
func loadConfig(v *viper.Viper, explicit string) (config.Config, string, error) {
	config.SetDefaults(v)

	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case fileExists(config.LocalConfigPath()):
		v.SetConfigFile(config.LocalConfigPath())
	default:
		if dir := config.UserConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file, using defaults")
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("invalid config %s: %w", v.ConfigFileUsed(), err)
	}
	return cfg, v.ConfigFileUsed(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// workspaceRoot is the directory commands treat as the open workspace.
func workspaceRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return filepath.Abs(wd)
}

// Execute runs the root command.
func Execute() error {
	root, st := newRootCmd()
	defer st.teardown()

	err := root.Execute()
	if err != nil && !errors.Is(err, errUnsorted) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
}
