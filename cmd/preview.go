package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/app"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/sorter"
)

func newPreviewCmd(st *state) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Open a file in a terminal preview to sort it and see what moved",
		Long: `Show FILE in a terminal preview. Press s to sort it: moved class tokens
are highlighted until the timeout passes, the text returns to what it was
before the sort (u undoes the sort), or the highlight color changes (c).
Press w to write the file and q to quit.

Edits to the config file and, with the watch-ranking flag, to ranking files
are picked up while the preview runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), st, args[0], language)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "language id to use instead of guessing from the file name")
	return cmd
}

func runPreview(ctx context.Context, st *state, path, language string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	if language == "" {
		language = host.LanguageForPath(abs)
	}

	hub := host.NewHub(root)
	defer hub.Shutdown()
	doc := hub.Open("file://"+filepath.ToSlash(abs), abs, language, string(data))

	provider, stopWatch, err := newRankingProvider(ctx, st, true)
	if err != nil {
		return err
	}
	defer stopWatch()

	highlights := app.NewHighlights()
	notices := app.NewNotices()
	defer notices.Close()

	manager := annotate.NewManager(highlights, hub.DocumentChanges(), st.cfg.Highlight.Annotation())
	defer manager.Close()

	svc, err := sorter.NewService(st.cfg, sorter.Deps{
		Rankings:   provider,
		Highlights: manager,
		Notifier:   notices,
		Workspace:  hub,
		Documents:  hub,
		Tracer:     st.tracing.Tracer(),
	})
	if err != nil {
		return err
	}

	go manager.FollowConfig(ctx, hub.ConfigChanges(), config.SectionHighlight, func() annotate.HighlightConfig {
		return svc.Config().Highlight.Annotation()
	})

	configFile := st.viper.ConfigFileUsed()
	if configFile != "" {
		config.Watch(st.viper, st.cfg, func(next config.Config, sections []string) {
			if err := svc.SetConfig(next); err != nil {
				log.ErrorErr(log.CatConfig, "Config change rejected", err, "sections", sections)
				return
			}
			hub.NotifyConfigChanged(sections...)
		})
	}

	model := app.New(app.Options{
		Doc:        doc,
		Service:    svc,
		Manager:    manager,
		Highlights: highlights,
		Notices:    notices,
		Highlight:  st.cfg.Highlight,
		ConfigPath: configFile,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running preview: %w", err)
	}
	return nil
}
