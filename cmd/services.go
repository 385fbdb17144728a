package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/app"
	"github.com/zjrosen/classwind/internal/flags"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/ranking"
	"github.com/zjrosen/classwind/internal/sorter"
	"github.com/zjrosen/classwind/internal/ui/styles"
	"github.com/zjrosen/classwind/internal/watcher"
)

// newRankingProvider returns the file-backed ranking provider. Long-running
// commands pass follow so edited ranking files are picked up while the
// watch-ranking flag is on; the returned stop function ends the watch.
func newRankingProvider(ctx context.Context, st *state, follow bool) (*ranking.FileProvider, func(), error) {
	if !follow || !flags.New(st.cfg.Flags).Enabled(flags.FlagWatchRanking) {
		return ranking.NewFileProvider(), func() {}, nil
	}

	w, err := watcher.New(watcher.DefaultConfig(ranking.FileNames...))
	if err != nil {
		return nil, nil, fmt.Errorf("creating ranking watcher: %w", err)
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, nil, fmt.Errorf("starting ranking watcher: %w", err)
	}

	provider := ranking.NewFileProvider(ranking.WithWatcher(w))
	go provider.Follow(ctx, changes)

	return provider, func() {
		if err := w.Stop(); err != nil {
			log.ErrorErr(log.CatWatcher, "Stopping ranking watcher failed", err)
		}
	}, nil
}

// cliNotifier prints notices to the command's error stream.
type cliNotifier struct {
	w     io.Writer
	color bool
}

var _ host.Notifier = cliNotifier{}

func (n cliNotifier) Info(msg string) {
	fmt.Fprintln(n.w, msg)
}

func (n cliNotifier) Error(msg string) {
	if n.color {
		msg = lipgloss.NewStyle().Foreground(styles.NoticeErrorColor).Render(msg)
	}
	fmt.Fprintln(n.w, msg)
}

// oneShot is a sorter wired to an in-process host for commands that sort
// files and exit. Highlights are kept in memory and never shown.
type oneShot struct {
	hub     *host.Hub
	manager *annotate.Manager
	svc     *sorter.Service
}

func newOneShot(ctx context.Context, st *state, root string, notifier host.Notifier) (*oneShot, error) {
	provider, _, err := newRankingProvider(ctx, st, false)
	if err != nil {
		return nil, err
	}

	hub := host.NewHub(root)
	manager := annotate.NewManager(app.NewHighlights(), hub.DocumentChanges(), st.cfg.Highlight.Annotation())
	svc, err := sorter.NewService(st.cfg, sorter.Deps{
		Rankings:   provider,
		Highlights: manager,
		Notifier:   notifier,
		Workspace:  hub,
		Documents:  hub,
		Tracer:     st.tracing.Tracer(),
	})
	if err != nil {
		manager.Close()
		hub.Shutdown()
		return nil, err
	}
	return &oneShot{hub: hub, manager: manager, svc: svc}, nil
}

func (o *oneShot) Close() {
	o.manager.Close()
	o.hub.Shutdown()
}
