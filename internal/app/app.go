// Package app contains the preview: a terminal host that shows one document,
// sorts it on demand and paints the moved tokens until they retire.
package app

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/keys"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/pubsub"
	"github.com/zjrosen/classwind/internal/sorter"
	"github.com/zjrosen/classwind/internal/ui/styles"
	"github.com/zjrosen/classwind/internal/ui/toaster"
)

// ColorCycle is the order the color key walks through.
var ColorCycle = []string{"warning", "info", "success", "error", "accent"}

// Options wires the preview to its document and services.
type Options struct {
	Doc        *host.Buffer
	Service    *sorter.Service
	Manager    *annotate.Manager
	Highlights *Highlights
	Notices    *Notices
	// Highlight is the starting highlight section.
	Highlight config.HighlightConfig
	// ConfigPath, when set, receives highlight color changes.
	ConfigPath string
}

// Model is the preview state.
type Model struct {
	opts Options

	keys     keys.PreviewKeyMap
	help     help.Model
	viewport viewport.Model
	toaster  toaster.Model

	width  int
	height int
	ready  bool

	highlight config.HighlightConfig
	// undo is the text before the last sort; canUndo is cleared once used.
	undo    string
	canUndo bool
	status  string

	ctx       context.Context
	cancel    context.CancelFunc
	lifecycle *pubsub.ContinuousListener[annotate.Lifecycle]
	notices   *pubsub.ContinuousListener[Notice]
	// logs is nil unless debug logging is on; lastLog is shown above the help.
	logs    *log.LogListener
	lastLog string
}

type sortDoneMsg struct {
	before string
	result sorter.Result
	err    error
}

type writeDoneMsg struct {
	path string
	err  error
}

// New creates the preview. Subscriptions start immediately so no lifecycle
// event or notice is lost before Init.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		opts:      opts,
		keys:      keys.Preview,
		help:      help.New(),
		viewport:  viewport.New(0, 0),
		toaster:   toaster.New(),
		highlight: opts.Highlight,
		ctx:       ctx,
		cancel:    cancel,
		lifecycle: pubsub.NewContinuousListener(ctx, opts.Manager.Events()),
	}
	if opts.Notices != nil {
		m.notices = pubsub.NewContinuousListener(ctx, opts.Notices.Subscriber())
	}
	m.logs = log.NewListener(ctx)
	m.viewport.SetContent(m.renderText())
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.lifecycle.Listen()}
	if m.notices != nil {
		cmds = append(cmds, m.notices.Listen())
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 1)
		m.help.Width = msg.Width
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case log.LogEvent:
		m.lastLog = strings.TrimRight(msg.Payload, "\n")
		return m, m.logs.Listen()

	case sortDoneMsg:
		return m.handleSortDone(msg)

	case writeDoneMsg:
		if msg.err != nil {
			return m.toast(fmt.Sprintf("write failed: %v", msg.err), toaster.StyleError)
		}
		return m.toast("wrote "+msg.path, toaster.StyleSuccess)

	case pubsub.Event[annotate.Lifecycle]:
		switch msg.Type {
		case pubsub.ActivatedEvent:
			m.status = fmt.Sprintf("%d moved", msg.Payload.Decorations)
		case pubsub.RetiredEvent:
			m.status = "highlight retired: " + string(msg.Payload.Reason)
		}
		m.refresh()
		return m, m.lifecycle.Listen()

	case pubsub.Event[Notice]:
		style := toaster.StyleInfo
		if msg.Payload.Level == LevelError {
			style = toaster.StyleError
		}
		var cmd tea.Cmd
		m.toaster, cmd = m.toaster.Show(msg.Payload.Message, style, toaster.DefaultDuration)
		return m, tea.Batch(cmd, m.notices.Listen())

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sort):
		return m, m.sortCmd()

	case key.Matches(msg, m.keys.Undo):
		if !m.canUndo {
			return m.toast("nothing to undo", toaster.StyleInfo)
		}
		m.canUndo = false
		m.opts.Doc.SetText(m.undo)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Color):
		return m.cycleColor()

	case key.Matches(msg, m.keys.Write):
		return m, m.writeCmd()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.viewport.Height = max(m.height-m.chromeHeight(), 1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ScrollUp(m.viewport.Height)
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ScrollDown(m.viewport.Height)
	}
	return m, nil
}

func (m Model) sortCmd() tea.Cmd {
	doc, svc, ctx := m.opts.Doc, m.opts.Service, m.ctx
	before := doc.Text()
	return func() tea.Msg {
		res, err := svc.SortDocument(ctx, doc)
		return sortDoneMsg{before: before, result: res, err: err}
	}
}

func (m Model) handleSortDone(msg sortDoneMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	if msg.err != nil {
		// Missing ranking files and tool failures already raised a notice.
		log.ErrorErr(log.CatUI, "Sort failed", msg.err, "uri", m.opts.Doc.URI())
		return m, nil
	}
	if !msg.result.Changed() {
		return m.toast("already sorted", toaster.StyleInfo)
	}

	m.undo = msg.before
	m.canUndo = true
	return m.toast(fmt.Sprintf("sorted %d class lists, %d moved", msg.result.Edits, len(msg.result.Moved)), toaster.StyleSuccess)
}

// cycleColor switches to the next named highlight color. The active cycle
// retires; the next sort uses the new color.
func (m Model) cycleColor() (tea.Model, tea.Cmd) {
	next := ColorCycle[0]
	if i := slices.Index(ColorCycle, strings.ToLower(m.highlight.Color)); i >= 0 {
		next = ColorCycle[(i+1)%len(ColorCycle)]
	}
	m.highlight.Color = next
	m.opts.Manager.SetConfig(m.highlight.Annotation())
	m.refresh()

	if m.opts.ConfigPath != "" {
		if err := config.SaveHighlight(m.opts.ConfigPath, m.highlight); err != nil {
			log.ErrorErr(log.CatUI, "Saving highlight color failed", err, "path", m.opts.ConfigPath)
			return m.toast(fmt.Sprintf("color %s not saved: %v", next, err), toaster.StyleError)
		}
	}
	return m.toast("highlight color: "+next, toaster.StyleInfo)
}

func (m Model) writeCmd() tea.Cmd {
	path := m.opts.Doc.Path()
	text := m.opts.Doc.Text()
	return func() tea.Msg {
		if path == "" {
			return writeDoneMsg{err: fmt.Errorf("document has no file")}
		}
		info, err := os.Stat(path)
		mode := os.FileMode(0o644)
		if err == nil {
			mode = info.Mode().Perm()
		}
		return writeDoneMsg{path: path, err: os.WriteFile(path, []byte(text), mode)}
	}
}

func (m Model) toast(message string, style toaster.Style) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(message, style, toaster.DefaultDuration)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderText())
}

// renderText paints the document with its live highlights.
func (m Model) renderText() string {
	text := m.opts.Doc.Text()
	spans := m.opts.Highlights.For(m.opts.Doc.URI())
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	var sb strings.Builder
	cursor := 0
	for _, s := range spans {
		start := min(max(s.Range.Start, cursor), len(runes))
		end := min(max(s.Range.End, start), len(runes))
		sb.WriteString(string(runes[cursor:start]))
		sb.WriteString(styles.Highlight(s.Color).Render(string(runes[start:end])))
		cursor = end
	}
	sb.WriteString(string(runes[cursor:]))
	return sb.String()
}

func (m Model) header() string {
	title := styles.TitleStyle.Render(m.opts.Doc.Path())
	if m.opts.Doc.Path() == "" {
		title = styles.TitleStyle.Render(m.opts.Doc.URI())
	}
	meta := styles.MutedStyle.Render(fmt.Sprintf(" %s · %s", m.opts.Doc.LanguageID(), m.highlight.Color))
	line := title + meta
	if m.status != "" {
		line += "  " + styles.StatusStyle.Render(m.status)
	}
	return styles.HeaderStyle.Width(max(m.width, 1)).Render(line)
}

func (m Model) footer() string {
	helpView := m.help.View(m.keys)
	if m.logs == nil {
		return helpView
	}
	line := styles.MutedStyle.Render(ansi.Truncate(m.lastLog, max(m.width, 1), "…"))
	return lipgloss.JoinVertical(lipgloss.Left, line, helpView)
}

func (m Model) chromeHeight() int {
	return lipgloss.Height(m.header()) + lipgloss.Height(m.footer())
}

func (m Model) View() string {
	if !m.ready {
		return m.renderText()
	}
	view := lipgloss.JoinVertical(lipgloss.Left, m.header(), m.viewport.View(), m.footer())
	return m.toaster.Overlay(view, m.width, m.height)
}

// Close ends the preview's subscriptions.
func (m *Model) Close() {
	m.cancel()
}
