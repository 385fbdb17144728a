// Package toaster shows transient notices in the corner of the preview.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/classwind/internal/ui/overlay"
	"github.com/zjrosen/classwind/internal/ui/styles"
)

// Style selects the border color and icon of a toast.
type Style int

const (
	StyleInfo Style = iota
	StyleSuccess
	StyleError
)

// DefaultDuration is how long a toast stays up.
const DefaultDuration = 3 * time.Second

// Model is the toast state. Only the newest toast is shown.
type Model struct {
	message string
	style   Style
	// seq identifies the toast a DismissMsg belongs to.
	seq int
}

func New() Model {
	return Model{}
}

// Show replaces the current toast and returns the command that dismisses it
// after d.
func (m Model) Show(message string, style Style, d time.Duration) (Model, tea.Cmd) {
	m.message = message
	m.style = style
	m.seq++
	seq := m.seq
	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{seq: seq} })
}

// Update hides the toast when its dismiss message arrives. Dismissals of
// toasts that were already replaced are ignored.
func (m Model) Update(msg DismissMsg) Model {
	if msg.seq == m.seq {
		m.message = ""
	}
	return m
}

func (m Model) Visible() bool {
	return m.message != ""
}

// Message returns the text of the visible toast.
func (m Model) Message() string {
	return m.message
}

func (m Model) View() string {
	if !m.Visible() {
		return ""
	}

	box := lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	switch m.style {
	case StyleError:
		return box.BorderForeground(styles.NoticeErrorColor).Render("✗ " + m.message)
	case StyleSuccess:
		return box.BorderForeground(styles.NoticeSuccessColor).Render("✓ " + m.message)
	default:
		return box.BorderForeground(styles.NoticeInfoColor).Render("i " + m.message)
	}
}

// Overlay draws the toast in the bottom-right corner of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.Visible() {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.BottomRight,
		MarginX:  1,
		MarginY:  1,
	}, m.View(), bg)
}

// DismissMsg hides the toast it was scheduled for.
type DismissMsg struct {
	seq int
}
