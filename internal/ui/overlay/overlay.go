// Package overlay draws one block of rendered text on top of another without
// disturbing the styling of either.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position is where the foreground lands.
type Position int

const (
	Center Position = iota
	Bottom
	BottomRight
	TopRight
)

// Config describes the viewport and the placement.
type Config struct {
	Width    int
	Height   int
	Position Position
	// MarginX and MarginY keep the foreground off the edges it is anchored to.
	MarginX int
	MarginY int
}

// Place draws fg over bg. The background is padded to cfg.Height lines.
func Place(cfg Config, fg, bg string) string {
	rows := strings.Split(bg, "\n")
	for len(rows) < cfg.Height {
		rows = append(rows, strings.Repeat(" ", cfg.Width))
	}

	fgRows := strings.Split(fg, "\n")
	x, y := origin(cfg, lipgloss.Width(fg), len(fgRows))

	for i, row := range fgRows {
		at := y + i
		if at >= len(rows) {
			break
		}
		rows[at] = splice(rows[at], row, x)
	}
	return strings.Join(rows, "\n")
}

// splice replaces the cells of line starting at column x with row.
func splice(line, row string, x int) string {
	left := ansi.Truncate(line, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}

	end := x + ansi.StringWidth(row)
	right := ""
	if end < ansi.StringWidth(line) {
		right = ansi.TruncateLeft(line, end, "")
	}
	return left + row + right
}

func origin(cfg Config, w, h int) (x, y int) {
	switch cfg.Position {
	case Bottom:
		x = (cfg.Width - w) / 2
		y = cfg.Height - h - cfg.MarginY
	case BottomRight:
		x = cfg.Width - w - cfg.MarginX
		y = cfg.Height - h - cfg.MarginY
	case TopRight:
		x = cfg.Width - w - cfg.MarginX
		y = cfg.MarginY
	default:
		x = (cfg.Width - w) / 2
		y = (cfg.Height - h) / 2
	}
	return max(x, 0), max(y, 0)
}
