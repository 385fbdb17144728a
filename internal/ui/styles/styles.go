// Package styles holds the Lip Gloss styles of the preview.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	TextPrimaryColor = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#CCCCCC"}
	TextMutedColor   = lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#696969"}
	BorderColor      = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#696969"}

	NoticeInfoColor    = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#54AEFF"}
	NoticeSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	NoticeErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// HighlightTextColor is drawn on top of the highlight background.
	HighlightTextColor = lipgloss.Color("#111111")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	MutedStyle  = lipgloss.NewStyle().Foreground(TextMutedColor)
	StatusStyle = lipgloss.NewStyle().Foreground(TextMutedColor).Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(BorderColor)
)

// Highlight returns the style of a moved token drawn in color.
func Highlight(color string) lipgloss.Style {
	return lipgloss.NewStyle().Background(lipgloss.Color(color)).Foreground(HighlightTextColor)
}
