// Package goldmark renders chat answers, which models write in markdown, as
// ANSI-styled terminal text. Parsing uses goldmark with the GFM extensions
// and styling uses lipgloss.
package goldmark

import "github.com/fwojciec/pulse"

// DefaultWidth is used when the caller passes a non-positive width.
const DefaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width, tables are fitted to
// it and code blocks are left unwrapped. Issue keys such as PROJ-123 are
// highlighted with the theme accent.
func Render(source string, width int, theme pulse.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return newRenderer(theme).render([]byte(source), width)
}
