package pulse

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the CLI
// automatically matches any color scheme. A negative index means no color.
type Theme struct {
	UserMsg  int // "You" prompt accent
	ToolUsed int // tools-used footer under an answer
	Error    int // Error messages
	Success  int // Success indicators
	Muted    int // Status bar, placeholders, secondary fields
	Accent   int // Headings, links, section titles
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:  6,
		ToolUsed: 3,
		Error:    1,
		Success:  2,
		Muted:    8,
		Accent:   4,
	}
}
