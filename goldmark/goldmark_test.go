package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/goldmark"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force ANSI output so styled elements carry escape codes.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := pulse.DefaultTheme()

	t.Run("empty input returns empty string", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", goldmark.Render("", 80, theme))
	})

	t.Run("plain paragraph", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("Sarah has been busy this week.", 80, theme)
		assert.Equal(t, "Sarah has been busy this week.", strings.TrimRight(stripANSI(result), " "))
	})

	t.Run("heading is styled", func(t *testing.T) {
		t.Parallel()
		heading := goldmark.Render("## Sarah Smith", 80, theme)
		paragraph := goldmark.Render("Sarah Smith", 80, theme)
		assert.Contains(t, stripANSI(heading), "Sarah Smith")
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("emphasis", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("**3 open issues** and *2 PRs* and ***both***", 80, theme)
		stripped := stripANSI(result)
		assert.Contains(t, stripped, "3 open issues")
		assert.Contains(t, stripped, "2 PRs")
		assert.Contains(t, stripped, "both")
		assert.NotContains(t, stripped, "*")
	})

	t.Run("issue keys are highlighted", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("Working on PROJ-123 and WEB2-7.", 80, theme)
		stripped := stripANSI(result)
		assert.Contains(t, stripped, "PROJ-123")
		assert.Contains(t, stripped, "WEB2-7")
		assert.Regexp(t, `\x1b\[[0-9;]*m+PROJ-123`, result)
	})

	t.Run("lowercase words with dashes are not highlighted", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("a follow-up item", 80, theme)
		assert.Equal(t, "a follow-up item", strings.TrimRight(stripANSI(result), " "))
		assert.NotContains(t, result, "\x1b[34m")
	})

	t.Run("bullet list uses bullet markers", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("- one\n- two\n- three", 80, theme))
		lines := strings.Split(result, "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "• one"))
		assert.True(t, strings.HasPrefix(lines[2], "• three"))
	})

	t.Run("ordered list respects start number", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("3. third\n4. fourth", 80, theme))
		assert.Contains(t, result, "3. third")
		assert.Contains(t, result, "4. fourth")
	})

	t.Run("nested list is indented", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("- Sarah\n  - PROJ-1\n  - PROJ-2", 80, theme))
		assert.Contains(t, result, "• Sarah")
		assert.Contains(t, result, "  • PROJ-1")
		assert.Contains(t, result, "  • PROJ-2")
	})

	t.Run("list item continuation lines are indented", func(t *testing.T) {
		t.Parallel()
		src := "- this is a very long list item that should wrap and have continuation lines properly indented"
		lines := strings.Split(stripANSI(goldmark.Render(src, 30, theme)), "\n")
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "• "))
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				assert.True(t, strings.HasPrefix(line, "  "), "continuation line should be indented: %q", line)
			}
		}
	})

	t.Run("task list", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("- [x] merged PR #42\n- [ ] review PROJ-9", 80, theme))
		assert.Contains(t, result, "[x] merged PR #42")
		assert.Contains(t, result, "[ ] review PROJ-9")
	})

	t.Run("strikethrough", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("~~blocked~~", 80, theme)
		assert.Contains(t, stripANSI(result), "blocked")
		assert.NotContains(t, stripANSI(result), "~")
	})

	t.Run("table", func(t *testing.T) {
		t.Parallel()
		src := "| Person | Open issues |\n|---|---:|\n| Sarah | 3 |\n| Mike | 12 |"
		result := stripANSI(goldmark.Render(src, 60, theme))
		assert.Contains(t, result, "Person")
		assert.Contains(t, result, "Open issues")
		assert.Contains(t, result, "Sarah")
		assert.Contains(t, result, "12")
		assert.Contains(t, result, "╭")
		for _, line := range strings.Split(result, "\n") {
			assert.LessOrEqual(t, lipgloss.Width(line), 60)
		}
	})

	t.Run("blockquote has a gutter", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("> no activity found", 80, theme))
		assert.True(t, strings.HasPrefix(result, "▎ no activity found"))
	})

	t.Run("link shows text and URL", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("[PR #42](https://github.com/acme/api/pull/42)", 80, theme))
		assert.Contains(t, result, "PR #42")
		assert.Contains(t, result, "(https://github.com/acme/api/pull/42)")
	})

	t.Run("bare URL is linkified", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("See https://example.com/board", 80, theme))
		assert.Contains(t, result, "https://example.com/board")
	})

	t.Run("fenced code block keeps content and language", func(t *testing.T) {
		t.Parallel()
		src := "```go\nfmt.Println(\"hello world\")\n```"
		result := stripANSI(goldmark.Render(src, 20, theme))
		assert.Contains(t, result, "go")
		assert.Contains(t, result, `│ fmt.Println("hello world")`)
	})

	t.Run("indented code block", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("paragraph\n\n    indented code\n    more code", 80, theme))
		assert.Contains(t, result, "│ indented code")
		assert.Contains(t, result, "│ more code")
	})

	t.Run("paragraph wraps to width", func(t *testing.T) {
		t.Parallel()
		long := "word1 word2 word3 word4 word5 word6 word7 word8 word9 word10 word11 word12"
		lines := strings.Split(stripANSI(goldmark.Render(long, 30, theme)), "\n")
		assert.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, lipgloss.Width(line), 30)
		}
	})

	t.Run("blocks are separated by blank lines", func(t *testing.T) {
		t.Parallel()
		result := stripANSI(goldmark.Render("first\n\n---\n\nsecond", 80, theme))
		lines := strings.Split(result, "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "first", strings.TrimRight(lines[0], " "))
		assert.Equal(t, "", lines[1])
		assert.Contains(t, lines[2], "─")
		assert.Equal(t, "second", strings.TrimRight(lines[4], " "))
	})

	t.Run("width zero defaults", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("hello world", 0, theme)
		assert.Contains(t, stripANSI(result), "hello world")
	})
}
