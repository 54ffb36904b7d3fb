package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fwojciec/pulse"
	bt "github.com/fwojciec/pulse/bubbletea"
	"github.com/fwojciec/pulse/goldmark"
	pulsehttp "github.com/fwojciec/pulse/http"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

const (
	dateLayout = "2006-01-02"
	labelWidth = 16
	// Cap on rows printed per section; the server already limits results.
	maxRows = 10
)

// renderAnswer renders a successful chat answer as styled markdown with a
// tools footer.
func renderAnswer(ans pulse.ChatAnswer, width int, theme pulse.Theme) string {
	s := bt.NewStyles(theme)
	var b strings.Builder
	b.WriteString(goldmark.Render(ans.Response, width, theme))
	b.WriteString("\n")
	if len(ans.ToolsUsed) > 0 {
		b.WriteString(s.ToolUsed.Render("tools: "+strings.Join(ans.ToolsUsed, ", ")) + "\n")
	}
	return b.String()
}

func renderConnection(resp *pulsehttp.ConnectionResponse, theme pulse.Theme) string {
	s := bt.NewStyles(theme)
	var b strings.Builder
	b.WriteString(s.Success.Render("✓ "+resp.Message) + "\n")
	if u := resp.User; u != nil {
		field(&b, s, "Name", u.DisplayName)
		field(&b, s, "Login", u.Login)
		field(&b, s, "Email", u.Email)
		field(&b, s, "Account ID", u.ID)
		if u.PublicRepos > 0 {
			field(&b, s, "Public repos", fmt.Sprint(u.PublicRepos))
		}
	}
	return b.String()
}

func renderIssueActivity(act *pulse.IssueActivity, width int, theme pulse.Theme) string {
	s := bt.NewStyles(theme)
	var b strings.Builder

	name := act.User.DisplayName
	if name == "" {
		name = act.User.Username
	}
	b.WriteString(s.Accent.Render("JIRA activity for "+name) + "\n")
	field(&b, s, "Assigned issues", fmt.Sprint(act.Summary.TotalAssignedIssues))
	field(&b, s, "Recent updates", fmt.Sprint(act.Summary.RecentActivityCount))
	if len(act.Summary.StatusBreakdown) > 0 {
		field(&b, s, "By status", breakdown(act.Summary.StatusBreakdown))
	}
	if act.Message != "" {
		b.WriteString(s.Muted.Render(act.Message) + "\n")
	}

	if len(act.CurrentIssues) > 0 {
		rows := make([][]string, 0, len(act.CurrentIssues))
		for _, is := range limit(act.CurrentIssues) {
			rows = append(rows, []string{is.Key, is.Status, is.Priority, date(is.Updated), is.Summary})
		}
		section(&b, s, "Current issues")
		b.WriteString(activityTable(s, width, []string{"Key", "Status", "Priority", "Updated", "Summary"}, rows) + "\n")
	}
	if len(act.RecentActivity) > 0 {
		rows := make([][]string, 0, len(act.RecentActivity))
		for _, u := range limit(act.RecentActivity) {
			rows = append(rows, []string{u.Key, u.Status, date(u.Updated), u.Summary})
		}
		section(&b, s, "Recently updated")
		b.WriteString(activityTable(s, width, []string{"Key", "Status", "Updated", "Summary"}, rows) + "\n")
	}
	return b.String()
}

func renderRepoActivity(act *pulse.RepoActivity, width int, theme pulse.Theme) string {
	s := bt.NewStyles(theme)
	var b strings.Builder

	title := act.User.Username
	if act.User.Name != "" {
		title = act.User.Name + " (" + act.User.Username + ")"
	}
	b.WriteString(s.Accent.Render("GitHub activity for "+title) + "\n")
	if act.User.Company != "" {
		field(&b, s, "Company", act.User.Company)
	}
	field(&b, s, "Repositories", fmt.Sprint(act.Summary.TotalRepositories))
	field(&b, s, "Commits (7d)", fmt.Sprintf("%d of %d", act.Summary.RecentCommits, act.Summary.TotalCommits))
	field(&b, s, "PRs (7d)", fmt.Sprintf("%d of %d", act.Summary.RecentPRs, act.Summary.TotalPullRequests))

	if len(act.RecentCommits) > 0 {
		rows := make([][]string, 0, len(act.RecentCommits))
		for _, c := range limit(act.RecentCommits) {
			rows = append(rows, []string{shortSHA(c.SHA), c.Repository, date(c.Date), firstLine(c.Message)})
		}
		section(&b, s, "Recent commits")
		b.WriteString(activityTable(s, width, []string{"SHA", "Repository", "Date", "Message"}, rows) + "\n")
	}
	if len(act.PullRequests) > 0 {
		rows := make([][]string, 0, len(act.PullRequests))
		for _, pr := range limit(act.PullRequests) {
			rows = append(rows, []string{fmt.Sprintf("#%d", pr.Number), pr.State, pr.Repository, pr.Title})
		}
		section(&b, s, "Pull requests")
		b.WriteString(activityTable(s, width, []string{"PR", "State", "Repository", "Title"}, rows) + "\n")
	}
	if len(act.Repositories) > 0 {
		rows := make([][]string, 0, len(act.Repositories))
		for _, r := range limit(act.Repositories) {
			rows = append(rows, []string{r.Name, r.Language, date(r.UpdatedAt), r.Description})
		}
		section(&b, s, "Repositories")
		b.WriteString(activityTable(s, width, []string{"Name", "Language", "Updated", "Description"}, rows) + "\n")
	}
	return b.String()
}

// activityTable renders rows with the last column truncated so the table
// fits width.
func activityTable(s bt.Styles, width int, headers []string, rows [][]string) string {
	if width <= 0 {
		width = goldmark.DefaultWidth
	}
	// Borders and padding take three columns per cell plus one.
	fixed := 3*len(headers) + 1
	for col := 0; col < len(headers)-1; col++ {
		w := runewidth.StringWidth(headers[col])
		for _, r := range rows {
			w = max(w, runewidth.StringWidth(r[col]))
		}
		fixed += w
	}
	last := max(width-fixed, 10)
	for _, r := range rows {
		r[len(r)-1] = truncate(r[len(r)-1], last)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return st.Bold(true)
			}
			return st
		}).
		Render()
}

func section(b *strings.Builder, s bt.Styles, title string) {
	b.WriteString("\n" + s.Accent.Render(title) + "\n")
}

func field(b *strings.Builder, s bt.Styles, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(s.Muted.Render(runewidth.FillRight(label+":", labelWidth)) + value + "\n")
}

// truncate shortens text to at most width display columns, cutting on
// grapheme cluster boundaries and marking the cut with an ellipsis.
func truncate(text string, width int) string {
	if uniseg.StringWidth(text) <= width {
		return text
	}
	if width <= 1 {
		return "…"
	}
	var b strings.Builder
	used := 0
	state := -1
	rest := text
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > width-1 {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	return b.String() + "…"
}

func breakdown(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

func limit[T any](items []T) []T {
	if len(items) > maxRows {
		return items[:maxRows]
	}
	return items
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
