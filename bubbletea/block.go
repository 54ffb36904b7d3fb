package bubbletea

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/goldmark"
)

// MessageBlock is a renderable element in the conversation. View takes a
// width so the root model controls layout and blocks are testable in
// isolation.
type MessageBlock interface {
	View(width int) string
}

var (
	_ MessageBlock = (*UserMessageBlock)(nil)
	_ MessageBlock = (*AnswerBlock)(nil)
	_ MessageBlock = (*ErrorBlock)(nil)
)

// UserMessageBlock renders a question with a "> " prefix.
type UserMessageBlock struct {
	text   string
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(text string, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: text, styles: styles}
}

func (b *UserMessageBlock) View(width int) string {
	content := b.styles.UserMsg.Render("> ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}

// AnswerBlock renders an answer as markdown followed by the tools that
// produced it. Rendered markdown is cached per width.
type AnswerBlock struct {
	answer  pulse.ChatAnswer
	theme   pulse.Theme
	styles  Styles
	byWidth map[int]string
}

// NewAnswerBlock creates an AnswerBlock.
func NewAnswerBlock(answer pulse.ChatAnswer, theme pulse.Theme, styles Styles) *AnswerBlock {
	return &AnswerBlock{
		answer:  answer,
		theme:   theme,
		styles:  styles,
		byWidth: make(map[int]string),
	}
}

func (b *AnswerBlock) View(width int) string {
	body, ok := b.byWidth[width]
	if !ok {
		body = goldmark.Render(b.answer.Response, width, b.theme)
		b.byWidth[width] = body
	}
	if len(b.answer.ToolsUsed) == 0 {
		return body
	}
	footer := b.styles.Muted.Render("tools: ") + b.styles.ToolUsed.Render(strings.Join(b.answer.ToolsUsed, ", "))
	return body + "\n" + footer
}

// ErrorBlock renders a failed question.
type ErrorBlock struct {
	msg    string
	styles Styles
}

// NewErrorBlock creates an ErrorBlock for a transport failure.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{msg: err.Error(), styles: styles}
}

// NewFailedAnswerBlock creates an ErrorBlock for an unsuccessful answer.
func NewFailedAnswerBlock(answer pulse.ChatAnswer, styles Styles) *ErrorBlock {
	msg := answer.Error
	if answer.ErrorKind != "" {
		msg = fmt.Sprintf("%s (%s)", answer.Error, answer.ErrorKind)
	}
	return &ErrorBlock{msg: msg, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("Error: " + b.msg)
	return lipgloss.NewStyle().Width(width).Render(content)
}
