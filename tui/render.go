package tui

import (
	"QuestionnaireBot/view"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	botStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("27")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	choiceStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle = choiceStyle.BorderForeground(lipgloss.Color("27")).Bold(true)
	headingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).PaddingLeft(2)
)

const typingIndicator = "• • •"

func (m Model) View() string {
	switch m.screen.Kind {
	case view.ScreenLoading:
		return titleStyle.Render(m.screen.Message) + "\n"
	case view.ScreenError:
		return errorStyle.Render(m.screen.Title) + "\n\n" + m.screen.Message + "\n\n" + dimStyle.Render("q to quit") + "\n"
	case view.ScreenSummary:
		return m.summaryView()
	default:
		return m.chatView()
	}
}

func (m Model) chatView() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	bubbleWidth := width * 3 / 4

	var lines []string
	for _, b := range m.screen.Transcript {
		if b.FromBot {
			lines = append(lines, botStyle.MaxWidth(bubbleWidth).Render(b.Text))
		} else {
			lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, userStyle.MaxWidth(bubbleWidth).Render(b.Text)))
		}
	}
	if m.screen.Typing {
		lines = append(lines, dimStyle.Render(typingIndicator))
	}

	footer := m.footerView()
	transcript := strings.Join(lines, "\n")
	if m.height > 0 {
		transcript = tail(transcript, m.height-lipgloss.Height(footer)-3)
	}

	return titleStyle.Render(m.screen.Title) + "\n\n" + transcript + "\n\n" + footer
}

func (m Model) footerView() string {
	switch in := m.screen.Input.(type) {
	case view.TextInput:
		return m.input.View() + "\n" + dimStyle.Render("enter to send • esc to quit")
	case view.ChoiceInput:
		buttons := make([]string, 0, len(in.Choices))
		for i, c := range in.Choices {
			style := choiceStyle
			if i == m.cursor {
				style = selectedStyle
			}
			buttons = append(buttons, style.Render(c.Label))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, buttons...) + "\n" +
			dimStyle.Render("←/→ to move • enter to choose • esc to quit")
	default:
		return dimStyle.Render(m.screen.Placeholder)
	}
}

func (m Model) summaryView() string {
	s := m.screen.Summary
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(s.Subtitle))
	b.WriteString("\n")
	for _, item := range s.Items {
		b.WriteString("\n")
		b.WriteString(headingStyle.Render(item.Heading))
		b.WriteString("\n")
		b.WriteString(item.Question)
		b.WriteString("\n")
		b.WriteString(answerStyle.Render(item.Answer))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(selectedStyle.Render(s.RestartLabel))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter or r to start over • q to quit"))
	b.WriteString("\n")
	return b.String()
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
