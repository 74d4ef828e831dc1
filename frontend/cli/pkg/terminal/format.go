package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	iterationStyle = lipgloss.NewStyle().Bold(true)

	actionSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			SetString("▶")

	successSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			SetString("✔")

	failureSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			SetString("✗")
)

func Iteration(n int, label string) string {
	return iterationStyle.Render(fmt.Sprintf("[iteration %d] %s", n, label))
}

func Action(text string) string {
	return actionSymbol.String() + " " + text
}

func Success(text string) string {
	return successSymbol.String() + " " + text
}

func Failure(text string) string {
	return failureSymbol.String() + " " + text
}

// Markdown renders assistant output for the terminal. The raw text comes
// back unchanged when rendering fails, never an error.
func Markdown(content string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		// a fixed style avoids OSC background queries on startup
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
