package agent

import (
	"fmt"
	"strings"

	"github.com/conjureai/conjure/backend/project"
)

// systemPrompt assembles the run's system message from the project context.
// Tool affordances are appended by the chat client per wire protocol.
func systemPrompt(pc *project.Context) string {
	var sb strings.Builder
	sb.WriteString(`You are a coding agent working inside a single project directory. You make changes by calling tools, one small step at a time, and you verify your own work.

Rules:
- All paths are relative to the project root. Never try to read or write outside it.
- Before editing a file, read it. edit_file requires the search text to match exactly one location; include enough surrounding lines to make it unique.
- Prefer small, focused changes over large rewrites.
- When the task is done, say so plainly and summarize what changed.`)

	if pc == nil {
		return sb.String()
	}

	sb.WriteString("\n\nProject context:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", pc.Name)
	fmt.Fprintf(&sb, "- Type: %s\n", pc.Type)
	fmt.Fprintf(&sb, "- Root: %s\n", pc.Root)
	if len(pc.KeyFiles) > 0 {
		fmt.Fprintf(&sb, "- Key files: %s\n", strings.Join(pc.KeyFiles, ", "))
	}
	if pc.Structure != "" {
		sb.WriteString("\nDirectory structure:\n")
		sb.WriteString(pc.Structure)
	}
	return sb.String()
}

// iterationNudge frames the continuation turn. Early iterations push the
// model to keep working; from iteration 5 on it may wrap up.
func iterationNudge(iter int) string {
	if iter < 5 {
		return "Continue with the task. Call the next tool you need, or keep making progress step by step."
	}
	return "Continue with the task. If everything is done, stop calling tools and summarize what you changed."
}

// prematureStopNudge answers a no-tool-call turn that arrived too early to
// be a real completion.
func prematureStopNudge() string {
	return "You have not called any tools yet. Use the available tools to inspect the project and carry out the task. Do not stop until the work is actually done."
}
