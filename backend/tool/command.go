package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

// blockedCommandRe rejects the handful of commands no coding task needs.
// This is an allow-by-default filter, not a security boundary: arbitrary
// shell execution is a documented capability of the agent.
var blockedCommandRe = regexp.MustCompile(`(?i)^\s*(sudo|su)\b|rm\s+(-[a-z]*\s+)*/(\s|$)|mkfs|shutdown|reboot|:\(\)\s*\{.*\};:`)

func (e *Executor) executeCommand(ctx context.Context, call toolcall.ToolCall, session *history.Session, input ExecuteCommandInput) Result {
	command := strings.TrimSpace(input.Command)
	if command == "" {
		return errorResult(call, "command is required")
	}
	if blockedCommandRe.MatchString(command) {
		return errorResult(call, fmt.Sprintf("command %s is blocked", shellescape.Quote(command)))
	}

	session.RecordCommand(command, nil)

	cmdCtx, cancel := context.WithTimeout(ctx, e.options.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = e.root

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	text := output.String()

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return errorResult(call, fmt.Sprintf("command timed out after %s\n%s", e.options.CommandTimeout, tail(text, 2000)))
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return errorResult(call, fmt.Sprintf("command exited with code %d\n%s", exitCode, tail(text, 4000)))
	}

	if text == "" {
		text = "(no output)"
	}
	return successResult(call, tail(text, 8000))
}

// tail keeps the last max bytes of s, where the interesting part of long
// command output usually lives.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "...(truncated)...\n" + s[len(s)-max:]
}
