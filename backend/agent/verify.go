package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/model"
	"github.com/conjureai/conjure/backend/toolcall"
)

// CheckResult is the outcome of one verification command.
type CheckResult struct {
	Command string
	Passed  bool
	Output  string
}

// postVerify runs the configured checks after a completed run and feeds
// failures back for up to MaxFixAttempts correction turns. Verification
// never turns a completed run into a failed one.
func (a *Agent) postVerify(ctx context.Context, messages *[]model.Message, system string, session *history.Session, result *AgentResult) {
	if !a.cfg.AutoVerify || a.cfg.DryRun {
		return
	}
	if !session.HasMutations() {
		return
	}
	commands := a.cfg.VerifyCommands
	if len(commands) == 0 {
		return
	}

	// Every fix turn is followed by a re-check, so the final attempt's
	// repairs still count.
	failed := a.checkOnce(ctx, commands, session, result)
	if len(failed) == 0 {
		result.FinalResponse += "\n\nVerification passed: all checks succeeded."
		return
	}

	for attempt := 1; attempt <= a.cfg.MaxFixAttempts; attempt++ {
		if ctx.Err() != nil {
			result.FinalResponse += "\n\nVerification interrupted before the checks passed."
			return
		}

		a.logger.Info("verification failed, requesting fixes",
			"attempt", attempt, "failed_checks", len(failed))

		*messages = append(*messages, model.UserMessage(formatFailures(failed)))
		resp, err := a.client.Chat(ctx, *messages, system, model.ChatOptions{OnChunk: a.callbacks.OnThinking})
		if err != nil {
			result.FinalResponse += fmt.Sprintf("\n\nVerification stopped: fix turn failed (%s).", err)
			return
		}
		*messages = append(*messages, model.AssistantMessage(resp.Content, resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			toolResult := a.runCall(ctx, call, session, result)
			*messages = append(*messages, model.ToolResultMessage(call.ID, call.Tool, resultText(toolResult)))
		}

		failed = a.checkOnce(ctx, commands, session, result)
		if len(failed) == 0 {
			result.FinalResponse += "\n\nVerification passed: all checks succeeded."
			return
		}
	}

	result.FinalResponse += fmt.Sprintf(
		"\n\nVerification did not pass after %d fix attempts. The changes made so far are kept; the remaining failures need manual attention.",
		a.cfg.MaxFixAttempts)
}

// checkOnce runs one full round of checks, notifies the callback, and
// returns only the failures.
func (a *Agent) checkOnce(ctx context.Context, commands []string, session *history.Session, result *AgentResult) []CheckResult {
	checks := a.runChecks(ctx, commands, session, result)
	if a.callbacks.OnVerification != nil {
		a.callbacks.OnVerification(checks)
	}
	return failedChecks(checks)
}

// runChecks executes each verification command through the sandboxed
// executor so it is logged and timeout-capped like any other command.
func (a *Agent) runChecks(ctx context.Context, commands []string, session *history.Session, result *AgentResult) []CheckResult {
	checks := make([]CheckResult, 0, len(commands))
	for _, cmd := range commands {
		call := toolcall.ToolCall{
			Tool:       "execute_command",
			Parameters: map[string]any{"command": cmd},
		}
		toolResult := a.runCall(ctx, call, session, result)
		output := toolResult.Output
		if !toolResult.Success {
			output = toolResult.Error
		}
		checks = append(checks, CheckResult{Command: cmd, Passed: toolResult.Success, Output: output})
	}
	return checks
}

func failedChecks(checks []CheckResult) []CheckResult {
	var failed []CheckResult
	for _, c := range checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

func formatFailures(failed []CheckResult) string {
	var sb strings.Builder
	sb.WriteString("Verification checks failed. Fix the following and keep the rest of your changes intact:\n")
	for _, c := range failed {
		fmt.Fprintf(&sb, "\n$ %s\n%s\n", c.Command, strings.TrimSpace(c.Output))
	}
	return sb.String()
}
