package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/model"
	"github.com/conjureai/conjure/backend/project"
	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
)

// completionPhrases are the substrings that let a no-tool-call turn count
// as a finished task once the loop is past its opening iterations.
var completionPhrases = []string{
	"task complete",
	"task is complete",
	"task has been completed",
	"all done",
	"implementation is complete",
	"i have completed",
	"i've completed",
	"everything is done",
	"changes are complete",
}

func hasCompletionPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Run executes one agent task to termination. The returned result is a
// pure value; the journal session is ended on every exit path.
func (a *Agent) Run(ctx context.Context, prompt string, pc *project.Context) *AgentResult {
	result := &AgentResult{}

	root := ""
	if pc != nil {
		root = pc.Root
	}
	session := a.journal.Begin(prompt, root)
	defer func() {
		if err := session.End(); err != nil {
			a.logger.Warn("failed to persist session", "error", err)
		}
	}()

	system := systemPrompt(pc)
	opening := a.planOpening(ctx, prompt)
	messages := []model.Message{model.UserMessage(opening)}

	start := time.Now()
	emptyTurns := 0

	for iter := 1; iter <= a.cfg.MaxIterations; iter++ {
		result.Iterations = iter

		if err := ctx.Err(); err != nil {
			result.Aborted = true
			result.Error = "Run canceled"
			return result
		}
		if a.cfg.MaxDuration > 0 && time.Since(start) >= a.cfg.MaxDuration {
			result.Error = fmt.Sprintf("Exceeded maximum duration of %s", a.cfg.MaxDuration)
			return result
		}

		a.notifyIteration(iter)

		resp, err := a.client.Chat(ctx, messages, system, model.ChatOptions{OnChunk: a.callbacks.OnThinking})
		if err != nil {
			return a.chatFailure(result, err)
		}

		messages = append(messages, model.AssistantMessage(resp.Content, resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			emptyTurns++
			if iter < 3 {
				// Early empty turns are premature, never a completion.
				messages = append(messages, model.UserMessage(prematureStopNudge()))
				continue
			}
			if hasCompletionPhrase(resp.Content) || emptyTurns >= 2 {
				result.Success = true
				result.FinalResponse = resp.Content
				a.postVerify(ctx, &messages, system, session, result)
				return result
			}
			messages = append(messages, model.UserMessage(
				"If the task is finished, say so explicitly. Otherwise continue working with tools."))
			continue
		}

		emptyTurns = 0
		for _, call := range resp.ToolCalls {
			toolResult := a.runCall(ctx, call, session, result)
			messages = append(messages, model.ToolResultMessage(call.ID, call.Tool, resultText(toolResult)))
		}
		messages = append(messages, model.UserMessage(iterationNudge(iter)))
	}

	result.Error = fmt.Sprintf("Reached the iteration limit (%d) without a final response", a.cfg.MaxIterations)
	return result
}

// planOpening folds an optional task breakdown into the opening turn.
func (a *Agent) planOpening(ctx context.Context, prompt string) string {
	if !a.cfg.Planning || a.planner == nil {
		return prompt
	}
	if len(strings.Fields(prompt)) <= 5 {
		return prompt
	}
	plan, err := a.planner.Plan(ctx, prompt)
	if err != nil {
		a.logger.Warn("planning failed, continuing without a plan", "error", err)
		return prompt
	}
	if len(plan) <= 1 {
		return prompt
	}
	if a.callbacks.OnTaskPlan != nil {
		a.callbacks.OnTaskPlan(plan)
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nSuggested breakdown:\n")
	for i, step := range plan {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	return sb.String()
}

// runCall executes one tool call, maintaining the action log around it. The
// entry is appended before execution and backfilled with the outcome.
func (a *Agent) runCall(ctx context.Context, call toolcall.ToolCall, session *history.Session, result *AgentResult) tool.Result {
	if a.callbacks.OnToolCall != nil {
		a.callbacks.OnToolCall(call)
	}

	result.Actions = append(result.Actions, ActionLog{
		Type:      actionType(call.Tool),
		Target:    actionTarget(call),
		Result:    "in progress",
		Timestamp: time.Now(),
	})
	entry := &result.Actions[len(result.Actions)-1]

	var toolResult tool.Result
	if a.cfg.DryRun {
		toolResult = tool.DryRunResult(call)
	} else {
		toolResult = a.executor.Execute(ctx, call, session)
	}

	if toolResult.Success {
		entry.Result = "success"
		entry.Details = firstLine(toolResult.Output)
	} else {
		entry.Result = "error"
		entry.Details = toolResult.Error
	}

	if a.callbacks.OnToolResult != nil {
		a.callbacks.OnToolResult(toolResult, call)
	}
	return toolResult
}

// chatFailure maps a chat error onto the termination taxonomy: cancellation
// aborts, everything else ends the run with an error.
func (a *Agent) chatFailure(result *AgentResult, err error) *AgentResult {
	if errors.Is(err, context.Canceled) {
		result.Aborted = true
		result.Error = "Run canceled"
		return result
	}
	var pe *model.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case model.ProviderErrorKindCanceled:
			result.Aborted = true
			result.Error = "Run canceled"
			return result
		case model.ProviderErrorKindTimeout:
			result.Error = fmt.Sprintf("Exceeded maximum duration waiting for the model: %s", pe.Message())
			return result
		}
	}
	result.Error = fmt.Sprintf("Chat request failed: %s", err)
	return result
}

func (a *Agent) notifyIteration(iter int) {
	if a.callbacks.OnIteration == nil {
		return
	}
	label := "working"
	if iter >= 5 {
		label = "wrapping up"
	}
	a.callbacks.OnIteration(iter, label)
}

// resultText renders a tool result for the model's next turn.
func resultText(r tool.Result) string {
	if r.Success {
		return r.Output
	}
	return "Error: " + r.Error
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
