package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/conjureai/conjure/backend/model"
)

// ChatPlanner asks the model for a numbered breakdown of the task before
// the main loop starts. Any parsing trouble yields an empty plan rather
// than an error the loop would have to care about.
type ChatPlanner struct {
	client ChatClient
}

func NewChatPlanner(client ChatClient) *ChatPlanner {
	return &ChatPlanner{client: client}
}

const planPrompt = `Break the following task into a short numbered list of concrete subtasks, at most 6. Reply with the numbered list only, no preamble.

Task: %s`

var planLineRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

func (p *ChatPlanner) Plan(ctx context.Context, task string) ([]string, error) {
	messages := []model.Message{model.UserMessage(strings.Replace(planPrompt, "%s", task, 1))}
	resp, err := p.client.Chat(ctx, messages, "", model.ChatOptions{DisableTools: true})
	if err != nil {
		return nil, err
	}

	var plan []string
	for _, line := range strings.Split(resp.Content, "\n") {
		if m := planLineRe.FindStringSubmatch(line); m != nil {
			plan = append(plan, strings.TrimSpace(m[1]))
		}
	}
	return plan, nil
}
