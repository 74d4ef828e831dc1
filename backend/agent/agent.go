package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/model"
	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
)

// ChatClient is the model surface the orchestrator drives.
type ChatClient interface {
	Chat(ctx context.Context, messages []model.Message, system string, opts model.ChatOptions) (*model.ChatResponse, error)
}

// ToolExecutor runs one tool call against the project.
type ToolExecutor interface {
	Execute(ctx context.Context, call toolcall.ToolCall, session *history.Session) tool.Result
}

// Planner breaks a task into subtasks before the loop starts.
type Planner interface {
	Plan(ctx context.Context, task string) ([]string, error)
}

// Callbacks are pure notification hooks. The loop never depends on what a
// callback does, and every field may be nil.
type Callbacks struct {
	OnIteration    func(n int, label string)
	OnToolCall     func(call toolcall.ToolCall)
	OnToolResult   func(result tool.Result, call toolcall.ToolCall)
	OnThinking     func(chunk string)
	OnVerification func(results []CheckResult)
	OnTaskPlan     func(plan []string)
}

// ActionLog is the display projection of one executed tool call.
type ActionLog struct {
	Type      string    `json:"type"`
	Target    string    `json:"target"`
	Result    string    `json:"result"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentResult is the terminal record of one run.
type AgentResult struct {
	Success       bool
	Iterations    int
	Actions       []ActionLog
	FinalResponse string
	Error         string
	Aborted       bool
}

// Agent drives the iteration loop for one run at a time.
type Agent struct {
	cfg       config.Config
	client    ChatClient
	executor  ToolExecutor
	journal   *history.Journal
	planner   Planner
	callbacks Callbacks
	logger    *slog.Logger
}

type Option func(*Agent)

func WithPlanner(p Planner) Option {
	return func(a *Agent) { a.planner = p }
}

func WithCallbacks(cb Callbacks) Option {
	return func(a *Agent) { a.callbacks = cb }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

func New(cfg config.Config, client ChatClient, executor ToolExecutor, journal *history.Journal, opts ...Option) *Agent {
	a := &Agent{
		cfg:      cfg,
		client:   client,
		executor: executor,
		journal:  journal,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// actionType maps a canonical tool name onto the display taxonomy.
func actionType(toolName string) string {
	switch toolName {
	case "read_file", "describe_image":
		return "read"
	case "write_file":
		return "write"
	case "edit_file":
		return "edit"
	case "delete_file", "delete_directory":
		return "delete"
	case "execute_command":
		return "command"
	case "search_text", "search_files", "web_search":
		return "search"
	case "list_files":
		return "list"
	case "create_directory":
		return "mkdir"
	case "fetch_url", "web_read", "read_repository":
		return "fetch"
	default:
		return toolName
	}
}

// actionTarget picks the parameter worth showing for a call.
func actionTarget(call toolcall.ToolCall) string {
	for _, key := range []string{"path", "command", "query", "pattern", "url", "repository"} {
		if v, ok := call.Parameters[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
