package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

// APIKeySource resolves integration credentials for the gated tools.
type APIKeySource interface {
	APIKey(providerID string) (string, error)
}

type ExecutorOptions struct {
	Fs             afero.Fs
	CommandTimeout time.Duration
	FetchTimeout   time.Duration
	FetchSizeLimit int64
	HTTPClient     *resty.Client
	Credentials    APIKeySource
}

func DefaultExecutorOptions() *ExecutorOptions {
	return &ExecutorOptions{
		Fs:             afero.NewOsFs(),
		CommandTimeout: 60 * time.Second,
		FetchTimeout:   30 * time.Second,
		FetchSizeLimit: 1 << 20,
	}
}

type ExecutorOption func(*ExecutorOptions)

func WithFs(fs afero.Fs) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Fs = fs
	}
}

func WithCommandTimeout(timeout time.Duration) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.CommandTimeout = timeout
	}
}

func WithHTTPClient(client *resty.Client) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.HTTPClient = client
	}
}

func WithCredentials(creds APIKeySource) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Credentials = creds
	}
}

// Executor performs the side effect a ToolCall requests, confined to one
// project root. Execute never propagates an error or a panic across its
// boundary: every outcome, including internal failures, becomes a Result.
type Executor struct {
	root    string
	fs      afero.Fs
	http    *resty.Client
	creds   APIKeySource
	options *ExecutorOptions
}

func NewExecutor(projectRoot string, opts ...ExecutorOption) *Executor {
	options := DefaultExecutorOptions()
	for _, opt := range opts {
		opt(options)
	}

	client := options.HTTPClient
	if client == nil {
		client = resty.New().SetTimeout(options.FetchTimeout)
	}

	return &Executor{
		root:    projectRoot,
		fs:      options.Fs,
		http:    client,
		creds:   options.Credentials,
		options: options,
	}
}

// Execute dispatches one tool call. The session receives pre-state records
// for every mutating action before the I/O happens, so a failure partway
// still leaves an undoable trail.
func (e *Executor) Execute(ctx context.Context, call toolcall.ToolCall, session *history.Session) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool execution panicked", "tool", call.Tool, "panic", r)
			result = errorResult(call, fmt.Sprintf("internal error executing %s: %v", call.Tool, r))
		}
	}()

	switch call.Tool {
	case "read_file":
		return decodeAndRun(call, session, e.readFile)
	case "write_file":
		return decodeAndRun(call, session, e.writeFile)
	case "edit_file":
		return decodeAndRun(call, session, e.editFile)
	case "delete_file":
		return decodeAndRun(call, session, e.deleteFile)
	case "delete_directory":
		return decodeAndRun(call, session, e.deleteDirectory)
	case "list_files":
		return decodeAndRun(call, session, e.listFiles)
	case "create_directory":
		return decodeAndRun(call, session, e.createDirectory)
	case "execute_command":
		return decodeAndRunCtx(ctx, call, session, e.executeCommand)
	case "search_text":
		return decodeAndRunCtx(ctx, call, session, e.searchText)
	case "search_files":
		return decodeAndRun(call, session, e.searchFiles)
	case "fetch_url":
		return decodeAndRunCtx(ctx, call, session, e.fetchURL)
	case "web_search":
		return decodeAndRunCtx(ctx, call, session, e.webSearch)
	case "web_read":
		return decodeAndRunCtx(ctx, call, session, e.webRead)
	case "read_repository":
		return decodeAndRunCtx(ctx, call, session, e.readRepository)
	case "describe_image":
		return decodeAndRunCtx(ctx, call, session, e.describeImage)
	default:
		return errorResult(call, fmt.Sprintf("unknown tool %q", call.Tool))
	}
}

type handler[T any] func(call toolcall.ToolCall, session *history.Session, input T) Result

type ctxHandler[T any] func(ctx context.Context, call toolcall.ToolCall, session *history.Session, input T) Result

// decodeAndRun round-trips the loose parameter map through JSON into the
// tool's typed input, so each handler works with checked fields instead of
// probing the map.
func decodeAndRun[T any](call toolcall.ToolCall, session *history.Session, h handler[T]) Result {
	input, err := decodeParams[T](call)
	if err != nil {
		return errorResult(call, err.Error())
	}
	return h(call, session, input)
}

func decodeAndRunCtx[T any](ctx context.Context, call toolcall.ToolCall, session *history.Session, h ctxHandler[T]) Result {
	input, err := decodeParams[T](call)
	if err != nil {
		return errorResult(call, err.Error())
	}
	return h(ctx, call, session, input)
}

func decodeParams[T any](call toolcall.ToolCall) (T, error) {
	var input T
	raw, err := json.Marshal(call.Parameters)
	if err != nil {
		return input, fmt.Errorf("invalid parameters for %s: %v", call.Tool, err)
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, fmt.Errorf("invalid parameters for %s: %v", call.Tool, err)
	}
	return input, nil
}
