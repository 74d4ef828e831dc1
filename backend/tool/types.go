package tool

import (
	"github.com/conjureai/conjure/backend/toolcall"
)

// Result is the uniform envelope every tool execution returns. Failures are
// captured here, never raised: the orchestrator folds the envelope into the
// next model turn either way.
type Result struct {
	Success    bool           `json:"success"`
	Output     string         `json:"output"`
	Error      string         `json:"error,omitempty"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

func successResult(call toolcall.ToolCall, output string) Result {
	return Result{
		Success:    true,
		Output:     output,
		Tool:       call.Tool,
		Parameters: call.Parameters,
	}
}

func errorResult(call toolcall.ToolCall, message string) Result {
	return Result{
		Success:    false,
		Error:      message,
		Tool:       call.Tool,
		Parameters: call.Parameters,
	}
}

// DryRunResult simulates a successful execution without touching anything.
func DryRunResult(call toolcall.ToolCall) Result {
	return Result{
		Success:    true,
		Output:     "[dry-run] " + call.Tool + " skipped",
		Tool:       call.Tool,
		Parameters: call.Parameters,
	}
}

type ReadFileInput struct {
	Path string `json:"path" jsonschema:"required" jsonschema_description:"Path to the file, relative to the project root"`
}

type WriteFileInput struct {
	Path    string `json:"path" jsonschema:"required" jsonschema_description:"Path to the file, relative to the project root"`
	Content string `json:"content" jsonschema:"required" jsonschema_description:"Full content to write"`
}

type EditFileInput struct {
	Path    string `json:"path" jsonschema:"required" jsonschema_description:"Path to the file, relative to the project root"`
	Search  string `json:"search" jsonschema:"required" jsonschema_description:"Exact text to find; must occur exactly once in the file"`
	Replace string `json:"replace" jsonschema:"required" jsonschema_description:"Replacement text"`
}

type DeleteFileInput struct {
	Path string `json:"path" jsonschema:"required" jsonschema_description:"Path to the file to delete"`
}

type DeleteDirectoryInput struct {
	Path string `json:"path" jsonschema:"required" jsonschema_description:"Path to the directory to delete recursively"`
}

type ListFilesInput struct {
	Path      string `json:"path,omitempty" jsonschema_description:"Directory to list, defaults to the project root"`
	Recursive bool   `json:"recursive,omitempty" jsonschema_description:"List contents of subdirectories too"`
}

type CreateDirectoryInput struct {
	Path string `json:"path" jsonschema:"required" jsonschema_description:"Path of the directory to create"`
}

type ExecuteCommandInput struct {
	Command string `json:"command" jsonschema:"required" jsonschema_description:"Shell command to run in the project root"`
}

type SearchTextInput struct {
	Query       string `json:"query" jsonschema:"required" jsonschema_description:"Literal text to search for"`
	Path        string `json:"path,omitempty" jsonschema_description:"Directory to search, defaults to the project root"`
	FilePattern string `json:"file_pattern,omitempty" jsonschema_description:"Restrict to files matching this glob, e.g. *.go"`
}

type SearchFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"required" jsonschema_description:"Glob pattern matched against paths relative to the project root, e.g. src/**/*.ts"`
}

type FetchURLInput struct {
	URL string `json:"url" jsonschema:"required" jsonschema_description:"HTTP or HTTPS URL to fetch; HTML is reduced to text"`
}

type WebSearchInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Search query"`
}

type WebReadInput struct {
	URL string `json:"url" jsonschema:"required" jsonschema_description:"Page to read through the reader integration"`
}

type ReadRepositoryInput struct {
	Repository string `json:"repository" jsonschema:"required" jsonschema_description:"Repository in owner/name form"`
	Path       string `json:"path,omitempty" jsonschema_description:"File or directory path inside the repository"`
}

type DescribeImageInput struct {
	Path     string `json:"path" jsonschema:"required" jsonschema_description:"Path to a local image file"`
	Question string `json:"question,omitempty" jsonschema_description:"What to look for in the image"`
}
