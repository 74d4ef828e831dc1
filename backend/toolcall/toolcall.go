package toolcall

import (
	"strings"
)

// ToolCall is one normalized action request recovered from model output.
type ToolCall struct {
	ID         string         `json:"id,omitempty"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// RawCall is a provider-native tool call before argument parsing. Arguments
// holds the raw (possibly truncated) JSON string exactly as the wire
// delivered it.
type RawCall struct {
	ID        string
	Name      string
	Arguments string
}

// canonicalTools is the closed set of tool ids the executor understands.
var canonicalTools = []string{
	"read_file",
	"write_file",
	"edit_file",
	"delete_file",
	"delete_directory",
	"list_files",
	"create_directory",
	"execute_command",
	"search_text",
	"search_files",
	"fetch_url",
	"web_search",
	"web_read",
	"read_repository",
	"describe_image",
}

// aliasTable maps separator- and case-folded spellings to canonical ids.
// Models routinely emit ExecuteCommand, execute-command or executecommand
// for the same tool.
var aliasTable = buildAliasTable()

func buildAliasTable() map[string]string {
	table := make(map[string]string, len(canonicalTools)*2)
	for _, name := range canonicalTools {
		table[fold(name)] = name
	}
	// spellings that fold to something other than a canonical id
	extras := map[string]string{
		"bash":        "execute_command",
		"shell":       "execute_command",
		"runcommand":  "execute_command",
		"run":         "execute_command",
		"createfile":  "write_file",
		"updatefile":  "edit_file",
		"removefile":  "delete_file",
		"mkdir":       "create_directory",
		"makedir":     "create_directory",
		"ls":          "list_files",
		"listdir":     "list_files",
		"grep":        "search_text",
		"searchcode":  "search_text",
		"glob":        "search_files",
		"findfiles":   "search_files",
		"fetch":       "fetch_url",
		"readurl":     "fetch_url",
		"websearch":   "web_search",
		"searchweb":   "web_search",
		"readwebpage": "web_read",
		"readrepo":    "read_repository",
	}
	for alias, canonical := range extras {
		table[alias] = canonical
	}
	return table
}

func fold(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName maps any accepted spelling of a tool name onto its canonical
// id. The second result is false for names outside the alias table.
func NormalizeName(name string) (string, bool) {
	canonical, ok := aliasTable[fold(name)]
	return canonical, ok
}

// requiredParams lists the parameters a recovered call must carry to be
// executable at all. A call that cannot recover these is dropped rather
// than defaulted.
var requiredParams = map[string][]string{
	"read_file":        {"path"},
	"write_file":       {"path"},
	"edit_file":        {"path"},
	"delete_file":      {"path"},
	"delete_directory": {"path"},
	"create_directory": {"path"},
	"execute_command":  {"command"},
	"search_text":      {"query"},
	"search_files":     {"pattern"},
	"fetch_url":        {"url"},
	"web_search":       {"query"},
	"web_read":         {"url"},
	"read_repository":  {"repository"},
	"describe_image":   {"path"},
}

func hasRequired(tool string, params map[string]any) bool {
	for _, key := range requiredParams[tool] {
		v, ok := params[key]
		if !ok {
			return false
		}
		if s, isString := v.(string); isString && s == "" {
			return false
		}
	}
	return true
}
