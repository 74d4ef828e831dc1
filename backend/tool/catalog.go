package tool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// Descriptor declares one tool: its canonical name, the description shown to
// the model, and the typed input whose reflected schema becomes the
// parameter contract. Integration names the credential that gates the tool;
// an empty integration means always available.
type Descriptor struct {
	Name        string
	Description string
	Input       any
	Integration string
}

// CredentialChecker reports whether the credential for an integration is
// configured. The secret store satisfies it.
type CredentialChecker interface {
	HasAPIKey(providerID string) bool
}

// Catalog is the static registry of available tools. It is pure data with
// three read-only projections; gated tools are filtered from every
// projection when their integration credential is missing.
type Catalog struct {
	descriptors []Descriptor
	creds       CredentialChecker
}

func NewCatalog(creds CredentialChecker) *Catalog {
	return &Catalog{descriptors: builtinDescriptors(), creds: creds}
}

func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "read_file", Description: "Read the contents of a file.", Input: ReadFileInput{}},
		{Name: "write_file", Description: "Create or overwrite a file with the given content.", Input: WriteFileInput{}},
		{Name: "edit_file", Description: "Replace one exact occurrence of a text snippet in a file. The search text must match exactly one location; add surrounding lines to disambiguate.", Input: EditFileInput{}},
		{Name: "delete_file", Description: "Delete a single file.", Input: DeleteFileInput{}},
		{Name: "delete_directory", Description: "Delete a directory and everything under it. This cannot be undone.", Input: DeleteDirectoryInput{}},
		{Name: "list_files", Description: "List files and directories. Respects .gitignore and skips VCS and build directories.", Input: ListFilesInput{}},
		{Name: "create_directory", Description: "Create a directory, including missing parents.", Input: CreateDirectoryInput{}},
		{Name: "execute_command", Description: "Run a shell command in the project root and return its combined output. Long-running commands are killed at the timeout.", Input: ExecuteCommandInput{}},
		{Name: "search_text", Description: "Search file contents for a literal string.", Input: SearchTextInput{}},
		{Name: "search_files", Description: "Find files whose path matches a glob pattern.", Input: SearchFilesInput{}},
		{Name: "fetch_url", Description: "Fetch a URL and return its content; HTML pages are reduced to plain text.", Input: FetchURLInput{}},
		{Name: "web_search", Description: "Search the web and return result snippets.", Input: WebSearchInput{}, Integration: "tavily"},
		{Name: "web_read", Description: "Read a web page through the reader integration for cleaner text than fetch_url.", Input: WebReadInput{}, Integration: "jina"},
		{Name: "read_repository", Description: "Read a file or directory listing from a remote GitHub repository.", Input: ReadRepositoryInput{}, Integration: "github"},
		{Name: "describe_image", Description: "Describe the contents of a local image file.", Input: DescribeImageInput{}, Integration: "openai"},
	}
}

// Available returns the descriptors whose integrations are configured.
func (c *Catalog) Available() []Descriptor {
	out := make([]Descriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		if d.Integration != "" && (c.creds == nil || !c.creds.HasAPIKey(d.Integration)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// schemaFor reflects a tool input struct into a JSON-schema parameter object,
// the same way every provider protocol wants it.
func schemaFor(input any) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	reflected := reflector.Reflect(input)

	schema := map[string]any{
		"type":       "object",
		"properties": reflected.Properties,
	}
	if len(reflected.Required) > 0 {
		schema["required"] = reflected.Required
	}
	return schema
}

// PromptBlock renders the catalog as a text block for prompts on the
// fallback protocol, where the model has no native tool declarations.
func (c *Catalog) PromptBlock() string {
	var b strings.Builder
	b.WriteString("# Available Tools\n\n")
	b.WriteString("To use a tool, emit a block in exactly this form:\n\n")
	b.WriteString("<<<TOOL_CALL>>>\n{\"tool\": \"tool_name\", \"parameters\": {...}}\n<<<END_TOOL_CALL>>>\n\n")

	for _, d := range c.Available() {
		fmt.Fprintf(&b, "## %s\n%s\n", d.Name, d.Description)

		reflector := jsonschema.Reflector{DoNotReference: true}
		reflected := reflector.Reflect(d.Input)
		required := make(map[string]bool, len(reflected.Required))
		for _, r := range reflected.Required {
			required[r] = true
		}

		var names []string
		for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, pair.Key)
		}
		sort.Slice(names, func(i, j int) bool {
			if required[names[i]] != required[names[j]] {
				return required[names[i]]
			}
			return names[i] < names[j]
		})

		for _, name := range names {
			prop, _ := reflected.Properties.Get(name)
			kind := "optional"
			if required[name] {
				kind = "required"
			}
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", name, prop.Type, kind, prop.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// OpenAISchema is one entry of the OpenAI tools request parameter.
type OpenAISchema struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

func (c *Catalog) OpenAISchemas() []OpenAISchema {
	available := c.Available()
	out := make([]OpenAISchema, 0, len(available))
	for _, d := range available {
		var s OpenAISchema
		s.Type = "function"
		s.Function.Name = d.Name
		s.Function.Description = d.Description
		s.Function.Parameters = schemaFor(d.Input)
		out = append(out, s)
	}
	return out
}

// AnthropicSchema is one entry of the Anthropic tools request parameter.
type AnthropicSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func (c *Catalog) AnthropicSchemas() []AnthropicSchema {
	available := c.Available()
	out := make([]AnthropicSchema, 0, len(available))
	for _, d := range available {
		out = append(out, AnthropicSchema{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schemaFor(d.Input),
		})
	}
	return out
}
