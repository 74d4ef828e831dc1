package tool

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

// The MCP tool family talks to external integrations over the same
// call/result envelope as the local tools. Each is gated by its credential
// in the catalog, but execution re-checks in case a call arrives for a tool
// the catalog never advertised.

func (e *Executor) integrationKey(call toolcall.ToolCall, integration string) (string, *Result) {
	if e.creds == nil {
		r := errorResult(call, fmt.Sprintf("%s is not configured", call.Tool))
		return "", &r
	}
	key, err := e.creds.APIKey(integration)
	if err != nil || key == "" {
		r := errorResult(call, fmt.Sprintf("%s requires a %s API key", call.Tool, integration))
		return "", &r
	}
	return key, nil
}

func (e *Executor) webSearch(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input WebSearchInput) Result {
	key, failure := e.integrationKey(call, "tavily")
	if failure != nil {
		return *failure
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"api_key":     key,
			"query":       input.Query,
			"max_results": 8,
		}).
		Post("https://api.tavily.com/search")
	if err != nil {
		return errorResult(call, fmt.Sprintf("web search failed: %v", err))
	}
	if resp.StatusCode() != 200 {
		return errorResult(call, fmt.Sprintf("web search returned status %d", resp.StatusCode()))
	}

	var b strings.Builder
	for i, hit := range gjson.GetBytes(resp.Body(), "results").Array() {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1,
			hit.Get("title").String(), hit.Get("url").String(), hit.Get("content").String())
	}
	if b.Len() == 0 {
		return successResult(call, "No results")
	}
	return successResult(call, b.String())
}

func (e *Executor) webRead(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input WebReadInput) Result {
	key, failure := e.integrationKey(call, "jina")
	if failure != nil {
		return *failure
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		Get("https://r.jina.ai/" + input.URL)
	if err != nil {
		return errorResult(call, fmt.Sprintf("web read failed: %v", err))
	}
	if resp.StatusCode() != 200 {
		return errorResult(call, fmt.Sprintf("web read returned status %d", resp.StatusCode()))
	}
	return successResult(call, tail(string(resp.Body()), 16000))
}

func (e *Executor) readRepository(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input ReadRepositoryInput) Result {
	key, failure := e.integrationKey(call, "github")
	if failure != nil {
		return *failure
	}

	if !strings.Contains(input.Repository, "/") {
		return errorResult(call, "repository must be in owner/name form")
	}

	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/contents/%s",
		input.Repository, url.PathEscape(strings.TrimPrefix(input.Path, "/")))
	resp, err := e.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetHeader("Accept", "application/vnd.github+json").
		Get(endpoint)
	if err != nil {
		return errorResult(call, fmt.Sprintf("repository read failed: %v", err))
	}
	if resp.StatusCode() != 200 {
		return errorResult(call, fmt.Sprintf("repository read returned status %d", resp.StatusCode()))
	}

	body := resp.Body()
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		var b strings.Builder
		for _, entry := range parsed.Array() {
			fmt.Fprintf(&b, "%s (%s)\n", entry.Get("path").String(), entry.Get("type").String())
		}
		return successResult(call, b.String())
	}

	if parsed.Get("encoding").String() == "base64" {
		decoded, decodeErr := base64.StdEncoding.DecodeString(
			strings.ReplaceAll(parsed.Get("content").String(), "\n", ""))
		if decodeErr == nil {
			return successResult(call, tail(string(decoded), 16000))
		}
	}
	return successResult(call, tail(string(body), 16000))
}

func (e *Executor) describeImage(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input DescribeImageInput) Result {
	key, failure := e.integrationKey(call, "openai")
	if failure != nil {
		return *failure
	}

	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return errorResult(call, fmt.Sprintf("failed to read image %s: %v", input.Path, err))
	}

	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}

	question := input.Question
	if question == "" {
		question = "Describe this image in detail."
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"model": "gpt-4o-mini",
			"messages": []map[string]any{
				{
					"role": "user",
					"content": []map[string]any{
						{"type": "text", "text": question},
						{"type": "image_url", "image_url": map[string]string{
							"url": "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
						}},
					},
				},
			},
		}).
		Post("https://api.openai.com/v1/chat/completions")
	if err != nil {
		return errorResult(call, fmt.Sprintf("image description failed: %v", err))
	}
	if resp.StatusCode() != 200 {
		return errorResult(call, fmt.Sprintf("image description returned status %d", resp.StatusCode()))
	}

	text := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	if text == "" {
		return errorResult(call, "image description returned no content")
	}
	return successResult(call, text)
}
