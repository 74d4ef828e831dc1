package tool

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

func (e *Executor) fetchURL(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input FetchURLInput) Result {
	parsed, err := url.Parse(input.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errorResult(call, fmt.Sprintf("invalid URL: %s", input.URL))
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html, text/plain, application/json;q=0.9, */*;q=0.8").
		Get(input.URL)
	if err != nil {
		return errorResult(call, fmt.Sprintf("failed to fetch %s: %v", input.URL, err))
	}
	if resp.StatusCode() >= 400 {
		return errorResult(call, fmt.Sprintf("fetch of %s returned status %d", input.URL, resp.StatusCode()))
	}

	body := resp.Body()
	if limit := e.options.FetchSizeLimit; limit > 0 && int64(len(body)) > limit {
		body = body[:limit]
	}

	content := string(body)
	if strings.Contains(resp.Header().Get("Content-Type"), "text/html") || looksLikeHTML(content) {
		content = renderHTML(content, parsed)
	}

	return successResult(call, tail(content, 16000))
}

// renderHTML reduces a page to markdown: readability strips chrome down to
// the main content, the converter renders what remains. Documents neither
// can handle fall back to plain text extraction.
func renderHTML(source string, pageURL *url.URL) string {
	if article, err := readability.FromReader(strings.NewReader(source), pageURL); err == nil {
		if body := strings.TrimSpace(article.Content); body != "" {
			source = body
		}
	}
	markdown, err := md.NewConverter("", true, nil).ConvertString(source)
	if err != nil {
		return htmlToText(source)
	}
	return strings.TrimSpace(markdown)
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// htmlToText reduces an HTML document to readable text: script, style and
// head content is dropped, block elements become line breaks.
func htmlToText(source string) string {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return source
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "iframe", "svg":
				return
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "section", "article":
				b.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return collapseBlankLines(b.String())
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
