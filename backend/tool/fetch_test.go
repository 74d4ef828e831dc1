package tool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
)

const samplePage = `<!doctype html>
<html><head><title>Release notes</title><script>alert("tracking")</script></head>
<body>
<nav><a href="/home">home</a></nav>
<article>
<h1>Release notes</h1>
<p>A brief history of the change, with a link to the
<a href="https://example.com/std">standard</a> it implements.</p>
<p>Second paragraph with more detail.</p>
</article>
</body></html>`

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	pageURL, _ := url.Parse("https://example.com/notes")
	got := renderHTML(samplePage, pageURL)

	if strings.Contains(got, "<p>") || strings.Contains(got, "<article>") {
		t.Errorf("markup survived conversion:\n%s", got)
	}
	if strings.Contains(got, "alert(") {
		t.Errorf("script content survived conversion:\n%s", got)
	}
	if !strings.Contains(got, "A brief history of the change") {
		t.Errorf("body text missing:\n%s", got)
	}
	if !strings.Contains(got, "[standard](https://example.com/std)") {
		t.Errorf("link not rendered as markdown:\n%s", got)
	}
}

func TestFetchURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, samplePage)
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "just text")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	e := NewExecutor("/project", WithFs(fs), WithHTTPClient(resty.New()))

	scenarios := []struct {
		name    string
		url     string
		wantErr string
		want    string
	}{
		{
			name: "html page converted to markdown",
			url:  server.URL + "/page",
			want: "Second paragraph with more detail.",
		},
		{
			name: "plain text passed through",
			url:  server.URL + "/plain",
			want: "just text",
		},
		{
			name:    "http error status",
			url:     server.URL + "/missing",
			wantErr: "status 404",
		},
		{
			name:    "unsupported scheme",
			url:     "ftp://example.com/file",
			wantErr: "invalid URL",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			result := e.Execute(context.Background(), call("fetch_url", map[string]any{"url": scenario.url}), nil)
			if scenario.wantErr != "" {
				if result.Success || !strings.Contains(result.Error, scenario.wantErr) {
					t.Fatalf("result = %+v, want error containing %q", result, scenario.wantErr)
				}
				return
			}
			if !result.Success {
				t.Fatalf("result = %+v", result)
			}
			if !strings.Contains(result.Output, scenario.want) {
				t.Errorf("output = %q, want it to contain %q", result.Output, scenario.want)
			}
		})
	}
}
