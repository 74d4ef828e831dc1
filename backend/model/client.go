package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
	"github.com/conjureai/conjure/shared"
	"github.com/conjureai/conjure/shared/resilience"
)

// APIKeySource resolves the credential for a provider id.
type APIKeySource interface {
	APIKey(providerID string) (string, error)
}

// Client talks to one configured model backend over its wire protocol,
// degrading to the text tool protocol when the backend rejects native tools.
type Client struct {
	cfg     config.Config
	creds   APIKeySource
	catalog *tool.Catalog
	http    *resty.Client
	retry   *resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	tracker UsageTracker
	metrics *Metrics
	logger  *slog.Logger
	baseURL string

	// forceFallback is latched after a tools rejection so later turns in
	// the same session skip the doomed native attempt.
	forceFallback bool
}

type ClientOption func(*Client)

func WithHTTPClient(hc *resty.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithRetryConfig(cfg *resilience.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

func WithUsageTracker(t UsageTracker) ClientOption {
	return func(c *Client) { c.tracker = t }
}

func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *Client) { c.metrics = NewMetrics(reg) }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURL overrides the provider's default endpoint, typically for
// local backends or tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func NewClient(cfg config.Config, creds APIKeySource, catalog *tool.Catalog, opts ...ClientOption) *Client {
	c := &Client{
		cfg:     cfg,
		creds:   creds,
		catalog: catalog,
		retry:   resilience.DefaultRetryConfig(),
		logger:  slog.Default(),
		breaker: resilience.NewCircuitBreaker(cfg.Provider, 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = resty.New()
	}
	return c
}

// ChatOptions adjusts a single chat turn.
type ChatOptions struct {
	// OnChunk, when set, enables streaming and receives each text fragment.
	OnChunk ChunkFn

	// DisableTools sends the turn without any tool affordances at all.
	DisableTools bool
}

// Chat sends the conversation and returns the model's turn. Native tool
// calling is used where the provider supports it; a 400 or an explicit
// tools rejection triggers one transparent retry over the text protocol.
func (c *Client) Chat(ctx context.Context, messages []Message, system string, opts ChatOptions) (*ChatResponse, error) {
	spec, endpoint, err := LookupProvider(c.cfg.Provider, c.cfg.Protocol)
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceUser, err, "resolve provider")
	}

	apiKey := ""
	if endpoint.AuthHeader != "" {
		apiKey, err = c.creds.APIKey(spec.ID)
		if err != nil {
			return nil, shared.Wrap(shared.ErrorSourceUser, err, "no API key for %s", spec.ID)
		}
	}

	native := spec.NativeTools[c.cfg.Protocol] && !c.forceFallback && !opts.DisableTools

	resp, err := c.turn(ctx, spec, endpoint, apiKey, messages, system, native, opts)
	if err != nil {
		var pe *ProviderError
		if native && errors.As(err, &pe) && toolsRejection(pe) {
			c.logger.Warn("backend rejected native tools, retrying over text protocol",
				"provider", spec.ID, "kind", string(pe.Kind))
			c.metrics.recordFallback(spec.ID, string(pe.Kind))
			c.forceFallback = true
			resp, err = c.turn(ctx, spec, endpoint, apiKey, messages, system, false, opts)
		}
	}
	if err != nil {
		c.metrics.recordRequest(spec.ID, string(c.cfg.Protocol), "error")
		return nil, err
	}

	// A native-capable turn can still answer in the text protocol when the
	// model ignores the tools parameter. Either way, text-format calls in
	// the content are honored.
	if len(resp.ToolCalls) == 0 {
		if recovered := toolcall.ParseText(resp.Content); len(recovered) > 0 {
			resp.ToolCalls = recovered
			resp.UsedNativeTools = false
		}
	}

	c.metrics.recordRequest(spec.ID, string(c.cfg.Protocol), "ok")
	c.metrics.recordTokens(c.cfg.Model, resp.Usage)
	if c.tracker != nil {
		c.tracker.RecordUsage(c.cfg.Model, resp.Usage)
	}
	return resp, nil
}

// turn performs one request with retry for transient failures. Non-transient
// provider errors surface immediately so the caller can decide on fallback.
func (c *Client) turn(ctx context.Context, spec ProviderSpec, endpoint Endpoint, apiKey string, messages []Message, system string, native bool, opts ChatOptions) (*ChatResponse, error) {
	if !native && !opts.DisableTools {
		system = c.fallbackSystem(system)
		messages = flattenToolTurns(messages)
	}

	body, path, err := c.encodeRequest(spec, messages, system, native, opts.OnChunk != nil)
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceSystem, err, "encode request")
	}

	var resp *ChatResponse
	hook := func(ctx context.Context, attempt uint, err error, nextDelay time.Duration) {
		c.logger.Warn("chat request failed, retrying",
			"provider", spec.ID, "attempt", attempt, "delay", nextDelay, "error", err)
	}
	err = resilience.Do(ctx, c.retry, hook, func(ctx context.Context) error {
		if !c.breaker.Allow() {
			return NewProviderError(spec.ID, ProviderErrorKindOverloaded,
				fmt.Errorf("circuit breaker open"))
		}
		var attemptErr error
		resp, attemptErr = c.request(ctx, spec, endpoint, apiKey, path, body, opts.OnChunk)
		c.breaker.RecordResult(attemptErr)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	if !native {
		resp.UsedNativeTools = false
	}
	return resp, nil
}

// encodeRequest builds the protocol-specific body and endpoint path.
func (c *Client) encodeRequest(spec ProviderSpec, messages []Message, system string, native, stream bool) ([]byte, string, error) {
	maxTokens := c.cfg.MaxTokens
	if spec.MaxTokensCap > 0 && maxTokens > spec.MaxTokensCap {
		maxTokens = spec.MaxTokensCap
	}

	switch c.cfg.Protocol {
	case config.ProtocolAnthropic:
		req := anthropicRequest{
			Model:     c.cfg.Model,
			System:    system,
			Messages:  buildAnthropicMessages(messages),
			MaxTokens: maxTokens,
			Temp:      c.cfg.Temperature,
			Stream:    stream,
		}
		if native && c.catalog != nil {
			req.Tools = c.catalog.AnthropicSchemas()
		}
		body, err := json.Marshal(req)
		return body, "/messages", err
	default:
		req := openAIRequest{
			Model:       c.cfg.Model,
			Messages:    buildOpenAIMessages(system, messages),
			Temperature: c.cfg.Temperature,
			MaxTokens:   maxTokens,
			Stream:      stream,
		}
		if stream {
			req.StreamOpts = &openAIStreamOpts{IncludeUsage: true}
		}
		if native && c.catalog != nil {
			req.Tools = c.catalog.OpenAISchemas()
		}
		body, err := json.Marshal(req)
		return body, "/chat/completions", err
	}
}

// request performs one HTTP exchange, streaming or buffered.
func (c *Client) request(parent context.Context, spec ProviderSpec, endpoint Endpoint, apiKey, path string, body []byte, onChunk ChunkFn) (*ChatResponse, error) {
	ctx := parent
	var cancel context.CancelFunc
	if c.cfg.ChatTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.cfg.ChatTimeout)
		defer cancel()
	}

	base := c.baseURL
	if base == "" {
		base = endpoint.BaseURL
	}

	req := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if endpoint.AuthHeader != "" {
		req.SetHeader(endpoint.AuthHeader, endpoint.AuthPrefix+apiKey)
	}
	for k, v := range spec.ExtraHeaders {
		req.SetHeader(k, v)
	}
	if onChunk != nil {
		req.SetDoNotParseResponse(true)
	}

	httpResp, err := req.Post(base + path)
	if err != nil {
		return nil, c.transportError(parent, spec.ID, err)
	}

	if onChunk != nil {
		defer httpResp.RawBody().Close()
		if httpResp.StatusCode() >= 400 {
			raw, _ := io.ReadAll(io.LimitReader(httpResp.RawBody(), 64*1024))
			return nil, c.statusError(spec.ID, httpResp.StatusCode(), raw)
		}
		return c.readStream(parent, spec.ID, httpResp.RawBody(), onChunk)
	}

	if httpResp.StatusCode() >= 400 {
		return nil, c.statusError(spec.ID, httpResp.StatusCode(), httpResp.Body())
	}
	return c.decodeResponse(spec.ID, httpResp.Body())
}

func (c *Client) decodeResponse(provider string, body []byte) (*ChatResponse, error) {
	var (
		resp *ChatResponse
		err  error
	)
	if c.cfg.Protocol == config.ProtocolAnthropic {
		resp, err = parseAnthropicResponse(body)
	} else {
		resp, err = parseOpenAIResponse(body)
	}
	if err != nil {
		return nil, NewProviderError(provider, ProviderErrorKindUnknown,
			fmt.Errorf("decode response: %w", err))
	}
	return resp, nil
}

// readStream drains the SSE body through the protocol's stream reader.
func (c *Client) readStream(parent context.Context, provider string, body io.Reader, onChunk ChunkFn) (*ChatResponse, error) {
	var reader streamReader
	if c.cfg.Protocol == config.ProtocolAnthropic {
		reader = newAnthropicStreamReader(onChunk)
	} else {
		reader = newOpenAIStreamReader(onChunk)
	}

	scanner := &sseScanner{}
	buf := make([]byte, 8192)
	for !scanner.Done() {
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range scanner.Feed(buf[:n]) {
				reader.Feed(payload)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, c.transportError(parent, provider, err)
		}
	}
	for _, payload := range scanner.Rest() {
		reader.Feed(payload)
	}
	return reader.Finish(), nil
}

// transportError classifies I/O failures, separating a timeout the client
// imposed from a cancellation the caller requested.
func (c *Client) transportError(parent context.Context, provider string, err error) *ProviderError {
	switch {
	case errors.Is(err, context.Canceled) || parent.Err() == context.Canceled:
		return NewProviderError(provider, ProviderErrorKindCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(provider, ProviderErrorKindTimeout, err)
	default:
		return NewProviderError(provider, ProviderErrorKindUnknown, err)
	}
}

func (c *Client) statusError(provider string, status int, body []byte) *ProviderError {
	kind := kindForStatus(status)
	if kind == ProviderErrorKindInvalidRequest && mentionsTools(body) {
		kind = ProviderErrorKindToolsRejected
	}
	pe := NewProviderError(provider, kind, fmt.Errorf("status %d: %s", status, trimBody(body)))
	return pe
}

// toolsRejection treats any bad-request answer to a tools-bearing payload
// as a rejection of the tools parameter, since backends phrase this many
// ways or not at all.
func toolsRejection(pe *ProviderError) bool {
	return pe.Kind == ProviderErrorKindToolsRejected || pe.Kind == ProviderErrorKindInvalidRequest
}

func mentionsTools(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "tool")
}

func trimBody(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// fallbackSystem appends the text tool protocol documentation.
func (c *Client) fallbackSystem(system string) string {
	if c.catalog == nil {
		return system
	}
	block := c.catalog.PromptBlock()
	if block == "" {
		return system
	}
	if system == "" {
		return block
	}
	return system + "\n\n" + block
}

// flattenToolTurns rewrites tool-role history for protocols without a tool
// role: assistant tool calls are rendered back into the text format and
// results become user turns.
func flattenToolTurns(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, m)
				continue
			}
			var sb strings.Builder
			sb.WriteString(m.Content)
			for _, call := range m.ToolCalls {
				params, err := json.Marshal(call.Parameters)
				if err != nil {
					params = []byte("{}")
				}
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				fmt.Fprintf(&sb, "<<<TOOL_CALL>>>\n{\"tool\": %q, \"parameters\": %s}\n<<<END_TOOL_CALL>>>", call.Tool, params)
			}
			out = append(out, Message{Role: RoleAssistant, Content: sb.String()})
		case RoleTool:
			name := m.ToolName
			if name == "" {
				name = "tool"
			}
			out = append(out, UserMessage(fmt.Sprintf("Result of %s:\n%s", name, m.Content)))
		default:
			out = append(out, m)
		}
	}
	return out
}
