package model

import (
	"fmt"
	"time"

	"github.com/conjureai/conjure/backend/config"
)

// Endpoint describes how to reach one provider over one wire protocol.
type Endpoint struct {
	BaseURL    string
	AuthHeader string // header carrying the credential
	AuthPrefix string // value prefix, e.g. "Bearer "
}

// ProviderSpec is the static capability record for one model backend.
type ProviderSpec struct {
	ID           string
	Endpoints    map[config.Protocol]Endpoint
	NativeTools  map[config.Protocol]bool
	MaxTokensCap int
	ExtraHeaders map[string]string
}

// builtinProviders is the provider/protocol capability table. Base URLs are
// overridable per provider via configuration at the CLI layer; the shape of
// each entry is what the chat client consumes.
var builtinProviders = map[string]ProviderSpec{
	"anthropic": {
		ID: "anthropic",
		Endpoints: map[config.Protocol]Endpoint{
			config.ProtocolAnthropic: {
				BaseURL:    "https://api.anthropic.com/v1",
				AuthHeader: "x-api-key",
			},
		},
		NativeTools:  map[config.Protocol]bool{config.ProtocolAnthropic: true},
		MaxTokensCap: 8192,
		ExtraHeaders: map[string]string{"anthropic-version": "2023-06-01"},
	},
	"openai": {
		ID: "openai",
		Endpoints: map[config.Protocol]Endpoint{
			config.ProtocolOpenAI: {
				BaseURL:    "https://api.openai.com/v1",
				AuthHeader: "Authorization",
				AuthPrefix: "Bearer ",
			},
		},
		NativeTools:  map[config.Protocol]bool{config.ProtocolOpenAI: true},
		MaxTokensCap: 16384,
	},
	"deepseek": {
		ID: "deepseek",
		Endpoints: map[config.Protocol]Endpoint{
			config.ProtocolOpenAI: {
				BaseURL:    "https://api.deepseek.com/v1",
				AuthHeader: "Authorization",
				AuthPrefix: "Bearer ",
			},
		},
		NativeTools:  map[config.Protocol]bool{config.ProtocolOpenAI: true},
		MaxTokensCap: 8192,
	},
	"openrouter": {
		ID: "openrouter",
		Endpoints: map[config.Protocol]Endpoint{
			config.ProtocolOpenAI: {
				BaseURL:    "https://openrouter.ai/api/v1",
				AuthHeader: "Authorization",
				AuthPrefix: "Bearer ",
			},
		},
		NativeTools:  map[config.Protocol]bool{config.ProtocolOpenAI: true},
		MaxTokensCap: 16384,
	},
	"ollama": {
		ID: "ollama",
		Endpoints: map[config.Protocol]Endpoint{
			config.ProtocolOpenAI: {
				BaseURL: "http://localhost:11434/v1",
			},
		},
		// local models rarely honor the tools parameter, send text protocol
		NativeTools:  map[config.Protocol]bool{config.ProtocolOpenAI: false},
		MaxTokensCap: 8192,
	},
}

// LookupProvider resolves a provider id, checking its support for the
// requested protocol.
func LookupProvider(id string, protocol config.Protocol) (ProviderSpec, Endpoint, error) {
	spec, ok := builtinProviders[id]
	if !ok {
		return ProviderSpec{}, Endpoint{}, fmt.Errorf("unknown provider: %s", id)
	}
	endpoint, ok := spec.Endpoints[protocol]
	if !ok {
		return ProviderSpec{}, Endpoint{}, fmt.Errorf("provider %s does not speak the %s protocol", id, protocol)
	}
	return spec, endpoint, nil
}

type ProviderErrorKind string

const (
	ProviderErrorKindInvalidRequest    ProviderErrorKind = "invalid_request"
	ProviderErrorKindToolsRejected     ProviderErrorKind = "tools_rejected"
	ProviderErrorKindRateLimitExceeded ProviderErrorKind = "rate_limit_exceeded"
	ProviderErrorKindOverloaded        ProviderErrorKind = "overloaded"
	ProviderErrorKindInternal          ProviderErrorKind = "internal"
	ProviderErrorKindTimeout           ProviderErrorKind = "timeout"
	ProviderErrorKindCanceled          ProviderErrorKind = "canceled"
	ProviderErrorKindUnknown           ProviderErrorKind = "unknown"
)

type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	RetryAfter time.Duration
	Err        error
}

func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Err:      err,
	}
}

func (pe *ProviderError) Message() string {
	switch pe.Kind {
	case ProviderErrorKindInvalidRequest:
		return "Invalid request format or content"
	case ProviderErrorKindToolsRejected:
		return "Backend rejected the tools parameter"
	case ProviderErrorKindRateLimitExceeded:
		if pe.RetryAfter > 0 {
			return fmt.Sprintf("Rate limit exceeded, retry after %s", pe.RetryAfter)
		}
		return "Rate limit exceeded"
	case ProviderErrorKindOverloaded:
		return "API temporarily overloaded"
	case ProviderErrorKindInternal:
		return "Internal server error"
	case ProviderErrorKindTimeout:
		return "Request timeout"
	case ProviderErrorKindCanceled:
		return "Request canceled"
	default:
		return "Unknown error"
	}
}

func (pe *ProviderError) Retryable() (bool, time.Duration) {
	switch pe.Kind {
	case ProviderErrorKindRateLimitExceeded:
		return true, pe.RetryAfter
	case ProviderErrorKindOverloaded, ProviderErrorKindInternal:
		return true, 0
	default:
		return false, 0
	}
}

func (pe *ProviderError) Error() string {
	if pe.Err != nil {
		return fmt.Sprintf("%s: %s: %s", pe.Provider, pe.Message(), pe.Err.Error())
	}
	return fmt.Sprintf("%s: %s", pe.Provider, pe.Message())
}

func (pe *ProviderError) Unwrap() error {
	return pe.Err
}

// kindForStatus maps an HTTP status to the error taxonomy.
func kindForStatus(status int) ProviderErrorKind {
	switch {
	case status == 400:
		return ProviderErrorKindInvalidRequest
	case status == 429:
		return ProviderErrorKindRateLimitExceeded
	case status == 529 || status == 503:
		return ProviderErrorKindOverloaded
	case status >= 500:
		return ProviderErrorKindInternal
	default:
		return ProviderErrorKindUnknown
	}
}
