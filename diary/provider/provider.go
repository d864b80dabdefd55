// Package provider executes single blocking generation requests against a text-generation service.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// OpenAI API flavours.
const (
	APIResponses = "responses"
	APIChat      = "chat"
)

// Request is one generation exchange: system-level instructions, the user input, and the
// JSON schema the response should follow.
type Request struct {
	Instructions      string
	Input             string
	SchemaName        string
	SchemaDescription string
	Schema            map[string]any
	MaxOutputTokens   int
}

// Response is the raw service output. Text is not guaranteed to be valid JSON.
type Response struct {
	Text  string
	Model string
}

// Client performs one synchronous request/response call.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Settings selects and configures a Client.
type Settings struct {
	Provider        string
	API             string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     *float64
	MaxOutputTokens int
}

// New builds the Client for s.Provider. An empty API key falls back to the provider's
// conventional environment variable.
func New(s Settings) (Client, error) {
	if strings.TrimSpace(s.Model) == "" {
		return nil, errors.New("provider: model is empty")
	}
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderOpenAI:
		if s.APIKey == "" {
			s.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if s.APIKey == "" {
			return nil, errors.New("provider: missing OPENAI_API_KEY (or llm.api_key)")
		}
		return NewOpenAI(s)
	case ProviderAnthropic:
		if s.APIKey == "" {
			s.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if s.APIKey == "" {
			return nil, errors.New("provider: missing ANTHROPIC_API_KEY (or llm.api_key)")
		}
		return NewAnthropic(s), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q; valid providers: openai, anthropic", s.Provider)
	}
}
