package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// Anthropic talks to the Anthropic Messages API. There is no native strict-schema mode, so
// the schema is appended to the system prompt and the caller's parser does the rest.
type Anthropic struct {
	client          *anthropic.Client
	model           string
	temperature     *float64
	maxOutputTokens int
}

func NewAnthropic(s Settings) *Anthropic {
	var opts []anthropic.ClientOption
	if u := strings.TrimSpace(s.BaseURL); u != "" {
		opts = append(opts, anthropic.WithBaseURL(u))
	}
	return &Anthropic{
		client:          anthropic.NewClient(s.APIKey, opts...),
		model:           s.Model,
		temperature:     s.Temperature,
		maxOutputTokens: s.MaxOutputTokens,
	}
}

func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = a.maxOutputTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	msgReq := anthropic.MessagesRequest{
		Model: anthropic.Model(a.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.Input)},
			},
		},
		MaxTokens: maxTokens,
		System:    schemaSystemPrompt(req),
	}
	if a.temperature != nil {
		t := float32(*a.temperature)
		msgReq.Temperature = &t
	}

	resp, err := callWithRetry(ctx, func(ctx context.Context) (anthropic.MessagesResponse, error) {
		return a.client.CreateMessages(ctx, msgReq)
	})
	if err != nil {
		return Response{}, fmt.Errorf("Anthropic.Generate: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			sb.WriteString(c.GetText())
		}
	}
	return Response{Text: sb.String(), Model: string(resp.Model)}, nil
}

func schemaSystemPrompt(req Request) string {
	if req.Schema == nil {
		return req.Instructions
	}
	b, err := json.Marshal(req.Schema)
	if err != nil {
		return req.Instructions
	}
	return req.Instructions + "\n\nRespond with a single JSON object (no prose, no code fences) matching this JSON schema:\n" + string(b)
}
