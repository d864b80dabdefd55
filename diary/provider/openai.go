package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const defaultMaxOutputTokens = 2500

// OpenAI talks to an OpenAI-compatible endpoint, via the Responses API by default or via
// Chat Completions when API is "chat" (most third-party compatible gateways only speak chat).
type OpenAI struct {
	client          *openai.Client
	api             string
	model           string
	temperature     *float64
	maxOutputTokens int
}

func NewOpenAI(s Settings) (*OpenAI, error) {
	api := strings.ToLower(strings.TrimSpace(s.API))
	if api == "" {
		api = APIResponses
	}
	if api != APIResponses && api != APIChat {
		return nil, fmt.Errorf("provider: unknown openai api %q; valid apis: responses, chat", s.API)
	}
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if u := strings.TrimSpace(s.BaseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{
		client:          &client,
		api:             api,
		model:           s.Model,
		temperature:     s.Temperature,
		maxOutputTokens: s.MaxOutputTokens,
	}, nil
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	if o.client == nil {
		return Response{}, errors.New("OpenAI: client is nil")
	}
	if o.api == APIChat {
		return o.generateChat(ctx, req)
	}
	return o.generateResponses(ctx, req)
}

func (o *OpenAI) maxTokens(req Request) int64 {
	switch {
	case req.MaxOutputTokens > 0:
		return int64(req.MaxOutputTokens)
	case o.maxOutputTokens > 0:
		return int64(o.maxOutputTokens)
	default:
		return defaultMaxOutputTokens
	}
}

func (o *OpenAI) generateResponses(ctx context.Context, req Request) (Response, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(o.maxTokens(req)),
		Instructions:    openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.SchemaName,
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(req.SchemaDescription),
					Type:        "json_schema",
				},
			},
		}
	}
	if o.temperature != nil {
		params.Temperature = openai.Float(*o.temperature)
	}

	resp, err := callWithRetry(ctx, func(ctx context.Context) (*responses.Response, error) {
		return o.client.Responses.New(ctx, params)
	})
	if err != nil {
		return Response{}, fmt.Errorf("OpenAI.Generate: %w", err)
	}
	return Response{Text: resp.OutputText(), Model: string(resp.Model)}, nil
}

func (o *OpenAI) generateChat(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(req.Input),
		},
		MaxCompletionTokens: openai.Int(o.maxTokens(req)),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String(req.SchemaDescription),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}
	if o.temperature != nil {
		params.Temperature = openai.Float(*o.temperature)
	}

	chat, err := callWithRetry(ctx, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return o.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return Response{}, fmt.Errorf("OpenAI.Generate: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Response{Model: chat.Model}, nil
	}
	return Response{Text: chat.Choices[0].Message.Content, Model: chat.Model}, nil
}
