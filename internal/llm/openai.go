package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"madipath/internal/schema"
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIClient calls the OpenAI chat completion API with a strict
// json_schema response format.  Chat completions have no search grounding,
// so replies never carry citations.
type OpenAIClient struct {
	keys KeySource
	cfg  OpenAIConfig
}

// NewOpenAIClient constructs an OpenAI-backed client and falls back to a
// modern small model when none is configured.
func NewOpenAIClient(keys KeySource, cfg OpenAIConfig) *OpenAIClient {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &OpenAIClient{keys: keys, cfg: cfg}
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Generate sends the system instruction and prompt and returns the
// assistant's JSON reply.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Completion, error) {
	key := c.keys.APIKey()
	if key == "" {
		return nil, ErrMissingCredential
	}
	oc := openai.DefaultConfig(key)
	if c.cfg.BaseURL != "" {
		oc.BaseURL = c.cfg.BaseURL
	}
	if c.cfg.HTTPClient != nil {
		oc.HTTPClient = c.cfg.HTTPClient
	}
	client := openai.NewClientWithConfig(oc)

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: schema.JSON(),
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, classify(fmt.Errorf("openai: chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return &Completion{Text: text}, nil
}
