package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"madipath/internal/schema"
)

// GeminiConfig configures the Gemini client.  BaseURL is only set in tests
// or when routing through a proxy.
type GeminiConfig struct {
	Model          string
	ThinkingBudget int32
	BaseURL        string
	HTTPClient     *http.Client
}

// GeminiClient calls the Gemini API with Google Search grounding and a
// strict response schema.  A new SDK client is built per call so a
// re-selected key takes effect immediately.
type GeminiClient struct {
	keys KeySource
	cfg  GeminiConfig
}

// NewGeminiClient constructs a Gemini-backed client.
func NewGeminiClient(keys KeySource, cfg GeminiConfig) *GeminiClient {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-3-pro-preview"
	}
	return &GeminiClient{keys: keys, cfg: cfg}
}

func (c *GeminiClient) Name() string  { return "gemini" }
func (c *GeminiClient) Model() string { return c.cfg.Model }

// Generate sends one request and returns the reply text with any web
// grounding citations.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Completion, error) {
	key := c.keys.APIKey()
	if key == "" {
		return nil, ErrMissingCredential
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.cfg.HTTPClient,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	cl, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, classify(fmt.Errorf("gemini: new client: %w", err))
	}

	resp, err := cl.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(req.Prompt), c.generateConfig(req))
	if err != nil {
		return nil, classify(fmt.Errorf("gemini: generate: %w", err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return &Completion{Text: text, Citations: webCitations(resp)}, nil
}

func (c *GeminiClient) generateConfig(req Request) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.Gemini(),
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.Search {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if c.cfg.ThinkingBudget > 0 {
		gc.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(c.cfg.ThinkingBudget)}
	}
	return gc
}

// webCitations collects the web grounding chunks of the first candidate.
// Chunks from other grounding kinds (maps, retrieved context) are skipped.
func webCitations(resp *genai.GenerateContentResponse) []Citation {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}
	var out []Citation
	for _, ch := range gm.GroundingChunks {
		if ch == nil || ch.Web == nil {
			continue
		}
		out = append(out, Citation{Title: ch.Web.Title, URI: ch.Web.URI})
	}
	return out
}
