package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const analysisJSON = `{"explanation":"Likely a tension headache.","riskLevel":"Low","nextSteps":["Rest"],"suggestedOTCMedicines":["Ibuprofen"],"warningSigns":["Sudden severe pain"],"medicalCodes":["G44.2"],"shouldSeeDoctor":false}`

func geminiServer(t *testing.T, status int, body string, seen func(*http.Request, []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			seen(r, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiReply(text string, chunks string) string {
	quoted, _ := json.Marshal(text)
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + string(quoted) + `}]},"groundingMetadata":{"groundingChunks":[` + chunks + `]}}]}`
}

func TestGeminiGenerate(t *testing.T) {
	var (
		path string
		key  string
		body map[string]any
	)
	srv := geminiServer(t, http.StatusOK,
		geminiReply(analysisJSON, `{"web":{"uri":"https://a.example/x","title":"A"}},{"web":{"uri":"https://b.example/y"}},{"retrievedContext":{"uri":"gs://c"}}`),
		func(r *http.Request, raw []byte) {
			path = r.URL.Path
			key = r.Header.Get("x-goog-api-key")
			require.NoError(t, json.Unmarshal(raw, &body))
		})

	c := NewGeminiClient(StaticKey("test-key"), GeminiConfig{Model: "gemini-test", ThinkingBudget: 4000, BaseURL: srv.URL})
	out, err := c.Generate(context.Background(), Request{SystemInstruction: "rules", Prompt: "headache", Search: true})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", path)
	assert.Equal(t, "test-key", key)
	assert.JSONEq(t, analysisJSON, out.Text)
	assert.Equal(t, []Citation{
		{Title: "A", URI: "https://a.example/x"},
		{URI: "https://b.example/y"},
	}, out.Citations)

	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.NotNil(t, gen["responseSchema"])
	assert.NotNil(t, gen["thinkingConfig"])
	assert.NotNil(t, body["tools"])
	assert.NotNil(t, body["systemInstruction"])
}

func TestGeminiGenerateWithoutSearch(t *testing.T) {
	var body map[string]any
	srv := geminiServer(t, http.StatusOK, geminiReply(analysisJSON, ""), func(_ *http.Request, raw []byte) {
		require.NoError(t, json.Unmarshal(raw, &body))
	})

	c := NewGeminiClient(StaticKey("k"), GeminiConfig{BaseURL: srv.URL})
	out, err := c.Generate(context.Background(), Request{Prompt: "cough"})
	require.NoError(t, err)
	assert.Empty(t, out.Citations)
	assert.Nil(t, body["tools"])
	assert.Equal(t, "gemini-3-pro-preview", c.Model())
}

func TestGeminiGenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		credential bool
		empty      bool
	}{
		{
			name:       "invalid key",
			status:     http.StatusBadRequest,
			body:       `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			credential: true,
		},
		{
			name:       "entity not found",
			status:     http.StatusNotFound,
			body:       `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`,
			credential: true,
		},
		{
			name:       "permission denied",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`,
			credential: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`,
		},
		{
			name:   "empty text",
			status: http.StatusOK,
			body:   geminiReply("   ", ""),
			empty:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := geminiServer(t, tt.status, tt.body, nil)
			c := NewGeminiClient(StaticKey("k"), GeminiConfig{Model: "m", BaseURL: srv.URL})

			_, err := c.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.credential, IsCredential(err))
			assert.Equal(t, tt.empty, errors.Is(err, ErrEmptyResponse))
		})
	}
}

func TestGeminiMissingKey(t *testing.T) {
	c := NewGeminiClient(StaticKey("  "), GeminiConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, IsCredential(err))
}

func openAIServer(t *testing.T, status int, body string, seen func([]byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			seen(raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat *struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name   string          `json:"name"`
				Strict bool            `json:"strict"`
				Schema json.RawMessage `json:"schema"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	quoted, _ := json.Marshal(analysisJSON)
	srv := openAIServer(t, http.StatusOK,
		`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":`+string(quoted)+`},"finish_reason":"stop"}]}`,
		func(raw []byte) { require.NoError(t, json.Unmarshal(raw, &req)) })

	c := NewOpenAIClient(StaticKey("sk-test"), OpenAIConfig{Model: "gpt-test", BaseURL: srv.URL + "/v1"})
	out, err := c.Generate(context.Background(), Request{SystemInstruction: "rules", Prompt: "headache", Search: true})
	require.NoError(t, err)

	assert.JSONEq(t, analysisJSON, out.Text)
	assert.Empty(t, out.Citations)
	assert.Equal(t, "gpt-test", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "headache", req.Messages[1].Content)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, string(openai.ChatCompletionResponseFormatTypeJSONSchema), req.ResponseFormat.Type)
	assert.Equal(t, "symptom_analysis", req.ResponseFormat.JSONSchema.Name)
	assert.True(t, req.ResponseFormat.JSONSchema.Strict)
	assert.Contains(t, string(req.ResponseFormat.JSONSchema.Schema), `"shouldSeeDoctor"`)
}

func TestOpenAIGenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		credential bool
		empty      bool
	}{
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			credential: true,
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`,
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"id":"c1","object":"chat.completion","choices":[]}`,
			empty:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := openAIServer(t, tt.status, tt.body, nil)
			c := NewOpenAIClient(StaticKey("sk"), OpenAIConfig{BaseURL: srv.URL + "/v1"})

			_, err := c.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.credential, IsCredential(err))
			assert.Equal(t, tt.empty, errors.Is(err, ErrEmptyResponse))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("connection reset"), false},
		{"disconnected phrase", errors.New("Core disconnected. Please reconnect."), true},
		{"api key phrase", errors.New("missing API_KEY"), true},
		{"not found phrase", errors.New("Requested entity was not found."), true},
		{"gemini unauthenticated", genai.APIError{Code: 0, Status: "UNAUTHENTICATED"}, true},
		{"gemini quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}, false},
		{"openai forbidden", &openai.APIError{HTTPStatusCode: 403}, true},
		{"openai request 401", &openai.RequestError{HTTPStatusCode: 401, Err: errors.New("x")}, true},
		{"openai request 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCredential(classify(tt.err)))
		})
	}
}

func TestStaticKeyTrims(t *testing.T) {
	assert.Equal(t, "abc", StaticKey(" abc\n").APIKey())
	assert.True(t, strings.HasPrefix(ErrMissingCredential.Error(), ErrCredential.Error()))
}
