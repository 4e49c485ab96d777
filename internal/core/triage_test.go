package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"madipath/internal/llm"
	"madipath/pkg"
)

type fakeLLM struct {
	resp  *llm.Completion
	err   error
	calls []llm.Request
	ctx   context.Context
}

func (f *fakeLLM) Name() string  { return "fake" }
func (f *fakeLLM) Model() string { return "fake-1" }

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	f.calls = append(f.calls, req)
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

const lowRiskJSON = `{"explanation":"Seasonal pollen is a likely source.","riskLevel":"Low","nextSteps":["Rinse nasal passages"],"suggestedOTCMedicines":["Cetirizine"],"warningSigns":["Wheezing"],"medicalCodes":["J30.2","J30.9"],"shouldSeeDoctor":false}`

func newService(t *testing.T, f *fakeLLM, key string) *TriageService {
	return NewTriageService(f, llm.StaticKey(key), zaptest.NewLogger(t))
}

func TestAnalyzeModelResult(t *testing.T) {
	f := &fakeLLM{resp: &llm.Completion{
		Text: "```json\n" + lowRiskJSON + "\n```",
		Citations: []llm.Citation{
			{Title: "Pollen report", URI: "https://a.example"},
			{URI: "https://b.example"},
		},
	}}
	s := newService(t, f, "key")

	got, err := s.Analyze(context.Background(), "sneezing and itchy eyes")
	require.NoError(t, err)
	require.Len(t, f.calls, 1)

	assert.Equal(t, SystemInstruction, f.calls[0].SystemInstruction)
	assert.Equal(t, "Perform deep clinical triage and identify source/codes for: sneezing and itchy eyes", f.calls[0].Prompt)
	assert.True(t, f.calls[0].Search)

	assert.False(t, got.Fallback)
	assert.Equal(t, "fake", got.Provider)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, pkg.RiskLow, got.Analysis.RiskLevel)
	assert.False(t, got.Analysis.ShouldSeeDoctor)
	assert.Equal(t, []string{"J30.2", "J30.9"}, got.Analysis.MedicalCodes)
	assert.Equal(t, []pkg.GroundingSource{
		{Title: "Pollen report", URI: "https://a.example"},
		{Title: DefaultSourceTitle, URI: "https://b.example"},
	}, got.Analysis.Sources)
}

func TestAnalyzeWithoutCitationsOmitsSources(t *testing.T) {
	f := &fakeLLM{resp: &llm.Completion{Text: lowRiskJSON}}
	got, err := newService(t, f, "key").Analyze(context.Background(), "sneezing")
	require.NoError(t, err)
	assert.Nil(t, got.Analysis.Sources)
}

func TestAnalyzeRaisesDoctorAdvice(t *testing.T) {
	raw := `{"explanation":"x","riskLevel":"High","nextSteps":[],"suggestedOTCMedicines":[],"warningSigns":[],"medicalCodes":["R07.9"],"shouldSeeDoctor":false}`
	f := &fakeLLM{resp: &llm.Completion{Text: raw}}

	got, err := newService(t, f, "key").Analyze(context.Background(), "pain")
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Equal(t, pkg.RiskHigh, got.Analysis.RiskLevel)
	assert.True(t, got.Analysis.ShouldSeeDoctor)
}

func TestAnalyzeFallback(t *testing.T) {
	tests := []struct {
		name     string
		llm      *fakeLLM
		symptoms string
		want     pkg.RiskLevel
	}{
		{"network error", &fakeLLM{err: errors.New("connection reset")}, "chest pain", pkg.RiskHigh},
		{"network error mild", &fakeLLM{err: errors.New("connection reset")}, "mild cold", pkg.RiskMedium},
		{"empty text", &fakeLLM{resp: &llm.Completion{Text: "  "}}, "mild cold", pkg.RiskMedium},
		{"not json", &fakeLLM{resp: &llm.Completion{Text: "I think you are fine."}}, "mild cold", pkg.RiskMedium},
		{"bad enum", &fakeLLM{resp: &llm.Completion{Text: `{"explanation":"x","riskLevel":"Severe","nextSteps":[],"suggestedOTCMedicines":[],"warningSigns":[],"medicalCodes":[],"shouldSeeDoctor":true}`}}, "stroke", pkg.RiskHigh},
		{"missing field", &fakeLLM{resp: &llm.Completion{Text: `{"explanation":"x","riskLevel":"Low"}`}}, "rash", pkg.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newService(t, tt.llm, "key").Analyze(context.Background(), tt.symptoms)
			require.NoError(t, err)
			require.Len(t, tt.llm.calls, 1)
			assert.True(t, got.Fallback)
			assert.Equal(t, tt.want, got.Analysis.RiskLevel)
			assert.True(t, got.Analysis.ShouldSeeDoctor)
			assert.Empty(t, got.Analysis.Sources)
		})
	}
}

func TestAnalyzeRejectsBlankInput(t *testing.T) {
	f := &fakeLLM{}
	_, err := newService(t, f, "key").Analyze(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptySymptoms)
	assert.Empty(t, f.calls)
}

func TestAnalyzeWithoutKey(t *testing.T) {
	f := &fakeLLM{}
	_, err := newService(t, f, "").Analyze(context.Background(), "headache")
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Empty(t, f.calls)
}

func TestAnalyzeCredentialRejected(t *testing.T) {
	f := &fakeLLM{err: fmt.Errorf("gemini: %w", llm.ErrCredential)}
	got, err := newService(t, f, "key").Analyze(context.Background(), "chest pain")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.ErrorIs(t, err, llm.ErrCredential)
}

func TestAnalyzeTimeout(t *testing.T) {
	f := &fakeLLM{resp: &llm.Completion{Text: lowRiskJSON}}
	s := newService(t, f, "key")
	s.Timeout = time.Minute

	_, err := s.Analyze(context.Background(), "sneezing")
	require.NoError(t, err)
	_, ok := f.ctx.Deadline()
	assert.True(t, ok)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(` {"a":1} `))
}
