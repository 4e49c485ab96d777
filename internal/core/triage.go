package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"madipath/internal/llm"
	"madipath/internal/metrics"
	"madipath/internal/schema"
	"madipath/pkg"
)

var (
	// ErrEmptySymptoms is returned for blank input; no model call is made.
	ErrEmptySymptoms = errors.New("symptom description is empty")

	// ErrDisconnected means the API credential is missing or was rejected.
	// The caller should route the user back to the connection gate.
	ErrDisconnected = errors.New("core disconnected: api credential missing or rejected")
)

// TriageService turns a symptom description into an assessment.  It makes
// exactly one model call per Analyze and never retries.
type TriageService struct {
	LLM  llm.Client
	Keys llm.KeySource
	Log  *zap.Logger

	// Timeout bounds the model call when positive.  Zero inherits the
	// caller's context.
	Timeout time.Duration
}

// NewTriageService constructs a TriageService.
func NewTriageService(client llm.Client, keys llm.KeySource, log *zap.Logger) *TriageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TriageService{LLM: client, Keys: keys, Log: log}
}

// Analyze sends the symptoms to the model and returns the validated result.
// Any failure other than a credential problem is replaced by the safety
// fallback and reported with Fallback set and a nil error.
func (s *TriageService) Analyze(ctx context.Context, symptoms string) (*pkg.Assessment, error) {
	start := time.Now()
	provider := s.LLM.Name()

	if strings.TrimSpace(symptoms) == "" {
		metrics.ObserveTriage(provider, metrics.OutcomeRejected, time.Since(start))
		return nil, ErrEmptySymptoms
	}
	if s.Keys == nil || s.Keys.APIKey() == "" {
		metrics.ObserveTriage(provider, metrics.OutcomeDisconnected, time.Since(start))
		return nil, ErrDisconnected
	}

	requestID := uuid.NewString()
	log := s.Log.With(
		zap.String("request_id", requestID),
		zap.String("provider", provider),
		zap.String("model", s.LLM.Model()),
	)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	analysis, err := s.request(ctx, symptoms)
	switch {
	case err == nil:
		if enforceDoctorAdvice(analysis) {
			log.Warn("model advised no doctor visit for elevated risk, raising",
				zap.String("risk_level", string(analysis.RiskLevel)))
		}
		log.Info("triage completed",
			zap.String("risk_level", string(analysis.RiskLevel)),
			zap.Int("sources", len(analysis.Sources)),
			zap.Duration("elapsed", time.Since(start)))
		metrics.ObserveTriage(provider, metrics.OutcomeModel, time.Since(start))
		return &pkg.Assessment{RequestID: requestID, Provider: provider, Analysis: *analysis}, nil

	case llm.IsCredential(err):
		log.Warn("model rejected credential", zap.Error(err))
		metrics.ObserveTriage(provider, metrics.OutcomeDisconnected, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}

	fb := Fallback(symptoms)
	if fb.RiskLevel == pkg.RiskHigh {
		metrics.EmergencyEscalations.Inc()
	}
	log.Error("triage failed, using safety fallback",
		zap.Error(err),
		zap.String("risk_level", string(fb.RiskLevel)),
		zap.Duration("elapsed", time.Since(start)))
	metrics.ObserveTriage(provider, metrics.OutcomeFallback, time.Since(start))
	return &pkg.Assessment{RequestID: requestID, Provider: provider, Fallback: true, Analysis: fb}, nil
}

func (s *TriageService) request(ctx context.Context, symptoms string) (*pkg.SymptomAnalysis, error) {
	resp, err := s.LLM.Generate(ctx, llm.Request{
		SystemInstruction: SystemInstruction,
		Prompt:            fmt.Sprintf(UserPromptFormat, symptoms),
		Search:            true,
	})
	if err != nil {
		return nil, err
	}
	text := StripCodeFences(resp.Text)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}
	if err := schema.Validate([]byte(text)); err != nil {
		return nil, err
	}
	var out pkg.SymptomAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	out.Sources = groundingSources(resp.Citations)
	return &out, nil
}

// groundingSources converts citations to sources in received order.  A nil
// result keeps the sources field absent.
func groundingSources(cs []llm.Citation) []pkg.GroundingSource {
	var out []pkg.GroundingSource
	for _, c := range cs {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = DefaultSourceTitle
		}
		out = append(out, pkg.GroundingSource{Title: title, URI: c.URI})
	}
	return out
}

// enforceDoctorAdvice sets ShouldSeeDoctor for Medium and High risk and
// reports whether it had to.
func enforceDoctorAdvice(a *pkg.SymptomAnalysis) bool {
	if a.RiskLevel.RequiresDoctor() && !a.ShouldSeeDoctor {
		a.ShouldSeeDoctor = true
		return true
	}
	return false
}

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
