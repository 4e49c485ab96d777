package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"madipath/pkg"
)

func TestFallbackEscalation(t *testing.T) {
	tests := []struct {
		name     string
		symptoms string
		want     pkg.RiskLevel
	}{
		{"chest pain", "I have chest pain", pkg.RiskHigh},
		{"upper case", "  CHEST tightness  ", pkg.RiskHigh},
		{"breathing", "trouble breathing at night", pkg.RiskHigh},
		{"heartburn substring", "heartburn after dinner", pkg.RiskHigh},
		{"stroke", "possible stroke", pkg.RiskHigh},
		{"unconscious", "friend is unconscious", pkg.RiskHigh},
		{"mild cold", "mild cold", pkg.RiskMedium},
		{"headache", "headache since morning", pkg.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.symptoms)
			assert.Equal(t, tt.want, got.RiskLevel)
			assert.True(t, got.ShouldSeeDoctor)
			if tt.want == pkg.RiskHigh {
				assert.Equal(t, EmergencyExplanation, got.Explanation)
			} else {
				assert.Equal(t, DefaultExplanation, got.Explanation)
			}
		})
	}
}

func TestFallbackKeepsDefaultLists(t *testing.T) {
	def := SafeDefault()
	got := Fallback("chest pain")

	assert.Equal(t, def.NextSteps, got.NextSteps)
	assert.Equal(t, def.SuggestedOTCMedicines, got.SuggestedOTCMedicines)
	assert.Equal(t, def.WarningSigns, got.WarningSigns)
	assert.Equal(t, []string{"R69 (Undiagnosed symptoms)"}, got.MedicalCodes)
	assert.Empty(t, got.Sources)
}

func TestSafeDefaultReturnsFreshSlices(t *testing.T) {
	a := SafeDefault()
	a.NextSteps[0] = "changed"
	a.WarningSigns = append(a.WarningSigns, "extra")

	b := SafeDefault()
	assert.Equal(t, "Monitor symptoms for the next 24-48 hours", b.NextSteps[0])
	assert.Len(t, b.WarningSigns, 3)
	assert.Equal(t, pkg.RiskMedium, b.RiskLevel)
}
