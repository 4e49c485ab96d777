package core

import (
	"strings"

	"madipath/pkg"
)

// emergencyKeywords escalate the fallback to High risk when any of them
// appears in the input.  Matching is a case-insensitive substring test, so
// "breathe" and "breathing" both hit "breath".
var emergencyKeywords = []string{"chest", "heart", "breath", "stroke", "unconscious"}

// SafeDefault returns the static assessment used when no validated model
// reply is available.  Each call returns fresh slices so callers may modify
// the result.
func SafeDefault() pkg.SymptomAnalysis {
	return pkg.SymptomAnalysis{
		Explanation: DefaultExplanation,
		RiskLevel:   pkg.RiskMedium,
		NextSteps: []string{
			"Monitor symptoms for the next 24-48 hours",
			"Stay hydrated and rest",
			"Seek professional consultation if symptoms persist",
		},
		SuggestedOTCMedicines: []string{"Consult a pharmacist"},
		WarningSigns:          []string{"Shortness of breath", "Persistent high fever", "Unexplained chest pain"},
		MedicalCodes:          []string{"R69 (Undiagnosed symptoms)"},
		ShouldSeeDoctor:       true,
	}
}

// IsEmergency reports whether the symptom text mentions an emergency keyword.
func IsEmergency(symptoms string) bool {
	query := strings.ToLower(strings.TrimSpace(symptoms))
	for _, w := range emergencyKeywords {
		if strings.Contains(query, w) {
			return true
		}
	}
	return false
}

// Fallback builds the safe assessment for the given input.  Only RiskLevel
// and Explanation depend on the input; every other field is the default.
func Fallback(symptoms string) pkg.SymptomAnalysis {
	out := SafeDefault()
	out.ShouldSeeDoctor = true
	if IsEmergency(symptoms) {
		out.RiskLevel = pkg.RiskHigh
		out.Explanation = EmergencyExplanation
	}
	return out
}
