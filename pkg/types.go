package pkg

// RiskLevel is the urgency tier assigned to a symptom description.  Only the
// three values below are valid; the model is constrained to them by the
// response schema.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Valid reports whether r is one of the three known tiers.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RequiresDoctor reports whether a result at this tier must advise seeing a
// doctor.
func (r RiskLevel) RequiresDoctor() bool {
	return r == RiskMedium || r == RiskHigh
}

// GroundingSource is a web citation returned alongside a search-grounded
// model reply.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SymptomAnalysis is the result of one triage request.  Every field except
// Sources is requested from the model; Sources is attached locally from the
// grounding metadata when there is any.
type SymptomAnalysis struct {
	Explanation           string            `json:"explanation"`
	RiskLevel             RiskLevel         `json:"riskLevel"`
	NextSteps             []string          `json:"nextSteps"`
	SuggestedOTCMedicines []string          `json:"suggestedOTCMedicines"`
	WarningSigns          []string          `json:"warningSigns"`
	MedicalCodes          []string          `json:"medicalCodes"`
	ShouldSeeDoctor       bool              `json:"shouldSeeDoctor"`
	Sources               []GroundingSource `json:"sources,omitempty"`
}

// Assessment wraps a SymptomAnalysis with the metadata callers need to
// render and log it.  Fallback is true when the analysis is the static safe
// default rather than a model reply.
type Assessment struct {
	RequestID string          `json:"requestId"`
	Provider  string          `json:"provider"`
	Fallback  bool            `json:"fallback"`
	Analysis  SymptomAnalysis `json:"analysis"`
}

// ConnectionState tracks whether an API credential is currently selected.
type ConnectionState string

const (
	ConnectionUnknown      ConnectionState = "unknown"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Symptoms string `json:"symptoms"`
}

// ConnectionResponse is returned by the connection endpoints.
type ConnectionResponse struct {
	State ConnectionState `json:"state"`
}

// ErrorResponse is the JSON error body used by the API.
type ErrorResponse struct {
	Error string          `json:"error"`
	State ConnectionState `json:"state,omitempty"`
}

// Coordinates is a position reported by the user's device.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CareLinks are the follow-up destinations returned with an analysis.
// Doctor is empty unless the analysis advises seeing one.
type CareLinks struct {
	Doctor string `json:"doctor,omitempty"`
	Nearby string `json:"nearby"`
}

// AnalyzeResponse is the body of a successful POST /api/analyze.
type AnalyzeResponse struct {
	Assessment
	Care CareLinks `json:"care"`
}
