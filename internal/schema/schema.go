// Package schema defines the structured-output contract requested from the
// model.  The JSON Schema document is the single source of truth: it is sent
// to OpenAI as-is, mirrored for Gemini by Gemini(), and used to validate every
// reply locally before it is accepted.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

//go:embed schema.json
var document []byte

// Name identifies the schema in provider requests that need one.
const Name = "symptom_analysis"

// Field names, in the order the model is asked to produce them.
const (
	FieldExplanation     = "explanation"
	FieldRiskLevel       = "riskLevel"
	FieldNextSteps       = "nextSteps"
	FieldOTCMedicines    = "suggestedOTCMedicines"
	FieldWarningSigns    = "warningSigns"
	FieldMedicalCodes    = "medicalCodes"
	FieldShouldSeeDoctor = "shouldSeeDoctor"
)

// ErrInvalid is wrapped by Validate when the reply does not match the schema.
var ErrInvalid = errors.New("reply does not match response schema")

var compiled *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		panic(fmt.Sprintf("schema: embedded schema.json does not compile: %v", err))
	}
	compiled = s
}

// Fields returns the required fields in output order.
func Fields() []string {
	return []string{
		FieldExplanation,
		FieldRiskLevel,
		FieldNextSteps,
		FieldOTCMedicines,
		FieldWarningSigns,
		FieldMedicalCodes,
		FieldShouldSeeDoctor,
	}
}

// RiskLevels returns the allowed values of riskLevel.
func RiskLevels() []string {
	return []string{"Low", "Medium", "High"}
}

// JSON returns a copy of the schema document.
func JSON() json.RawMessage {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Validate checks a raw model reply against the schema.  The returned error
// wraps ErrInvalid and lists every violation.
func Validate(raw []byte) error {
	res, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Gemini mirrors the schema document in the form the genai SDK expects.
func Gemini() *genai.Schema {
	stringList := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			FieldExplanation:     {Type: genai.TypeString},
			FieldRiskLevel:       {Type: genai.TypeString, Enum: RiskLevels()},
			FieldNextSteps:       stringList(),
			FieldOTCMedicines:    stringList(),
			FieldWarningSigns:    stringList(),
			FieldMedicalCodes:    stringList(),
			FieldShouldSeeDoctor: {Type: genai.TypeBoolean},
		},
		Required:         Fields(),
		PropertyOrdering: Fields(),
	}
}
