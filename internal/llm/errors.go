package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

var (
	// ErrCredential marks failures caused by a missing, invalid or reset API
	// credential.  Callers route these to the connection gate instead of the
	// safety fallback.
	ErrCredential = errors.New("api credential rejected")

	// ErrMissingCredential is returned before any network call when no key is
	// configured.  It wraps ErrCredential.
	ErrMissingCredential = fmt.Errorf("%w: no api key configured", ErrCredential)

	// ErrEmptyResponse is returned when the provider answered without text.
	ErrEmptyResponse = errors.New("empty model response")
)

// credentialPhrases are matched against error text after the structured
// checks in isCredentialAPIError have failed.
var credentialPhrases = []string{
	"Core disconnected",
	"API_KEY",
	"Requested entity was not found.",
}

// IsCredentialMessage reports whether msg contains one of the known
// credential-failure phrases.
func IsCredentialMessage(msg string) bool {
	for _, p := range credentialPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsCredential reports whether err is a credential-class failure.
func IsCredential(err error) bool {
	return err != nil && errors.Is(err, ErrCredential)
}

// classify wraps err with ErrCredential when it is a credential failure,
// looking at the provider's structured error first and at the message text
// last.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrCredential) {
		return err
	}
	if isCredentialAPIError(err) || IsCredentialMessage(err.Error()) {
		return fmt.Errorf("%w: %w", ErrCredential, err)
	}
	return err
}

func isCredentialAPIError(err error) bool {
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return geminiCredentialError(gerr)
	}
	var gperr *genai.APIError
	if errors.As(err, &gperr) && gperr != nil {
		return geminiCredentialError(*gperr)
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return openAICredentialError(oerr)
	}
	var rerr *openai.RequestError
	if errors.As(err, &rerr) {
		return rerr.HTTPStatusCode == http.StatusUnauthorized || rerr.HTTPStatusCode == http.StatusForbidden
	}
	return false
}

func geminiCredentialError(e genai.APIError) bool {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		// An unknown key comes back as INVALID_ARGUMENT with reason API_KEY_INVALID.
		return strings.Contains(e.Message, "API key") || strings.Contains(e.Message, "API_KEY")
	case http.StatusNotFound:
		return strings.Contains(e.Message, "Requested entity was not found.")
	}
	switch e.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	return false
}

func openAICredentialError(e *openai.APIError) bool {
	if e.HTTPStatusCode == http.StatusUnauthorized || e.HTTPStatusCode == http.StatusForbidden {
		return true
	}
	if code, ok := e.Code.(string); ok && code == "invalid_api_key" {
		return true
	}
	return false
}
