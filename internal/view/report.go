// Package view turns an assessment into what every surface shows: the
// risk styling and the two care affordances.
package view

import (
	"strconv"
	"strings"

	"madipath/pkg"
)

const (
	DefaultMapsSearchURL    = "https://www.google.com/maps/search/"
	DefaultDoctorBookingURL = "https://www.zocdoc.com/"
)

// Links holds the external destinations of the care affordances.
type Links struct {
	MapsSearchURL    string
	DoctorBookingURL string
}

func (l Links) maps() string {
	base := strings.TrimSpace(l.MapsSearchURL)
	if base == "" {
		base = DefaultMapsSearchURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// NearbyCare returns the hospital search URL.  Without coordinates, because
// location was denied or unavailable, it searches near the user instead.
func (l Links) NearbyCare(at *pkg.Coordinates) string {
	if at == nil {
		return l.maps() + "hospital+near+me"
	}
	return l.maps() + "hospital/@" + coord(at.Latitude) + "," + coord(at.Longitude) + ",15z"
}

// coord formats v with the fewest digits that read back to the same value.
func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Doctor returns the booking URL.
func (l Links) Doctor() string {
	if u := strings.TrimSpace(l.DoctorBookingURL); u != "" {
		return u
	}
	return DefaultDoctorBookingURL
}

// Report is the rendered form of one assessment.
type Report struct {
	RequestID     string
	Provider      string
	Fallback      bool
	Analysis      pkg.SymptomAnalysis
	RiskClass     string
	RiskLabel     string
	ShowDoctorCTA bool
	DoctorURL     string
	NearbyURL     string
}

// NewReport builds the report for a.  The doctor call-to-action follows
// ShouldSeeDoctor and nothing else.
func NewReport(a *pkg.Assessment, links Links) Report {
	return Report{
		RequestID:     a.RequestID,
		Provider:      a.Provider,
		Fallback:      a.Fallback,
		Analysis:      a.Analysis,
		RiskClass:     RiskClass(a.Analysis.RiskLevel),
		RiskLabel:     RiskLabel(a.Analysis.RiskLevel),
		ShowDoctorCTA: a.Analysis.ShouldSeeDoctor,
		DoctorURL:     links.Doctor(),
		NearbyURL:     links.NearbyCare(nil),
	}
}

// RiskClass maps a risk level to the CSS class of its badge.
func RiskClass(r pkg.RiskLevel) string {
	switch r {
	case pkg.RiskHigh:
		return "risk-high"
	case pkg.RiskMedium:
		return "risk-medium"
	case pkg.RiskLow:
		return "risk-low"
	}
	return "risk-unknown"
}

// RiskLabel is the headline shown next to the badge.
func RiskLabel(r pkg.RiskLevel) string {
	switch r {
	case pkg.RiskHigh:
		return "High risk: seek care now"
	case pkg.RiskMedium:
		return "Medium risk: see a doctor soon"
	case pkg.RiskLow:
		return "Low risk: self-care may be enough"
	}
	return "Unknown risk"
}
