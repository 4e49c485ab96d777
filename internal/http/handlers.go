package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"madipath/internal/core"
	"madipath/internal/metrics"
	"madipath/internal/view"
	"madipath/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionCookie = "madipath_session"
	maxBodyBytes  = 64 << 10
)

// Analyzer produces an assessment for a symptom description.
type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*pkg.Assessment, error)
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Triage    Analyzer
	Gate      *core.Gate
	Guard     *core.InflightGuard
	Links     view.Links
	Templates *template.Template
	Log       *zap.Logger
	metrics   http.Handler
}

// NewServer constructs a Server with the embedded HTML templates.
func NewServer(triage Analyzer, gate *core.Gate, links view.Links, log *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Triage:    triage,
		Gate:      gate,
		Guard:     &core.InflightGuard{},
		Links:     links,
		Templates: tmpl,
		Log:       log,
		metrics:   promhttp.Handler(),
	}, nil
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/" && r.Method == http.MethodGet:
		s.handleIndex(w, r)
	case path == "/analyze" && r.Method == http.MethodPost:
		s.handleAnalyzeForm(w, r)
	case path == "/connect" && r.Method == http.MethodPost:
		s.handleConnectForm(w, r)
	case path == "/care/nearby" && r.Method == http.MethodGet:
		s.handleNearby(w, r)
	case path == "/care/doctor" && r.Method == http.MethodGet:
		http.Redirect(w, r, s.Links.Doctor(), http.StatusFound)
	case path == "/api/analyze" && r.Method == http.MethodPost:
		s.handleAnalyzeAPI(w, r)
	case path == "/api/connection" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, pkg.ConnectionResponse{State: s.state(r.Context())})
	case path == "/api/connection/select" && r.Method == http.MethodPost:
		s.handleSelectAPI(w, r)
	case path == "/healthz":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	case path == "/metrics" && r.Method == http.MethodGet:
		s.metrics.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

type page struct {
	Symptoms string
	Error    string
	Report   *view.Report
}

// state returns the gate state, checking the credential provider when it is
// still unknown.
func (s *Server) state(ctx context.Context) pkg.ConnectionState {
	if st := s.Gate.State(); st != pkg.ConnectionUnknown {
		return st
	}
	return s.Gate.Check(ctx)
}

// handleIndex renders the symptom form, or the connection gate when no key
// is selected.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.ensureSession(w, r)
	if s.state(r.Context()) != pkg.ConnectionConnected {
		s.render(w, http.StatusOK, "gate.html", page{})
		return
	}
	s.render(w, http.StatusOK, "index.html", page{})
}

// handleConnectForm selects a key and returns to the index page.
func (s *Server) handleConnectForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Gate.Connect(r.Context()); err != nil {
		s.render(w, http.StatusOK, "gate.html", page{Error: "No API key could be selected. Add one and try again."})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAnalyzeForm runs one triage request from the HTML form and renders
// the report below the form.  Blank input shows the form again untouched.
func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	symptoms := r.FormValue("symptoms")
	if strings.TrimSpace(symptoms) == "" {
		s.handleIndex(w, r)
		return
	}

	if s.state(r.Context()) != pkg.ConnectionConnected {
		s.render(w, http.StatusOK, "gate.html", page{})
		return
	}

	release, ok := s.Guard.Acquire(s.ensureSession(w, r))
	if !ok {
		metrics.ConcurrentRejections.WithLabelValues("web").Inc()
		s.render(w, http.StatusTooManyRequests, "index.html", page{Symptoms: symptoms, Error: "An analysis is already running. Please wait for it to finish."})
		return
	}
	defer release()

	a, err := s.Triage.Analyze(r.Context(), symptoms)
	if err != nil {
		s.Gate.Observe(err)
		s.Log.Warn("analysis blocked by connection gate", zap.Error(err))
		s.render(w, http.StatusOK, "gate.html", page{Error: "The engine connection was reset. Please sync again."})
		return
	}
	rep := view.NewReport(a, s.Links)
	s.render(w, http.StatusOK, "index.html", page{Symptoms: symptoms, Report: &rep})
}

// handleNearby redirects to the hospital search, centred on the reported
// position when lat and lng are both valid.
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.Links.NearbyCare(parseCoordinates(r)), http.StatusFound)
}

func parseCoordinates(r *http.Request) *pkg.Coordinates {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &pkg.Coordinates{Latitude: lat, Longitude: lng}
}

// handleAnalyzeAPI is the JSON form of handleAnalyzeForm.
func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	var req pkg.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: core.ErrEmptySymptoms.Error()})
		return
	}
	if st := s.state(r.Context()); st != pkg.ConnectionConnected {
		writeJSON(w, http.StatusConflict, pkg.ErrorResponse{Error: core.ErrDisconnected.Error(), State: st})
		return
	}

	release, ok := s.Guard.Acquire(s.ensureSession(w, r))
	if !ok {
		metrics.ConcurrentRejections.WithLabelValues("api").Inc()
		writeJSON(w, http.StatusTooManyRequests, pkg.ErrorResponse{Error: "an analysis is already pending for this session"})
		return
	}
	defer release()

	a, err := s.Triage.Analyze(r.Context(), req.Symptoms)
	switch {
	case errors.Is(err, core.ErrEmptySymptoms):
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		s.Gate.Observe(err)
		writeJSON(w, http.StatusConflict, pkg.ErrorResponse{Error: core.ErrDisconnected.Error(), State: s.Gate.State()})
		return
	}

	resp := pkg.AnalyzeResponse{Assessment: *a, Care: pkg.CareLinks{Nearby: s.Links.NearbyCare(nil)}}
	if a.Analysis.ShouldSeeDoctor {
		resp.Care.Doctor = s.Links.Doctor()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSelectAPI re-selects the API key.
func (s *Server) handleSelectAPI(w http.ResponseWriter, r *http.Request) {
	st, err := s.Gate.Connect(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, pkg.ErrorResponse{Error: err.Error(), State: st})
		return
	}
	writeJSON(w, http.StatusOK, pkg.ConnectionResponse{State: st})
}

// ensureSession returns the caller's session ID, issuing a new cookie when
// there is none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Templates.ExecuteTemplate(w, name, data); err != nil {
		s.Log.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
