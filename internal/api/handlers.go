package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/workflow"
)

// casesHandler runs the full workflow for a submitted case (POST /cases).
// The request is synchronous; live progress is available over the WebSocket
// endpoint for the same session id.
func (s *Server) casesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.casesHandler: processing case submission", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.casesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input models.CaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("Server.casesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := input.Validate(); err != nil {
		slog.Warn("Server.casesHandler: validation failed", "error", err, "patient", input.Patient.Name)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultCaseRunTimeout)
	defer cancel()

	result, err := s.engine.Run(ctx, input)
	if err != nil {
		var stageErr *workflow.StageError
		if errors.As(err, &stageErr) {
			slog.Error("Server.casesHandler: workflow aborted", "stage", stageErr.Stage, "error", stageErr.Err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error(stageErr.Error()))
			return
		}
		slog.Warn("Server.casesHandler: case rejected", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.casesHandler: case completed", "session_id", result.SessionID, "classification", result.Classification)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// severityWeights assigns clinical severity to imaging findings for the
// urgency formula. Unlisted findings carry a weight of 3.
var severityWeights = map[string]float64{
	"Pneumothorax":     10,
	"Pleural Effusion": 7,
	"Pneumonia":        6,
	"Cardiomegaly":     5,
	"Consolidation":    5,
	"Atelectasis":      4,
	"Edema":            4,
}

const defaultSeverityWeight = 3

// analyzeRequest is the payload for POST /analyze.
type analyzeRequest struct {
	Findings map[string]float64 `json:"findings"`
}

// analyzeResult is the body of a successful POST /analyze response.
type analyzeResult struct {
	UrgencyScore float64               `json:"urgency_score"`
	UrgencyLabel models.Classification `json:"urgency_label"`
	Findings     map[string]float64    `json:"findings"`
}

// analyzeHandler scores pre-computed imaging findings (POST /analyze).
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.analyzeHandler: processing analyze request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.analyzeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.analyzeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(req.Findings) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrNoFindings.Error()))
		return
	}
	for _, p := range req.Findings {
		if p < 0 || p > 1 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrProbabilityRange.Error()))
			return
		}
	}

	score := urgencyScore(req.Findings)
	writeJSONResponse(w, http.StatusOK, models.Success(analyzeResult{
		UrgencyScore: score,
		UrgencyLabel: classifyScore(score),
		Findings:     req.Findings,
	}))
}

// urgencyScore computes the weighted severity score on the 0-10 scale.
func urgencyScore(findings map[string]float64) float64 {
	var weighted float64
	for name, p := range findings {
		weight, ok := severityWeights[name]
		if !ok {
			weight = defaultSeverityWeight
		}
		weighted += p * weight
	}
	score := weighted / 2
	if score > 10 {
		score = 10
	}
	return score
}

// classifyScore maps an urgency score to its triage label using the default
// thresholds.
func classifyScore(score float64) models.Classification {
	cfg := workflow.DefaultConfig()
	switch {
	case score >= cfg.CriticalThreshold:
		return models.ClassificationCritical
	case score >= cfg.PriorityThreshold:
		return models.ClassificationPriority
	case score >= cfg.RoutineThreshold:
		return models.ClassificationRoutine
	default:
		return models.ClassificationLowRisk
	}
}

// requestsHandler lists persisted appointment requests (GET /requests).
func (s *Server) requestsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.requestsHandler: processing requests query", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.requestsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filter := store.RequestFilter{
		PatientID: r.URL.Query().Get("patient_id"),
		Status:    models.RequestStatus(r.URL.Query().Get("status")),
	}
	requests, err := s.st.ListRequests(filter)
	if err != nil {
		slog.Error("Server.requestsHandler: failed to list requests", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch requests"))
		return
	}
	slog.Debug("Server.requestsHandler: requests fetched", "count", len(requests))
	writeJSONResponse(w, http.StatusOK, models.Success(requests))
}

// appointmentsHandler lists confirmed appointments (GET /appointments).
func (s *Server) appointmentsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.appointmentsHandler: processing appointments query", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.appointmentsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	appointments, err := s.st.ListAppointments(store.AppointmentFilter{
		PatientID: r.URL.Query().Get("patient_id"),
	})
	if err != nil {
		slog.Error("Server.appointmentsHandler: failed to list appointments", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch appointments"))
		return
	}
	slog.Debug("Server.appointmentsHandler: appointments fetched", "count", len(appointments))
	writeJSONResponse(w, http.StatusOK, models.Success(appointments))
}

// specialistsHandler lists the specialist directory (GET /specialists).
func (s *Server) specialistsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.specialistsHandler: processing directory query", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.specialistsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var specialists []models.Specialist
	if specialty := r.URL.Query().Get("specialty"); specialty != "" {
		specialists = s.directory.BySpecialty(specialty)
	} else {
		specialists = s.directory.All()
	}
	writeJSONResponse(w, http.StatusOK, models.Success(specialists))
}

// sessionHandler returns the progress snapshot for one session
// (GET /sessions/{id}).
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session query", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.sessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptySessionID.Error()))
		return
	}

	session, ok := s.progress.Snapshot(sessionID)
	if !ok {
		slog.Debug("Server.sessionHandler: unknown session", "session_id", sessionID)
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrUnknownSessionID.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

// healthHandler reports liveness and store stats (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.st.Stats()
	if err != nil {
		slog.Error("Server.healthHandler: failed to read store stats", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Store unavailable"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", stats))
}
