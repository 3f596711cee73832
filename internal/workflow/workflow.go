// Package workflow implements the case orchestration engine for JarvisMD.
//
// The engine drives one case through a directed graph of stages with
// conditional routing: triage classifies the case, the clinical pathway
// matches specialists and coordinates an appointment, and the advisory
// pathway produces health recommendations for low-risk cases. Every stage
// transition is broadcast on the progress channel.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/directory"
	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/notify"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/util"

	"github.com/google/uuid"
)

// Advisor is the language-model collaborator consulted by the triage,
// outreach, and advisory stages. A nil Advisor (or any error it returns)
// falls back to the deterministic policy of the calling stage.
type Advisor interface {
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage is one node in the workflow graph: a unit of work over the case.
type Stage interface {
	ID() models.StageID
	Run(ctx context.Context, c *models.Case) error
}

// StageError aborts a workflow run. It names the failing stage and wraps the
// original cause.
type StageError struct {
	Stage models.StageID
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Config holds the tuning constants of the workflow. These are presented as
// configuration rather than derived values; the defaults mirror the
// production policy.
type Config struct {
	// Triage thresholds on the 0-10 urgency scale.
	CriticalThreshold float64
	PriorityThreshold float64
	RoutineThreshold  float64

	// Matching rules.
	FindingProbabilityThreshold float64 // minimum probability for a finding to drive matching
	EmergencyUrgencyThreshold   float64 // urgency at or above which emergency medicine is included
	MaxSelectedSpecialists      int
	SlotsPerSpecialist          int
	SlotLookaheadDays           int

	// Eligibility filters.
	CriticalMinExperienceYears int
	CriticalMinRating          float64
	PriorityMinRating          float64

	// Outreach.
	ProposedSlotsPerRequest int
	ContactPacing           time.Duration

	// Response resolution acceptance likelihoods by classification.
	AcceptanceRates   map[models.Classification]float64
	DefaultAcceptance float64
}

// DefaultConfig returns the production tuning constants.
func DefaultConfig() Config {
	return Config{
		CriticalThreshold:           8,
		PriorityThreshold:           5,
		RoutineThreshold:            3,
		FindingProbabilityThreshold: 0.3,
		EmergencyUrgencyThreshold:   7,
		MaxSelectedSpecialists:      3,
		SlotsPerSpecialist:          5,
		SlotLookaheadDays:           14,
		CriticalMinExperienceYears:  10,
		CriticalMinRating:           4.7,
		PriorityMinRating:           4.5,
		ProposedSlotsPerRequest:     3,
		ContactPacing:               200 * time.Millisecond,
		AcceptanceRates: map[models.Classification]float64{
			models.ClassificationCritical: 0.95,
			models.ClassificationPriority: 0.80,
			models.ClassificationRoutine:  0.60,
		},
		DefaultAcceptance: 0.70,
	}
}

// Engine holds the stage graph and its collaborators and drives one case
// from triage to a terminal stage.
type Engine struct {
	cfg      Config
	stages   map[models.StageID]Stage
	progress *progress.Manager
	rng      *rand.Rand
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default tuning constants.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithRand injects a deterministic random source (for tests).
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock injects a time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine wires the six stage handlers to their collaborators. The advisor
// may be nil; every stage that consults it has a deterministic fallback.
func NewEngine(dir directory.Provider, st store.Store, notifier notify.Service, advisor Advisor, prog *progress.Manager, opts ...Option) *Engine {
	e := &Engine{
		cfg:      DefaultConfig(),
		progress: prog,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	stages := []Stage{
		&triageStage{cfg: &e.cfg, advisor: advisor},
		&matchStage{cfg: &e.cfg, directory: dir},
		&outreachStage{cfg: &e.cfg, advisor: advisor, notifier: notifier, store: st, progress: prog, now: e.now},
		&responseStage{cfg: &e.cfg, store: st, rng: e.rng, now: e.now},
		&calendarStage{store: st, progress: prog, now: e.now},
		&advisoryStage{advisor: advisor},
		&escalationStage{},
	}
	e.stages = make(map[models.StageID]Stage, len(stages))
	for _, s := range stages {
		e.stages[s.ID()] = s
	}
	return e
}

// Run executes the workflow for one case and returns the final case state.
// The returned case is populated up to the failure point even when the run
// aborts with a *StageError.
func (e *Engine) Run(ctx context.Context, input models.CaseInput) (*models.Case, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	patient := input.Patient
	if patient.ID == "" {
		patient.ID = util.GeneratePatientID()
	}

	c := &models.Case{
		SessionID:    sessionID,
		Patient:      patient,
		Symptoms:     input.Symptoms,
		Findings:     input.Findings,
		UrgencyScore: input.UrgencyScore,
		CreatedAt:    e.now(),
	}

	e.progress.Start(sessionID, patient.Name)
	slog.Info("workflow.Engine.Run: starting case", "session_id", sessionID, "patient_id", patient.ID, "urgency", input.UrgencyScore)

	current := models.StageTriage
	for current != models.StageEnd {
		stage, ok := e.stages[current]
		if !ok {
			err := &StageError{Stage: current, Err: fmt.Errorf("no handler registered")}
			e.progress.Fail(sessionID, err.Error())
			return c, err
		}

		c.CurrentStage = current
		e.progress.Update(sessionID, current, models.StageStatusRunning, fmt.Sprintf("%s started", stageLabel(current)), nil)

		if err := stage.Run(ctx, c); err != nil {
			stageErr := &StageError{Stage: current, Err: err}
			slog.Error("workflow.Engine.Run: stage failed", "session_id", sessionID, "stage", current, "error", err)
			e.progress.Update(sessionID, current, models.StageStatusError, err.Error(), nil)
			e.progress.Fail(sessionID, stageErr.Error())
			return c, stageErr
		}

		e.progress.Update(sessionID, current, models.StageStatusCompleted, fmt.Sprintf("%s completed", stageLabel(current)), stageData(current, c))

		next := e.route(current, c)
		c.NextStage = next
		slog.Debug("workflow.Engine.Run: stage transition", "session_id", sessionID, "from", current, "to", next)
		current = next
	}

	done := e.now()
	c.CompletedAt = &done
	c.CurrentStage = models.StageEnd
	c.NextStage = ""
	e.progress.Complete(sessionID, c)
	slog.Info("workflow.Engine.Run: case completed", "session_id", sessionID, "classification", c.Classification, "appointment", c.ConfirmedAppointment != nil)
	return c, nil
}

// route picks the next stage as a pure function of case state. Both
// conditional edges are re-evaluated fresh on every transition; the engine
// keeps no routing state of its own.
//
// Classification policy: CRITICAL, PRIORITY, and ROUTINE all take the
// clinical pathway; only LOW_RISK routes to the advisory pathway.
func (e *Engine) route(from models.StageID, c *models.Case) models.StageID {
	switch from {
	case models.StageTriage:
		switch c.Classification {
		case models.ClassificationCritical, models.ClassificationPriority, models.ClassificationRoutine:
			return models.StageSpecialistMatch
		default:
			return models.StageAdvisory
		}
	case models.StageSpecialistMatch:
		return models.StageOutreach
	case models.StageOutreach:
		return models.StageResponses
	case models.StageResponses:
		if c.ConfirmedAppointment != nil {
			return models.StageCalendar
		}
		return models.StageEscalation
	default:
		return models.StageEnd
	}
}

// stageLabel returns the human-readable name used in progress messages.
func stageLabel(id models.StageID) string {
	switch id {
	case models.StageTriage:
		return "Case triage"
	case models.StageSpecialistMatch:
		return "Specialist matching"
	case models.StageOutreach:
		return "Appointment outreach"
	case models.StageResponses:
		return "Response resolution"
	case models.StageCalendar:
		return "Calendar integration"
	case models.StageAdvisory:
		return "Health advisory"
	case models.StageEscalation:
		return "Case escalation"
	default:
		return string(id)
	}
}

// stageData attaches stage-specific detail to completion events.
func stageData(id models.StageID, c *models.Case) map[string]interface{} {
	switch id {
	case models.StageTriage:
		return map[string]interface{}{"classification": string(c.Classification), "rationale": c.TriageRationale}
	case models.StageSpecialistMatch:
		return map[string]interface{}{"selected": len(c.SelectedSpecialists)}
	case models.StageOutreach:
		return map[string]interface{}{"requests": len(c.OutreachRequests)}
	case models.StageResponses:
		return map[string]interface{}{"responses": len(c.SpecialistResponses), "confirmed": c.ConfirmedAppointment != nil}
	default:
		return nil
	}
}
