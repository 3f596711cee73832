package workflow

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/directory"
	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/notify"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
)

// stubAdvisor implements Advisor with a canned reply.
type stubAdvisor struct {
	reply string
	err   error
}

func (a *stubAdvisor) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return a.reply, a.err
}

// testConfig removes pacing delays and makes acceptance deterministic.
func testConfig(acceptance float64) Config {
	cfg := DefaultConfig()
	cfg.ContactPacing = 0
	cfg.AcceptanceRates = map[models.Classification]float64{
		models.ClassificationCritical: acceptance,
		models.ClassificationPriority: acceptance,
		models.ClassificationRoutine:  acceptance,
	}
	cfg.DefaultAcceptance = acceptance
	return cfg
}

func testEngine(t *testing.T, advisor Advisor, acceptance float64) (*Engine, *store.InMemoryStore, *notify.Recorder, *progress.Manager) {
	t.Helper()
	st := store.NewInMemoryStore()
	rec := notify.NewRecorder()
	prog := progress.NewManager()
	engine := NewEngine(directory.NewStatic(), st, rec, advisor, prog,
		WithConfig(testConfig(acceptance)),
		WithRand(rand.New(rand.NewPCG(1, 1))),
	)
	return engine, st, rec, prog
}

func criticalInput() models.CaseInput {
	return models.CaseInput{
		Patient:      models.PatientInfo{ID: "pt_test", Name: "John Smith", Age: 58},
		Symptoms:     "severe chest pain, shortness of breath",
		Findings:     map[string]float64{"Cardiomegaly": 0.72},
		UrgencyScore: 9.0,
		SessionID:    "sess-critical",
	}
}

func TestClassifyNumericThresholds(t *testing.T) {
	cfg := DefaultConfig()
	stage := &triageStage{cfg: &cfg}

	cases := []struct {
		urgency float64
		want    models.Classification
	}{
		{10, models.ClassificationCritical},
		{8, models.ClassificationCritical},
		{7.9, models.ClassificationPriority},
		{5, models.ClassificationPriority},
		{4.9, models.ClassificationRoutine},
		{3, models.ClassificationRoutine},
		{2.9, models.ClassificationLowRisk},
		{0, models.ClassificationLowRisk},
	}
	for _, tc := range cases {
		got, _ := stage.classifyNumeric(tc.urgency)
		if got != tc.want {
			t.Errorf("classifyNumeric(%.1f) = %q, want %q", tc.urgency, got, tc.want)
		}
	}
}

func TestTriageAdvisorOverride(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("valid label adopted", func(t *testing.T) {
		stage := &triageStage{cfg: &cfg, advisor: &stubAdvisor{
			reply: "```json\n{\"classification\": \"priority\", \"reasoning\": \"borderline cardiac findings\"}\n```",
		}}
		c := &models.Case{UrgencyScore: 9.0}
		if err := stage.Run(context.Background(), c); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if c.Classification != models.ClassificationPriority {
			t.Errorf("expected advisor label adopted, got %q", c.Classification)
		}
		if c.TriageRationale != "borderline cardiac findings" {
			t.Errorf("expected advisor rationale, got %q", c.TriageRationale)
		}
	})

	t.Run("unknown label falls back to thresholds", func(t *testing.T) {
		stage := &triageStage{cfg: &cfg, advisor: &stubAdvisor{
			reply: `{"classification": "URGENT", "reasoning": "nonstandard label"}`,
		}}
		c := &models.Case{UrgencyScore: 9.0}
		if err := stage.Run(context.Background(), c); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if c.Classification != models.ClassificationCritical {
			t.Errorf("expected numeric fallback CRITICAL, got %q", c.Classification)
		}
	})

	t.Run("provider error falls back to thresholds", func(t *testing.T) {
		stage := &triageStage{cfg: &cfg, advisor: &stubAdvisor{err: errors.New("api down")}}
		c := &models.Case{UrgencyScore: 4.0}
		if err := stage.Run(context.Background(), c); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if c.Classification != models.ClassificationRoutine {
			t.Errorf("expected numeric fallback ROUTINE, got %q", c.Classification)
		}
	})
}

func TestMatchSelectsEligibleSpecialists(t *testing.T) {
	cfg := DefaultConfig()
	stage := &matchStage{cfg: &cfg, directory: directory.NewStatic()}

	c := &models.Case{
		Classification: models.ClassificationCritical,
		Findings:       map[string]float64{"Cardiomegaly": 0.72},
		UrgencyScore:   9.0,
	}
	if err := stage.Run(context.Background(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Cardiologists score 0.90 and fill the top three; the critical filter
	// then drops the junior one.
	if len(c.SelectedSpecialists) != 2 {
		t.Fatalf("expected 2 selected specialists, got %d", len(c.SelectedSpecialists))
	}
	for _, sp := range c.SelectedSpecialists {
		if sp.Specialty != "Cardiologist" {
			t.Errorf("expected cardiologists, got %q", sp.Specialty)
		}
		if sp.ExperienceYears < cfg.CriticalMinExperienceYears || sp.Rating < cfg.CriticalMinRating {
			t.Errorf("ineligible specialist selected for critical case: %s", sp.ID)
		}
		if sp.MatchScore != 0.90 {
			t.Errorf("expected cardiac match score 0.90, got %v", sp.MatchScore)
		}
		if len(sp.AvailableSlots) == 0 || len(sp.AvailableSlots) > cfg.SlotsPerSpecialist {
			t.Errorf("expected 1..%d slots, got %d", cfg.SlotsPerSpecialist, len(sp.AvailableSlots))
		}
	}

	if len(c.RecommendedSpecialists) == 0 {
		t.Error("expected recommended specialists recorded on the case")
	}
}

func TestMatchEmergencyOnUrgency(t *testing.T) {
	cfg := DefaultConfig()
	stage := &matchStage{cfg: &cfg, directory: directory.NewStatic()}

	c := &models.Case{
		Classification: models.ClassificationPriority,
		Findings:       map[string]float64{"Fracture": 0.9},
		UrgencyScore:   7.0,
	}
	if err := stage.Run(context.Background(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(c.SelectedSpecialists) != 2 {
		t.Fatalf("expected 2 emergency specialists, got %d", len(c.SelectedSpecialists))
	}
	for _, sp := range c.SelectedSpecialists {
		if sp.Specialty != "Emergency Medicine" {
			t.Errorf("expected Emergency Medicine, got %q", sp.Specialty)
		}
		if sp.MatchScore != 0.85 {
			t.Errorf("expected emergency match score 0.85, got %v", sp.MatchScore)
		}
	}
}

func TestMatchBelowThresholdsSelectsNobody(t *testing.T) {
	cfg := DefaultConfig()
	stage := &matchStage{cfg: &cfg, directory: directory.NewStatic()}

	c := &models.Case{
		Classification: models.ClassificationRoutine,
		Findings:       map[string]float64{"Cardiomegaly": 0.1},
		UrgencyScore:   3.0,
	}
	if err := stage.Run(context.Background(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(c.SelectedSpecialists) != 0 {
		t.Errorf("expected no matches below thresholds, got %d", len(c.SelectedSpecialists))
	}
}

func TestResponsesFirstAcceptWins(t *testing.T) {
	cfg := testConfig(1.0)
	st := store.NewInMemoryStore()
	stage := &responseStage{cfg: &cfg, store: st, rng: rand.New(rand.NewPCG(1, 1)), now: time.Now}

	slot := models.Slot{Date: "2025-06-03", Time: "08:00", DateTime: time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)}
	c := &models.Case{
		Patient:        models.PatientInfo{ID: "pt_test", Name: "John Smith"},
		Classification: models.ClassificationCritical,
	}
	for _, id := range []string{"req_1", "req_2", "req_3"} {
		req := models.AppointmentRequest{
			ID: id, SpecialistID: "sp_" + id, SpecialistName: "Dr " + id,
			PatientID: "pt_test", Status: models.RequestStatusSent,
			ProposedSlots: []models.Slot{slot}, SentAt: time.Now(),
		}
		c.OutreachRequests = append(c.OutreachRequests, req)
		if err := st.SaveRequest(req); err != nil {
			t.Fatalf("SaveRequest failed: %v", err)
		}
	}

	if err := stage.Run(context.Background(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(c.SpecialistResponses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(c.SpecialistResponses))
	}
	if c.SpecialistResponses[0].Decision != models.DecisionAccept {
		t.Errorf("expected first request accepted, got %q", c.SpecialistResponses[0].Decision)
	}
	for _, resp := range c.SpecialistResponses[1:] {
		if resp.Decision != models.DecisionDecline {
			t.Errorf("expected later requests declined, got %q", resp.Decision)
		}
		if resp.Reason != "schedule conflict" {
			t.Errorf("expected schedule conflict reason, got %q", resp.Reason)
		}
	}

	if c.ConfirmedAppointment == nil {
		t.Fatal("expected a confirmed appointment")
	}
	if c.ConfirmedAppointment.RequestID != "req_1" {
		t.Errorf("appointment should come from the first accepted request, got %q", c.ConfirmedAppointment.RequestID)
	}
	if !c.ConfirmedAppointment.ScheduledAt.Equal(slot.DateTime) {
		t.Errorf("appointment should use the first proposed slot, got %v", c.ConfirmedAppointment.ScheduledAt)
	}

	accepted, _ := st.ListRequests(store.RequestFilter{Status: models.RequestStatusAccepted})
	if len(accepted) != 1 {
		t.Errorf("expected 1 accepted request in store, got %d", len(accepted))
	}
	declined, _ := st.ListRequests(store.RequestFilter{Status: models.RequestStatusDeclined})
	if len(declined) != 2 {
		t.Errorf("expected 2 declined requests in store, got %d", len(declined))
	}
}

func TestResponsesNoSlotsDeclines(t *testing.T) {
	cfg := testConfig(1.0)
	st := store.NewInMemoryStore()
	stage := &responseStage{cfg: &cfg, store: st, rng: rand.New(rand.NewPCG(1, 1)), now: time.Now}

	c := &models.Case{
		Patient:        models.PatientInfo{ID: "pt_test", Name: "John Smith"},
		Classification: models.ClassificationPriority,
		OutreachRequests: []models.AppointmentRequest{
			{ID: "req_1", SpecialistID: "sp_1", PatientID: "pt_test", Status: models.RequestStatusSent},
		},
	}
	if err := stage.Run(context.Background(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.ConfirmedAppointment != nil {
		t.Error("request without slots must not produce an appointment")
	}
	if len(c.SpecialistResponses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(c.SpecialistResponses))
	}
	resp := c.SpecialistResponses[0]
	if resp.Decision != models.DecisionDecline || resp.Reason != "No suitable slots available" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRouting(t *testing.T) {
	engine, _, _, _ := testEngine(t, nil, 1.0)

	cases := []struct {
		name string
		from models.StageID
		c    models.Case
		want models.StageID
	}{
		{"critical to clinical", models.StageTriage, models.Case{Classification: models.ClassificationCritical}, models.StageSpecialistMatch},
		{"priority to clinical", models.StageTriage, models.Case{Classification: models.ClassificationPriority}, models.StageSpecialistMatch},
		{"routine to clinical", models.StageTriage, models.Case{Classification: models.ClassificationRoutine}, models.StageSpecialistMatch},
		{"low risk to advisory", models.StageTriage, models.Case{Classification: models.ClassificationLowRisk}, models.StageAdvisory},
		{"match to outreach", models.StageSpecialistMatch, models.Case{}, models.StageOutreach},
		{"outreach to responses", models.StageOutreach, models.Case{}, models.StageResponses},
		{"responses with appointment", models.StageResponses, models.Case{ConfirmedAppointment: &models.Appointment{}}, models.StageCalendar},
		{"responses without appointment", models.StageResponses, models.Case{}, models.StageEscalation},
		{"calendar to end", models.StageCalendar, models.Case{}, models.StageEnd},
		{"advisory to end", models.StageAdvisory, models.Case{}, models.StageEnd},
		{"escalation to end", models.StageEscalation, models.Case{}, models.StageEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.route(tc.from, &tc.c); got != tc.want {
				t.Errorf("route(%s) = %s, want %s", tc.from, got, tc.want)
			}
		})
	}
}

func TestEngineRunCriticalCase(t *testing.T) {
	engine, st, rec, prog := testEngine(t, nil, 1.0)

	c, err := engine.Run(context.Background(), criticalInput())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Classification != models.ClassificationCritical {
		t.Errorf("expected CRITICAL, got %q", c.Classification)
	}
	if c.ConfirmedAppointment == nil {
		t.Fatal("expected a confirmed appointment")
	}
	if c.ConfirmedAppointment.PatientID != "pt_test" {
		t.Errorf("appointment carries wrong patient: %q", c.ConfirmedAppointment.PatientID)
	}
	if c.Advisory != nil {
		t.Error("clinical pathway must not produce an advisory")
	}
	if c.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
	if c.CurrentStage != models.StageEnd {
		t.Errorf("expected terminal stage, got %q", c.CurrentStage)
	}

	// Exactly one acceptance among the responses.
	accepts := 0
	for _, resp := range c.SpecialistResponses {
		if resp.Decision == models.DecisionAccept {
			accepts++
		}
	}
	if accepts != 1 {
		t.Errorf("expected exactly one acceptance, got %d", accepts)
	}

	// One notification per outreach request.
	if got := len(rec.Sent()); got != len(c.OutreachRequests) {
		t.Errorf("expected %d notifications, got %d", len(c.OutreachRequests), got)
	}

	// Requests and the appointment are persisted.
	requests, _ := st.ListRequests(store.RequestFilter{PatientID: "pt_test"})
	if len(requests) != len(c.OutreachRequests) {
		t.Errorf("expected %d persisted requests, got %d", len(c.OutreachRequests), len(requests))
	}
	appts, _ := st.ListAppointments(store.AppointmentFilter{PatientID: "pt_test"})
	if len(appts) != 1 {
		t.Errorf("expected 1 persisted appointment, got %d", len(appts))
	}

	session, ok := prog.Snapshot("sess-critical")
	if !ok {
		t.Fatal("expected progress session")
	}
	if session.Status != progress.SessionStatusCompleted {
		t.Errorf("expected completed session, got %q", session.Status)
	}
	if session.Percent != 100 {
		t.Errorf("expected 100 percent, got %d", session.Percent)
	}
	if session.FinalCase == nil {
		t.Error("expected final case stored on session")
	}
}

func TestEngineRunLowRiskCase(t *testing.T) {
	engine, st, rec, prog := testEngine(t, nil, 1.0)

	input := models.CaseInput{
		Patient:      models.PatientInfo{Name: "Jane Doe", Age: 29},
		Symptoms:     "mild intermittent cough",
		Findings:     map[string]float64{"Cardiomegaly": 0.05},
		UrgencyScore: 1.5,
		SessionID:    "sess-lowrisk",
	}
	c, err := engine.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Classification != models.ClassificationLowRisk {
		t.Errorf("expected LOW_RISK, got %q", c.Classification)
	}
	if c.Advisory == nil {
		t.Fatal("expected a health advisory")
	}
	if c.Advisory.Summary == "" || len(c.Advisory.WarningSigns) == 0 {
		t.Errorf("advisory incomplete: %+v", c.Advisory)
	}
	if c.ConfirmedAppointment != nil {
		t.Error("advisory pathway must not book appointments")
	}
	if len(c.OutreachRequests) != 0 {
		t.Errorf("advisory pathway must not contact specialists, got %d requests", len(c.OutreachRequests))
	}
	if got := len(rec.Sent()); got != 0 {
		t.Errorf("expected no notifications, got %d", got)
	}
	if requests, _ := st.ListRequests(store.RequestFilter{}); len(requests) != 0 {
		t.Errorf("expected no persisted requests, got %d", len(requests))
	}

	// A generated patient id is assigned when the input has none.
	if !strings.HasPrefix(c.Patient.ID, "pt_") {
		t.Errorf("expected generated patient id, got %q", c.Patient.ID)
	}

	session, _ := prog.Snapshot("sess-lowrisk")
	if session.Status != progress.SessionStatusCompleted {
		t.Errorf("expected completed session, got %q", session.Status)
	}
}

func TestEngineRunAllDeclinedEscalates(t *testing.T) {
	engine, st, _, prog := testEngine(t, nil, 0.0)

	c, err := engine.Run(context.Background(), criticalInput())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.ConfirmedAppointment != nil {
		t.Error("expected no appointment when everyone declines")
	}
	if len(c.SpecialistResponses) == 0 {
		t.Fatal("expected responses recorded")
	}
	for _, resp := range c.SpecialistResponses {
		if resp.Decision != models.DecisionDecline {
			t.Errorf("expected all declines, got %q", resp.Decision)
		}
	}
	escalated := false
	for _, entry := range c.Log {
		if strings.Contains(entry, "escalated") {
			escalated = true
		}
	}
	if !escalated {
		t.Errorf("expected escalation recorded in the case log: %v", c.Log)
	}
	if appts, _ := st.ListAppointments(store.AppointmentFilter{}); len(appts) != 0 {
		t.Errorf("expected no persisted appointments, got %d", len(appts))
	}

	session, _ := prog.Snapshot("sess-critical")
	if session.Status != progress.SessionStatusCompleted {
		t.Errorf("an escalated run still completes, got %q", session.Status)
	}
}

func TestEngineRunPriorityChestPain(t *testing.T) {
	engine, _, _, _ := testEngine(t, nil, 1.0)

	input := models.CaseInput{
		Patient:      models.PatientInfo{Name: "Margaret Hughes", Age: 64},
		Symptoms:     "chest pain radiating to the left arm",
		Findings:     map[string]float64{"Cardiomegaly": 0.85},
		UrgencyScore: 7.5,
		SessionID:    "sess-priority",
	}
	c, err := engine.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Classification != models.ClassificationPriority {
		t.Errorf("expected PRIORITY, got %q", c.Classification)
	}
	cardiology := 0
	for _, sp := range c.SelectedSpecialists {
		if sp.Specialty == "Cardiologist" {
			cardiology++
		}
	}
	if cardiology == 0 {
		t.Error("expected at least one cardiology candidate")
	}
	if c.ConfirmedAppointment == nil {
		t.Error("expected an appointment on the clinical path")
	}
	if len(c.Log) < 4 {
		t.Errorf("expected at least 4 audit log entries, got %d: %v", len(c.Log), c.Log)
	}
}

func TestEngineRunMildCoughAdvisory(t *testing.T) {
	engine, _, _, _ := testEngine(t, nil, 1.0)

	input := models.CaseInput{
		Patient:      models.PatientInfo{Name: "Tom Baker", Age: 31},
		Symptoms:     "mild cough for two days",
		Findings:     map[string]float64{"No Finding": 0.89},
		UrgencyScore: 1.2,
		SessionID:    "sess-mild",
	}
	c, err := engine.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Classification != models.ClassificationLowRisk {
		t.Errorf("expected LOW_RISK, got %q", c.Classification)
	}
	if c.Advisory == nil {
		t.Fatal("expected a populated advisory")
	}
	if len(c.SelectedSpecialists) != 0 {
		t.Errorf("expected no candidates, got %d", len(c.SelectedSpecialists))
	}
	if c.ConfirmedAppointment != nil {
		t.Error("expected no appointment on the advisory path")
	}
}

func TestEngineRunRejectsInvalidInput(t *testing.T) {
	engine, _, _, prog := testEngine(t, nil, 1.0)

	input := criticalInput()
	input.Symptoms = ""
	if _, err := engine.Run(context.Background(), input); !errors.Is(err, models.ErrEmptySymptoms) {
		t.Errorf("expected ErrEmptySymptoms, got %v", err)
	}
	if _, ok := prog.Snapshot("sess-critical"); ok {
		t.Error("rejected input must not create a progress session")
	}
}

func TestEngineRunNotificationFailureTolerated(t *testing.T) {
	st := store.NewInMemoryStore()
	rec := notify.NewRecorder()
	rec.FailFor = map[string]error{"+44-161-276-1234": errors.New("carrier unavailable")}
	prog := progress.NewManager()
	engine := NewEngine(directory.NewStatic(), st, rec, nil, prog,
		WithConfig(testConfig(1.0)),
		WithRand(rand.New(rand.NewPCG(1, 1))),
	)

	c, err := engine.Run(context.Background(), criticalInput())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The failed delivery is still recorded as a sent request.
	if len(c.OutreachRequests) == 0 {
		t.Fatal("expected outreach requests despite notification failure")
	}
	logged := false
	for _, entry := range c.Log {
		if strings.Contains(entry, "Notification to") && strings.Contains(entry, "failed") {
			logged = true
		}
	}
	if !logged {
		t.Errorf("expected notification failure in case log: %v", c.Log)
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("store unavailable")
	err := &StageError{Stage: models.StageOutreach, Err: cause}

	if !strings.Contains(err.Error(), "outreach") {
		t.Errorf("error should name the stage: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("StageError should unwrap to its cause")
	}
}
