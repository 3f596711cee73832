package progress

import (
	"testing"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

func TestStartInitializesSession(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	s, ok := m.Snapshot("sess1")
	if !ok {
		t.Fatal("expected session to exist after Start")
	}
	if s.Status != SessionStatusRunning {
		t.Errorf("expected running status, got %q", s.Status)
	}
	if len(s.Stages) != 5 {
		t.Errorf("expected 5 seeded stages, got %d", len(s.Stages))
	}
	for _, st := range s.Stages {
		if st.Status != models.StageStatusPending {
			t.Errorf("stage %s should start pending, got %q", st.ID, st.Status)
		}
	}
	if s.Percent != 0 {
		t.Errorf("expected 0 percent, got %d", s.Percent)
	}
	if s.PatientName != "John Smith" {
		t.Errorf("unexpected patient name %q", s.PatientName)
	}
	if len(s.Messages) != 1 {
		t.Errorf("expected one starting message, got %v", s.Messages)
	}
}

func TestUpdateTransitionsStageAndPercent(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	m.Update("sess1", models.StageTriage, models.StageStatusRunning, "Case triage started", nil)
	m.Update("sess1", models.StageTriage, models.StageStatusCompleted, "Case triage completed", map[string]interface{}{"classification": "PRIORITY"})

	s, _ := m.Snapshot("sess1")
	if s.CurrentStage != models.StageTriage {
		t.Errorf("expected current stage triage, got %q", s.CurrentStage)
	}
	if s.Stages[0].Status != models.StageStatusCompleted {
		t.Errorf("expected triage completed, got %q", s.Stages[0].Status)
	}
	if s.Stages[0].Data["classification"] != "PRIORITY" {
		t.Errorf("expected stage data attached, got %v", s.Stages[0].Data)
	}
	// 1 of 5 seeded stages completed.
	if s.Percent != 20 {
		t.Errorf("expected 20 percent, got %d", s.Percent)
	}
}

func TestUpdateAppendsUnseededStage(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	m.Update("sess1", models.StageAdvisory, models.StageStatusRunning, "Health advisory started", nil)

	s, _ := m.Snapshot("sess1")
	if len(s.Stages) != 6 {
		t.Fatalf("expected advisory stage appended, got %d stages", len(s.Stages))
	}
	last := s.Stages[len(s.Stages)-1]
	if last.ID != models.StageAdvisory || last.Name != "Health Advisory" {
		t.Errorf("unexpected appended stage: %+v", last)
	}
}

func TestUpdateUnknownSessionIsNoOp(t *testing.T) {
	m := NewManager()
	m.Update("ghost", models.StageTriage, models.StageStatusRunning, "message", nil)
	if _, ok := m.Snapshot("ghost"); ok {
		t.Error("Update must not create sessions")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	final := &models.Case{
		SessionID: "sess1",
		ConfirmedAppointment: &models.Appointment{
			SpecialistName: "Dr. James Hartwell",
		},
	}
	m.Complete("sess1", final)

	s, _ := m.Snapshot("sess1")
	if s.Status != SessionStatusCompleted {
		t.Fatalf("expected completed status, got %q", s.Status)
	}
	if s.Percent != 100 {
		t.Errorf("expected 100 percent, got %d", s.Percent)
	}
	if s.EndTime == nil {
		t.Error("expected end time to be set")
	}
	if s.FinalCase == nil {
		t.Error("expected final case snapshot")
	}
	messageCount := len(s.Messages)

	// A second Complete must not append another message.
	m.Complete("sess1", final)
	again, _ := m.Snapshot("sess1")
	if len(again.Messages) != messageCount {
		t.Errorf("expected %d messages after repeated Complete, got %d", messageCount, len(again.Messages))
	}
}

func TestFailRetainsMessages(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")
	m.Update("sess1", models.StageTriage, models.StageStatusRunning, "Case triage started", nil)

	m.Fail("sess1", "store unavailable")

	s, _ := m.Snapshot("sess1")
	if s.Status != SessionStatusError {
		t.Errorf("expected error status, got %q", s.Status)
	}
	if len(s.Messages) < 3 {
		t.Errorf("expected prior messages retained plus error entry, got %v", s.Messages)
	}
	if s.EndTime == nil {
		t.Error("expected end time on failure")
	}
}

func TestSubscribeDeliversSnapshotFirst(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	events, cancel := m.Subscribe("sess1")
	defer cancel()

	m.Update("sess1", models.StageTriage, models.StageStatusRunning, "Case triage started", nil)

	first := <-events
	if first.Type != EventSessionUpdate {
		t.Fatalf("expected session_update first, got %q", first.Type)
	}
	snapshot, ok := first.Data.(Session)
	if !ok {
		t.Fatalf("expected Session payload, got %T", first.Data)
	}
	if snapshot.SessionID != "sess1" {
		t.Errorf("unexpected session id %q", snapshot.SessionID)
	}

	second := <-events
	if second.Type != EventProgressUpdate {
		t.Fatalf("expected progress_update second, got %q", second.Type)
	}
	delta, ok := second.Data.(Delta)
	if !ok {
		t.Fatalf("expected Delta payload, got %T", second.Data)
	}
	if delta.CurrentStage != models.StageTriage || delta.StageStatus != models.StageStatusRunning {
		t.Errorf("unexpected delta: %+v", delta)
	}
}

func TestSubscribeUnknownSessionCreatesIdle(t *testing.T) {
	m := NewManager()
	events, cancel := m.Subscribe("future")
	defer cancel()

	first := <-events
	snapshot := first.Data.(Session)
	if snapshot.Status != SessionStatusIdle {
		t.Errorf("expected idle placeholder session, got %q", snapshot.Status)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	events, cancel := m.Subscribe("sess1")
	<-events // snapshot
	cancel()
	cancel() // repeated cancel is safe

	m.Update("sess1", models.StageTriage, models.StageStatusRunning, "after cancel", nil)

	select {
	case _, open := <-events:
		if open {
			t.Error("expected channel closed after cancel")
		}
	case <-time.After(time.Second):
		t.Error("expected closed channel to be readable immediately")
	}
}

func TestSlowSubscriberDoesNotBlockWorkflow(t *testing.T) {
	m := NewManager()
	m.Start("sess1", "John Smith")

	_, cancel := m.Subscribe("sess1")
	defer cancel()

	// Overflow the subscriber buffer; every Update must return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			m.Update("sess1", models.StageTriage, models.StageStatusRunning, "tick", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("updates blocked on a slow subscriber")
	}
}
