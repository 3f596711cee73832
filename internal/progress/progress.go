// Package progress tracks and broadcasts workflow progress per session.
//
// A Manager owns a session map keyed by session id. Each workflow run updates
// its session on every stage transition; any number of observers may
// subscribe to a session and receive the full current snapshot on attach
// followed by deltas. Sessions are never deleted automatically.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// SessionStatus is the lifecycle status of a workflow session.
type SessionStatus string

const (
	SessionStatusIdle      SessionStatus = "idle"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusError     SessionStatus = "error"
)

// Event types sent to subscribers.
const (
	// EventSessionUpdate carries a full session snapshot (sent on attach).
	EventSessionUpdate = "session_update"
	// EventProgressUpdate carries a stage transition delta.
	EventProgressUpdate = "progress_update"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind loses intermediate deltas but never blocks the
// workflow; the next snapshot restores its view.
const subscriberBuffer = 16

// StageEntry tracks one stage's status within a session.
type StageEntry struct {
	ID     models.StageID         `json:"id"`
	Name   string                 `json:"name"`
	Status models.StageStatus     `json:"status"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Session is the progress record for one workflow run.
type Session struct {
	SessionID    string         `json:"session_id"`
	Status       SessionStatus  `json:"status"`
	CurrentStage models.StageID `json:"current_stage,omitempty"`
	Stages       []StageEntry   `json:"stages"`
	Percent      int            `json:"progress_percentage"`
	Messages     []string       `json:"messages"`
	PatientName  string         `json:"patient_name,omitempty"`
	StartTime    *time.Time     `json:"start_time,omitempty"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	FinalCase    *models.Case   `json:"final_result,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Event is one message delivered to subscribers.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data"`
}

// Delta is the payload of a progress_update event.
type Delta struct {
	CurrentStage models.StageID         `json:"current_stage,omitempty"`
	StageStatus  models.StageStatus     `json:"stage_status,omitempty"`
	Status       SessionStatus          `json:"status,omitempty"`
	Percent      int                    `json:"progress_percentage"`
	Message      string                 `json:"message,omitempty"`
	Stages       []StageEntry           `json:"stages,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// clinicalStages is the seeded stage list for a new session, in graph order.
func clinicalStages() []StageEntry {
	return []StageEntry{
		{ID: models.StageTriage, Name: "Case Triage", Status: models.StageStatusPending},
		{ID: models.StageSpecialistMatch, Name: "Specialist Matching", Status: models.StageStatusPending},
		{ID: models.StageOutreach, Name: "Appointment Outreach", Status: models.StageStatusPending},
		{ID: models.StageResponses, Name: "Response Resolution", Status: models.StageStatusPending},
		{ID: models.StageCalendar, Name: "Calendar Integration", Status: models.StageStatusPending},
	}
}

// Manager owns all progress sessions and their subscribers. Safe for
// concurrent use from multiple case runs and observers.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	subs     map[string]map[chan Event]struct{}
	now      func() time.Time
}

// NewManager creates an empty progress manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		subs:     make(map[string]map[chan Event]struct{}),
		now:      time.Now,
	}
}

// Start initializes (or reinitializes) a session for a workflow run: all
// clinical stages pending, zero percent, status running.
func (m *Manager) Start(sessionID, patientName string) {
	m.mu.Lock()
	now := m.now()
	s := &Session{
		SessionID:   sessionID,
		Status:      SessionStatusRunning,
		Stages:      clinicalStages(),
		Messages:    []string{fmt.Sprintf("Starting workflow for patient: %s", patientName)},
		PatientName: patientName,
		StartTime:   &now,
		LastUpdated: now,
	}
	m.sessions[sessionID] = s
	snapshot := s.clone()
	m.mu.Unlock()

	slog.Debug("progress.Manager.Start: session initialized", "session_id", sessionID, "patient", patientName)
	m.broadcast(sessionID, Event{Type: EventSessionUpdate, SessionID: sessionID, Data: snapshot})
}

// Update transitions one stage's status, recomputes percent complete, appends
// a timestamped message, and broadcasts the delta. Stages outside the seeded
// clinical list (the advisory pathway) are appended on first update so the
// session always reflects the path actually taken.
func (m *Manager) Update(sessionID string, stage models.StageID, status models.StageStatus, message string, data map[string]interface{}) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		slog.Warn("progress.Manager.Update: unknown session", "session_id", sessionID, "stage", stage)
		return
	}

	s.CurrentStage = stage
	found := false
	for i := range s.Stages {
		if s.Stages[i].ID == stage {
			s.Stages[i].Status = status
			if data != nil {
				s.Stages[i].Data = data
			}
			found = true
			break
		}
	}
	if !found {
		s.Stages = append(s.Stages, StageEntry{ID: stage, Name: stageName(stage), Status: status, Data: data})
	}

	completed := 0
	for _, e := range s.Stages {
		if e.Status == models.StageStatusCompleted {
			completed++
		}
	}
	s.Percent = completed * 100 / len(s.Stages)

	if message != "" {
		s.Messages = append(s.Messages, fmt.Sprintf("%s - %s", m.now().Format("15:04:05"), message))
	}
	s.LastUpdated = m.now()

	delta := Delta{
		CurrentStage: stage,
		StageStatus:  status,
		Percent:      s.Percent,
		Message:      message,
		Stages:       append([]StageEntry(nil), s.Stages...),
		Data:         data,
	}
	m.mu.Unlock()

	m.broadcast(sessionID, Event{Type: EventProgressUpdate, SessionID: sessionID, Data: delta})
}

// Complete marks the session finished: every stage completed, 100 percent,
// final case snapshot stored. Calling Complete again on a completed session
// is a no-op, so the snapshot is never duplicated.
func (m *Manager) Complete(sessionID string, finalCase *models.Case) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.Status == SessionStatusCompleted {
		m.mu.Unlock()
		return
	}

	now := m.now()
	s.Status = SessionStatusCompleted
	s.EndTime = &now
	s.FinalCase = finalCase
	for i := range s.Stages {
		if s.Stages[i].Status != models.StageStatusCompleted {
			s.Stages[i].Status = models.StageStatusCompleted
		}
	}
	s.Percent = 100

	message := "Workflow completed successfully"
	if finalCase != nil {
		switch {
		case finalCase.ConfirmedAppointment != nil:
			message = fmt.Sprintf("Appointment scheduled with %s", finalCase.ConfirmedAppointment.SpecialistName)
		case finalCase.Advisory != nil:
			message = "Health recommendations provided for low-risk case"
		}
	}
	s.Messages = append(s.Messages, fmt.Sprintf("%s - %s", now.Format("15:04:05"), message))
	s.LastUpdated = now

	delta := Delta{
		Status:  SessionStatusCompleted,
		Percent: 100,
		Message: message,
		Stages:  append([]StageEntry(nil), s.Stages...),
	}
	m.mu.Unlock()

	slog.Debug("progress.Manager.Complete: session completed", "session_id", sessionID)
	m.broadcast(sessionID, Event{Type: EventProgressUpdate, SessionID: sessionID, Data: delta})
}

// Fail marks the session errored and broadcasts the message. Prior messages
// are retained so the last known stage stays inspectable.
func (m *Manager) Fail(sessionID, errMessage string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}

	now := m.now()
	s.Status = SessionStatusError
	s.EndTime = &now
	s.Messages = append(s.Messages, fmt.Sprintf("%s - ERROR: %s", now.Format("15:04:05"), errMessage))
	s.LastUpdated = now

	delta := Delta{
		Status:  SessionStatusError,
		Percent: s.Percent,
		Message: fmt.Sprintf("Workflow failed: %s", errMessage),
	}
	m.mu.Unlock()

	slog.Debug("progress.Manager.Fail: session failed", "session_id", sessionID, "error", errMessage)
	m.broadcast(sessionID, Event{Type: EventProgressUpdate, SessionID: sessionID, Data: delta})
}

// Snapshot returns a copy of the session's current state.
func (m *Manager) Snapshot(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Subscribe attaches an observer to a session, creating an idle session if
// none exists yet. The returned channel first delivers a session_update with
// the full current snapshot, then deltas. The returned func detaches the
// observer; it is safe to call under concurrent broadcast.
func (m *Manager) Subscribe(sessionID string) (<-chan Event, func()) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &Session{
			SessionID:   sessionID,
			Status:      SessionStatusIdle,
			Stages:      clinicalStages(),
			LastUpdated: m.now(),
		}
		m.sessions[sessionID] = s
	}
	ch := make(chan Event, subscriberBuffer)
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[chan Event]struct{})
	}
	m.subs[sessionID][ch] = struct{}{}
	// Queued under the lock so no delta can precede the snapshot; the fresh
	// buffered channel cannot block here.
	ch <- Event{Type: EventSessionUpdate, SessionID: sessionID, Data: s.clone()}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Closing under the write lock excludes in-flight broadcasts,
			// which send under the read lock.
			m.mu.Lock()
			delete(m.subs[sessionID], ch)
			close(ch)
			m.mu.Unlock()
		})
	}
	slog.Debug("progress.Manager.Subscribe: observer attached", "session_id", sessionID)
	return ch, cancel
}

// broadcast delivers an event to every subscriber of the session. Sends are
// non-blocking and happen under the read lock: slow subscribers with full
// buffers are skipped rather than blocking the workflow, and no send can
// overlap an unsubscribe's close.
func (m *Manager) broadcast(sessionID string, ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			slog.Warn("progress.Manager.broadcast: subscriber buffer full, dropping event", "session_id", sessionID, "type", ev.Type)
		}
	}
}

func (s *Session) clone() Session {
	out := *s
	out.Stages = append([]StageEntry(nil), s.Stages...)
	out.Messages = append([]string(nil), s.Messages...)
	return out
}

func stageName(id models.StageID) string {
	switch id {
	case models.StageTriage:
		return "Case Triage"
	case models.StageSpecialistMatch:
		return "Specialist Matching"
	case models.StageOutreach:
		return "Appointment Outreach"
	case models.StageResponses:
		return "Response Resolution"
	case models.StageCalendar:
		return "Calendar Integration"
	case models.StageAdvisory:
		return "Health Advisory"
	default:
		return string(id)
	}
}
