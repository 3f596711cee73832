// Package store provides storage backends for JarvisMD scheduling records.
//
// It includes an in-memory store plus SQLite and PostgreSQL backed stores for
// appointment requests, confirmed appointments, and per-patient history.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// RequestFilter narrows ListRequests results. Zero values match everything.
type RequestFilter struct {
	PatientID string
	Status    models.RequestStatus
}

// AppointmentFilter narrows ListAppointments results. Zero values match everything.
type AppointmentFilter struct {
	PatientID string
}

// PatientHistory is the per-patient index of record ids.
type PatientHistory struct {
	PatientID      string    `json:"patient_id"`
	RequestIDs     []string  `json:"appointment_requests"`
	AppointmentIDs []string  `json:"confirmed_appointments"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Stats summarizes stored data volumes.
type Stats struct {
	TotalRequests         int `json:"total_requests"`
	PendingRequests       int `json:"pending_requests"`
	ConfirmedAppointments int `json:"confirmed_appointments"`
	UniquePatients        int `json:"unique_patients"`
}

// Store is the persistence boundary for the workflow and the API.
// Implementations must be safe for concurrent use by multiple case runs;
// every write is keyed by a unique record id.
type Store interface {
	SaveRequest(req models.AppointmentRequest) error
	UpdateRequestStatus(requestID string, status models.RequestStatus, note string) error
	ListRequests(f RequestFilter) ([]models.AppointmentRequest, error)

	SaveAppointment(appt models.Appointment) error
	ListAppointments(f AppointmentFilter) ([]models.Appointment, error)

	PatientHistory(patientID string) (PatientHistory, error)
	Stats() (Stats, error)

	Close() error
}

// InMemoryStore is a mutex-guarded Store used for tests and for running
// without a database.
type InMemoryStore struct {
	mu           sync.RWMutex
	requests     map[string]models.AppointmentRequest
	appointments map[string]models.Appointment
	history      map[string]*PatientHistory
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:     make(map[string]models.AppointmentRequest),
		appointments: make(map[string]models.Appointment),
		history:      make(map[string]*PatientHistory),
	}
}

// SaveRequest stores an appointment request and indexes it under its patient.
func (s *InMemoryStore) SaveRequest(req models.AppointmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	h := s.historyLocked(req.PatientID)
	if !contains(h.RequestIDs, req.ID) {
		h.RequestIDs = append(h.RequestIDs, req.ID)
		h.UpdatedAt = time.Now()
	}
	return nil
}

// UpdateRequestStatus transitions a stored request's status. Unknown ids are
// a no-op, matching the forgiving behavior of the file-based predecessor.
func (s *InMemoryStore) UpdateRequestStatus(requestID string, status models.RequestStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil
	}
	req.Status = status
	now := time.Now()
	req.RespondedAt = &now
	if note != "" {
		req.Message = note
	}
	s.requests[requestID] = req
	return nil
}

// ListRequests returns matching requests, newest first.
func (s *InMemoryStore) ListRequests(f RequestFilter) ([]models.AppointmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AppointmentRequest
	for _, req := range s.requests {
		if f.PatientID != "" && req.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

// SaveAppointment stores a confirmed appointment and indexes it under its patient.
func (s *InMemoryStore) SaveAppointment(appt models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[appt.ID] = appt
	h := s.historyLocked(appt.PatientID)
	if !contains(h.AppointmentIDs, appt.ID) {
		h.AppointmentIDs = append(h.AppointmentIDs, appt.ID)
		h.UpdatedAt = time.Now()
	}
	return nil
}

// ListAppointments returns matching appointments ordered by scheduled time.
func (s *InMemoryStore) ListAppointments(f AppointmentFilter) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appointment
	for _, appt := range s.appointments {
		if f.PatientID != "" && appt.PatientID != f.PatientID {
			continue
		}
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// PatientHistory returns the record index for a patient. Unknown patients get
// an empty history rather than an error.
func (s *InMemoryStore) PatientHistory(patientID string) (PatientHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.history[patientID]; ok {
		out := *h
		out.RequestIDs = append([]string(nil), h.RequestIDs...)
		out.AppointmentIDs = append([]string(nil), h.AppointmentIDs...)
		return out, nil
	}
	return PatientHistory{PatientID: patientID}, nil
}

// Stats reports stored record counts.
func (s *InMemoryStore) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalRequests:         len(s.requests),
		ConfirmedAppointments: len(s.appointments),
		UniquePatients:        len(s.history),
	}
	for _, req := range s.requests {
		if req.Status == models.RequestStatusSent {
			st.PendingRequests++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) historyLocked(patientID string) *PatientHistory {
	h, ok := s.history[patientID]
	if !ok {
		h = &PatientHistory{PatientID: patientID, UpdatedAt: time.Now()}
		s.history[patientID] = h
	}
	return h
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
