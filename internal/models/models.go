// Package models defines the core data structures for JarvisMD.
//
// It includes types for cases, specialists, appointment requests, and the
// records shared across modules.
package models

import (
	"errors"
	"time"
)

// Classification buckets a triaged case by urgency.
type Classification string

const (
	// ClassificationUnset indicates the case has not been triaged yet.
	ClassificationUnset Classification = ""
	// ClassificationCritical requires immediate senior specialist attention.
	ClassificationCritical Classification = "CRITICAL"
	// ClassificationPriority needs specialist consultation within 24-48 hours.
	ClassificationPriority Classification = "PRIORITY"
	// ClassificationRoutine needs standard follow-up care.
	ClassificationRoutine Classification = "ROUTINE"
	// ClassificationLowRisk needs lifestyle recommendations only.
	ClassificationLowRisk Classification = "LOW_RISK"
)

// IsValidClassification checks if the given classification is one of the four known buckets.
func IsValidClassification(c Classification) bool {
	switch c {
	case ClassificationCritical, ClassificationPriority, ClassificationRoutine, ClassificationLowRisk:
		return true
	default:
		return false
	}
}

// Validation constants for case input validation
const (
	// MaxSymptomsLength defines the maximum allowed length for symptom text
	MaxSymptomsLength = 4096
	// MinUrgencyScore is the lower bound of the urgency scale
	MinUrgencyScore = 0.0
	// MaxUrgencyScore is the upper bound of the urgency scale
	MaxUrgencyScore = 10.0
)

// Error variables for better error handling and testability
var (
	ErrEmptyPatientName  = errors.New("patient name cannot be empty")
	ErrEmptySymptoms     = errors.New("symptoms cannot be empty")
	ErrSymptomsTooLong   = errors.New("symptoms exceed maximum length")
	ErrNoFindings        = errors.New("at least one finding is required")
	ErrProbabilityRange  = errors.New("finding probability must be in [0,1]")
	ErrUrgencyScoreRange = errors.New("urgency score must be in [0,10]")
	ErrEmptySessionID    = errors.New("session id cannot be empty")
	ErrUnknownSessionID  = errors.New("unknown session id")
)

// PatientInfo identifies the patient a case belongs to. The ID is assigned
// once at case creation and never changes.
type PatientInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Age            int    `json:"age,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

// Slot is a bookable consultation time offered by a specialist.
type Slot struct {
	Date     string    `json:"date"` // YYYY-MM-DD
	Time     string    `json:"time"` // HH:MM
	DateTime time.Time `json:"datetime"`
}

// Specialist is a directory entry representing a physician eligible for
// matching. Directory records are read-only reference data; the match score
// and slots are copied onto the per-case snapshot, never written back.
type Specialist struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Hospital        string   `json:"hospital,omitempty"`
	Expertise       []string `json:"expertise,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	Rating          float64  `json:"rating"`
	Seniority       string   `json:"seniority,omitempty"`
	MatchScore      float64  `json:"match_score,omitempty"`
	AvailableSlots  []Slot   `json:"available_slots,omitempty"`
}

// RequestStatus represents the lifecycle status of an appointment request.
type RequestStatus string

const (
	// RequestStatusSent indicates the request was dispatched (or attempted).
	RequestStatusSent RequestStatus = "sent"
	// RequestStatusAccepted indicates the specialist accepted the request.
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusDeclined indicates the specialist declined the request.
	RequestStatusDeclined RequestStatus = "declined"
)

// AppointmentRequest is an outreach request sent to one specialist. It is
// created once; its status is updated at most once by response resolution.
type AppointmentRequest struct {
	ID             string         `json:"request_id"`
	SpecialistID   string         `json:"specialist_id"`
	SpecialistName string         `json:"specialist_name"`
	Contact        string         `json:"contact,omitempty"`
	PatientID      string         `json:"patient_id"`
	UrgencyLevel   Classification `json:"urgency_level"`
	ProposedSlots  []Slot         `json:"proposed_slots,omitempty"` // up to 3
	Message        string         `json:"message,omitempty"`
	Status         RequestStatus  `json:"status"`
	SentAt         time.Time      `json:"sent_at"`
	RespondedAt    *time.Time     `json:"responded_at,omitempty"`
}

// Decision is a specialist's answer to an appointment request.
type Decision string

const (
	// DecisionAccept confirms the request.
	DecisionAccept Decision = "ACCEPT"
	// DecisionDecline rejects the request.
	DecisionDecline Decision = "DECLINE"
)

// SpecialistResponse records one specialist's decision on a request.
// Immutable once created; exactly one per outreach request.
type SpecialistResponse struct {
	RequestID      string    `json:"request_id"`
	SpecialistID   string    `json:"specialist_id"`
	SpecialistName string    `json:"specialist_name"`
	Decision       Decision  `json:"decision"`
	ConfirmedSlot  *Slot     `json:"confirmed_slot,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AppointmentStatus represents the status of a confirmed appointment.
type AppointmentStatus string

const (
	// AppointmentStatusConfirmed indicates the appointment is booked.
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	// AppointmentStatusCancelled indicates the appointment was cancelled.
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the confirmed booking created by the first accepted
// response. At most one exists per case.
type Appointment struct {
	ID             string            `json:"appointment_id"`
	RequestID      string            `json:"request_id"`
	SpecialistID   string            `json:"specialist_id"`
	SpecialistName string            `json:"specialist_name"`
	PatientID      string            `json:"patient_id"`
	PatientName    string            `json:"patient_name"`
	ScheduledAt    time.Time         `json:"scheduled_at"`
	Urgency        Classification    `json:"urgency"`
	Status         AppointmentStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// LifestyleRecommendations groups advisory guidance by area.
type LifestyleRecommendations struct {
	Diet     []string `json:"diet,omitempty"`
	Exercise []string `json:"exercise,omitempty"`
	Sleep    []string `json:"sleep,omitempty"`
}

// HealthAdvisory is the structured payload produced on the advisory pathway.
type HealthAdvisory struct {
	Lifestyle          LifestyleRecommendations `json:"lifestyle_recommendations"`
	PreventiveMeasures []string                 `json:"preventive_measures,omitempty"`
	WarningSigns       []string                 `json:"warning_signs,omitempty"`
	FollowUpTimeline   string                   `json:"follow_up_timeline,omitempty"`
	Resources          []string                 `json:"resources,omitempty"`
	Summary            string                   `json:"summary,omitempty"`
}

// CaseInput is the external trigger payload that starts a workflow run.
// Findings and the urgency score are computed upstream from imaging.
type CaseInput struct {
	Patient      PatientInfo        `json:"patient"`
	Symptoms     string             `json:"symptoms"`
	Findings     map[string]float64 `json:"findings"`
	UrgencyScore float64            `json:"urgency_score"`
	SessionID    string             `json:"session_id,omitempty"`
}

// Validate performs comprehensive validation on a CaseInput structure.
func (in *CaseInput) Validate() error {
	if in.Patient.Name == "" {
		return ErrEmptyPatientName
	}
	if in.Symptoms == "" {
		return ErrEmptySymptoms
	}
	if len(in.Symptoms) > MaxSymptomsLength {
		return ErrSymptomsTooLong
	}
	if len(in.Findings) == 0 {
		return ErrNoFindings
	}
	for _, p := range in.Findings {
		if p < 0 || p > 1 {
			return ErrProbabilityRange
		}
	}
	if in.UrgencyScore < MinUrgencyScore || in.UrgencyScore > MaxUrgencyScore {
		return ErrUrgencyScoreRange
	}
	return nil
}

// Case is the mutable aggregate threaded through every workflow stage.
// One in-flight run owns its Case exclusively; stages mutate it in place
// and the engine alone touches CurrentStage and NextStage.
type Case struct {
	SessionID    string             `json:"session_id"`
	Patient      PatientInfo        `json:"patient"`
	Symptoms     string             `json:"symptoms"`
	Findings     map[string]float64 `json:"findings"`
	UrgencyScore float64            `json:"urgency_score"`

	Classification         Classification       `json:"classification"`
	TriageRationale        string               `json:"triage_rationale,omitempty"`
	RecommendedSpecialists []Specialist         `json:"recommended_specialists,omitempty"`
	SelectedSpecialists    []Specialist         `json:"selected_specialists,omitempty"`
	OutreachRequests       []AppointmentRequest `json:"outreach_requests,omitempty"`
	SpecialistResponses    []SpecialistResponse `json:"specialist_responses,omitempty"`
	ConfirmedAppointment   *Appointment         `json:"confirmed_appointment,omitempty"`
	Advisory               *HealthAdvisory      `json:"advisory,omitempty"`

	Log          []string `json:"log"`
	CurrentStage StageID  `json:"current_stage,omitempty"`
	NextStage    StageID  `json:"next_stage,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AppendLog appends an audit entry to the case log.
func (c *Case) AppendLog(entry string) {
	c.Log = append(c.Log, entry)
}
