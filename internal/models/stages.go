// Package models defines workflow stage identifiers to avoid circular imports.
package models

// StageID identifies one node in the workflow graph.
type StageID string

// Stage identifiers for the case workflow.
const (
	StageTriage          StageID = "triage"
	StageSpecialistMatch StageID = "specialist_match"
	StageOutreach        StageID = "outreach"
	StageResponses       StageID = "response_resolution"
	StageCalendar        StageID = "calendar_integration"
	StageAdvisory        StageID = "health_advisory"
	StageEscalation      StageID = "escalation"
	// StageEnd is the terminal marker; no handler runs for it.
	StageEnd StageID = "end"
)

// StageStatus tracks a stage's progress within a session.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusError     StageStatus = "error"
	StageStatusSkipped   StageStatus = "skipped"
)
