package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalSlots encodes proposed slots as a JSON column value.
func marshalSlots(slots []models.Slot) (interface{}, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(slots)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// scanRequest scans an AppointmentRequest from sql.Rows.
func scanRequest(rows *sql.Rows) (models.AppointmentRequest, error) {
	var req models.AppointmentRequest
	var contact, slotsJSON, message sql.NullString
	var urgency, status string
	var respondedAt sql.NullTime
	err := rows.Scan(
		&req.ID, &req.PatientID, &req.SpecialistID, &req.SpecialistName, &contact,
		&urgency, &slotsJSON, &message, &status, &req.SentAt, &respondedAt,
	)
	if err != nil {
		return req, fmt.Errorf("scan request failed: %w", err)
	}
	req.Contact = contact.String
	req.Message = message.String
	req.UrgencyLevel = models.Classification(urgency)
	req.Status = models.RequestStatus(status)
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	if slotsJSON.Valid && slotsJSON.String != "" {
		if err := json.Unmarshal([]byte(slotsJSON.String), &req.ProposedSlots); err != nil {
			return req, fmt.Errorf("decode proposed slots for %s failed: %w", req.ID, err)
		}
	}
	return req, nil
}

// scanAppointment scans an Appointment from sql.Rows.
func scanAppointment(rows *sql.Rows) (models.Appointment, error) {
	var appt models.Appointment
	var urgency, status string
	var scheduledAt, createdAt time.Time
	err := rows.Scan(
		&appt.ID, &appt.RequestID, &appt.SpecialistID, &appt.SpecialistName,
		&appt.PatientID, &appt.PatientName, &scheduledAt, &urgency, &status, &createdAt,
	)
	if err != nil {
		return appt, fmt.Errorf("scan appointment failed: %w", err)
	}
	appt.ScheduledAt = scheduledAt
	appt.CreatedAt = createdAt
	appt.Urgency = models.Classification(urgency)
	appt.Status = models.AppointmentStatus(status)
	return appt, nil
}
