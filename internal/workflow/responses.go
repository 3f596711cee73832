package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/util"
)

// responseStage simulates each specialist's answer to an outreach request.
//
// Requests are resolved in the order they were sent. A request accepts with a
// probability tied to the case classification; the first acceptance books the
// appointment, and every later request is declined with a schedule-conflict
// reason regardless of its sampled outcome. At most one appointment per case.
type responseStage struct {
	cfg   *Config
	store store.Store
	rng   *rand.Rand
	now   func() time.Time
}

func (s *responseStage) ID() models.StageID { return models.StageResponses }

func (s *responseStage) Run(ctx context.Context, c *models.Case) error {
	for _, req := range c.OutreachRequests {
		resp := s.resolve(&req, c)
		c.SpecialistResponses = append(c.SpecialistResponses, resp)

		status := models.RequestStatusDeclined
		if resp.Decision == models.DecisionAccept {
			status = models.RequestStatusAccepted
		}
		if err := s.store.UpdateRequestStatus(req.ID, status, ""); err != nil {
			slog.Warn("responseStage.Run: failed to update request status", "session_id", c.SessionID, "request_id", req.ID, "error", err)
		}
	}

	if c.ConfirmedAppointment != nil {
		c.AppendLog(fmt.Sprintf("Appointment confirmed with %s", c.ConfirmedAppointment.SpecialistName))
	} else {
		c.AppendLog(fmt.Sprintf("All %d specialists declined", len(c.SpecialistResponses)))
	}
	return nil
}

// resolve produces one specialist's decision and, on the first acceptance,
// books the appointment from the request's first proposed slot.
func (s *responseStage) resolve(req *models.AppointmentRequest, c *models.Case) models.SpecialistResponse {
	resp := models.SpecialistResponse{
		RequestID:      req.ID,
		SpecialistID:   req.SpecialistID,
		SpecialistName: req.SpecialistName,
		Timestamp:      s.now(),
	}

	if c.ConfirmedAppointment != nil {
		resp.Decision = models.DecisionDecline
		resp.Reason = "schedule conflict"
		return resp
	}

	if len(req.ProposedSlots) == 0 {
		resp.Decision = models.DecisionDecline
		resp.Reason = "No suitable slots available"
		return resp
	}

	if s.rng.Float64() >= s.acceptanceRate(c.Classification) {
		resp.Decision = models.DecisionDecline
		resp.Reason = "Unable to take on additional cases at this time"
		return resp
	}

	slot := req.ProposedSlots[0]
	resp.Decision = models.DecisionAccept
	resp.ConfirmedSlot = &slot

	c.ConfirmedAppointment = &models.Appointment{
		ID:             util.GenerateAppointmentID(),
		RequestID:      req.ID,
		SpecialistID:   req.SpecialistID,
		SpecialistName: req.SpecialistName,
		PatientID:      c.Patient.ID,
		PatientName:    c.Patient.Name,
		ScheduledAt:    slot.DateTime,
		Urgency:        c.Classification,
		Status:         models.AppointmentStatusConfirmed,
		CreatedAt:      s.now(),
	}
	return resp
}

func (s *responseStage) acceptanceRate(cls models.Classification) float64 {
	if rate, ok := s.cfg.AcceptanceRates[cls]; ok {
		return rate
	}
	return s.cfg.DefaultAcceptance
}
