package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/notify"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/util"
)

// outreachStage sends an appointment request to each selected specialist.
//
// Candidates are contacted one at a time in selection order with a fixed
// pacing delay between contacts. The serialization is deliberate: it keeps
// request ids and audit-log ordering reproducible. Notification and
// persistence failures are tolerated; the request is still recorded on the
// case as sent so response resolution stays deterministic.
type outreachStage struct {
	cfg      *Config
	advisor  Advisor
	notifier notify.Service
	store    store.Store
	progress *progress.Manager
	now      func() time.Time
}

func (s *outreachStage) ID() models.StageID { return models.StageOutreach }

func (s *outreachStage) Run(ctx context.Context, c *models.Case) error {
	for i, sp := range c.SelectedSpecialists {
		if i > 0 && s.cfg.ContactPacing > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.ContactPacing):
			}
		}

		slots := sp.AvailableSlots
		if len(slots) > s.cfg.ProposedSlotsPerRequest {
			slots = slots[:s.cfg.ProposedSlotsPerRequest]
		}

		req := models.AppointmentRequest{
			ID:             util.GenerateRequestID(),
			SpecialistID:   sp.ID,
			SpecialistName: sp.Name,
			Contact:        contactFor(sp),
			PatientID:      c.Patient.ID,
			UrgencyLevel:   c.Classification,
			ProposedSlots:  append([]models.Slot(nil), slots...),
			Message:        s.renderMessage(ctx, sp, c),
			Status:         models.RequestStatusSent,
			SentAt:         s.now(),
		}

		subject := fmt.Sprintf("Appointment Request - %s Case", c.Classification)
		if err := s.notifier.Send(ctx, req.Contact, subject, req.Message); err != nil {
			// Best-effort delivery; the request is still recorded as sent.
			slog.Warn("outreachStage.Run: notification failed", "session_id", c.SessionID, "specialist", sp.ID, "error", err)
			c.AppendLog(fmt.Sprintf("Notification to %s failed: %v", sp.Name, err))
		}

		if err := s.store.SaveRequest(req); err != nil {
			slog.Error("outreachStage.Run: failed to persist request", "session_id", c.SessionID, "request_id", req.ID, "error", err)
			c.AppendLog(fmt.Sprintf("Failed to persist request %s", req.ID))
			s.progress.Update(c.SessionID, models.StageOutreach, models.StageStatusRunning,
				fmt.Sprintf("PERSISTENCE ERROR: request %s for %s not stored: %v", req.ID, sp.Name, err), nil)
		}

		c.OutreachRequests = append(c.OutreachRequests, req)
		slog.Debug("outreachStage.Run: request sent", "session_id", c.SessionID, "request_id", req.ID, "specialist", sp.ID)
	}

	c.AppendLog(fmt.Sprintf("Sent appointment requests to %d specialists", len(c.OutreachRequests)))
	return nil
}

// renderMessage produces the outreach text, preferring the advisor and
// falling back to a deterministic template.
func (s *outreachStage) renderMessage(ctx context.Context, sp models.Specialist, c *models.Case) string {
	if s.advisor != nil {
		system := "You are a medical coordination system writing a professional, concise appointment request to a specialist. " +
			"Include the clinical context and urgency, and ask for an available slot. Plain text only."
		user := fmt.Sprintf(
			"Specialist: %s (%s)\nPatient: %s (Age: %d)\nCase urgency: %s\nSymptoms: %s\nKey findings: %s",
			sp.Name, sp.Specialty, c.Patient.Name, c.Patient.Age, c.Classification, c.Symptoms, significantFindings(c.Findings),
		)
		if msg, err := s.advisor.GeneratePromptWithContext(ctx, system, user); err == nil && strings.TrimSpace(msg) != "" {
			return msg
		} else if err != nil {
			slog.Debug("outreachStage.renderMessage: advisor failed, using template", "error", err)
		}
	}

	return fmt.Sprintf(
		"Dear %s,\n\nWe have a %s case requiring your expertise in %s.\n\n"+
			"Patient: %s (Age: %d)\nSymptoms: %s\nFindings: %s\n\n"+
			"Please confirm your earliest available appointment slot.\n\n"+
			"Best regards,\nJarvisMD Healthcare Coordination",
		sp.Name, c.Classification, sp.Specialty,
		c.Patient.Name, c.Patient.Age, c.Symptoms, significantFindings(c.Findings),
	)
}

// significantFindings lists findings above the 0.5 reporting bar.
func significantFindings(findings map[string]float64) string {
	var names []string
	for name, p := range findings {
		if p > 0.5 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none above reporting threshold"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// contactFor prefers the phone number (SMS outreach) over email.
func contactFor(sp models.Specialist) string {
	if sp.Phone != "" {
		return sp.Phone
	}
	return sp.Email
}
