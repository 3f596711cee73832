package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
)

// calendarStage persists the confirmed appointment and announces the booking.
// It only runs when response resolution produced an appointment; a nil
// appointment makes it a no-op so routing mistakes cannot invent bookings.
type calendarStage struct {
	store    store.Store
	progress *progress.Manager
	now      func() time.Time
}

func (s *calendarStage) ID() models.StageID { return models.StageCalendar }

func (s *calendarStage) Run(ctx context.Context, c *models.Case) error {
	appt := c.ConfirmedAppointment
	if appt == nil {
		return nil
	}

	if err := s.store.SaveAppointment(*appt); err != nil {
		slog.Error("calendarStage.Run: failed to persist appointment", "session_id", c.SessionID, "appointment_id", appt.ID, "error", err)
		c.AppendLog(fmt.Sprintf("Failed to persist appointment %s", appt.ID))
		s.progress.Update(c.SessionID, models.StageCalendar, models.StageStatusRunning,
			fmt.Sprintf("PERSISTENCE ERROR: appointment %s not stored: %v", appt.ID, err), nil)
	}

	c.AppendLog(fmt.Sprintf("Appointment %s scheduled with %s at %s",
		appt.ID, appt.SpecialistName, appt.ScheduledAt.Format("2006-01-02 15:04")))
	slog.Info("calendarStage.Run: appointment booked",
		"session_id", c.SessionID, "appointment_id", appt.ID, "specialist", appt.SpecialistID, "scheduled_at", appt.ScheduledAt)
	return nil
}
