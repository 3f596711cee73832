package workflow

import (
	"context"
	"log/slog"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// escalationStage handles the path where every contacted specialist declined.
// The case is flagged for manual coordination rather than retried automatically.
type escalationStage struct{}

func (s *escalationStage) ID() models.StageID { return models.StageEscalation }

func (s *escalationStage) Run(ctx context.Context, c *models.Case) error {
	slog.Warn("escalationStage.Run: no specialist accepted, escalating to manual coordination",
		"session_id", c.SessionID, "patient_id", c.Patient.ID, "classification", c.Classification,
		"requests_sent", len(c.OutreachRequests))
	c.AppendLog("No specialist accepted the appointment request; case escalated for manual coordination")
	return nil
}
