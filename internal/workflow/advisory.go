package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aadityaamehrotra17/JarvisMD/internal/genai"
	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// advisoryStage produces self-care guidance for low-risk cases. It never
// fails the run: an unavailable or unparseable advisor falls back to a
// deterministic advisory so the patient always receives guidance.
type advisoryStage struct {
	advisor Advisor
}

func (s *advisoryStage) ID() models.StageID { return models.StageAdvisory }

func (s *advisoryStage) Run(ctx context.Context, c *models.Case) error {
	if adv, ok := s.generate(ctx, c); ok {
		c.Advisory = &adv
	} else {
		adv := fallbackAdvisory(c)
		c.Advisory = &adv
	}
	c.AppendLog("Health advisory generated")
	return nil
}

func (s *advisoryStage) generate(ctx context.Context, c *models.Case) (models.HealthAdvisory, bool) {
	if s.advisor == nil {
		return models.HealthAdvisory{}, false
	}

	system := "You are a careful health advisor producing self-care guidance for a low-risk patient. " +
		"Respond with JSON only, using the keys lifestyle_recommendations (object with diet, exercise, sleep arrays), " +
		"preventive_measures, warning_signs, follow_up_timeline, resources, summary. Do not diagnose or prescribe."
	user := fmt.Sprintf("Patient: %s (Age: %d)\nSymptoms: %s\nFindings: %s\nUrgency score: %.1f/10",
		c.Patient.Name, c.Patient.Age, c.Symptoms, formatFindings(c.Findings), c.UrgencyScore)

	raw, err := s.advisor.GeneratePromptWithContext(ctx, system, user)
	if err != nil {
		slog.Warn("advisoryStage.generate: advisor unavailable, using fallback", "session_id", c.SessionID, "error", err)
		return models.HealthAdvisory{}, false
	}

	var adv models.HealthAdvisory
	if err := json.Unmarshal([]byte(genai.StripJSONFences(raw)), &adv); err != nil {
		slog.Warn("advisoryStage.generate: unparseable advisory, using fallback", "session_id", c.SessionID, "error", err)
		return models.HealthAdvisory{}, false
	}
	if adv.Summary == "" && len(adv.WarningSigns) == 0 {
		return models.HealthAdvisory{}, false
	}
	return adv, true
}

// fallbackAdvisory is the deterministic advisory used when no provider is
// configured or its output cannot be parsed.
func fallbackAdvisory(c *models.Case) models.HealthAdvisory {
	return models.HealthAdvisory{
		Lifestyle: models.LifestyleRecommendations{
			Diet: []string{
				"Maintain a balanced diet rich in fruits and vegetables",
				"Stay well hydrated throughout the day",
			},
			Exercise: []string{
				"Aim for 30 minutes of moderate activity most days",
				"Include light stretching or walking daily",
			},
			Sleep: []string{
				"Keep a consistent sleep schedule of 7 to 9 hours",
			},
		},
		PreventiveMeasures: []string{
			"Schedule a routine check-up with your GP",
			"Monitor your symptoms and note any changes",
		},
		WarningSigns: []string{
			"Worsening or persistent symptoms",
			"Chest pain or difficulty breathing",
			"High fever that does not settle",
		},
		FollowUpTimeline: "See your GP within 2 to 4 weeks, or sooner if symptoms worsen",
		Resources: []string{
			"NHS 111 for non-emergency advice",
			"Your registered GP practice",
		},
		Summary: fmt.Sprintf(
			"Current findings for %s are low risk. Continue routine self-care and seek medical attention if any warning signs appear.",
			c.Patient.Name),
	}
}
