package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aadityaamehrotra17/JarvisMD/internal/genai"
	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// triageStage classifies the case into one of the four urgency buckets.
//
// The numeric threshold policy is the single source of truth: when the
// advisor is unavailable or returns anything outside the four known labels,
// the thresholds decide. A parseable advisor classification is adopted as-is.
type triageStage struct {
	cfg     *Config
	advisor Advisor
}

func (s *triageStage) ID() models.StageID { return models.StageTriage }

// triageResult is the JSON shape expected from the advisor.
type triageResult struct {
	Classification string `json:"classification"`
	Reasoning      string `json:"reasoning"`
}

func (s *triageStage) Run(ctx context.Context, c *models.Case) error {
	classification, rationale := s.classifyNumeric(c.UrgencyScore)

	if s.advisor != nil {
		if got, why, ok := s.classifyWithAdvisor(ctx, c); ok {
			classification, rationale = got, why
		} else {
			slog.Warn("triageStage.Run: advisor unavailable or unparsable, using numeric policy", "session_id", c.SessionID)
		}
	}

	c.Classification = classification
	c.TriageRationale = rationale
	c.AppendLog(fmt.Sprintf("Case classified as: %s", classification))
	slog.Info("triageStage.Run: case classified", "session_id", c.SessionID, "classification", classification, "urgency", c.UrgencyScore)
	return nil
}

// classifyNumeric applies the authoritative threshold policy.
func (s *triageStage) classifyNumeric(urgency float64) (models.Classification, string) {
	var cl models.Classification
	switch {
	case urgency >= s.cfg.CriticalThreshold:
		cl = models.ClassificationCritical
	case urgency >= s.cfg.PriorityThreshold:
		cl = models.ClassificationPriority
	case urgency >= s.cfg.RoutineThreshold:
		cl = models.ClassificationRoutine
	default:
		cl = models.ClassificationLowRisk
	}
	return cl, fmt.Sprintf("Automated classification based on urgency score %.1f", urgency)
}

// classifyWithAdvisor consults the language model. Returns ok=false on any
// provider error, unparsable output, or a label outside the known four.
func (s *triageStage) classifyWithAdvisor(ctx context.Context, c *models.Case) (models.Classification, string, bool) {
	system := "You are an experienced emergency physician triaging a patient case. " +
		"Respond only with JSON of the form {\"classification\": \"CRITICAL|PRIORITY|ROUTINE|LOW_RISK\", \"reasoning\": \"...\"}."
	user := fmt.Sprintf(
		"Patient age: %d\nSymptoms: %s\nImaging findings (name: probability): %s\nUrgency score (0-10): %.1f\n\n"+
			"Classify the case: CRITICAL (urgency >= 8, immediate senior attention), PRIORITY (5-7, consult within 24-48h), "+
			"ROUTINE (3-4, standard follow-up), LOW_RISK (< 3, lifestyle recommendations only).",
		c.Patient.Age, c.Symptoms, formatFindings(c.Findings), c.UrgencyScore,
	)

	raw, err := s.advisor.GeneratePromptWithContext(ctx, system, user)
	if err != nil {
		slog.Debug("triageStage.classifyWithAdvisor: provider call failed", "error", err)
		return "", "", false
	}

	var result triageResult
	if err := json.Unmarshal([]byte(genai.StripJSONFences(raw)), &result); err != nil {
		slog.Debug("triageStage.classifyWithAdvisor: unparsable response", "error", err)
		return "", "", false
	}

	cl := models.Classification(strings.ToUpper(strings.TrimSpace(result.Classification)))
	if !models.IsValidClassification(cl) {
		slog.Debug("triageStage.classifyWithAdvisor: unknown label treated as provider failure", "label", result.Classification)
		return "", "", false
	}
	return cl, result.Reasoning, true
}

// formatFindings renders the findings map in deterministic name order.
func formatFindings(findings map[string]float64) string {
	names := make([]string, 0, len(findings))
	for name := range findings {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %.2f", name, findings[name])
	}
	return b.String()
}
