package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aadityaamehrotra17/JarvisMD/internal/directory"
	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// Finding-driven match rules. Match scores are fixed per rule and copied
// onto the case's specialist snapshots, never onto the shared directory.
const (
	cardiacMatchScore     = 0.90
	emergencyMatchScore   = 0.85
	respiratoryMatchScore = 0.80
)

// cardiacFindings and respiratoryFindings name the imaging findings that
// drive matching toward each specialty.
var (
	cardiacFindings     = []string{"Cardiomegaly"}
	respiratoryFindings = []string{"Pneumonia", "Edema", "Atelectasis", "Consolidation"}
)

// matchStage selects up to three eligible specialists for the case.
type matchStage struct {
	cfg       *Config
	directory directory.Provider
}

func (s *matchStage) ID() models.StageID { return models.StageSpecialistMatch }

func (s *matchStage) Run(ctx context.Context, c *models.Case) error {
	recommended := s.recommend(c)
	c.RecommendedSpecialists = recommended

	// Stable sort keeps directory order for equal scores, so selection is
	// deterministic.
	sort.SliceStable(recommended, func(i, j int) bool {
		return recommended[i].MatchScore > recommended[j].MatchScore
	})

	if len(recommended) > s.cfg.MaxSelectedSpecialists {
		recommended = recommended[:s.cfg.MaxSelectedSpecialists]
	}

	eligible := s.filterEligible(recommended, c.Classification)

	for i := range eligible {
		slots := s.directory.AvailableSlots(eligible[i].ID, s.cfg.SlotLookaheadDays)
		if len(slots) > s.cfg.SlotsPerSpecialist {
			slots = slots[:s.cfg.SlotsPerSpecialist]
		}
		eligible[i].AvailableSlots = slots
	}

	c.SelectedSpecialists = eligible
	c.AppendLog(fmt.Sprintf("Selected %d specialists for outreach", len(eligible)))
	slog.Info("matchStage.Run: specialists selected", "session_id", c.SessionID, "recommended", len(c.RecommendedSpecialists), "selected", len(eligible))
	return nil
}

// recommend applies the finding-driven rule set over the whole directory.
// An empty result is a valid outcome; the case then flows through outreach
// with zero requests and escalates.
func (s *matchStage) recommend(c *models.Case) []models.Specialist {
	var out []models.Specialist
	for _, sp := range s.directory.All() {
		score, ok := s.matchScore(sp, c)
		if !ok {
			continue
		}
		snapshot := sp
		snapshot.MatchScore = score
		out = append(out, snapshot)
	}
	return out
}

// matchScore returns the rule score for a specialist, or false if no rule matches.
func (s *matchStage) matchScore(sp models.Specialist, c *models.Case) (float64, bool) {
	switch sp.Specialty {
	case "Cardiologist":
		if s.anyFindingAbove(c.Findings, cardiacFindings) {
			return cardiacMatchScore, true
		}
	case "Pulmonologist":
		if s.anyFindingAbove(c.Findings, respiratoryFindings) {
			return respiratoryMatchScore, true
		}
	case "Emergency Medicine":
		if c.UrgencyScore >= s.cfg.EmergencyUrgencyThreshold {
			return emergencyMatchScore, true
		}
	}
	return 0, false
}

func (s *matchStage) anyFindingAbove(findings map[string]float64, names []string) bool {
	for _, name := range names {
		if findings[name] >= s.cfg.FindingProbabilityThreshold {
			return true
		}
	}
	return false
}

// filterEligible applies the classification-dependent qualification filter.
// CRITICAL cases require senior, highly rated specialists; PRIORITY cases
// require the rating floor only; other cases accept any match.
func (s *matchStage) filterEligible(candidates []models.Specialist, cl models.Classification) []models.Specialist {
	var out []models.Specialist
	for _, sp := range candidates {
		switch cl {
		case models.ClassificationCritical:
			if sp.ExperienceYears < s.cfg.CriticalMinExperienceYears || sp.Rating < s.cfg.CriticalMinRating {
				continue
			}
		case models.ClassificationPriority:
			if sp.Rating < s.cfg.PriorityMinRating {
				continue
			}
		}
		out = append(out, sp)
	}
	return out
}
