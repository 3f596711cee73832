// Package directory provides read-only specialist reference data for JarvisMD.
//
// The directory is injected into the matching stage and never mutated at
// runtime; per-case match scores are copied onto case snapshots instead of
// being written back to shared records.
package directory

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
)

// Provider is the lookup boundary the workflow depends on.
type Provider interface {
	// Specialist returns the directory entry for the given id, or false if unknown.
	Specialist(id string) (models.Specialist, bool)

	// BySpecialty returns all entries whose specialty matches name (case-insensitive substring).
	BySpecialty(name string) []models.Specialist

	// All returns every directory entry in stable id order.
	All() []models.Specialist

	// AvailableSlots returns upcoming bookable slots for a specialist within daysAhead days.
	AvailableSlots(id string, daysAhead int) []models.Slot
}

// weeklySchedule maps lowercase weekday names to bookable times (HH:MM).
type weeklySchedule map[string][]string

// entry pairs a specialist record with its recurring weekly availability.
type entry struct {
	specialist models.Specialist
	schedule   weeklySchedule
}

// Static is an in-memory Provider backed by an embedded hospital directory.
type Static struct {
	entries map[string]entry
	order   []string
	now     func() time.Time
}

// Option configures a Static directory.
type Option func(*Static)

// WithClock overrides the time source used for slot generation (for tests).
func WithClock(now func() time.Time) Option {
	return func(d *Static) {
		d.now = now
	}
}

// NewStatic creates a directory populated with the embedded Manchester
// hospital entries.
func NewStatic(opts ...Option) *Static {
	d := &Static{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, e := range manchesterEntries() {
		d.entries[e.specialist.ID] = e
		d.order = append(d.order, e.specialist.ID)
	}
	sort.Strings(d.order)
	for _, opt := range opts {
		opt(d)
	}
	slog.Debug("directory.NewStatic: directory loaded", "specialists", len(d.order))
	return d
}

// Specialist returns the entry for id. The returned value is a copy; callers
// may attach match scores and slots without touching shared data.
func (d *Static) Specialist(id string) (models.Specialist, bool) {
	e, ok := d.entries[id]
	if !ok {
		return models.Specialist{}, false
	}
	return cloneSpecialist(e.specialist), true
}

// BySpecialty returns copies of all entries matching the given specialty.
func (d *Static) BySpecialty(name string) []models.Specialist {
	needle := strings.ToLower(name)
	var out []models.Specialist
	for _, id := range d.order {
		s := d.entries[id].specialist
		if strings.Contains(strings.ToLower(s.Specialty), needle) {
			out = append(out, cloneSpecialist(s))
		}
	}
	return out
}

// All returns copies of every entry in stable id order.
func (d *Static) All() []models.Specialist {
	out := make([]models.Specialist, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, cloneSpecialist(d.entries[id].specialist))
	}
	return out
}

// AvailableSlots expands the specialist's weekly schedule into concrete
// upcoming slots, starting tomorrow, within daysAhead days.
func (d *Static) AvailableSlots(id string, daysAhead int) []models.Slot {
	e, ok := d.entries[id]
	if !ok || daysAhead <= 0 {
		return nil
	}

	var slots []models.Slot
	start := d.now()
	for i := 1; i <= daysAhead; i++ {
		day := start.AddDate(0, 0, i)
		times := e.schedule[strings.ToLower(day.Weekday().String())]
		for _, hhmm := range times {
			t, err := time.Parse("15:04", hhmm)
			if err != nil {
				slog.Warn("directory.AvailableSlots: bad schedule time", "specialist", id, "time", hhmm)
				continue
			}
			dt := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
			slots = append(slots, models.Slot{
				Date:     dt.Format("2006-01-02"),
				Time:     hhmm,
				DateTime: dt,
			})
		}
	}
	return slots
}

func cloneSpecialist(s models.Specialist) models.Specialist {
	out := s
	out.Expertise = append([]string(nil), s.Expertise...)
	out.AvailableSlots = append([]models.Slot(nil), s.AvailableSlots...)
	return out
}
