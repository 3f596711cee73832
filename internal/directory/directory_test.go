package directory

import (
	"testing"
	"time"
)

// fixedNow is a Monday, so the first generated slots fall on Tuesday.
var fixedNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func testDirectory() *Static {
	return NewStatic(WithClock(func() time.Time { return fixedNow }))
}

func TestSpecialistLookup(t *testing.T) {
	d := testDirectory()

	sp, ok := d.Specialist("dr_james_hartwell")
	if !ok {
		t.Fatal("expected dr_james_hartwell to exist")
	}
	if sp.Specialty != "Cardiologist" {
		t.Errorf("expected Cardiologist, got %q", sp.Specialty)
	}
	if sp.ExperienceYears != 18 || sp.Rating != 4.9 {
		t.Errorf("unexpected credentials: %d years, rating %.1f", sp.ExperienceYears, sp.Rating)
	}

	if _, ok := d.Specialist("dr_unknown"); ok {
		t.Error("expected lookup miss for unknown id")
	}
}

func TestSpecialistReturnsCopy(t *testing.T) {
	d := testDirectory()

	sp, _ := d.Specialist("dr_james_hartwell")
	sp.MatchScore = 0.9
	sp.Expertise[0] = "mutated"

	again, _ := d.Specialist("dr_james_hartwell")
	if again.MatchScore != 0 {
		t.Error("match score leaked into shared directory record")
	}
	if again.Expertise[0] == "mutated" {
		t.Error("expertise slice is shared with callers")
	}
}

func TestBySpecialty(t *testing.T) {
	d := testDirectory()

	cards := d.BySpecialty("Cardiologist")
	if len(cards) != 3 {
		t.Errorf("expected 3 cardiologists, got %d", len(cards))
	}
	for _, sp := range cards {
		if sp.Specialty != "Cardiologist" {
			t.Errorf("unexpected specialty %q", sp.Specialty)
		}
	}

	// Case-insensitive substring match.
	if got := d.BySpecialty("pulmon"); len(got) != 3 {
		t.Errorf("expected 3 pulmonologists, got %d", len(got))
	}
	if got := d.BySpecialty("Dermatologist"); len(got) != 0 {
		t.Errorf("expected no dermatologists, got %d", len(got))
	}
}

func TestAllStableOrder(t *testing.T) {
	d := testDirectory()

	all := d.All()
	if len(all) != 8 {
		t.Fatalf("expected 8 specialists, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("directory order not stable: %q before %q", all[i-1].ID, all[i].ID)
		}
	}
}

func TestAvailableSlots(t *testing.T) {
	d := testDirectory()

	slots := d.AvailableSlots("dr_james_hartwell", 7)
	if len(slots) == 0 {
		t.Fatal("expected upcoming slots")
	}

	for _, slot := range slots {
		if !slot.DateTime.After(fixedNow) {
			t.Errorf("slot %v is not in the future", slot.DateTime)
		}
		if slot.DateTime.After(fixedNow.AddDate(0, 0, 8)) {
			t.Errorf("slot %v is beyond the lookahead window", slot.DateTime)
		}
		if slot.Date != slot.DateTime.Format("2006-01-02") {
			t.Errorf("slot date %q does not match datetime %v", slot.Date, slot.DateTime)
		}
	}

	// Fixed clock is a Monday; the first slot is Tuesday 08:00.
	first := slots[0]
	if first.Date != "2025-06-03" || first.Time != "08:00" {
		t.Errorf("unexpected first slot: %s %s", first.Date, first.Time)
	}

	if got := d.AvailableSlots("dr_unknown", 7); got != nil {
		t.Errorf("expected nil for unknown specialist, got %v", got)
	}
	if got := d.AvailableSlots("dr_james_hartwell", 0); got != nil {
		t.Errorf("expected nil for zero lookahead, got %v", got)
	}
}
