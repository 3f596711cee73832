package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	hex := GenerateRandomHex(16)
	if len(hex) != 16 {
		t.Errorf("expected length 16, got %d", len(hex))
	}
	for _, ch := range hex {
		if !strings.ContainsRune("0123456789abcdef", ch) {
			t.Errorf("unexpected character %q in hex string %q", ch, hex)
		}
	}

	if GenerateRandomHex(0) != "" {
		t.Error("expected empty string for zero length")
	}
	if GenerateRandomHex(-5) != "" {
		t.Error("expected empty string for negative length")
	}
}

func TestGenerateRandomIDPrefixes(t *testing.T) {
	cases := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"request", GenerateRequestID, "req_"},
		{"appointment", GenerateAppointmentID, "appt_"},
		{"patient", GeneratePatientID, "pt_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := tc.gen()
			if !strings.HasPrefix(id, tc.prefix) {
				t.Errorf("id %q missing prefix %q", id, tc.prefix)
			}
			if len(id) != len(tc.prefix)+16 {
				t.Errorf("id %q has unexpected length %d", id, len(id))
			}
		})
	}
}

func TestGenerateRandomIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
