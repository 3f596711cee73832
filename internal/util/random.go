// Package util provides utility functions shared across JarvisMD components.
package util

import (
	"math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; ids are identifiers, not secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateRequestID generates a unique appointment request ID with "req_" prefix.
func GenerateRequestID() string {
	return GenerateRandomID("req_", 16)
}

// GenerateAppointmentID generates a unique appointment ID with "appt_" prefix.
func GenerateAppointmentID() string {
	return GenerateRandomID("appt_", 16)
}

// GeneratePatientID generates a unique patient ID with "pt_" prefix.
func GeneratePatientID() string {
	return GenerateRandomID("pt_", 16)
}
