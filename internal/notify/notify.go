// Package notify delivers outreach messages to specialists.
//
// It defines a pluggable delivery abstraction used by the outreach stage.
// Delivery is best-effort: the workflow records a request as sent even when
// notification fails, so failures here never abort a case run.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Service defines a pluggable outreach delivery abstraction.
type Service interface {
	// Send delivers an outreach message to the given contact (phone or email).
	Send(ctx context.Context, contact, subject, body string) error
}

// Recorder is an in-memory Service that records every delivery. Used for
// tests and for running without credentials.
type Recorder struct {
	mu   sync.Mutex
	sent []Delivery

	// FailFor makes Send return an error for contacts in the set, to
	// exercise the workflow's partial-failure tolerance.
	FailFor map[string]error
}

// Delivery captures one recorded outreach message.
type Delivery struct {
	Contact string
	Subject string
	Body    string
}

// NewRecorder creates an empty recording service.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the delivery, or returns the configured error for the contact.
func (r *Recorder) Send(ctx context.Context, contact, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailFor[contact]; ok {
		slog.Debug("notify.Recorder: simulated delivery failure", "contact", contact)
		return err
	}
	r.sent = append(r.sent, Delivery{Contact: contact, Subject: subject, Body: body})
	slog.Debug("notify.Recorder: delivery recorded", "contact", contact, "subject", subject)
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (r *Recorder) Sent() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.sent...)
}
