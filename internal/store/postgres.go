// Package store provides storage backends for JarvisMD scheduling records.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists scheduling records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN and
// applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveRequest inserts an appointment request; conflicting ids update in place.
func (s *PostgresStore) SaveRequest(req models.AppointmentRequest) error {
	slots, err := marshalSlots(req.ProposedSlots)
	if err != nil {
		return fmt.Errorf("failed to encode proposed slots for %s: %w", req.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO requests
		 (id, patient_id, specialist_id, specialist_name, contact, urgency, proposed_slots, message, status, sent_at, responded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, responded_at = EXCLUDED.responded_at`,
		req.ID, req.PatientID, req.SpecialistID, req.SpecialistName, nilIfEmpty(req.Contact),
		string(req.UrgencyLevel), slots, nilIfEmpty(req.Message), string(req.Status), req.SentAt, req.RespondedAt,
	)
	if err != nil {
		slog.Error("PostgresStore SaveRequest failed", "error", err, "request_id", req.ID)
		return fmt.Errorf("failed to insert request %s: %w", req.ID, err)
	}
	return s.indexPatientRecord(req.PatientID, "request", req.ID)
}

// UpdateRequestStatus transitions a request's status and stamps the response time.
func (s *PostgresStore) UpdateRequestStatus(requestID string, status models.RequestStatus, note string) error {
	_, err := s.db.Exec(
		`UPDATE requests SET status = $1, responded_at = $2, message = COALESCE(NULLIF($3, ''), message) WHERE id = $4`,
		string(status), time.Now(), note, requestID,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateRequestStatus failed", "error", err, "request_id", requestID)
		return fmt.Errorf("failed to update request %s: %w", requestID, err)
	}
	return nil
}

// ListRequests returns matching requests, newest first.
func (s *PostgresStore) ListRequests(f RequestFilter) ([]models.AppointmentRequest, error) {
	query := `SELECT id, patient_id, specialist_id, specialist_name, contact, urgency, proposed_slots, message, status, sent_at, responded_at
	          FROM requests WHERE 1=1`
	var args []interface{}
	if f.PatientID != "" {
		args = append(args, f.PatientID)
		query += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY sent_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListRequests query failed", "error", err)
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []models.AppointmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// SaveAppointment inserts a confirmed appointment.
func (s *PostgresStore) SaveAppointment(appt models.Appointment) error {
	_, err := s.db.Exec(
		`INSERT INTO appointments
		 (id, request_id, specialist_id, specialist_name, patient_id, patient_name, scheduled_at, urgency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		appt.ID, appt.RequestID, appt.SpecialistID, appt.SpecialistName, appt.PatientID, appt.PatientName,
		appt.ScheduledAt, string(appt.Urgency), string(appt.Status), appt.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore SaveAppointment failed", "error", err, "appointment_id", appt.ID)
		return fmt.Errorf("failed to insert appointment %s: %w", appt.ID, err)
	}
	return s.indexPatientRecord(appt.PatientID, "appointment", appt.ID)
}

// ListAppointments returns matching appointments ordered by scheduled time.
func (s *PostgresStore) ListAppointments(f AppointmentFilter) ([]models.Appointment, error) {
	query := `SELECT id, request_id, specialist_id, specialist_name, patient_id, patient_name, scheduled_at, urgency, status, created_at
	          FROM appointments WHERE 1=1`
	var args []interface{}
	if f.PatientID != "" {
		args = append(args, f.PatientID)
		query += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListAppointments query failed", "error", err)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// PatientHistory returns the record index for a patient.
func (s *PostgresStore) PatientHistory(patientID string) (PatientHistory, error) {
	rows, err := s.db.Query(
		`SELECT record_type, record_id, created_at FROM patient_index WHERE patient_id = $1 ORDER BY created_at ASC`,
		patientID,
	)
	if err != nil {
		return PatientHistory{}, fmt.Errorf("failed to query patient index for %s: %w", patientID, err)
	}
	defer rows.Close()

	h := PatientHistory{PatientID: patientID}
	for rows.Next() {
		var recordType, recordID string
		var createdAt time.Time
		if err := rows.Scan(&recordType, &recordID, &createdAt); err != nil {
			return PatientHistory{}, fmt.Errorf("failed to scan patient index row: %w", err)
		}
		switch recordType {
		case "request":
			h.RequestIDs = append(h.RequestIDs, recordID)
		case "appointment":
			h.AppointmentIDs = append(h.AppointmentIDs, recordID)
		}
		if createdAt.After(h.UpdatedAt) {
			h.UpdatedAt = createdAt
		}
	}
	return h, rows.Err()
}

// Stats reports stored record counts.
func (s *PostgresStore) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&st.TotalRequests); err != nil {
		return st, fmt.Errorf("failed to count requests: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests WHERE status = $1`, string(models.RequestStatusSent)).Scan(&st.PendingRequests); err != nil {
		return st, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM appointments`).Scan(&st.ConfirmedAppointments); err != nil {
		return st, fmt.Errorf("failed to count appointments: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT patient_id) FROM patient_index`).Scan(&st.UniquePatients); err != nil {
		return st, fmt.Errorf("failed to count patients: %w", err)
	}
	return st, nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) indexPatientRecord(patientID, recordType, recordID string) error {
	_, err := s.db.Exec(
		`INSERT INTO patient_index (patient_id, record_type, record_id, created_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		patientID, recordType, recordID, time.Now(),
	)
	if err != nil {
		slog.Error("PostgresStore indexPatientRecord failed", "error", err, "patient_id", patientID, "record_id", recordID)
		return fmt.Errorf("failed to index %s %s: %w", recordType, recordID, err)
	}
	return nil
}
