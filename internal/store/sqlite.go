// Package store provides storage backends for JarvisMD scheduling records.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/aadityaamehrotra17/JarvisMD/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists scheduling records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveRequest inserts an appointment request. Re-saving the same id replaces
// the record, so the write is idempotent under retries.
func (s *SQLiteStore) SaveRequest(req models.AppointmentRequest) error {
	slots, err := marshalSlots(req.ProposedSlots)
	if err != nil {
		return fmt.Errorf("failed to encode proposed slots for %s: %w", req.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO requests
		 (id, patient_id, specialist_id, specialist_name, contact, urgency, proposed_slots, message, status, sent_at, responded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.PatientID, req.SpecialistID, req.SpecialistName, nilIfEmpty(req.Contact),
		string(req.UrgencyLevel), slots, nilIfEmpty(req.Message), string(req.Status), req.SentAt, req.RespondedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveRequest failed", "error", err, "request_id", req.ID)
		return fmt.Errorf("failed to insert request %s: %w", req.ID, err)
	}
	if err := s.indexPatientRecord(req.PatientID, "request", req.ID); err != nil {
		return err
	}
	slog.Debug("SQLiteStore SaveRequest succeeded", "request_id", req.ID, "patient_id", req.PatientID)
	return nil
}

// UpdateRequestStatus transitions a request's status and stamps the response time.
func (s *SQLiteStore) UpdateRequestStatus(requestID string, status models.RequestStatus, note string) error {
	_, err := s.db.Exec(
		`UPDATE requests SET status = ?, responded_at = ?, message = COALESCE(NULLIF(?, ''), message) WHERE id = ?`,
		string(status), time.Now(), note, requestID,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateRequestStatus failed", "error", err, "request_id", requestID)
		return fmt.Errorf("failed to update request %s: %w", requestID, err)
	}
	return nil
}

// ListRequests returns matching requests, newest first.
func (s *SQLiteStore) ListRequests(f RequestFilter) ([]models.AppointmentRequest, error) {
	query := `SELECT id, patient_id, specialist_id, specialist_name, contact, urgency, proposed_slots, message, status, sent_at, responded_at
	          FROM requests WHERE 1=1`
	var args []interface{}
	if f.PatientID != "" {
		query += ` AND patient_id = ?`
		args = append(args, f.PatientID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY sent_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListRequests query failed", "error", err)
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []models.AppointmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			slog.Error("SQLiteStore ListRequests scan failed", "error", err)
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request rows: %w", err)
	}
	slog.Debug("SQLiteStore ListRequests succeeded", "count", len(out))
	return out, nil
}

// SaveAppointment inserts a confirmed appointment.
func (s *SQLiteStore) SaveAppointment(appt models.Appointment) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO appointments
		 (id, request_id, specialist_id, specialist_name, patient_id, patient_name, scheduled_at, urgency, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.ID, appt.RequestID, appt.SpecialistID, appt.SpecialistName, appt.PatientID, appt.PatientName,
		appt.ScheduledAt, string(appt.Urgency), string(appt.Status), appt.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveAppointment failed", "error", err, "appointment_id", appt.ID)
		return fmt.Errorf("failed to insert appointment %s: %w", appt.ID, err)
	}
	if err := s.indexPatientRecord(appt.PatientID, "appointment", appt.ID); err != nil {
		return err
	}
	slog.Debug("SQLiteStore SaveAppointment succeeded", "appointment_id", appt.ID, "patient_id", appt.PatientID)
	return nil
}

// ListAppointments returns matching appointments ordered by scheduled time.
func (s *SQLiteStore) ListAppointments(f AppointmentFilter) ([]models.Appointment, error) {
	query := `SELECT id, request_id, specialist_id, specialist_name, patient_id, patient_name, scheduled_at, urgency, status, created_at
	          FROM appointments WHERE 1=1`
	var args []interface{}
	if f.PatientID != "" {
		query += ` AND patient_id = ?`
		args = append(args, f.PatientID)
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListAppointments query failed", "error", err)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			slog.Error("SQLiteStore ListAppointments scan failed", "error", err)
			return nil, err
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointment rows: %w", err)
	}
	return out, nil
}

// PatientHistory returns the record index for a patient.
func (s *SQLiteStore) PatientHistory(patientID string) (PatientHistory, error) {
	rows, err := s.db.Query(
		`SELECT record_type, record_id, created_at FROM patient_index WHERE patient_id = ? ORDER BY created_at ASC`,
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
func (s *SQLiteStore) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&st.TotalRequests); err != nil {
		return st, fmt.Errorf("failed to count requests: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests WHERE status = ?`, string(models.RequestStatusSent)).Scan(&st.PendingRequests); err != nil {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) indexPatientRecord(patientID, recordType, recordID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO patient_index (patient_id, record_type, record_id, created_at) VALUES (?, ?, ?, ?)`,
		patientID, recordType, recordID, time.Now(),
	)
	if err != nil {
		slog.Error("SQLiteStore indexPatientRecord failed", "error", err, "patient_id", patientID, "record_id", recordID)
		return fmt.Errorf("failed to index %s %s: %w", recordType, recordID, err)
	}
	return nil
}
