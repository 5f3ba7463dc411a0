package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Typed outcomes of the atomic mark transaction. The caller maps these to the
// client-facing error taxonomy.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is closed")
	ErrDuplicateAttendance = errors.New("attendance already marked")
)

// AttendanceRepository handles attendance record data access.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Mark commits one attendance record and increments the session's present
// count in a single transaction. The session row is locked first so the
// active check, the insert, and the increment are one indivisible unit; the
// unique constraint on (session_id, student_id) makes concurrent duplicates
// surface as ErrDuplicateAttendance regardless of interleaving.
// On success rec.ID and rec.MarkedAt are populated and the session's new
// present count is returned.
func (r *AttendanceRepository) Mark(ctx context.Context, rec *model.AttendanceRecord) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var isActive bool
	err = tx.QueryRow(ctx,
		`SELECT is_active FROM sessions WHERE id = $1 FOR UPDATE`,
		rec.SessionID,
	).Scan(&isActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock session: %w", err)
	}
	if !isActive {
		return 0, ErrSessionClosed
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO attendance_records
		   (session_id, student_id, student_name, course_code, verification_method, confidence_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, student_id) DO NOTHING
		 RETURNING id, marked_at`,
		rec.SessionID, rec.StudentID, rec.StudentName, rec.CourseCode,
		rec.VerificationMethod, rec.ConfidenceScore,
	).Scan(&rec.ID, &rec.MarkedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDuplicateAttendance
	}
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	var presentCount int
	err = tx.QueryRow(ctx,
		`UPDATE sessions
		 SET present_count = present_count + 1
		 WHERE id = $1
		 RETURNING present_count`,
		rec.SessionID,
	).Scan(&presentCount)
	if err != nil {
		return 0, fmt.Errorf("increment present count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return presentCount, nil
}

// Exists reports whether a record exists for the pair. Advisory only; the
// transaction in Mark is the enforcement mechanism.
func (r *AttendanceRepository) Exists(ctx context.Context, sessionID, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attendance_records WHERE session_id = $1 AND student_id = $2
		 )`, sessionID, studentID,
	).Scan(&exists)
	return exists, err
}

// ListByStudent retrieves a student's records, most recent first. A limit of
// zero means no limit.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.AttendanceRecord, error) {
	query := `SELECT id, session_id, student_id, student_name, course_code,
	                 marked_at, verification_method, confidence_score
	          FROM attendance_records
	          WHERE student_id = $1
	          ORDER BY marked_at DESC`
	args := []any{studentID}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $2"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListBySession retrieves all records for a session, most recent first.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, student_id, student_name, course_code,
		        marked_at, verification_method, confidence_score
		 FROM attendance_records
		 WHERE session_id = $1
		 ORDER BY marked_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.StudentName, &rec.CourseCode,
			&rec.MarkedAt, &rec.VerificationMethod, &rec.ConfidenceScore); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
