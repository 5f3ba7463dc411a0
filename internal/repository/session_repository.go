package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionFilter narrows List to the requester's visibility scope.
type SessionFilter struct {
	FacultyID  *uuid.UUID
	Department *string
	ActiveOnly bool
}

// SessionRepository handles session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new active session with a zero present count.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (faculty_id, faculty_name, course_name, course_code, department)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, start_time, is_active, present_count, created_at`,
		s.FacultyID, s.FacultyName, s.CourseName, s.CourseCode, s.Department,
	).Scan(&s.ID, &s.StartTime, &s.IsActive, &s.PresentCount, &s.CreatedAt)
}

// GetByID retrieves a session by primary key.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, faculty_id, faculty_name, course_name, course_code, department,
		        start_time, end_time, is_active, present_count, created_at
		 FROM sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.FacultyID, &s.FacultyName, &s.CourseName, &s.CourseCode, &s.Department,
		&s.StartTime, &s.EndTime, &s.IsActive, &s.PresentCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close marks a session inactive. The WHERE clause is a compare-and-set on
// is_active so exactly one of two racing closes wins; the loser sees zero
// rows affected and false is returned.
func (r *SessionRepository) Close(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET is_active = false, end_time = $2
		 WHERE id = $1 AND is_active = true`,
		id, endTime)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List retrieves sessions visible to the filter, most recently started first.
func (r *SessionRepository) List(ctx context.Context, f SessionFilter) ([]model.Session, error) {
	query := `SELECT id, faculty_id, faculty_name, course_name, course_code, department,
	                 start_time, end_time, is_active, present_count, created_at
	          FROM sessions`
	args := []any{}
	clauses := []string{}

	if f.FacultyID != nil {
		args = append(args, *f.FacultyID)
		clauses = append(clauses, "faculty_id = $"+strconv.Itoa(len(args)))
	}
	if f.Department != nil {
		args = append(args, *f.Department)
		clauses = append(clauses, "department = $"+strconv.Itoa(len(args)))
	}
	if f.ActiveOnly {
		clauses = append(clauses, "is_active = true")
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.FacultyID, &s.FacultyName, &s.CourseName, &s.CourseCode, &s.Department,
			&s.StartTime, &s.EndTime, &s.IsActive, &s.PresentCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
