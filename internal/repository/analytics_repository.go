package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrendPoint is one day's attendance volume.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsRepository computes point-in-time aggregates over sessions and
// attendance records. Read-only; never on the write path.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// StudentCounts returns the number of completed sessions in the student's
// department and the number of sessions the student attended.
func (r *AnalyticsRepository) StudentCounts(ctx context.Context, studentID uuid.UUID, department string) (totalSessions, attended int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM sessions WHERE department = $2 AND is_active = false),
			(SELECT COUNT(*) FROM attendance_records WHERE student_id = $1)`,
		studentID, department,
	).Scan(&totalSessions, &attended)
	return
}

// FacultyCounts returns session totals for one faculty member.
func (r *AnalyticsRepository) FacultyCounts(ctx context.Context, facultyID uuid.UUID) (totalSessions, activeSessions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM sessions WHERE faculty_id = $1),
			(SELECT COUNT(*) FROM sessions WHERE faculty_id = $1 AND is_active = true)`,
		facultyID,
	).Scan(&totalSessions, &activeSessions)
	return
}

// FacultyAverageAttendanceRate computes the mean, over the faculty's
// completed sessions, of present_count divided by the number of students in
// the session's department, as a percentage. Sessions whose department has no
// students contribute a zero rate; no completed sessions yields zero overall.
func (r *AnalyticsRepository) FacultyAverageAttendanceRate(ctx context.Context, facultyID uuid.UUID) (float64, error) {
	var rate float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rate), 0) FROM (
			SELECT CASE
				WHEN d.cnt > 0 THEN s.present_count::float / d.cnt * 100
				ELSE 0
			END AS rate
			FROM sessions s
			JOIN LATERAL (
				SELECT COUNT(*) AS cnt FROM users u
				WHERE u.role = 'student' AND u.department = s.department
			) d ON true
			WHERE s.faculty_id = $1 AND s.is_active = false
		) t`, facultyID,
	).Scan(&rate)
	return rate, err
}

// OverallAverageAttendanceRate computes the same mean as
// FacultyAverageAttendanceRate over every completed session in the system.
func (r *AnalyticsRepository) OverallAverageAttendanceRate(ctx context.Context) (float64, error) {
	var rate float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rate), 0) FROM (
			SELECT CASE
				WHEN d.cnt > 0 THEN s.present_count::float / d.cnt * 100
				ELSE 0
			END AS rate
			FROM sessions s
			JOIN LATERAL (
				SELECT COUNT(*) AS cnt FROM users u
				WHERE u.role = 'student' AND u.department = s.department
			) d ON true
			WHERE s.is_active = false
		) t`,
	).Scan(&rate)
	return rate, err
}

// AdminCounts returns the system-wide totals for the admin overview.
func (r *AnalyticsRepository) AdminCounts(ctx context.Context) (totalUsers, totalStudents, totalFaculty, totalSessions, totalAttendance int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM users WHERE role = 'faculty'),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM attendance_records)`,
	).Scan(&totalUsers, &totalStudents, &totalFaculty, &totalSessions, &totalAttendance)
	return
}

// TrendFilter scopes Trends to the requester.
type TrendFilter struct {
	StudentID *uuid.UUID
	FacultyID *uuid.UUID
}

// Trends returns per-day attendance counts over the trailing seven days,
// oldest day first.
func (r *AnalyticsRepository) Trends(ctx context.Context, f TrendFilter) ([]TrendPoint, error) {
	query := `SELECT to_char(date_trunc('day', a.marked_at), 'YYYY-MM-DD') AS day, COUNT(*)
	          FROM attendance_records a`
	args := []any{}

	if f.FacultyID != nil {
		args = append(args, *f.FacultyID)
		query += ` JOIN sessions s ON a.session_id = s.id
		           WHERE a.marked_at >= NOW() - interval '7 days' AND s.faculty_id = $1`
	} else if f.StudentID != nil {
		args = append(args, *f.StudentID)
		query += ` WHERE a.marked_at >= NOW() - interval '7 days' AND a.student_id = $1`
	} else {
		query += ` WHERE a.marked_at >= NOW() - interval '7 days'`
	}
	query += ` GROUP BY day ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if points == nil {
		points = []TrendPoint{}
	}
	return points, rows.Err()
}
