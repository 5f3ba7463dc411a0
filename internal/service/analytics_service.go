package service

import (
	"context"
	"fmt"
	"math"

	"github.com/campustrack/campustrack-backend/internal/insights"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AnalyticsStore is the aggregation query contract.
// Satisfied by *repository.AnalyticsRepository.
type AnalyticsStore interface {
	StudentCounts(ctx context.Context, studentID uuid.UUID, department string) (totalSessions, attended int, err error)
	FacultyCounts(ctx context.Context, facultyID uuid.UUID) (totalSessions, activeSessions int, err error)
	FacultyAverageAttendanceRate(ctx context.Context, facultyID uuid.UUID) (float64, error)
	OverallAverageAttendanceRate(ctx context.Context) (float64, error)
	AdminCounts(ctx context.Context) (totalUsers, totalStudents, totalFaculty, totalSessions, totalAttendance int, err error)
	Trends(ctx context.Context, f repository.TrendFilter) ([]repository.TrendPoint, error)
}

// Summarizer generates a narrative over aggregated numbers. Best-effort.
type Summarizer interface {
	Summarize(ctx context.Context, totalSessions int, avgAttendanceRate float64) (string, error)
}

// Overview is the role-scoped analytics snapshot. Fields irrelevant to the
// requester's role are omitted from the JSON encoding.
type Overview struct {
	TotalSessions          int                      `json:"total_sessions"`
	AttendedSessions       *int                     `json:"attended_sessions,omitempty"`
	AttendanceRate         *float64                 `json:"attendance_rate,omitempty"`
	RecentAttendance       []model.AttendanceRecord `json:"recent_attendance,omitempty"`
	ActiveSessions         *int                     `json:"active_sessions,omitempty"`
	CompletedSessions      *int                     `json:"completed_sessions,omitempty"`
	AverageAttendanceRate  *float64                 `json:"average_attendance_rate,omitempty"`
	TotalUsers             *int                     `json:"total_users,omitempty"`
	TotalStudents          *int                     `json:"total_students,omitempty"`
	TotalFaculty           *int                     `json:"total_faculty,omitempty"`
	TotalAttendanceRecords *int                     `json:"total_attendance_records,omitempty"`
}

// AnalyticsService computes point-in-time statistics scoped to the
// requester's role. Read-only; staleness on the order of query latency is
// acceptable, so nothing here is cached.
type AnalyticsService struct {
	analytics AnalyticsStore
	records   AttendanceStore
	narrative Summarizer
	log       zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(analytics AnalyticsStore, records AttendanceStore, narrative Summarizer, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		records:   records,
		narrative: narrative,
		log:       log.With().Str("component", "analytics_service").Logger(),
	}
}

// Overview returns the snapshot for the principal's scope: admins see
// system-wide totals, faculty their own sessions, students their department.
// Rates never divide by zero; an empty denominator reports 0%.
func (s *AnalyticsService) Overview(ctx context.Context, p model.Principal) (*Overview, error) {
	switch p.Role {
	case model.RoleStudent:
		return s.studentOverview(ctx, p)
	case model.RoleFaculty:
		return s.facultyOverview(ctx, p)
	case model.RoleAdmin:
		return s.adminOverview(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, p.Role)
	}
}

func (s *AnalyticsService) studentOverview(ctx context.Context, p model.Principal) (*Overview, error) {
	total, attended, err := s.analytics.StudentCounts(ctx, p.ID, p.Department)
	if err != nil {
		return nil, fmt.Errorf("student counts: %w", err)
	}

	rate := 0.0
	if total > 0 {
		rate = round2(float64(attended) / float64(total) * 100)
	}

	recent, err := s.records.ListByStudent(ctx, p.ID, 10)
	if err != nil {
		return nil, fmt.Errorf("recent attendance: %w", err)
	}
	if recent == nil {
		recent = []model.AttendanceRecord{}
	}

	return &Overview{
		TotalSessions:    total,
		AttendedSessions: &attended,
		AttendanceRate:   &rate,
		RecentAttendance: recent,
	}, nil
}

func (s *AnalyticsService) facultyOverview(ctx context.Context, p model.Principal) (*Overview, error) {
	total, active, err := s.analytics.FacultyCounts(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("faculty counts: %w", err)
	}

	avgRate, err := s.analytics.FacultyAverageAttendanceRate(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("faculty average rate: %w", err)
	}
	avgRate = round2(avgRate)

	completed := total - active
	return &Overview{
		TotalSessions:         total,
		ActiveSessions:        &active,
		CompletedSessions:     &completed,
		AverageAttendanceRate: &avgRate,
	}, nil
}

func (s *AnalyticsService) adminOverview(ctx context.Context) (*Overview, error) {
	users, students, faculty, sessions, attendance, err := s.analytics.AdminCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin counts: %w", err)
	}

	return &Overview{
		TotalSessions:          sessions,
		TotalUsers:             &users,
		TotalStudents:          &students,
		TotalFaculty:           &faculty,
		TotalAttendanceRecords: &attendance,
	}, nil
}

// Trends returns the trailing seven days of attendance volume scoped like
// Overview.
func (s *AnalyticsService) Trends(ctx context.Context, p model.Principal) ([]repository.TrendPoint, error) {
	filter := repository.TrendFilter{}
	switch p.Role {
	case model.RoleStudent:
		filter.StudentID = &p.ID
	case model.RoleFaculty:
		filter.FacultyID = &p.ID
	}

	points, err := s.analytics.Trends(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	return points, nil
}

// Insights builds the overview numbers and asks the narrative generator for a
// short summary. Faculty and admin only. Strictly best-effort: any generator
// fault degrades to a static fallback instead of an error, so the core never
// depends on the external text service.
func (s *AnalyticsService) Insights(ctx context.Context, p model.Principal) (string, error) {
	var (
		total   int
		avgRate float64
		err     error
	)

	switch p.Role {
	case model.RoleFaculty:
		total, _, err = s.analytics.FacultyCounts(ctx, p.ID)
		if err == nil {
			avgRate, err = s.analytics.FacultyAverageAttendanceRate(ctx, p.ID)
		}
	case model.RoleAdmin:
		_, _, _, total, _, err = s.analytics.AdminCounts(ctx)
		if err == nil {
			avgRate, err = s.analytics.OverallAverageAttendanceRate(ctx)
		}
	default:
		return "", ErrPermissionDenied
	}
	if err != nil {
		return "", fmt.Errorf("gather insight data: %w", err)
	}

	text, err := s.narrative.Summarize(ctx, total, avgRate)
	if err != nil {
		s.log.Warn().Err(err).Msg("insights generation failed")
		return insights.Unavailable, nil
	}
	return text, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
