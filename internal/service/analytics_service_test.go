package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campustrack/campustrack-backend/internal/insights"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyticsStore returns canned aggregates and records the trend filter
// it was queried with.
type stubAnalyticsStore struct {
	studentTotal    int
	studentAttended int
	facultyTotal    int
	facultyActive   int
	facultyAvgRate  float64
	overallAvgRate  float64
	adminCounts     [5]int
	lastTrendFilter repository.TrendFilter
	err             error
}

func (s *stubAnalyticsStore) StudentCounts(context.Context, uuid.UUID, string) (int, int, error) {
	return s.studentTotal, s.studentAttended, s.err
}

func (s *stubAnalyticsStore) FacultyCounts(context.Context, uuid.UUID) (int, int, error) {
	return s.facultyTotal, s.facultyActive, s.err
}

func (s *stubAnalyticsStore) FacultyAverageAttendanceRate(context.Context, uuid.UUID) (float64, error) {
	return s.facultyAvgRate, s.err
}

func (s *stubAnalyticsStore) OverallAverageAttendanceRate(context.Context) (float64, error) {
	return s.overallAvgRate, s.err
}

func (s *stubAnalyticsStore) AdminCounts(context.Context) (int, int, int, int, int, error) {
	c := s.adminCounts
	return c[0], c[1], c[2], c[3], c[4], s.err
}

func (s *stubAnalyticsStore) Trends(_ context.Context, f repository.TrendFilter) ([]repository.TrendPoint, error) {
	s.lastTrendFilter = f
	return []repository.TrendPoint{}, s.err
}

type stubSummarizer struct {
	text string
	err  error
}

func (s *stubSummarizer) Summarize(context.Context, int, float64) (string, error) {
	return s.text, s.err
}

func newAnalyticsFixture(store *stubAnalyticsStore, sum *stubSummarizer) (*AnalyticsService, *memAttendanceStore) {
	records := newMemAttendanceStore(newMemSessionStore())
	return NewAnalyticsService(store, records, sum, zerolog.Nop()), records
}

func TestOverviewStudent(t *testing.T) {
	store := &stubAnalyticsStore{studentTotal: 12, studentAttended: 9}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{})
	p := model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "CS"}

	overview, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 12, overview.TotalSessions)
	require.NotNil(t, overview.AttendedSessions)
	assert.Equal(t, 9, *overview.AttendedSessions)
	require.NotNil(t, overview.AttendanceRate)
	assert.Equal(t, 75.0, *overview.AttendanceRate)
	assert.NotNil(t, overview.RecentAttendance)
	assert.Nil(t, overview.TotalUsers)
}

func TestOverviewStudentZeroSessions(t *testing.T) {
	svc, _ := newAnalyticsFixture(&stubAnalyticsStore{}, &stubSummarizer{})
	p := model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "CS"}

	overview, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 0, overview.TotalSessions)
	require.NotNil(t, overview.AttendanceRate)
	assert.Equal(t, 0.0, *overview.AttendanceRate)
}

func TestOverviewStudentRateRounded(t *testing.T) {
	store := &stubAnalyticsStore{studentTotal: 3, studentAttended: 1}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{})
	p := model.Principal{ID: uuid.New(), Role: model.RoleStudent, Department: "CS"}

	overview, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 33.33, *overview.AttendanceRate)
}

func TestOverviewFaculty(t *testing.T) {
	store := &stubAnalyticsStore{facultyTotal: 10, facultyActive: 2, facultyAvgRate: 81.256}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{})
	p := model.Principal{ID: uuid.New(), Role: model.RoleFaculty}

	overview, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 10, overview.TotalSessions)
	assert.Equal(t, 2, *overview.ActiveSessions)
	assert.Equal(t, 8, *overview.CompletedSessions)
	assert.Equal(t, 81.26, *overview.AverageAttendanceRate)
	assert.Nil(t, overview.AttendanceRate)
}

func TestOverviewAdmin(t *testing.T) {
	store := &stubAnalyticsStore{adminCounts: [5]int{100, 80, 15, 40, 900}}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{})
	p := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}

	overview, err := svc.Overview(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 40, overview.TotalSessions)
	assert.Equal(t, 100, *overview.TotalUsers)
	assert.Equal(t, 80, *overview.TotalStudents)
	assert.Equal(t, 15, *overview.TotalFaculty)
	assert.Equal(t, 900, *overview.TotalAttendanceRecords)
}

func TestTrendsScoping(t *testing.T) {
	store := &stubAnalyticsStore{}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{})

	student := model.Principal{ID: uuid.New(), Role: model.RoleStudent}
	_, err := svc.Trends(context.Background(), student)
	require.NoError(t, err)
	require.NotNil(t, store.lastTrendFilter.StudentID)
	assert.Equal(t, student.ID, *store.lastTrendFilter.StudentID)
	assert.Nil(t, store.lastTrendFilter.FacultyID)

	fac := model.Principal{ID: uuid.New(), Role: model.RoleFaculty}
	_, err = svc.Trends(context.Background(), fac)
	require.NoError(t, err)
	require.NotNil(t, store.lastTrendFilter.FacultyID)
	assert.Equal(t, fac.ID, *store.lastTrendFilter.FacultyID)
	assert.Nil(t, store.lastTrendFilter.StudentID)

	admin := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	_, err = svc.Trends(context.Background(), admin)
	require.NoError(t, err)
	assert.Nil(t, store.lastTrendFilter.StudentID)
	assert.Nil(t, store.lastTrendFilter.FacultyID)
}

func TestInsightsStudentsForbidden(t *testing.T) {
	svc, _ := newAnalyticsFixture(&stubAnalyticsStore{}, &stubSummarizer{text: "fine"})
	p := model.Principal{ID: uuid.New(), Role: model.RoleStudent}

	_, err := svc.Insights(context.Background(), p)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestInsightsFaculty(t *testing.T) {
	store := &stubAnalyticsStore{facultyTotal: 5, facultyAvgRate: 90}
	svc, _ := newAnalyticsFixture(store, &stubSummarizer{text: "attendance is strong"})
	p := model.Principal{ID: uuid.New(), Role: model.RoleFaculty}

	text, err := svc.Insights(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "attendance is strong", text)
}

// A generator fault degrades to the static fallback instead of an error.
func TestInsightsGeneratorFaultDegrades(t *testing.T) {
	svc, _ := newAnalyticsFixture(&stubAnalyticsStore{}, &stubSummarizer{err: errors.New("timeout")})
	p := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}

	text, err := svc.Insights(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, insights.Unavailable, text)
}
