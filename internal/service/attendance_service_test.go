package service

import (
	"context"
	"sync"
	"testing"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attendanceFixture struct {
	svc      *AttendanceService
	sessions *memSessionStore
	records  *memAttendanceStore
	bus      *captureBus
	session  *model.Session
	facultyP model.Principal
}

func newAttendanceFixture(t *testing.T, verify *stubVerifier) *attendanceFixture {
	t.Helper()

	sessions := newMemSessionStore()
	records := newMemAttendanceStore(sessions)
	bus := &captureBus{}

	facultyP := model.Principal{ID: uuid.New(), Name: "Dr. Warren", Role: model.RoleFaculty, Department: "CS"}
	sessionSvc := NewSessionService(sessions, bus, zerolog.Nop())
	session, err := sessionSvc.Create(context.Background(), facultyP, model.CreateSessionRequest{
		CourseName: "Algorithms",
		CourseCode: "CS301",
		Department: "CS",
	})
	require.NoError(t, err)
	bus.published = nil // discard the creation announcement

	return &attendanceFixture{
		svc:      NewAttendanceService(records, sessions, verify, bus, zerolog.Nop()),
		sessions: sessions,
		records:  records,
		bus:      bus,
		session:  session,
		facultyP: facultyP,
	}
}

func studentPrincipal(name string) model.Principal {
	return model.Principal{ID: uuid.New(), Name: name, Role: model.RoleStudent, Department: "CS"}
}

func TestMarkSuccess(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	student := studentPrincipal("Ben Okafor")

	rec, err := fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	require.NoError(t, err)

	assert.Equal(t, fx.session.ID, rec.SessionID)
	assert.Equal(t, student.ID, rec.StudentID)
	assert.Equal(t, "CS301", rec.CourseCode)
	assert.Equal(t, model.VerificationMethodFace, rec.VerificationMethod)
	assert.InDelta(t, 0.97, rec.ConfidenceScore, 0.001)
	assert.False(t, rec.MarkedAt.IsZero())

	// The owning faculty gets exactly one notification with the new count.
	events := fx.bus.events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventAttendanceMarked, events[0].Event.Type)
	assert.Equal(t, fx.facultyP.ID, events[0].Target.UserID)
	assert.Equal(t, 1, events[0].Event.PresentCount)
}

func TestMarkRejectsNonStudents(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())

	_, err := fx.svc.Mark(context.Background(), fx.facultyP, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 0, fx.records.count(fx.session.ID))
}

func TestMarkUnknownSession(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())

	_, err := fx.svc.Mark(context.Background(), studentPrincipal("Ben"), model.MarkAttendanceRequest{SessionID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkClosedSession(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	sessionSvc := NewSessionService(fx.sessions, fx.bus, zerolog.Nop())
	_, err := sessionSvc.Close(context.Background(), fx.facultyP, fx.session.ID)
	require.NoError(t, err)

	_, err = fx.svc.Mark(context.Background(), studentPrincipal("Ben"), model.MarkAttendanceRequest{SessionID: fx.session.ID})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 0, fx.records.count(fx.session.ID))
}

func TestMarkDuplicate(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	student := studentPrincipal("Ben")

	_, err := fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	require.NoError(t, err)

	_, err = fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	assert.ErrorIs(t, err, ErrDuplicateAttendance)
	assert.Equal(t, 1, fx.records.count(fx.session.ID))
}

func TestMarkVerificationFailureLeavesNoRecord(t *testing.T) {
	fx := newAttendanceFixture(t, failVerifier())

	_, err := fx.svc.Mark(context.Background(), studentPrincipal("Ben"), model.MarkAttendanceRequest{SessionID: fx.session.ID})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, 0, fx.records.count(fx.session.ID))
	assert.Empty(t, fx.bus.events())
}

func TestMarkVerifierUnreachable(t *testing.T) {
	fx := newAttendanceFixture(t, downVerifier())

	_, err := fx.svc.Mark(context.Background(), studentPrincipal("Ben"), model.MarkAttendanceRequest{SessionID: fx.session.ID})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, fx.records.count(fx.session.ID))
}

// Many racing marks for the same (session, student) pair must commit exactly
// one record, and the present count must equal the number of distinct
// students that succeeded.
func TestMarkConcurrentSameStudentExactlyOnce(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	student := studentPrincipal("Ben")

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, duplicates := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrDuplicateAttendance):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
	assert.Equal(t, 1, fx.records.count(fx.session.ID))

	final, err := fx.sessions.GetByID(context.Background(), fx.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.PresentCount)
}

// Distinct students racing must all commit, and the present count must match
// the committed record count.
func TestMarkConcurrentDistinctStudents(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())

	const students = 24
	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := fx.svc.Mark(context.Background(), studentPrincipal("Student"), model.MarkAttendanceRequest{SessionID: fx.session.ID})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, students, fx.records.count(fx.session.ID))
	final, err := fx.sessions.GetByID(context.Background(), fx.session.ID)
	require.NoError(t, err)
	assert.Equal(t, students, final.PresentCount)
}

func TestHistoryStudentOnly(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	student := studentPrincipal("Ben")

	_, err := fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	require.NoError(t, err)

	records, err := fx.svc.History(context.Background(), student)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = fx.svc.History(context.Background(), fx.facultyP)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListForSessionPermissions(t *testing.T) {
	fx := newAttendanceFixture(t, passVerifier())
	student := studentPrincipal("Ben")
	_, err := fx.svc.Mark(context.Background(), student, model.MarkAttendanceRequest{SessionID: fx.session.ID})
	require.NoError(t, err)

	// Owning faculty sees the roster.
	records, err := fx.svc.ListForSession(context.Background(), fx.facultyP, fx.session.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Admins see any roster.
	admin := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	records, err = fx.svc.ListForSession(context.Background(), admin, fx.session.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Other faculty do not.
	other := model.Principal{ID: uuid.New(), Role: model.RoleFaculty}
	_, err = fx.svc.ListForSession(context.Background(), other, fx.session.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
