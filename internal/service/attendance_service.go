package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campustrack/campustrack-backend/internal/metrics"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/campustrack/campustrack-backend/internal/verifier"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AttendanceStore is the attendance persistence contract.
// Satisfied by *repository.AttendanceRepository. Mark must be atomic: the
// active check, the insert, and the present-count increment are one unit.
type AttendanceStore interface {
	Mark(ctx context.Context, rec *model.AttendanceRecord) (int, error)
	Exists(ctx context.Context, sessionID, studentID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AttendanceRecord, error)
}

// AttendanceService validates and commits one attendance event per
// (session, student) pair.
type AttendanceService struct {
	records  AttendanceStore
	sessions SessionStore
	verify   verifier.Verifier
	bus      notify.Publisher
	log      zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(
	records AttendanceStore,
	sessions SessionStore,
	verify verifier.Verifier,
	bus notify.Publisher,
	log zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		records:  records,
		sessions: sessions,
		verify:   verify,
		bus:      bus,
		log:      log.With().Str("component", "attendance_service").Logger(),
	}
}

// Mark records the student's presence at the session exactly once.
//
// The duplicate pre-check here only avoids paying verifier latency on an
// obvious repeat; the store transaction is the enforcement mechanism, so two
// racing calls for the same pair still resolve to one success and one
// ErrDuplicateAttendance. A failed verification leaves no persisted state.
func (s *AttendanceService) Mark(ctx context.Context, p model.Principal, req model.MarkAttendanceRequest) (*model.AttendanceRecord, error) {
	if p.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can mark attendance", ErrPermissionDenied)
	}

	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.IsActive {
		return nil, ErrSessionClosed
	}

	exists, err := s.records.Exists(ctx, req.SessionID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing record: %w", err)
	}
	if exists {
		return nil, ErrDuplicateAttendance
	}

	result, err := s.verify.Verify(ctx, p.ID.String(), req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: verifier unreachable: %v", ErrUnavailable, err)
	}
	if !result.Passed {
		return nil, ErrVerificationFailed
	}

	method := req.VerificationMethod
	if method == "" {
		method = model.VerificationMethodFace
	}

	rec := &model.AttendanceRecord{
		SessionID:          req.SessionID,
		StudentID:          p.ID,
		StudentName:        p.Name,
		CourseCode:         session.CourseCode,
		VerificationMethod: method,
		ConfidenceScore:    result.Confidence,
	}

	var presentCount int
	err = retryStore(ctx, func() error {
		var mErr error
		presentCount, mErr = s.records.Mark(ctx, rec)
		return mErr
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrSessionClosed):
			// The session closed between the pre-check and the commit.
			return nil, ErrSessionClosed
		case errors.Is(err, repository.ErrDuplicateAttendance):
			return nil, ErrDuplicateAttendance
		default:
			return nil, fmt.Errorf("commit attendance: %w", err)
		}
	}
	metrics.AttendanceMarked.Inc()

	// Notify the owning faculty. Best-effort; a delivery fault never undoes
	// the committed record.
	evt := notify.AttendanceMarked(session.ID, p.Name, presentCount)
	if err := s.bus.Publish(ctx, notify.ToUser(session.FacultyID), evt); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("attendance_marked publish failed")
	}

	return rec, nil
}

// History returns the student's own attendance records, most recent first.
func (s *AttendanceService) History(ctx context.Context, p model.Principal) ([]model.AttendanceRecord, error) {
	if p.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students have attendance history", ErrPermissionDenied)
	}
	records, err := s.records.ListByStudent(ctx, p.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	return records, nil
}

// ListForSession returns all records for a session. Restricted to the owning
// faculty member and admins.
func (s *AttendanceService) ListForSession(ctx context.Context, p model.Principal, sessionID uuid.UUID) ([]model.AttendanceRecord, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if p.Role != model.RoleAdmin && session.FacultyID != p.ID {
		return nil, ErrPermissionDenied
	}

	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	return records, nil
}
