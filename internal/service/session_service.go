package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campustrack/campustrack-backend/internal/metrics"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore is the session persistence contract.
// Satisfied by *repository.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Close(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error)
	List(ctx context.Context, f repository.SessionFilter) ([]model.Session, error)
}

// SessionService owns the session lifecycle: creation, visibility-scoped
// listing, and the single active→closed transition.
type SessionService struct {
	sessions SessionStore
	bus      notify.Publisher
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions SessionStore, bus notify.Publisher, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		bus:      bus,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Create opens a new active session owned by the requesting faculty member
// and announces it to every connected student of the department.
func (s *SessionService) Create(ctx context.Context, p model.Principal, req model.CreateSessionRequest) (*model.Session, error) {
	if p.Role != model.RoleFaculty {
		return nil, fmt.Errorf("%w: only faculty can create sessions", ErrValidation)
	}
	if strings.TrimSpace(req.CourseName) == "" || strings.TrimSpace(req.CourseCode) == "" {
		return nil, fmt.Errorf("%w: course name and code are required", ErrValidation)
	}

	session := &model.Session{
		FacultyID:   p.ID,
		FacultyName: p.Name,
		CourseName:  req.CourseName,
		CourseCode:  req.CourseCode,
		Department:  req.Department,
	}

	err := retryStore(ctx, func() error {
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsCreated.Inc()

	// Announce to the department. Delivery is best-effort and must never
	// fail the creation.
	if err := s.bus.Publish(ctx, notify.ToDepartmentStudents(session.Department), notify.SessionCreated(session)); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("session_created publish failed")
	}

	return session, nil
}

// Get retrieves a single session.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Close transitions a session from active to closed. Only the owning faculty
// may close it; closing an already-closed session is a reported error, not a
// silent no-op, since a double close indicates a client bug. Records
// committed before the close stand untouched.
func (s *SessionService) Close(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.FacultyID != p.ID {
		return nil, ErrPermissionDenied
	}
	if !session.IsActive {
		return nil, ErrAlreadyClosed
	}

	endTime := time.Now().UTC()
	var closed bool
	err = retryStore(ctx, func() error {
		var cErr error
		closed, cErr = s.sessions.Close(ctx, id, endTime)
		return cErr
	})
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if !closed {
		// Lost the race against a concurrent close.
		return nil, ErrAlreadyClosed
	}

	session.IsActive = false
	session.EndTime = &endTime
	return session, nil
}

// List returns the sessions visible to the principal, most recently started
// first: admins see everything, faculty their own, students their department.
func (s *SessionService) List(ctx context.Context, p model.Principal, activeOnly bool) ([]model.Session, error) {
	filter := repository.SessionFilter{ActiveOnly: activeOnly}
	switch p.Role {
	case model.RoleFaculty:
		filter.FacultyID = &p.ID
	case model.RoleStudent:
		filter.Department = &p.Department
	}

	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, nil
}
