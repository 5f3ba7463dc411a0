package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/campustrack/campustrack-backend/internal/repository"
	"github.com/campustrack/campustrack-backend/internal/verifier"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memSessionStore is an in-memory SessionStore with the same conflict
// semantics as the Postgres-backed one.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*model.Session)}
}

func (m *memSessionStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.StartTime = time.Now().UTC()
	s.IsActive = true
	s.CreatedAt = s.StartTime
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) Close(_ context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.EndTime = &endTime
	return true, nil
}

func (m *memSessionStore) List(_ context.Context, f repository.SessionFilter) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if f.FacultyID != nil && s.FacultyID != *f.FacultyID {
			continue
		}
		if f.Department != nil && s.Department != *f.Department {
			continue
		}
		if f.ActiveOnly && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

// memAttendanceStore mirrors the atomic Mark of the Postgres repository:
// active check, duplicate check, and count increment under one lock.
type memAttendanceStore struct {
	mu       sync.Mutex
	sessions *memSessionStore
	records  map[uuid.UUID]map[uuid.UUID]model.AttendanceRecord
}

func newMemAttendanceStore(sessions *memSessionStore) *memAttendanceStore {
	return &memAttendanceStore{
		sessions: sessions,
		records:  make(map[uuid.UUID]map[uuid.UUID]model.AttendanceRecord),
	}
}

func (m *memAttendanceStore) Mark(_ context.Context, rec *model.AttendanceRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.mu.Lock()
	defer m.sessions.mu.Unlock()

	s, ok := m.sessions.sessions[rec.SessionID]
	if !ok {
		return 0, repository.ErrSessionNotFound
	}
	if !s.IsActive {
		return 0, repository.ErrSessionClosed
	}

	bySession := m.records[rec.SessionID]
	if bySession == nil {
		bySession = make(map[uuid.UUID]model.AttendanceRecord)
		m.records[rec.SessionID] = bySession
	}
	if _, dup := bySession[rec.StudentID]; dup {
		return 0, repository.ErrDuplicateAttendance
	}

	rec.ID = uuid.New()
	rec.MarkedAt = time.Now().UTC()
	bySession[rec.StudentID] = *rec
	s.PresentCount++
	return s.PresentCount, nil
}

func (m *memAttendanceStore) Exists(_ context.Context, sessionID, studentID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[sessionID][studentID]
	return ok, nil
}

func (m *memAttendanceStore) ListByStudent(_ context.Context, studentID uuid.UUID, limit int) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, bySession := range m.records {
		if rec, ok := bySession[studentID]; ok {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAttendanceStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range m.records[sessionID] {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memAttendanceStore) count(sessionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[sessionID])
}

// stubVerifier returns a fixed outcome.
type stubVerifier struct {
	result *verifier.Result
	err    error
}

func (v *stubVerifier) Verify(context.Context, string, string) (*verifier.Result, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

func passVerifier() *stubVerifier {
	return &stubVerifier{result: &verifier.Result{Confidence: 0.97, Passed: true}}
}

func failVerifier() *stubVerifier {
	return &stubVerifier{result: &verifier.Result{Confidence: 0.31, Passed: false}}
}

func downVerifier() *stubVerifier {
	return &stubVerifier{err: errors.New("connection refused")}
}

// captureBus records every published envelope.
type captureBus struct {
	mu        sync.Mutex
	published []notify.Envelope
}

func (b *captureBus) Publish(_ context.Context, target notify.Target, evt notify.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, notify.Envelope{Target: target, Event: evt})
	return nil
}

func (b *captureBus) events() []notify.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]notify.Envelope, len(b.published))
	copy(out, b.published)
	return out
}
