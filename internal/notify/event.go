// Package notify defines the live-update event model shared by the write path,
// the Redis event bus, and the in-process connection hub.
package notify

import (
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/google/uuid"
)

// EventType tags a live-update payload.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventAttendanceMarked EventType = "attendance_marked"
)

// Event is a flat tagged payload pushed to live connections. Only the fields
// relevant to the event type are populated.
type Event struct {
	Type         EventType `json:"type"`
	SessionID    uuid.UUID `json:"session_id"`
	CourseName   string    `json:"course_name,omitempty"`
	CourseCode   string    `json:"course_code,omitempty"`
	Department   string    `json:"department,omitempty"`
	StudentName  string    `json:"student_name,omitempty"`
	PresentCount int       `json:"present_count,omitempty"`
}

// SessionCreated builds the event announcing a newly opened session.
func SessionCreated(s *model.Session) Event {
	return Event{
		Type:       EventSessionCreated,
		SessionID:  s.ID,
		CourseName: s.CourseName,
		CourseCode: s.CourseCode,
		Department: s.Department,
	}
}

// AttendanceMarked builds the event announcing a committed attendance record.
func AttendanceMarked(sessionID uuid.UUID, studentName string, presentCount int) Event {
	return Event{
		Type:         EventAttendanceMarked,
		SessionID:    sessionID,
		StudentName:  studentName,
		PresentCount: presentCount,
	}
}

// Target selects the set of connections an event is delivered to. Exactly one
// selector is set: UserID for a single user (all of their devices), or
// Department for every connected student of that department.
type Target struct {
	UserID     uuid.UUID `json:"user_id,omitempty"`
	Department string    `json:"department,omitempty"`
}

// ToUser targets every live connection of a single user.
func ToUser(id uuid.UUID) Target {
	return Target{UserID: id}
}

// ToDepartmentStudents targets every connected student in a department.
func ToDepartmentStudents(department string) Target {
	return Target{Department: department}
}

// Matches reports whether a connection with the given principal should
// receive events for this target.
func (t Target) Matches(p model.Principal) bool {
	if t.UserID != uuid.Nil {
		return p.ID == t.UserID
	}
	if t.Department != "" {
		return p.Role == model.RoleStudent && p.Department == t.Department
	}
	return false
}
