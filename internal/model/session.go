package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a faculty-opened, time-bounded attendance window for one course
// meeting. EndTime is non-nil exactly when IsActive is false. PresentCount is
// maintained transactionally by the attendance recorder and always equals the
// number of committed attendance records for the session.
type Session struct {
	ID           uuid.UUID  `json:"id"`
	FacultyID    uuid.UUID  `json:"faculty_id"`
	FacultyName  string     `json:"faculty_name"`
	CourseName   string     `json:"course_name"`
	CourseCode   string     `json:"course_code"`
	Department   string     `json:"department"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	IsActive     bool       `json:"is_active"`
	PresentCount int        `json:"present_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateSessionRequest is the payload for opening a new session.
type CreateSessionRequest struct {
	CourseName string `json:"course_name" binding:"required,min=1,max=200"`
	CourseCode string `json:"course_code" binding:"required,min=1,max=50"`
	Department string `json:"department" binding:"required,min=2,max=100"`
}
