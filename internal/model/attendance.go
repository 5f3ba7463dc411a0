package model

import (
	"time"

	"github.com/google/uuid"
)

// VerificationMethodFace is the default verification method tag.
const VerificationMethodFace = "face"

// AttendanceRecord is a single committed proof that one student was present at
// one session. At most one record exists per (session_id, student_id) pair;
// records are never mutated or deleted.
type AttendanceRecord struct {
	ID                 uuid.UUID `json:"id"`
	SessionID          uuid.UUID `json:"session_id"`
	StudentID          uuid.UUID `json:"student_id"`
	StudentName        string    `json:"student_name"`
	CourseCode         string    `json:"course_code"`
	MarkedAt           time.Time `json:"marked_at"`
	VerificationMethod string    `json:"verification_method"`
	ConfidenceScore    float64   `json:"confidence_score"`
}

// MarkAttendanceRequest is the payload for marking attendance against an open
// session. ImageURL is handed to the face verification service untouched.
type MarkAttendanceRequest struct {
	SessionID          uuid.UUID `json:"session_id" binding:"required"`
	VerificationMethod string    `json:"verification_method" binding:"omitempty,oneof=face"`
	ImageURL           string    `json:"image_url" binding:"omitempty,url"`
}
