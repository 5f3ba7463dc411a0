package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the user roles known to the system.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// User represents an authenticated principal. Immutable after creation as far
// as the attendance core is concerned.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Department   string    `json:"department"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the minimal identity attached to every authenticated request
// and to every live connection.
type Principal struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
}

// Principal derives the request principal from a full user record.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Name: u.Name, Role: u.Role, Department: u.Department}
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Role       Role   `json:"role" binding:"required,oneof=student faculty admin"`
	Department string `json:"department" binding:"required,min=2,max=100"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TokenResponse is returned after successful register or login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
