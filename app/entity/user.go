package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID           uint64
	Email        string
	Username     string
	Mobile       sql.NullString
	PasswordHash string
	IsAdmin      bool
	IsVerified   bool
	ProfileURL   sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerificationToken is a one-time credential proving control of a registered
// email address. It is consumed (deleted) on successful verification.
type VerificationToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type RefreshToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
