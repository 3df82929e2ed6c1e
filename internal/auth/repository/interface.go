package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a portal account. Staff accounts (MASTER, ADMIN) are created
// by migration or manually; CLIENT accounts are provisioned when a
// capture form is dispatched.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	FullName           string
	Role               string
	IsActive           bool
	MustChangePassword bool
	LastLoginAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Store is the persistence port for user accounts. Services depend on
// this interface so tests can swap in fakes.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName, role string, mustChange bool) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, mustChange bool) error
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}
