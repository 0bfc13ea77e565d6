package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserDirectory is the read/write surface the auth components need from the
// user store. The bun-backed Users repository implements it.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

// RoleResolver resolves a role key to its record and flattened permission set.
type RoleResolver interface {
	GetByKey(ctx context.Context, key string) (*Role, error)
	ResolvePermissions(ctx context.Context, roleID uuid.UUID) ([]*Permission, error)
}

// StatsProvider supplies the role-conditional counters attached to the user
// view at login. The course/enrollment domain itself lives outside this core;
// we only read its aggregates.
type StatsProvider interface {
	CountCoursesByMentor(ctx context.Context, mentorID uuid.UUID) (int, error)
	SumCourseStudents(ctx context.Context, mentorID uuid.UUID) (int, error)
	CountEnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) (int, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
