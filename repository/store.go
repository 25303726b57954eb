// Package repository holds the transactional storage used by the services.
package repository

import (
	"context"
	"errors"
	"time"

	"faculty-ranker-api/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrLockTimeout is returned when a named lock cannot be acquired in time.
	ErrLockTimeout = errors.New("named lock timeout")
)

// LogFilter selects faculty log entries. Zero fields do not filter.
type LogFilter struct {
	UserID      string
	FacultyName string
	Action      string
	Since       time.Time
}

// FacultyQuery selects faculty rows for listing.
type FacultyQuery struct {
	Verified *bool
	// Search is a case-insensitive substring over name and department.
	Search string
	// NameOnly restricts Search to the name column.
	NameOnly bool
	Offset   int
	Limit    int
}

// Store runs fn inside one transaction. Named locks are held from before the
// transaction begins until after it ends, and are acquired in the given order.
type Store interface {
	Tx(ctx context.Context, fn func(tx Tx) error, locks ...string) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	FacultyByID(id string, forUpdate bool) (*models.Faculty, error)
	FacultyByName(name string) (*models.Faculty, error)
	ListFaculties(q FacultyQuery) ([]models.Faculty, int64, error)
	CreateFaculty(f *models.Faculty) error
	UpdateRatings(f *models.Faculty) error
	SetVerification(id string, verified bool) error
	DeleteFaculty(id string) error
	CountFaculties(verified bool) (int64, error)
	// CountImageRefs counts faculty rows that use the stored image.
	CountImageRefs(publicID string) (int64, error)

	CountLogs(filter LogFilter) (int64, error)
	LatestAddLog(facultyName string) (*models.FacultyLog, error)
	AppendLog(entry *models.FacultyLog) error
	LogsByUser(userID string) ([]models.FacultyLog, error)

	UserByID(id string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)
	UserByEmailOrPhone(email, phno string) (*models.User, error)
	CreateUser(u *models.User) error
	UpdateUser(u *models.User) error
	ListUsers() ([]models.User, error)

	PendingSignup(email string) (*models.PendingSignup, error)
	SavePendingSignup(p *models.PendingSignup) error
	DeletePendingSignup(email string) error
	PurgeExpiredSignups(now time.Time) (int64, error)
}
