package services

import (
	"errors"
	"fmt"
	"time"

	"faculty-ranker-api/repository"
)

var (
	ErrNotFound           = errors.New("faculty not found")
	ErrDuplicateName      = errors.New("faculty with this name already exists")
	ErrQuotaExceeded      = errors.New("daily faculty submission limit reached")
	ErrAlreadyRated       = errors.New("you have already rated this faculty")
	ErrInvalidRating      = errors.New("ratings must be numbers between 0 and 5")
	ErrInvalidName        = errors.New("faculty name is required")
	ErrStorage            = errors.New("storage failure")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingFields      = errors.New("all fields are required")
	ErrEmailNotAllowed    = errors.New("email domain is not allowed")
	ErrAlreadyRegistered  = errors.New("user already exists")
	ErrNoPendingSignup    = errors.New("no pending signup or OTP expired")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBanned             = errors.New("user is banned")
	ErrInvalidState       = errors.New("invalid oauth state")
	ErrFileTooLarge       = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedImage   = errors.New("file is not a supported image")
	ErrInvalidImageTicket = errors.New("image upload is invalid or expired")
)

// StorageError wraps a failure of the underlying store. errors.Is(err,
// ErrStorage) holds for every StorageError.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// OTPCooldownError is returned when an OTP was sent too recently.
type OTPCooldownError struct {
	Remaining time.Duration
}

func (e *OTPCooldownError) Error() string {
	mins := int(e.Remaining.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("OTP already sent. Try again after %d minute(s)", mins)
}

// storageErr passes domain errors through and wraps everything else.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrNotFound, ErrDuplicateName, ErrQuotaExceeded, ErrAlreadyRated, ErrInvalidRating,
		ErrInvalidName, ErrUserNotFound, ErrMissingFields, ErrEmailNotAllowed,
		ErrAlreadyRegistered, ErrNoPendingSignup, ErrInvalidOTP, ErrInvalidCredentials,
		ErrBanned, ErrInvalidImageTicket, ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	var cooldown *OTPCooldownError
	if errors.As(err, &cooldown) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// notFound maps repository.ErrNotFound to the given domain error.
func notFound(err error, domain error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain
	}
	return err
}
