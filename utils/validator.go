// utils/validator.go - Input validation
package utils

import (
	"math"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePhone accepts 7 to 15 digits with an optional leading +.
func ValidatePhone(phno string) bool {
	return phoneRegex.MatchString(phno)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > 72 {
		// bcrypt ignores anything past 72 bytes
		return false, "Password must be at most 72 characters"
	}

	return true, ""
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// ValidRating reports whether v is a usable rating in [0,5].
func ValidRating(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 5
}

func ratingField(fl validator.FieldLevel) bool {
	f := fl.Field()
	if !f.CanFloat() {
		return false
	}
	return ValidRating(f.Float())
}

func phoneField(fl validator.FieldLevel) bool {
	return ValidatePhone(fl.Field().String())
}

// RegisterValidators adds the `rating` and `phone` tags to gin's binding validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("rating", ratingField); err != nil {
		return err
	}
	return v.RegisterValidation("phone", phoneField)
}
