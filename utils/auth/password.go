package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("password does not match")
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12
	// MinPasswordLength is the minimum password length
	MinPasswordLength = 8
)

// bcrypt hashes start with one of these version markers
var hashPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashPasswordWithCost hashes with an explicit bcrypt cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// IsHashed reports whether value already looks like a bcrypt hash
func IsHashed(value string) bool {
	for _, prefix := range hashPrefixes {
		if strings.HasPrefix(value, prefix) {
			_, err := bcrypt.Cost([]byte(value))
			return err == nil
		}
	}
	return false
}

// EnsureHashed hashes value unless it already carries the bcrypt marker
func EnsureHashed(value string, cost int) (string, error) {
	if IsHashed(value) {
		return value, nil
	}
	return HashPasswordWithCost(value, cost)
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
