package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is an account known to the hosted board service.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// NewUser validates and normalizes a new account.
func NewUser(id, email string, passwordHash []byte, now time.Time) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidID
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(passwordHash) == 0 {
		return User{}, ErrInvalidPassword
	}
	return User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now.UTC()}, nil
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
