// Package usecase implements the business logic for the auth feature.
package usecase

import (
	"errors"
	"fmt"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidPassword is returned when a password is outside the accepted length.
	ErrInvalidPassword = fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)

	// ErrMediaUploadFailed is returned when the profile image could not be stored.
	ErrMediaUploadFailed = errors.New("profile picture upload failed")
)
