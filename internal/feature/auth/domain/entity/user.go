// Package entity defines the domain entities for the auth feature.
package entity

import (
	"strings"
	"time"
)

const (
	// DefaultProfilePicURL is used when a user signs up without an image.
	DefaultProfilePicURL = "https://res.cloudinary.com/demo/image/upload/v1/default-profile"
	// DefaultProfilePicPublicID is the media id paired with DefaultProfilePicURL.
	DefaultProfilePicPublicID = "default-profile"
)

// ProfilePic points at a stored profile image.
type ProfilePic struct {
	URL      string
	PublicID string
}

// DefaultProfilePic returns the placeholder image.
func DefaultProfilePic() ProfilePic {
	return ProfilePic{URL: DefaultProfilePicURL, PublicID: DefaultProfilePicPublicID}
}

// User represents a registered user in the system.
type User struct {
	// ID is an opaque unique identifier.
	ID string

	Name string

	// Email is stored trimmed and lower-cased; it is unique across users.
	Email string

	// Password is the bcrypt hash. It is cleared by Sanitized.
	Password string

	ProfilePic ProfilePic

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitized returns a copy of u without the password hash.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
