// Package usecase implements the business logic for the members feature.
package usecase

import "errors"

// ErrMemberNotFound is returned when no member with the given ID is owned by the caller.
// A foreign member and a missing one are reported the same way.
var ErrMemberNotFound = errors.New("member not found")
