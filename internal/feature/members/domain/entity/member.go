// Package entity defines the domain entities for the members feature.
package entity

import (
	"strings"
	"time"
)

// DefaultPosition is assigned when a member is created without a position.
const DefaultPosition = "Member"

// Member is a membership record owned by exactly one user.
type Member struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Address    string
	ChurchName string
	Department string
	Position   string
	DateJoined time.Time

	// CreatedBy is the owning user's ID. It never changes after creation.
	CreatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberInput carries the fields supplied on creation.
type MemberInput struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	ChurchName string
	Department string
	Position   string
	DateJoined *time.Time
}

// MemberPatch carries a partial update. Nil fields are left untouched.
type MemberPatch struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	ChurchName *string
	Department *string
	Position   *string
	DateJoined *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p MemberPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil &&
		p.ChurchName == nil && p.Department == nil && p.Position == nil && p.DateJoined == nil
}

// Apply copies the non-nil fields onto m.
func (p MemberPatch) Apply(m *Member) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&m.Name, p.Name)
	set(&m.Email, p.Email)
	set(&m.Phone, p.Phone)
	set(&m.Address, p.Address)
	set(&m.ChurchName, p.ChurchName)
	set(&m.Department, p.Department)
	set(&m.Position, p.Position)
	if p.DateJoined != nil {
		m.DateJoined = *p.DateJoined
	}
}

// Normalize trims string fields and lower-cases the email.
func (p MemberPatch) Normalize() MemberPatch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	out := MemberPatch{
		Name:       trim(p.Name),
		Email:      trim(p.Email),
		Phone:      trim(p.Phone),
		Address:    trim(p.Address),
		ChurchName: trim(p.ChurchName),
		Department: trim(p.Department),
		Position:   trim(p.Position),
		DateJoined: p.DateJoined,
	}
	if out.Email != nil {
		v := strings.ToLower(*out.Email)
		out.Email = &v
	}
	return out
}

// ListQuery is a normalized list request.
type ListQuery struct {
	Page       int
	Limit      int
	ChurchName string
	Search     string
}

// Offset returns the number of rows skipped before the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int
	Limit int
	Total int64
	Pages int
}

// Page is one page of members plus its pagination metadata.
type Page struct {
	Members    []Member
	Pagination Pagination
}
