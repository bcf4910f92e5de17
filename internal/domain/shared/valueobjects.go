// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// TenantID identifies the isolation boundary. All progression state, badges
// and rankings are scoped to one tenant; there is no cross-tenant visibility.
type TenantID string

// IsValid checks that the tenant ID is non-empty and has no whitespace.
func (t TenantID) IsValid() bool {
	s := string(t)
	return len(s) > 0 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

// NewTenantID creates a TenantID with validation.
func NewTenantID(id string) (TenantID, error) {
	t := TenantID(id)
	if !t.IsValid() {
		return "", ErrInvalidTenantID
	}
	return t, nil
}

// UserID identifies a user inside a tenant.
type UserID string

// IsValid checks that the user ID is non-empty and has no whitespace.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) > 0 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a UserID with validation.
func NewUserID(id string) (UserID, error) {
	u := UserID(id)
	if !u.IsValid() {
		return "", ErrInvalidUserID
	}
	return u, nil
}

// UserRef is the (tenant, user) pair that owns a piece of progression state.
type UserRef struct {
	TenantID TenantID
	UserID   UserID
}

// IsValid checks both components.
func (r UserRef) IsValid() bool {
	return r.TenantID.IsValid() && r.UserID.IsValid()
}

// String returns "tenant/user" for logging and cache keys.
func (r UserRef) String() string {
	return fmt.Sprintf("%s/%s", r.TenantID, r.UserID)
}

// NewUserRef creates a UserRef with validation.
func NewUserRef(tenantID, userID string) (UserRef, error) {
	t, err := NewTenantID(tenantID)
	if err != nil {
		return UserRef{}, err
	}
	u, err := NewUserID(userID)
	if err != nil {
		return UserRef{}, err
	}
	return UserRef{TenantID: t, UserID: u}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object
// ═══════════════════════════════════════════════════════════════════════════

// XP represents accumulated experience points.
// XP is monotonically non-decreasing over a user's lifetime except for an
// explicit administrative reset.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}
