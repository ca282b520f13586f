// internal/identity/identity.go

// Package identity resolves the current caller and centralizes the
// authorization checks the portal applies before remote-store access.
package identity

import (
	"strings"

	"student-portal/internal/common/errors"
)

// Caller is the authenticated (or anonymous) identity of a request.
type Caller struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Anonymous     bool   `json:"anonymous"`
}

// Anonymous returns the identity used when no credentials are presented.
func AnonymousCaller() *Caller {
	return &Caller{Anonymous: true}
}

// NormalizedEmail returns the caller's email lowercased and trimmed.
func (c *Caller) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}

// Authenticated reports whether the caller carries a real identity.
func (c *Caller) Authenticated() bool {
	return c != nil && !c.Anonymous && c.ID != ""
}

// RequireVerified is the single authorization gate for operations that
// need a non-anonymous caller with a verified email (document uploads,
// submission, history). Every remote-store access path goes through it
// rather than repeating inline owner checks.
func RequireVerified(c *Caller) error {
	if !c.Authenticated() || c.Email == "" {
		return errors.NewAuthRequiredError()
	}
	if !c.EmailVerified {
		return errors.NewEmailNotVerifiedError(c.Email)
	}
	return nil
}
