package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Error is a single field validation failure.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Rule is a deferred validation check for one field.
type Rule struct {
	Field   string
	Message string
	Check   func() bool
}

// Apply evaluates rules in order and returns the first failure, so callers
// surface one actionable message at a time the way the original forms did.
func Apply(rules ...Rule) error {
	for _, r := range rules {
		if !r.Check() {
			return Error{Field: r.Field, Message: r.Message}
		}
	}
	return nil
}

// Matches the pragmatic browser-grade email shape: one @, no spaces, a dot in
// the domain. Deliverability is the backend's problem.
var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RequiredString fails on empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: field + " is required",
		Check:   func() bool { return strings.TrimSpace(value) != "" },
	}
}

// ValidEmail checks the basic email shape.
func ValidEmail(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: "please enter a valid email address",
		Check:   func() bool { return emailRx.MatchString(value) },
	}
}

// ValidUUIDString checks that the value parses as a UUID.
func ValidUUIDString(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: field + " must be a valid UUID",
		Check: func() bool {
			_, err := uuid.Parse(value)
			return err == nil
		},
	}
}

// MinLenString checks a minimum byte length.
func MinLenString(field, value string, min int) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%s must be at least %d characters", field, min),
		Check:   func() bool { return len(value) >= min },
	}
}

// MaxLenString checks a maximum byte length.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%s must be at most %d characters", field, max),
		Check:   func() bool { return len(value) <= max },
	}
}

// PasswordPolicy decides whether a password is acceptable. Pluggable so that
// deployments can tighten the default length-only check without touching the
// sign-up flow.
type PasswordPolicy func(password string) error

// MinLengthPolicy returns the default policy: length only, no composition
// rules.
func MinLengthPolicy(min int) PasswordPolicy {
	return func(password string) error {
		if len(password) < min {
			return Error{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", min)}
		}
		return nil
	}
}

// StrongPassword adapts a PasswordPolicy into a Rule. The policy's own
// message is surfaced when it provides one.
func StrongPassword(field, value string, policy PasswordPolicy) Rule {
	msg := "password does not meet requirements"
	err := policy(value)
	var ve Error
	if errors.As(err, &ve) {
		msg = ve.Message
	}
	return Rule{
		Field:   field,
		Message: msg,
		Check:   func() bool { return err == nil },
	}
}
