// Package lms talks to the LMS backend services the support console reads from.
package lms

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

var (
	// ErrNotFound is returned when the backend has no record for the requested key.
	ErrNotFound = errors.New("lms: not found")
	// ErrInvalidResponse is returned when a response body does not match the expected shape.
	ErrInvalidResponse = errors.New("lms: invalid response")
)

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lms: %s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// --- Functional Interfaces (Interface Segregation) ---

// UserResolver looks up accounts.
type UserResolver interface {
	// ResolveUser answers a console search keyed on the raw identifier.
	ResolveUser(ctx context.Context, identifier string) (*schema.UserLookup, error)
	// GetUser returns the account for a username or numeric id.
	GetUser(ctx context.Context, identifier string) (*schema.UserSummary, error)
}

// RecordSource fetches the secondary record sets of a resolved account.
type RecordSource interface {
	Enrollments(ctx context.Context, user schema.UserSummary) ([]schema.Enrollment, error)
	SSORecords(ctx context.Context, user schema.UserSummary) ([]schema.SSORecord, error)
	Entitlements(ctx context.Context, user schema.UserSummary) ([]schema.Entitlement, error)
	Licenses(ctx context.Context, user schema.UserSummary) ([]schema.License, error)
	OnboardingStatus(ctx context.Context, user schema.UserSummary) (*schema.OnboardingStatus, error)
	VerifiedNameHistory(ctx context.Context, user schema.UserSummary) ([]schema.VerifiedName, error)
	EnterpriseCustomerUsers(ctx context.Context, user schema.UserSummary) ([]schema.EnterpriseCustomerUser, error)
}

// ProgramInspectorSource backs the program-enrollment inspector.
type ProgramInspectorSource interface {
	ProgramEnrollmentsInspector(ctx context.Context, q schema.InspectorQuery) (*schema.InspectorResponse, error)
	// SAMLProviders returns the organization keys that have a SAML provider.
	SAMLProviders(ctx context.Context) ([]string, error)
}

// RetirementCanceller reverses a pending account retirement.
type RetirementCanceller interface {
	CancelRetirement(ctx context.Context, retirementID int64) error
}

// --- Composite Interfaces ---

// Backend is everything the console needs from the LMS.
// Both the REST client and the fixture backend implement it.
type Backend interface {
	UserResolver
	RecordSource
	ProgramInspectorSource
	RetirementCanceller
}
