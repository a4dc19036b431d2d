// Package schema defines the data structures shared by the support daemon, its SDK and the CLI.
package schema

import "strconv"

// IdentifierKind tells how a search string was classified.
type IdentifierKind string

const (
	KindUsername  IdentifierKind = "username"
	KindEmail     IdentifierKind = "email"
	KindNumericID IdentifierKind = "lms_user_id"
)

// Label is the human-readable name used in alert copy.
func (k IdentifierKind) Label() string {
	switch k {
	case KindEmail:
		return "email"
	case KindNumericID:
		return "LMS user ID"
	default:
		return "username"
	}
}

// SearchIdentifier is a classified search string. It is immutable once created.
type SearchIdentifier struct {
	Kind  IdentifierKind `json:"kind"`
	Value string         `json:"value"`
}

// UserSummary is the canonical LMS account record.
type UserSummary struct {
	ID                  int64  `json:"id" yaml:"id"`
	Username            string `json:"username" yaml:"username"`
	Email               string `json:"email" yaml:"email"`
	Name                string `json:"name,omitempty" yaml:"name,omitempty"`
	IsActive            bool   `json:"is_active" yaml:"is_active"`
	DateJoined          string `json:"date_joined,omitempty" yaml:"date_joined,omitempty"`
	Country             string `json:"country,omitempty" yaml:"country,omitempty"`
	RetirementRequested bool   `json:"retirement_requested,omitempty" yaml:"retirement_requested,omitempty"`
}

// Displayable reports whether the record can back the account-detail sections.
// A record without a username is treated as no user at all.
func (u *UserSummary) Displayable() bool {
	return u != nil && u.Username != ""
}

// IDString returns the numeric id in its query-parameter form.
func (u *UserSummary) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// RetirementStatus accompanies a failed lookup of a retired account.
type RetirementStatus struct {
	CanCancelRetirement bool  `json:"canCancelRetirement" yaml:"canCancelRetirement"`
	RetirementID        int64 `json:"retirementId" yaml:"retirementId"`
}

// ErrorType is the severity of a ResolutionError.
type ErrorType string

const (
	ErrorTypeError   ErrorType = "error"
	ErrorTypeWarning ErrorType = "warning"
)

// ResolutionError is a message attached to a lookup.
type ResolutionError struct {
	Text string    `json:"text" yaml:"text"`
	Type ErrorType `json:"type,omitempty" yaml:"type,omitempty"`
	Code string    `json:"code,omitempty" yaml:"code,omitempty"`
}

// Blocking reports whether the message prevents the lookup from resolving.
// An untyped message counts as an error.
func (e ResolutionError) Blocking() bool {
	return e.Type != ErrorTypeWarning
}

// UserLookup is the backend's answer to a user resolution request.
type UserLookup struct {
	User             *UserSummary      `json:"user,omitempty" yaml:"user,omitempty"`
	Errors           []ResolutionError `json:"errors" yaml:"errors,omitempty"`
	RetirementStatus *RetirementStatus `json:"retirementStatus,omitempty" yaml:"retirementStatus,omitempty"`
}
