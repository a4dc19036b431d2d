// Package identifier classifies support-console search strings.
package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

var (
	// ErrEmpty is returned for blank input. Callers treat it as "no search".
	ErrEmpty = errors.New("identifier: empty")
	// ErrInvalid is returned for input that is neither an email, a numeric id, nor a username.
	ErrInvalid = errors.New("identifier: invalid")
)

// InvalidMessage is the fixed copy shown when classification fails.
const InvalidMessage = "username, email or lms user id is invalid"

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	numericPattern  = regexp.MustCompile(`^\d+$`)
	usernamePattern = regexp.MustCompile(`^[\w.+-]+$`)
)

// Classify decides whether raw is an email, a numeric LMS user id or a username.
func Classify(raw string) (schema.SearchIdentifier, error) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return schema.SearchIdentifier{}, ErrEmpty
	case emailPattern.MatchString(value):
		return schema.SearchIdentifier{Kind: schema.KindEmail, Value: value}, nil
	case numericPattern.MatchString(value):
		return schema.SearchIdentifier{Kind: schema.KindNumericID, Value: value}, nil
	case usernamePattern.MatchString(value):
		return schema.SearchIdentifier{Kind: schema.KindUsername, Value: value}, nil
	}
	return schema.SearchIdentifier{}, fmt.Errorf("%w: %q", ErrInvalid, value)
}

// FromQuery returns the first recognised search parameter in params, checked
// in the order username, email, lms_user_id. ok is false when none is set.
func FromQuery(get func(string) string) (value string, ok bool) {
	for _, key := range []schema.IdentifierKind{schema.KindUsername, schema.KindEmail, schema.KindNumericID} {
		if v := strings.TrimSpace(get(string(key))); v != "" {
			return v, true
		}
	}
	return "", false
}
