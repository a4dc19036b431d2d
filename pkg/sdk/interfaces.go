package sdk

import (
	"context"
	"errors"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

var (
	// ErrNoView is returned when the session has not committed a view yet.
	ErrNoView = errors.New("no view in this session")
	// ErrNoAccountQuery is returned when a page-load query names no account.
	ErrNoAccountQuery = errors.New("query names no account")
	// ErrBadRequest is returned when the daemon rejects the input.
	ErrBadRequest = errors.New("bad request")
	// ErrUnavailable is returned when the daemon could not be reached or kept failing.
	ErrUnavailable = errors.New("daemon unavailable")
)

// --- Functional Interfaces (Interface Segregation) ---

// LearnerSearcher runs learner-information searches.
type LearnerSearcher interface {
	Lookup(ctx context.Context, query string) (*schema.UserView, error)
	LoadLearner(ctx context.Context, param, value string) (*schema.UserView, error)
	LatestLearner(ctx context.Context) (*schema.UserView, error)
}

// RetirementCanceller reverses pending account retirements.
type RetirementCanceller interface {
	CancelRetirement(ctx context.Context, retirementID int64) (*schema.CancelResult, error)
}

// ProgramInspector drives the program-enrollment inspector.
type ProgramInspector interface {
	Inspect(ctx context.Context, q schema.InspectorQuery) (*schema.ProgramsView, error)
	Programs(ctx context.Context, edxUserID int64) (*schema.ProgramsView, error)
	SAMLProviders(ctx context.Context) ([]string, error)
}

// --- Composite Interfaces ---

// SupportConsole combines every operation of the daemon. A single value keeps
// one session across calls, so the last submitted search wins per page.
type SupportConsole interface {
	LearnerSearcher
	RetirementCanceller
	ProgramInspector

	Ping(ctx context.Context) error
}
