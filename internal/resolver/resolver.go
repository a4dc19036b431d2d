// Package resolver turns a console search string into a canonical account or a
// structured failure. Every outcome is a Result value; nothing is returned as an error.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/identifier"
	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

// FailureKind classifies a failed resolution.
type FailureKind string

const (
	InvalidIdentifier FailureKind = "invalid_identifier"
	NotFound          FailureKind = "not_found"
	Retired           FailureKind = "retired"
	TransportFailure  FailureKind = "transport_failure"
)

const (
	// TransportMessage is shown when the backend could not be reached.
	TransportMessage = "There was an error retrieving user data. Please try again."
	retiredMessage   = "This account has been retired."
	notFoundCode     = "user_not_found"
)

// Result is the outcome of a resolution. Exactly one of User and Failure is set.
type Result struct {
	Identifier       schema.SearchIdentifier  `json:"identifier"`
	User             *schema.UserSummary      `json:"user,omitempty"`
	Warnings         []schema.ResolutionError `json:"warnings,omitempty"`
	Failure          FailureKind              `json:"failure,omitempty"`
	Errors           []schema.ResolutionError `json:"errors,omitempty"`
	RetirementStatus *schema.RetirementStatus `json:"retirementStatus,omitempty"`
}

// Resolved reports whether the lookup produced an account.
func (r Result) Resolved() bool {
	return r.Failure == "" && r.User != nil
}

// CanCancelRetirement reports whether a cancel-retirement action applies.
func (r Result) CanCancelRetirement() bool {
	return r.Failure == Retired && r.RetirementStatus != nil && r.RetirementStatus.CanCancelRetirement
}

// Resolver resolves identifiers against the LMS.
type Resolver struct {
	users  lms.UserResolver
	logger *zap.Logger
	tracer trace.Tracer
}

// New builds a Resolver. A nil logger or tracer disables logging or tracing.
func New(users lms.UserResolver, logger *zap.Logger, tracer trace.Tracer) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Resolver{users: users, logger: logger.Named("resolver"), tracer: tracer}
}

// Lookup classifies raw and resolves it. ok is false for blank input, in which
// case the backend is not contacted and the caller should reset its search.
// Invalid input fails locally without a backend call.
func (r *Resolver) Lookup(ctx context.Context, raw string) (res Result, ok bool) {
	id, err := identifier.Classify(raw)
	switch {
	case errors.Is(err, identifier.ErrEmpty):
		return Result{}, false
	case err != nil:
		r.logger.Debug("invalid identifier", zap.String("raw", raw))
		return Result{
			Failure: InvalidIdentifier,
			Errors: []schema.ResolutionError{{
				Text: identifier.InvalidMessage,
				Type: schema.ErrorTypeError,
				Code: string(InvalidIdentifier),
			}},
		}, true
	}
	return r.Resolve(ctx, id), true
}

// Resolve issues one backend lookup keyed on the identifier's raw value.
func (r *Resolver) Resolve(ctx context.Context, id schema.SearchIdentifier) (res Result) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve",
		trace.WithAttributes(attribute.String("identifier.kind", string(id.Kind))))
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("lookup panicked", zap.Any("panic", p), zap.String("kind", string(id.Kind)))
			res = transportFailure(id)
		}
		if res.Failure != "" {
			span.SetStatus(codes.Error, string(res.Failure))
		}
		span.End()
	}()

	lookup, err := r.users.ResolveUser(ctx, id.Value)
	switch {
	case errors.Is(err, lms.ErrNotFound):
		return notFound(id, nil)
	case err != nil:
		r.logger.Warn("lookup failed", zap.String("kind", string(id.Kind)), zap.Error(err))
		span.RecordError(err)
		return transportFailure(id)
	case lookup == nil:
		return notFound(id, nil)
	}
	return fromLookup(id, lookup)
}

func fromLookup(id schema.SearchIdentifier, l *schema.UserLookup) Result {
	var blocking, warnings []schema.ResolutionError
	for _, e := range l.Errors {
		if e.Blocking() {
			blocking = append(blocking, e)
		} else {
			warnings = append(warnings, e)
		}
	}

	if l.RetirementStatus != nil {
		if len(blocking) == 0 {
			blocking = []schema.ResolutionError{{Text: retiredMessage, Type: schema.ErrorTypeError, Code: "user_retired"}}
		}
		status := *l.RetirementStatus
		return Result{Identifier: id, Failure: Retired, Errors: blocking, RetirementStatus: &status}
	}
	if len(blocking) > 0 || l.User == nil {
		return notFound(id, blocking)
	}

	user := *l.User
	return Result{Identifier: id, User: &user, Warnings: warnings}
}

func notFound(id schema.SearchIdentifier, errs []schema.ResolutionError) Result {
	if len(errs) == 0 {
		errs = []schema.ResolutionError{{
			Text: fmt.Sprintf("We couldn't find a user with the %s \"%s\".", id.Kind.Label(), id.Value),
			Type: schema.ErrorTypeError,
			Code: notFoundCode,
		}}
	}
	return Result{Identifier: id, Failure: NotFound, Errors: errs}
}

func transportFailure(id schema.SearchIdentifier) Result {
	return Result{
		Identifier: id,
		Failure:    TransportFailure,
		Errors: []schema.ResolutionError{{
			Text: TransportMessage,
			Type: schema.ErrorTypeError,
			Code: string(TransportFailure),
		}},
	}
}
