// Package aggregate fetches the secondary record sets of a resolved account.
//
// Each record set is fetched independently and settles into its own slot. A
// failed fetch never cancels or invalidates the others, and the aggregate is
// returned only after every fetch has settled.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

// Options tunes the fan-out.
type Options struct {
	// FetchTimeout bounds each record-set fetch; zero means no per-fetch limit.
	FetchTimeout time.Duration
	// MaxConcurrency caps simultaneous fetches; zero means one goroutine per record set.
	MaxConcurrency int
}

// Orchestrator runs the record-set fan-out.
type Orchestrator struct {
	source lms.RecordSource
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

// New builds an Orchestrator. A nil logger or tracer disables logging or tracing.
func New(source lms.RecordSource, opts Options, logger *zap.Logger, tracer trace.Tracer) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Orchestrator{source: source, opts: opts, logger: logger.Named("aggregate"), tracer: tracer}
}

// Aggregate fetches every record set for user.
func (o *Orchestrator) Aggregate(ctx context.Context, user schema.UserSummary) *schema.AggregatedRecordSet {
	return o.AggregateKinds(ctx, user, schema.AllRecordSets...)
}

// AggregateKinds fetches only the listed record sets. Slots of other kinds stay nil.
func (o *Orchestrator) AggregateKinds(ctx context.Context, user schema.UserSummary, kinds ...schema.RecordSetKind) *schema.AggregatedRecordSet {
	ctx, span := o.tracer.Start(ctx, "aggregate.Aggregate",
		trace.WithAttributes(attribute.Int64("user.id", user.ID), attribute.Int("record_sets", len(kinds))))
	defer span.End()

	out := &schema.AggregatedRecordSet{}
	var g errgroup.Group
	if o.opts.MaxConcurrency > 0 {
		g.SetLimit(o.opts.MaxConcurrency)
	}

	seen := make(map[schema.RecordSetKind]bool, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		// Each goroutine writes only its own slot field.
		g.Go(func() error {
			o.fill(ctx, user, kind, out)
			return nil
		})
	}
	_ = g.Wait()

	if failed := out.FailedKinds(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, k := range failed {
			names[i] = string(k)
		}
		o.logger.Warn("partial aggregation failure",
			zap.Int64("user_id", user.ID),
			zap.Strings("failed", names),
		)
		span.SetAttributes(attribute.StringSlice("record_sets.failed", names))
	}
	return out
}

func (o *Orchestrator) fill(ctx context.Context, user schema.UserSummary, kind schema.RecordSetKind, out *schema.AggregatedRecordSet) {
	switch kind {
	case schema.RecordEnrollments:
		out.Enrollments = fetch(ctx, o, kind, user, o.source.Enrollments, isEmpty[schema.Enrollment])
	case schema.RecordSSORecords:
		out.SSORecords = fetch(ctx, o, kind, user, o.source.SSORecords, isEmpty[schema.SSORecord])
	case schema.RecordEntitlements:
		out.Entitlements = fetch(ctx, o, kind, user, o.source.Entitlements, isEmpty[schema.Entitlement])
	case schema.RecordLicenses:
		out.Licenses = fetch(ctx, o, kind, user, o.source.Licenses, isEmpty[schema.License])
	case schema.RecordOnboardingStatus:
		out.OnboardingStatus = fetch(ctx, o, kind, user, o.source.OnboardingStatus, isNil)
	case schema.RecordVerifiedNameHistory:
		out.VerifiedNameHistory = fetch(ctx, o, kind, user, o.source.VerifiedNameHistory, isEmpty[schema.VerifiedName])
	case schema.RecordEnterpriseCustomerUsers:
		out.EnterpriseCustomerUsers = fetch(ctx, o, kind, user, o.source.EnterpriseCustomerUsers, isEmpty[schema.EnterpriseCustomerUser])
	default:
		o.logger.Warn("unknown record set requested", zap.String("record_set", string(kind)))
	}
}

// FailureMessage is the fixed copy stored in a failed slot.
func FailureMessage(kind schema.RecordSetKind) string {
	return "An error occurred while fetching " + strings.ToLower(kind.Title())
}

var errPanicked = errors.New("fetch panicked")

func fetch[T any](
	ctx context.Context,
	o *Orchestrator,
	kind schema.RecordSetKind,
	user schema.UserSummary,
	get func(context.Context, schema.UserSummary) (T, error),
	empty func(T) bool,
) (slot *schema.Slot[T]) {
	ctx, span := o.tracer.Start(ctx, "aggregate.fetch",
		trace.WithAttributes(attribute.String("record_set", string(kind))))
	defer span.End()

	if o.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.FetchTimeout)
		defer cancel()
	}

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errPanicked, p)
		}
		if err == nil {
			return
		}
		o.logger.Warn("record set fetch failed",
			zap.String("record_set", string(kind)),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		slot = schema.FailedSlot[T](errors.New(FailureMessage(kind)))
	}()

	var data T
	data, err = get(ctx, user)
	if errors.Is(err, lms.ErrNotFound) {
		var zero T
		err = nil
		return schema.LoadedSlot(zero, true)
	}
	if err != nil {
		return nil
	}
	return schema.LoadedSlot(data, empty(data))
}

func isEmpty[E any](s []E) bool { return len(s) == 0 }

func isNil(s *schema.OnboardingStatus) bool { return s == nil }
