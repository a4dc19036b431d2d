package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource answers every record set with one row unless told otherwise.
type fakeSource struct {
	fail     map[schema.RecordSetKind]error
	empty    map[schema.RecordSetKind]bool
	panicOn  schema.RecordSetKind
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	calls []schema.RecordSetKind
}

func (f *fakeSource) enter(ctx context.Context, kind schema.RecordSetKind) error {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if kind == f.panicOn {
		panic("fetch exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.fail[kind]
}

func rows[T any](f *fakeSource, kind schema.RecordSetKind, row T) []T {
	if f.empty[kind] {
		return nil
	}
	return []T{row}
}

func (f *fakeSource) Enrollments(ctx context.Context, _ schema.UserSummary) ([]schema.Enrollment, error) {
	if err := f.enter(ctx, schema.RecordEnrollments); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordEnrollments, schema.Enrollment{CourseID: "course-v1:edX+DemoX+Demo_Course"}), nil
}

func (f *fakeSource) SSORecords(ctx context.Context, _ schema.UserSummary) ([]schema.SSORecord, error) {
	if err := f.enter(ctx, schema.RecordSSORecords); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordSSORecords, schema.SSORecord{Provider: "tpa-saml"}), nil
}

func (f *fakeSource) Entitlements(ctx context.Context, _ schema.UserSummary) ([]schema.Entitlement, error) {
	if err := f.enter(ctx, schema.RecordEntitlements); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordEntitlements, schema.Entitlement{UUID: "e1"}), nil
}

func (f *fakeSource) Licenses(ctx context.Context, _ schema.UserSummary) ([]schema.License, error) {
	if err := f.enter(ctx, schema.RecordLicenses); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordLicenses, schema.License{Status: "activated"}), nil
}

func (f *fakeSource) OnboardingStatus(ctx context.Context, _ schema.UserSummary) (*schema.OnboardingStatus, error) {
	if err := f.enter(ctx, schema.RecordOnboardingStatus); err != nil {
		return nil, err
	}
	if f.empty[schema.RecordOnboardingStatus] {
		return nil, nil
	}
	return &schema.OnboardingStatus{OnboardingStatus: "verified"}, nil
}

func (f *fakeSource) VerifiedNameHistory(ctx context.Context, _ schema.UserSummary) ([]schema.VerifiedName, error) {
	if err := f.enter(ctx, schema.RecordVerifiedNameHistory); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordVerifiedNameHistory, schema.VerifiedName{VerifiedName: "Jonathan Doe"}), nil
}

func (f *fakeSource) EnterpriseCustomerUsers(ctx context.Context, _ schema.UserSummary) ([]schema.EnterpriseCustomerUser, error) {
	if err := f.enter(ctx, schema.RecordEnterpriseCustomerUsers); err != nil {
		return nil, err
	}
	return rows(f, schema.RecordEnterpriseCustomerUsers, schema.EnterpriseCustomerUser{ID: 1}), nil
}

var testUser = schema.UserSummary{ID: 3, Username: "verified", Email: "verified@example.com"}

func TestAggregate_AllLoaded(t *testing.T) {
	src := &fakeSource{}
	got := New(src, Options{}, nil, nil).Aggregate(context.Background(), testUser)

	for _, kind := range schema.AllRecordSets {
		assert.Equal(t, schema.SlotLoaded, got.State(kind), "record set %s", kind)
	}
	assert.Empty(t, got.FailedKinds())
	assert.Len(t, src.calls, len(schema.AllRecordSets))
}

func TestAggregate_OneFailureDoesNotBlockOthers(t *testing.T) {
	src := &fakeSource{fail: map[schema.RecordSetKind]error{
		schema.RecordLicenses: errors.New("license manager unavailable"),
	}}
	got := New(src, Options{}, nil, nil).Aggregate(context.Background(), testUser)

	assert.Equal(t, []schema.RecordSetKind{schema.RecordLicenses}, got.FailedKinds())
	require.Equal(t, schema.SlotError, got.Licenses.Status)
	assert.Equal(t, "An error occurred while fetching licenses", got.Licenses.Error)

	require.Equal(t, schema.SlotLoaded, got.Enrollments.Status)
	assert.Len(t, got.Enrollments.Data, 1)
	assert.Equal(t, "verified", got.OnboardingStatus.Data.OnboardingStatus)
}

func TestAggregate_EmptyIsDistinctFromFailure(t *testing.T) {
	src := &fakeSource{
		empty: map[schema.RecordSetKind]bool{schema.RecordSSORecords: true, schema.RecordOnboardingStatus: true},
		fail:  map[schema.RecordSetKind]error{schema.RecordEntitlements: lms.ErrNotFound},
	}
	got := New(src, Options{}, nil, nil).Aggregate(context.Background(), testUser)

	assert.Equal(t, schema.SlotEmpty, got.SSORecords.Status)
	assert.Equal(t, schema.SlotEmpty, got.OnboardingStatus.Status)
	assert.Equal(t, schema.SlotEmpty, got.Entitlements.Status, "404 on a record set means no rows")
	assert.Empty(t, got.FailedKinds())
}

func TestAggregate_PanicIsIsolated(t *testing.T) {
	src := &fakeSource{panicOn: schema.RecordVerifiedNameHistory}
	got := New(src, Options{}, nil, nil).Aggregate(context.Background(), testUser)

	assert.Equal(t, []schema.RecordSetKind{schema.RecordVerifiedNameHistory}, got.FailedKinds())
	assert.Equal(t, schema.SlotLoaded, got.Enrollments.Status)
}

func TestAggregate_WaitsForEverySettlement(t *testing.T) {
	src := &fakeSource{
		delay: 30 * time.Millisecond,
		fail:  map[schema.RecordSetKind]error{schema.RecordEnrollments: errors.New("fails")},
	}
	got := New(src, Options{}, nil, nil).Aggregate(context.Background(), testUser)

	for _, kind := range schema.AllRecordSets {
		assert.NotEmpty(t, got.State(kind), "record set %s did not settle", kind)
	}
	assert.Equal(t, int32(0), src.inFlight.Load())
}

func TestAggregate_FetchTimeoutFailsOnlySlowSlots(t *testing.T) {
	src := &fakeSource{delay: time.Second}
	start := time.Now()
	got := New(src, Options{FetchTimeout: 20 * time.Millisecond}, nil, nil).Aggregate(context.Background(), testUser)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, got.FailedKinds(), len(schema.AllRecordSets))
}

func TestAggregate_ConcurrencyLimit(t *testing.T) {
	src := &fakeSource{delay: 10 * time.Millisecond}
	New(src, Options{MaxConcurrency: 2}, nil, nil).Aggregate(context.Background(), testUser)

	assert.LessOrEqual(t, src.peak.Load(), int32(2))
	assert.Len(t, src.calls, len(schema.AllRecordSets))
}

func TestAggregateKinds_Subset(t *testing.T) {
	src := &fakeSource{}
	got := New(src, Options{}, nil, nil).AggregateKinds(context.Background(), testUser,
		schema.RecordSSORecords, schema.RecordVerifiedNameHistory, schema.RecordSSORecords)

	assert.Equal(t, schema.SlotLoaded, got.SSORecords.Status)
	assert.Equal(t, schema.SlotLoaded, got.VerifiedNameHistory.Status)
	assert.Nil(t, got.Enrollments)
	assert.Nil(t, got.Licenses)
	assert.Len(t, src.calls, 2)
}
