package lms

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

// StaticBackend serves accounts from a YAML fixture for local development
// and demos when no LMS is reachable.
type StaticBackend struct {
	mu            sync.RWMutex
	users         []fixtureUser
	samlProviders []string
}

var _ Backend = (*StaticBackend)(nil)

type fixtureUser struct {
	schema.UserSummary `yaml:",inline"`

	Retirement      *schema.RetirementStatus        `yaml:"retirement,omitempty"`
	ExternalUserKey string                          `yaml:"external_user_key,omitempty"`
	OrgKey          string                          `yaml:"org_key,omitempty"`
	Enrollments     []schema.Enrollment             `yaml:"enrollments,omitempty"`
	SSORecords      []schema.SSORecord              `yaml:"sso_records,omitempty"`
	Entitlements    []schema.Entitlement            `yaml:"entitlements,omitempty"`
	Licenses        []schema.License                `yaml:"licenses,omitempty"`
	Onboarding      *schema.OnboardingStatus        `yaml:"onboarding,omitempty"`
	VerifiedNames   []schema.VerifiedName           `yaml:"verified_names,omitempty"`
	Enterprises     []schema.EnterpriseCustomerUser `yaml:"enterprise_customer_users,omitempty"`
	Programs        []schema.ProgramEnrollment      `yaml:"programs,omitempty"`
	// Fail lists record sets whose fetch should fail, to exercise partial failures.
	Fail []schema.RecordSetKind `yaml:"fail,omitempty"`
}

type fixtureDoc struct {
	Users         []fixtureUser `yaml:"users"`
	SAMLProviders []string      `yaml:"saml_providers"`
}

// errFixtureFailure is returned for record sets listed under a user's fail key.
var errFixtureFailure = errors.New("lms: fixture marked record set as failing")

// NewStaticBackend parses a YAML fixture document.
func NewStaticBackend(data []byte) (*StaticBackend, error) {
	var doc fixtureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lms: parse fixture: %w", err)
	}
	for _, u := range doc.Users {
		if u.ID <= 0 {
			return nil, errors.New("lms: fixture contains user without id")
		}
	}
	return &StaticBackend{users: doc.Users, samlProviders: doc.SAMLProviders}, nil
}

// LoadStaticBackend reads a fixture file from disk.
func LoadStaticBackend(path string) (*StaticBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lms: read fixture: %w", err)
	}
	return NewStaticBackend(data)
}

func (b *StaticBackend) find(identifier string) (fixtureUser, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	id := strings.TrimSpace(identifier)
	numeric, numErr := strconv.ParseInt(id, 10, 64)
	for _, u := range b.users {
		if strings.EqualFold(u.Username, id) || strings.EqualFold(u.Email, id) {
			return u, true
		}
		if numErr == nil && u.ID == numeric {
			return u, true
		}
	}
	return fixtureUser{}, false
}

func (b *StaticBackend) ResolveUser(_ context.Context, identifier string) (*schema.UserLookup, error) {
	u, ok := b.find(identifier)
	if !ok {
		return &schema.UserLookup{Errors: []schema.ResolutionError{{
			Text: fmt.Sprintf("We couldn't find a user matching %q.", identifier),
			Type: schema.ErrorTypeError,
			Code: "user_not_found",
		}}}, nil
	}
	if u.Retirement != nil {
		status := *u.Retirement
		return &schema.UserLookup{
			Errors: []schema.ResolutionError{{
				Text: "User is retired",
				Type: schema.ErrorTypeError,
				Code: "user_retired",
			}},
			RetirementStatus: &status,
		}, nil
	}
	summary := u.UserSummary
	return &schema.UserLookup{User: &summary}, nil
}

func (b *StaticBackend) GetUser(_ context.Context, identifier string) (*schema.UserSummary, error) {
	u, ok := b.find(identifier)
	if !ok || u.Retirement != nil {
		return nil, ErrNotFound
	}
	summary := u.UserSummary
	return &summary, nil
}

func (b *StaticBackend) CancelRetirement(_ context.Context, retirementID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.users {
		rs := b.users[i].Retirement
		if rs == nil || rs.RetirementID != retirementID {
			continue
		}
		if !rs.CanCancelRetirement {
			return &StatusError{Method: "POST", Path: "/api/user/v1/accounts/cancel_retirement", Code: 400}
		}
		b.users[i].Retirement = nil
		b.users[i].RetirementRequested = false
		return nil
	}
	return ErrNotFound
}

// record returns the fixture for user, or the configured failure for kind.
func (b *StaticBackend) record(user schema.UserSummary, kind schema.RecordSetKind) (fixtureUser, error) {
	u, ok := b.find(user.Username)
	if !ok {
		return fixtureUser{}, ErrNotFound
	}
	if slices.Contains(u.Fail, kind) {
		return fixtureUser{}, fmt.Errorf("%s: %w", kind, errFixtureFailure)
	}
	return u, nil
}

func (b *StaticBackend) Enrollments(_ context.Context, user schema.UserSummary) ([]schema.Enrollment, error) {
	u, err := b.record(user, schema.RecordEnrollments)
	return u.Enrollments, err
}

func (b *StaticBackend) SSORecords(_ context.Context, user schema.UserSummary) ([]schema.SSORecord, error) {
	u, err := b.record(user, schema.RecordSSORecords)
	return u.SSORecords, err
}

func (b *StaticBackend) Entitlements(_ context.Context, user schema.UserSummary) ([]schema.Entitlement, error) {
	u, err := b.record(user, schema.RecordEntitlements)
	return u.Entitlements, err
}

func (b *StaticBackend) Licenses(_ context.Context, user schema.UserSummary) ([]schema.License, error) {
	u, err := b.record(user, schema.RecordLicenses)
	return u.Licenses, err
}

func (b *StaticBackend) OnboardingStatus(_ context.Context, user schema.UserSummary) (*schema.OnboardingStatus, error) {
	u, err := b.record(user, schema.RecordOnboardingStatus)
	return u.Onboarding, err
}

func (b *StaticBackend) VerifiedNameHistory(_ context.Context, user schema.UserSummary) ([]schema.VerifiedName, error) {
	u, err := b.record(user, schema.RecordVerifiedNameHistory)
	return u.VerifiedNames, err
}

func (b *StaticBackend) EnterpriseCustomerUsers(_ context.Context, user schema.UserSummary) ([]schema.EnterpriseCustomerUser, error) {
	u, err := b.record(user, schema.RecordEnterpriseCustomerUsers)
	return u.Enterprises, err
}

func (b *StaticBackend) ProgramEnrollmentsInspector(_ context.Context, q schema.InspectorQuery) (*schema.InspectorResponse, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, u := range b.users {
		if q.OrgKey != "" && u.OrgKey != "" && !strings.EqualFold(q.OrgKey, u.OrgKey) {
			continue
		}
		byUsername := q.Username != "" && strings.EqualFold(q.Username, u.Username)
		byKey := q.ExternalKey != "" && q.ExternalKey == u.ExternalUserKey
		if !byUsername && !byKey {
			continue
		}
		return &schema.InspectorResponse{
			LearnerProgramEnrollments: &schema.LearnerProgramEnrollments{
				User:            schema.LearnerIdentity{Username: u.Username, Email: u.Email},
				ExternalUserKey: u.ExternalUserKey,
				Enrollments:     u.Programs,
			},
		}, nil
	}

	key := q.Username
	if key == "" {
		key = q.ExternalKey
	}
	return &schema.InspectorResponse{
		Errors: []string{fmt.Sprintf("No user found for %q", key)},
	}, nil
}

func (b *StaticBackend) SAMLProviders(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.samlProviders), nil
}
