package schema

// RecordSetKind names one of the secondary record sets fetched for a resolved account.
type RecordSetKind string

const (
	RecordEnrollments             RecordSetKind = "enrollments"
	RecordSSORecords              RecordSetKind = "ssoRecords"
	RecordEntitlements            RecordSetKind = "entitlements"
	RecordLicenses                RecordSetKind = "licenses"
	RecordOnboardingStatus        RecordSetKind = "onboardingStatus"
	RecordVerifiedNameHistory     RecordSetKind = "verifiedNameHistory"
	RecordEnterpriseCustomerUsers RecordSetKind = "enterpriseCustomerUsers"
)

// AllRecordSets lists every record set in display order.
var AllRecordSets = []RecordSetKind{
	RecordEnrollments,
	RecordSSORecords,
	RecordEntitlements,
	RecordLicenses,
	RecordOnboardingStatus,
	RecordVerifiedNameHistory,
	RecordEnterpriseCustomerUsers,
}

// Title is the section heading used in alert copy.
func (k RecordSetKind) Title() string {
	switch k {
	case RecordEnrollments:
		return "Enrollments"
	case RecordSSORecords:
		return "SSO Records"
	case RecordEntitlements:
		return "Entitlements"
	case RecordLicenses:
		return "Licenses"
	case RecordOnboardingStatus:
		return "Onboarding Status"
	case RecordVerifiedNameHistory:
		return "Verified Name History"
	case RecordEnterpriseCustomerUsers:
		return "Enterprise Customers"
	}
	return string(k)
}

// SlotStatus is the settled state of a single record-set fetch.
type SlotStatus string

const (
	// SlotLoaded means the fetch succeeded and returned data.
	SlotLoaded SlotStatus = "loaded"
	// SlotEmpty means the fetch succeeded with zero rows. It is not a failure.
	SlotEmpty SlotStatus = "empty"
	// SlotError means the fetch failed.
	SlotError SlotStatus = "error"
)

// Slot holds the outcome of one record-set fetch.
type Slot[T any] struct {
	Status SlotStatus `json:"status"`
	Data   T          `json:"data"`
	Error  string     `json:"error,omitempty"`
}

// LoadedSlot wraps a successful fetch; empty selects SlotEmpty over SlotLoaded.
func LoadedSlot[T any](data T, empty bool) *Slot[T] {
	status := SlotLoaded
	if empty {
		status = SlotEmpty
	}
	return &Slot[T]{Status: status, Data: data}
}

// FailedSlot wraps a failed fetch.
func FailedSlot[T any](err error) *Slot[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Slot[T]{Status: SlotError, Error: msg}
}

// State returns the slot status, or "" for a slot that was never fetched.
func (s *Slot[T]) State() SlotStatus {
	if s == nil {
		return ""
	}
	return s.Status
}

// AggregatedRecordSet carries one independently settled slot per record set.
// A nil slot was not requested.
type AggregatedRecordSet struct {
	Enrollments             *Slot[[]Enrollment]             `json:"enrollments,omitempty"`
	SSORecords              *Slot[[]SSORecord]              `json:"ssoRecords,omitempty"`
	Entitlements            *Slot[[]Entitlement]            `json:"entitlements,omitempty"`
	Licenses                *Slot[[]License]                `json:"licenses,omitempty"`
	OnboardingStatus        *Slot[*OnboardingStatus]        `json:"onboardingStatus,omitempty"`
	VerifiedNameHistory     *Slot[[]VerifiedName]           `json:"verifiedNameHistory,omitempty"`
	EnterpriseCustomerUsers *Slot[[]EnterpriseCustomerUser] `json:"enterpriseCustomerUsers,omitempty"`
}

// State returns the status of the slot for kind.
func (a *AggregatedRecordSet) State(kind RecordSetKind) SlotStatus {
	if a == nil {
		return ""
	}
	switch kind {
	case RecordEnrollments:
		return a.Enrollments.State()
	case RecordSSORecords:
		return a.SSORecords.State()
	case RecordEntitlements:
		return a.Entitlements.State()
	case RecordLicenses:
		return a.Licenses.State()
	case RecordOnboardingStatus:
		return a.OnboardingStatus.State()
	case RecordVerifiedNameHistory:
		return a.VerifiedNameHistory.State()
	case RecordEnterpriseCustomerUsers:
		return a.EnterpriseCustomerUsers.State()
	}
	return ""
}

// FailedKinds lists the record sets whose fetch failed, in display order.
func (a *AggregatedRecordSet) FailedKinds() []RecordSetKind {
	var failed []RecordSetKind
	for _, kind := range AllRecordSets {
		if a.State(kind) == SlotError {
			failed = append(failed, kind)
		}
	}
	return failed
}
