package schema

import "net/url"

// AlertVariant is the visual severity of an alert.
type AlertVariant string

const (
	AlertDanger  AlertVariant = "danger"
	AlertWarning AlertVariant = "warning"
	AlertSuccess AlertVariant = "success"
)

// Alert is an inline message region.
type Alert struct {
	Variant AlertVariant `json:"variant"`
	Text    string       `json:"text"`
	Code    string       `json:"code,omitempty"`
	// Section is set for alerts scoped to one record set.
	Section RecordSetKind `json:"section,omitempty"`
	// Primary marks the single alert reporting a resolution failure.
	Primary bool `json:"primary,omitempty"`
}

// ActionKind names an operation the page offers.
type ActionKind string

const ActionCancelRetirement ActionKind = "cancel_retirement"

// Action is a button rendered next to the results.
type Action struct {
	Kind         ActionKind `json:"kind"`
	Label        string     `json:"label"`
	RetirementID int64      `json:"retirementId,omitempty"`
}

// Navigation tells the browser how to update its location.
type Navigation struct {
	// Path is empty when only the query string changes.
	Path    string            `json:"path,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
	Replace bool              `json:"replace"`
}

// String renders the target as it would appear in an anchor.
func (n Navigation) String() string {
	if len(n.Query) == 0 {
		return n.Path
	}
	q := url.Values{}
	for k, v := range n.Query {
		q.Set(k, v)
	}
	return n.Path + "?" + q.Encode()
}

// UserView is the learner-information page model.
type UserView struct {
	Query      string            `json:"query,omitempty"`
	Identifier *SearchIdentifier `json:"identifier,omitempty"`
	// User is set only for a displayable account.
	User                   *UserSummary         `json:"user,omitempty"`
	ShowAccountInformation bool                 `json:"showAccountInformation"`
	Records                *AggregatedRecordSet `json:"records,omitempty"`
	RetirementStatus       *RetirementStatus    `json:"retirementStatus,omitempty"`
	Alerts                 []Alert              `json:"alerts"`
	Actions                []Action             `json:"actions"`
	Navigation             *Navigation          `json:"navigation,omitempty"`
	Generation             uint64               `json:"generation"`
	// Stale is set when a newer search on the same page superseded this one.
	Stale bool `json:"stale"`
}

// PrimaryAlert returns the resolution-failure alert, if any.
func (v *UserView) PrimaryAlert() *Alert {
	for i := range v.Alerts {
		if v.Alerts[i].Primary {
			return &v.Alerts[i]
		}
	}
	return nil
}

// HasAction reports whether the page offers kind.
func (v *UserView) HasAction(kind ActionKind) bool {
	for _, a := range v.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// NameRow is one label/value line of the inspector's learner header.
type NameRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProgramsView is the program-inspector page model.
type ProgramsView struct {
	Query    InspectorQuery             `json:"query"`
	Learner  *LearnerProgramEnrollments `json:"learner,omitempty"`
	NameRows []NameRow                  `json:"nameRows,omitempty"`
	// EdxUserID is the numeric id of the learner once resolved.
	EdxUserID int64                `json:"edxUserId,omitempty"`
	Records   *AggregatedRecordSet `json:"records,omitempty"`
	// SSONotice is shown in place of SSO records that fetched with zero rows.
	SSONotice  string      `json:"ssoNotice,omitempty"`
	Alerts     []Alert     `json:"alerts"`
	Navigation *Navigation `json:"navigation,omitempty"`
	Generation uint64      `json:"generation"`
	Stale      bool        `json:"stale"`
}

// CancelResult reports the outcome of a retirement cancellation.
type CancelResult struct {
	RetirementID int64 `json:"retirementId"`
	Cancelled    bool  `json:"cancelled"`
	Alert        Alert `json:"alert"`
}
