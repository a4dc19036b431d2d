package schema

// Enrollment is a course enrollment of a learner.
type Enrollment struct {
	CourseID string `json:"course_id" yaml:"course_id"`
	Mode     string `json:"mode" yaml:"mode"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
	Created  string `json:"created,omitempty" yaml:"created,omitempty"`
}

// SSORecord links an account to a third-party auth provider.
type SSORecord struct {
	Provider  string         `json:"provider" yaml:"provider"`
	UID       string         `json:"uid" yaml:"uid"`
	Modified  string         `json:"modified,omitempty" yaml:"modified,omitempty"`
	ExtraData map[string]any `json:"extraData,omitempty" yaml:"extraData,omitempty"`
}

// Entitlement is a purchased right to enroll in a course run.
type Entitlement struct {
	UUID           string `json:"uuid" yaml:"uuid"`
	CourseUUID     string `json:"course_uuid" yaml:"course_uuid"`
	Mode           string `json:"mode" yaml:"mode"`
	EnrollmentRun  string `json:"enrollment_course_run,omitempty" yaml:"enrollment_course_run,omitempty"`
	ExpiredAt      string `json:"expired_at,omitempty" yaml:"expired_at,omitempty"`
	OrderNumber    string `json:"order_number,omitempty" yaml:"order_number,omitempty"`
	SupportDetails []any  `json:"support_details,omitempty" yaml:"support_details,omitempty"`
}

// License is a subscription license assigned to the learner.
type License struct {
	Status                string `json:"status" yaml:"status"`
	AssignedDate          string `json:"assigned_date,omitempty" yaml:"assigned_date,omitempty"`
	ActivationDate        string `json:"activation_date,omitempty" yaml:"activation_date,omitempty"`
	RevokedDate           string `json:"revoked_date,omitempty" yaml:"revoked_date,omitempty"`
	LastRemindDate        string `json:"last_remind_date,omitempty" yaml:"last_remind_date,omitempty"`
	SubscriptionPlanTitle string `json:"subscription_plan_title,omitempty" yaml:"subscription_plan_title,omitempty"`
	SubscriptionPlanEnd   string `json:"subscription_plan_expiration_date,omitempty" yaml:"subscription_plan_expiration_date,omitempty"`
}

// OnboardingStatus is the ID-verification onboarding state.
type OnboardingStatus struct {
	OnboardingStatus   string `json:"onboardingStatus" yaml:"onboardingStatus"`
	ExpirationDatetime string `json:"expirationDatetime,omitempty" yaml:"expirationDatetime,omitempty"`
	OnboardingLink     string `json:"onboardingLink,omitempty" yaml:"onboardingLink,omitempty"`
	OnboardingPastDue  bool   `json:"onboardingPastDue,omitempty" yaml:"onboardingPastDue,omitempty"`
}

// VerifiedName is one entry of a learner's verified-name history.
type VerifiedName struct {
	VerifiedName string `json:"verified_name" yaml:"verified_name"`
	ProfileName  string `json:"profile_name" yaml:"profile_name"`
	Status       string `json:"status" yaml:"status"`
	Created      string `json:"created,omitempty" yaml:"created,omitempty"`
}

// EnterpriseCustomer is the enterprise an account belongs to.
type EnterpriseCustomer struct {
	UUID string `json:"uuid" yaml:"uuid"`
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

// EnterpriseCustomerUser associates an account with an enterprise customer.
type EnterpriseCustomerUser struct {
	ID                 int64              `json:"id" yaml:"id"`
	UserID             int64              `json:"user_id" yaml:"user_id"`
	Active             bool               `json:"active" yaml:"active"`
	EnterpriseCustomer EnterpriseCustomer `json:"enterprise_customer" yaml:"enterprise_customer"`
}
