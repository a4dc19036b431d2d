package schema

// InspectorQuery is a program-enrollment inspector search.
type InspectorQuery struct {
	Username    string `json:"username,omitempty" form:"username"`
	ExternalKey string `json:"external_key,omitempty" form:"external_key"`
	OrgKey      string `json:"org_key,omitempty" form:"org_key"`
}

// Empty reports whether the query names no learner.
func (q InspectorQuery) Empty() bool {
	return q.Username == "" && q.ExternalKey == ""
}

// LearnerIdentity is the user block of an inspector response.
type LearnerIdentity struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
}

// ProgramCourseEnrollment is a course enrollment made through a program.
type ProgramCourseEnrollment struct {
	CourseKey       string `json:"course_key" yaml:"course_key"`
	Status          string `json:"status" yaml:"status"`
	CourseURL       string `json:"course_url,omitempty" yaml:"course_url,omitempty"`
	Created         string `json:"created,omitempty" yaml:"created,omitempty"`
	Modified        string `json:"modified,omitempty" yaml:"modified,omitempty"`
	ExternalUserKey string `json:"external_user_key,omitempty" yaml:"external_user_key,omitempty"`
}

// ProgramEnrollment is one program enrollment with its course enrollments.
type ProgramEnrollment struct {
	ProgramUUID              string                    `json:"program_uuid" yaml:"program_uuid"`
	ProgramName              string                    `json:"program_name,omitempty" yaml:"program_name,omitempty"`
	Status                   string                    `json:"status" yaml:"status"`
	ExternalUserKey          string                    `json:"external_user_key,omitempty" yaml:"external_user_key,omitempty"`
	Created                  string                    `json:"created,omitempty" yaml:"created,omitempty"`
	Modified                 string                    `json:"modified,omitempty" yaml:"modified,omitempty"`
	ProgramCourseEnrollments []ProgramCourseEnrollment `json:"program_course_enrollments" yaml:"program_course_enrollments"`
}

// LearnerProgramEnrollments is the learner found by the inspector.
type LearnerProgramEnrollments struct {
	User            LearnerIdentity     `json:"user" yaml:"user"`
	IDVerified      bool                `json:"id_verified,omitempty" yaml:"id_verified,omitempty"`
	ExternalUserKey string              `json:"external_user_key,omitempty" yaml:"external_user_key,omitempty"`
	Enrollments     []ProgramEnrollment `json:"enrollments" yaml:"enrollments"`
}

// InspectorResponse is the backend's answer to an inspector search.
type InspectorResponse struct {
	LearnerProgramEnrollments *LearnerProgramEnrollments `json:"learner_program_enrollments,omitempty" yaml:"learner_program_enrollments,omitempty"`
	Errors                    []string                   `json:"errors,omitempty" yaml:"errors,omitempty"`
}
