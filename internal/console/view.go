// Package console composes the support pages from resolution, aggregation and
// the session store. Each call produces a view model carrying the alerts,
// actions and navigation the browser must apply.
package console

import "github.com/celerix-dev/celerix-support/pkg/schema"

const (
	PathLearnerInformation = "/learner_information"
	PathPrograms           = "/programs"

	// QueryEdxUserID is the inspector's canonical query parameter.
	QueryEdxUserID = "edx_user_id"
)

func resetLearnerNavigation() *schema.Navigation {
	return &schema.Navigation{Path: PathLearnerInformation, Replace: true}
}

