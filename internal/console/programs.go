package console

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/aggregate"
	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/internal/resolver"
	"github.com/celerix-dev/celerix-support/internal/session"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

const (
	userIDFailure  = "An error occurred while fetching user id"
	ssoNotFound    = "SSO Record Not Found"
	inspectorError = "An error occurred while fetching program enrollments"
)

// ProgramInspector drives the program-enrollment inspector page.
type ProgramInspector struct {
	source   lms.ProgramInspectorSource
	users    lms.UserResolver
	records  *aggregate.Orchestrator
	sessions *session.Store
	logger   *zap.Logger
}

// NewProgramInspector wires the page. A nil logger disables logging.
func NewProgramInspector(source lms.ProgramInspectorSource, users lms.UserResolver, records *aggregate.Orchestrator, sessions *session.Store, logger *zap.Logger) *ProgramInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramInspector{
		source:   source,
		users:    users,
		records:  records,
		sessions: sessions,
		logger:   logger.Named("program_inspector"),
	}
}

// Inspect runs a submitted inspector search.
func (p *ProgramInspector) Inspect(ctx context.Context, sessionID string, q schema.InspectorQuery) *schema.ProgramsView {
	gen := p.sessions.Begin(sessionID, session.PagePrograms)
	return p.commit(sessionID, gen, p.inspect(ctx, normalize(q)))
}

// Load handles a page load carrying ?edx_user_id=. The id is resolved to a
// username and the inspector searches with it. ok is false for a blank id.
func (p *ProgramInspector) Load(ctx context.Context, sessionID, edxUserID string) (view *schema.ProgramsView, ok bool) {
	edxUserID = strings.TrimSpace(edxUserID)
	if edxUserID == "" {
		return nil, false
	}
	gen := p.sessions.Begin(sessionID, session.PagePrograms)

	user, err := p.users.GetUser(ctx, edxUserID)
	if err != nil || !user.Displayable() {
		p.logger.Warn("user id lookup failed", zap.String("edx_user_id", edxUserID), zap.Error(err))
		return p.commit(sessionID, gen, &schema.ProgramsView{
			Alerts: []schema.Alert{{Variant: schema.AlertDanger, Text: userIDFailure, Code: "user_id_failed"}},
		}), true
	}
	return p.commit(sessionID, gen, p.inspect(ctx, schema.InspectorQuery{Username: user.Username})), true
}

// Latest returns the last committed view of the session.
func (p *ProgramInspector) Latest(sessionID string) (*schema.ProgramsView, bool) {
	v, _, ok := p.sessions.View(sessionID, session.PagePrograms)
	if !ok {
		return nil, false
	}
	view, ok := v.(*schema.ProgramsView)
	return view, ok
}

// SAMLProviders lists the organization keys offered by the org selector.
func (p *ProgramInspector) SAMLProviders(ctx context.Context) ([]string, error) {
	orgs, err := p.source.SAMLProviders(ctx)
	if err != nil {
		p.logger.Warn("saml provider list failed", zap.Error(err))
		return nil, err
	}
	return orgs, nil
}

func (p *ProgramInspector) commit(sessionID string, gen uint64, view *schema.ProgramsView) *schema.ProgramsView {
	view.Generation = gen
	if view.Alerts == nil {
		view.Alerts = []schema.Alert{}
	}
	if !p.sessions.Commit(sessionID, session.PagePrograms, gen, view) {
		view.Stale = true
	}
	return view
}

func (p *ProgramInspector) inspect(ctx context.Context, q schema.InspectorQuery) *schema.ProgramsView {
	view := &schema.ProgramsView{Query: q, Alerts: []schema.Alert{}}
	if q.Empty() {
		view.Navigation = &schema.Navigation{Path: PathPrograms}
		return view
	}

	resp, err := p.source.ProgramEnrollmentsInspector(ctx, q)
	if err != nil {
		p.logger.Warn("program inspector lookup failed", zap.Error(err))
		view.Alerts = append(view.Alerts, schema.Alert{Variant: schema.AlertDanger, Text: inspectorError, Code: string(resolver.TransportFailure)})
		return view
	}
	if resp == nil {
		return view
	}
	for _, msg := range resp.Errors {
		view.Alerts = append(view.Alerts, schema.Alert{Variant: schema.AlertDanger, Text: msg})
	}
	learner := resp.LearnerProgramEnrollments
	if learner == nil {
		return view
	}

	view.Learner = learner
	view.NameRows = []schema.NameRow{
		{Label: "Username", Value: learner.User.Username},
		{Label: "Email", Value: learner.User.Email},
	}

	user, err := p.users.GetUser(ctx, learner.User.Username)
	if err != nil || user == nil {
		p.logger.Warn("user id lookup failed", zap.String("username", learner.User.Username), zap.Error(err))
		view.Alerts = append(view.Alerts, schema.Alert{Variant: schema.AlertDanger, Text: userIDFailure, Code: "user_id_failed"})
		return view
	}

	view.EdxUserID = user.ID
	view.Navigation = &schema.Navigation{
		Query:   map[string]string{QueryEdxUserID: strconv.FormatInt(user.ID, 10)},
		Replace: true,
	}
	view.Records = p.records.AggregateKinds(ctx, *user, schema.RecordSSORecords, schema.RecordVerifiedNameHistory)
	if view.Records.SSORecords.State() == schema.SlotEmpty {
		view.SSONotice = ssoNotFound
	}
	view.Alerts = append(view.Alerts, sectionAlerts(view.Records)...)
	return view
}

func normalize(q schema.InspectorQuery) schema.InspectorQuery {
	return schema.InspectorQuery{
		Username:    strings.TrimSpace(q.Username),
		ExternalKey: strings.TrimSpace(q.ExternalKey),
		OrgKey:      strings.TrimSpace(q.OrgKey),
	}
}
