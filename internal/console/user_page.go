package console

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/aggregate"
	"github.com/celerix-dev/celerix-support/internal/identifier"
	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/internal/resolver"
	"github.com/celerix-dev/celerix-support/internal/session"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

const (
	cancelRetirementLabel = "Cancel Retirement"
	retirementCancelled   = "The retirement request has been cancelled."
	cancelFailed          = "An error occurred while cancelling the retirement request."
)

// UserPage drives the learner-information page.
type UserPage struct {
	resolver    *resolver.Resolver
	records     *aggregate.Orchestrator
	retirements lms.RetirementCanceller
	sessions    *session.Store
	logger      *zap.Logger
}

// NewUserPage wires the page. A nil logger disables logging.
func NewUserPage(res *resolver.Resolver, records *aggregate.Orchestrator, retirements lms.RetirementCanceller, sessions *session.Store, logger *zap.Logger) *UserPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserPage{
		resolver:    res,
		records:     records,
		retirements: retirements,
		sessions:    sessions,
		logger:      logger.Named("user_page"),
	}
}

// Search runs a submitted search and commits its view unless a newer search
// on the same session superseded it while it was in flight.
func (p *UserPage) Search(ctx context.Context, sessionID, raw string) *schema.UserView {
	gen := p.sessions.Begin(sessionID, session.PageLearnerInformation)

	view := p.build(ctx, raw)
	view.Generation = gen
	if !p.sessions.Commit(sessionID, session.PageLearnerInformation, gen, view) {
		p.logger.Debug("discarding stale search", zap.String("session", sessionID), zap.Uint64("generation", gen))
		view.Stale = true
	}
	return view
}

// FromQuery searches with the first recognised query parameter, exactly as if
// it had been typed. ok is false when the query names no account.
func (p *UserPage) FromQuery(ctx context.Context, sessionID string, query url.Values) (view *schema.UserView, ok bool) {
	raw, ok := identifier.FromQuery(query.Get)
	if !ok {
		return nil, false
	}
	return p.Search(ctx, sessionID, raw), true
}

// Latest returns the last committed view of the session.
func (p *UserPage) Latest(sessionID string) (*schema.UserView, bool) {
	v, _, ok := p.sessions.View(sessionID, session.PageLearnerInformation)
	if !ok {
		return nil, false
	}
	view, ok := v.(*schema.UserView)
	return view, ok
}

func (p *UserPage) build(ctx context.Context, raw string) *schema.UserView {
	view := &schema.UserView{Query: strings.TrimSpace(raw), Alerts: []schema.Alert{}, Actions: []schema.Action{}}

	res, ok := p.resolver.Lookup(ctx, raw)
	if !ok {
		view.Navigation = resetLearnerNavigation()
		return view
	}
	if res.Identifier.Kind != "" {
		id := res.Identifier
		view.Identifier = &id
	}

	if res.Failure != "" {
		view.Alerts = append(view.Alerts, primaryAlert(res))
		if res.RetirementStatus != nil {
			status := *res.RetirementStatus
			view.RetirementStatus = &status
		}
		if res.CanCancelRetirement() {
			view.Actions = append(view.Actions, schema.Action{
				Kind:         schema.ActionCancelRetirement,
				Label:        cancelRetirementLabel,
				RetirementID: res.RetirementStatus.RetirementID,
			})
		}
		view.Navigation = resetLearnerNavigation()
		return view
	}

	for _, w := range res.Warnings {
		view.Alerts = append(view.Alerts, schema.Alert{Variant: schema.AlertWarning, Text: w.Text, Code: w.Code})
	}

	if !res.User.Displayable() {
		p.logger.Info("resolved account has no username", zap.Int64("user_id", res.User.ID))
		view.Navigation = resetLearnerNavigation()
		return view
	}

	view.User = res.User
	view.ShowAccountInformation = true
	view.Navigation = &schema.Navigation{
		Path:  PathLearnerInformation + "/",
		Query: map[string]string{string(schema.KindNumericID): res.User.IDString()},
	}
	view.Records = p.records.Aggregate(ctx, *res.User)
	view.Alerts = append(view.Alerts, sectionAlerts(view.Records)...)
	return view
}

// CancelRetirement asks the backend to reverse a pending retirement.
func (p *UserPage) CancelRetirement(ctx context.Context, retirementID int64) *schema.CancelResult {
	out := &schema.CancelResult{RetirementID: retirementID}
	err := p.retirements.CancelRetirement(ctx, retirementID)
	if err != nil {
		p.logger.Warn("cancel retirement failed", zap.Int64("retirement_id", retirementID), zap.Error(err))
		code := "cancel_failed"
		if errors.Is(err, lms.ErrNotFound) {
			code = "retirement_not_found"
		}
		out.Alert = schema.Alert{Variant: schema.AlertDanger, Text: cancelFailed, Code: code}
		return out
	}
	p.logger.Info("retirement cancelled", zap.Int64("retirement_id", retirementID))
	out.Cancelled = true
	out.Alert = schema.Alert{Variant: schema.AlertSuccess, Text: retirementCancelled}
	return out
}

// primaryAlert collapses a failed resolution into its single page alert.
func primaryAlert(res resolver.Result) schema.Alert {
	a := schema.Alert{Variant: schema.AlertDanger, Code: string(res.Failure), Primary: true}
	if len(res.Errors) > 0 {
		a.Text = res.Errors[0].Text
		if res.Errors[0].Code != "" {
			a.Code = res.Errors[0].Code
		}
	}
	if a.Text == "" {
		a.Text = resolver.TransportMessage
	}
	return a
}

func sectionAlerts(records *schema.AggregatedRecordSet) []schema.Alert {
	var alerts []schema.Alert
	for _, kind := range records.FailedKinds() {
		alerts = append(alerts, schema.Alert{
			Variant: schema.AlertWarning,
			Text:    aggregate.FailureMessage(kind),
			Code:    "record_set_failed",
			Section: kind,
		})
	}
	return alerts
}
