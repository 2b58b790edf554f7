package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

type layoutService interface {
	ConfigureLayout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error)
}

// LayoutQuery resolves the insight cards of a viewer's ready snapshot.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Layout] = (*LayoutQuery)(nil)

// Query resolves the layout for the viewer.
func (q *LayoutQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error) {
	return q.service.ConfigureLayout(ctx, viewer)
}

type snapshotService interface {
	Snapshot(viewer dashboard.ViewerContext) dashboard.Snapshot
}

// InsightsQuery returns a viewer's current insight state without loading.
type InsightsQuery struct {
	service snapshotService
}

// NewInsightsQuery builds the query.
func NewInsightsQuery(service snapshotService) *InsightsQuery {
	return &InsightsQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Snapshot] = (*InsightsQuery)(nil)

// Query returns the snapshot.
func (q *InsightsQuery) Query(_ context.Context, viewer dashboard.ViewerContext) (dashboard.Snapshot, error) {
	return q.service.Snapshot(viewer), nil
}
