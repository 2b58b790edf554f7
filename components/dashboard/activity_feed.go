package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// ActivityItem is one recent-activity entry shown on the profile page.
type ActivityItem struct {
	Action  string
	Details string
	At      time.Time
	Ago     string
}

// ActivityFeed fetches recent activity entries for the current viewer.
type ActivityFeed interface {
	Recent(ctx context.Context, viewer ViewerContext, limit int) ([]ActivityItem, error)
}

// ActivityRecordSource exposes recently logged activity records, newest first.
type ActivityRecordSource interface {
	Recent(actor uuid.UUID, limit int) []types.ActivityRecord
}

// RecordActivityFeed turns go-users activity records into feed items.
type RecordActivityFeed struct {
	Source ActivityRecordSource
	Now    func() time.Time
}

var activityVerbLabels = map[string]string{
	"seller.login":           "Signed in",
	"seller.logout":          "Signed out",
	"seller.settings.update": "Updated analysis settings",
	"seller.product.select":  "Viewed insights",
	"seller.chat.message":    "Asked the assistant",
}

// Recent returns the viewer's latest records. Viewers without a session see nothing.
func (f RecordActivityFeed) Recent(_ context.Context, viewer ViewerContext, limit int) ([]ActivityItem, error) {
	if f.Source == nil || viewer.SessionID == "" {
		return nil, nil
	}
	actor, err := uuid.Parse(viewer.SessionID)
	if err != nil {
		return nil, nil
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	records := f.Source.Recent(actor, limit)
	items := make([]ActivityItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ActivityItem{
			Action:  activityLabel(rec.Verb),
			Details: activityDetails(rec),
			At:      rec.OccurredAt,
			Ago:     humanize.RelTime(rec.OccurredAt, now(), "ago", "from now"),
		})
	}
	return items, nil
}

func activityLabel(verb string) string {
	if label, ok := activityVerbLabels[verb]; ok {
		return label
	}
	return verb
}

func activityDetails(rec types.ActivityRecord) string {
	if sku, ok := rec.Data["sku"]; ok {
		return fmt.Sprintf("Product %v", sku)
	}
	if rec.ObjectID != "" && !strings.EqualFold(rec.ObjectType, "session") {
		return rec.ObjectType + " " + rec.ObjectID
	}
	return rec.ObjectType
}
