package usersink

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/goliatone/go-predify/pkg/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Sink matches the go-users activity sink contract.
type Sink interface {
	Log(ctx context.Context, record types.ActivityRecord) error
}

// Hook maps activity events into go-users activity records.
type Hook struct {
	Sink Sink
}

// Notify converts evt and forwards it to the sink. Events without a verb are dropped.
func (h Hook) Notify(ctx context.Context, evt activity.Event) error {
	if h.Sink == nil {
		return errors.New("usersink: sink is required")
	}
	evt = activity.NormalizeEvent(evt)
	if evt.Verb == "" {
		return nil
	}
	return h.Sink.Log(ctx, toRecord(evt))
}

func toRecord(evt activity.Event) types.ActivityRecord {
	data := make(map[string]any, len(evt.Metadata)+2)
	for k, v := range evt.Metadata {
		data[k] = v
	}
	if evt.DefinitionCode != "" {
		data["definition_code"] = evt.DefinitionCode
	}
	if len(evt.Recipients) > 0 {
		data["recipients"] = append([]string(nil), evt.Recipients...)
	}
	return types.ActivityRecord{
		ActorID:    parseUUID(evt.ActorID),
		UserID:     parseUUID(evt.UserID),
		TenantID:   parseUUID(evt.TenantID),
		Verb:       evt.Verb,
		ObjectType: evt.ObjectType,
		ObjectID:   evt.ObjectID,
		Channel:    evt.Channel,
		Data:       data,
		OccurredAt: evt.OccurredAt,
	}
}

func parseUUID(value string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// MemorySink keeps the most recent records in a bounded buffer.
type MemorySink struct {
	mu      sync.RWMutex
	limit   int
	records []types.ActivityRecord
}

// NewMemorySink builds a sink holding at most limit records (100 when limit <= 0).
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 100
	}
	return &MemorySink{limit: limit}
}

// Log appends record, evicting the oldest entry when full.
func (s *MemorySink) Log(_ context.Context, record types.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if over := len(s.records) - s.limit; over > 0 {
		s.records = append([]types.ActivityRecord(nil), s.records[over:]...)
	}
	return nil
}

// Recent returns up to n records for the actor, newest first. A nil actor matches all.
func (s *MemorySink) Recent(actor uuid.UUID, n int) []types.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ActivityRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		rec := s.records[i]
		if actor != uuid.Nil && rec.ActorID != actor {
			continue
		}
		out = append(out, rec)
	}
	return out
}
