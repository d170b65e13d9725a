// Package usersink forwards property store activity to a go-users
// ActivitySink.
package usersink

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-props/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

var _ activity.Hook = Hook{}

// Notify maps event into an ActivityRecord. Identifiers that are not UUIDs
// are recorded as uuid.Nil; the original object ID is always kept.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{}
	maps.Copy(data, normalized.Metadata)
	if len(normalized.Recipients) > 0 {
		data["recipients"] = append([]string{}, normalized.Recipients...)
	}
	if len(data) == 0 {
		data = nil
	}

	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	})
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
