package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/goliatone/go-props/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsPropertyEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()
	objectID := uuid.New().String()

	event := activity.BuildPropertyChangedEvent(activity.PropertyEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		ObjectID:   objectID,
		Channel:    "properties",
		Property:   "opacity",
		NewValue:   0.5,
		Frame:      activity.FrameContext{Name: "local", Priority: 500},
		OccurredAt: now,
	})
	event.Recipients = []string{"designer@example.com"}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user id, got %s", record.UserID)
	}
	if record.Verb != activity.VerbPropertyChanged || record.ObjectType != activity.ObjectTypeProperty || record.ObjectID != objectID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "properties" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel/timestamp: %+v", record)
	}
	if record.Data["property"] != "opacity" || record.Data["frame_name"] != "local" || record.Data["new_value"] != 0.5 {
		t.Fatalf("expected metadata passthrough, got %+v", record.Data)
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "designer@example.com" {
		t.Fatalf("expected recipients metadata, got %v", record.Data["recipients"])
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: "property.changed"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbFrameAttached,
		ObjectType: activity.ObjectTypeFrame,
		ObjectID:   "1",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected timestamped record, got %+v", sink.records)
	}
	if sink.records[0].Data != nil {
		t.Fatalf("expected nil data for bare event, got %+v", sink.records[0].Data)
	}
}

func TestHookWithoutSinkIsNoop(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
