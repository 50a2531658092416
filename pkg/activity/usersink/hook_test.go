package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/activity/usersink"
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

func TestHookForwardsSavedAsset(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildAssetSavedEvent(activity.AssetEventInput{
		ActorID:        actorID.String(),
		TenantID:       tenantID.String(),
		ObjectID:       "c4b3f1b2-7f3e-5b8e-9a53-2d1f4c2f0a11",
		DefinitionCode: "asset:save",
		Recipients:     []string{"owner@example.com", " "},
		Name:           "sword",
		Path:           "/items/sword.json",
		OccurredAt:     now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID || record.UserID != uuid.Nil {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.Verb != activity.VerbAssetSaved || record.ObjectType != activity.ObjectTypeAsset {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.ObjectID != "c4b3f1b2-7f3e-5b8e-9a53-2d1f4c2f0a11" {
		t.Fatalf("expected object id preserved, got %q", record.ObjectID)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["path"] != "/items/sword.json" || record.Data["name"] != "sword" {
		t.Fatalf("expected asset metadata passthrough got %v", record.Data)
	}
	if record.Data["definition_code"] != "asset:save" {
		t.Fatalf("expected definition_code got %v", record.Data["definition_code"])
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "owner@example.com" {
		t.Fatalf("expected blank recipients dropped, got %v", record.Data["recipients"])
	}
}

func TestHookDropsInvalidEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: activity.VerbAssetSaved}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for incomplete event, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.BuildAssetCreatedEvent(activity.AssetEventInput{Path: "/a.json"})); err != nil {
		t.Fatalf("expected nil sink to be a no-op, got %v", err)
	}
}

func TestHookStampsRecordsWithoutTimestamp(t *testing.T) {
	stamp := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Now: func() time.Time { return stamp }}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbAssetCreated,
		ObjectType: activity.ObjectTypeAsset,
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt != stamp {
		t.Fatalf("expected record stamped with %v, got %+v", stamp, sink.records)
	}
}

func TestHookReturnsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink offline")}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.BuildAssetRestoredEvent(activity.AssetEventInput{Path: "/a.json"}))
	if err == nil || err.Error() != "sink offline" {
		t.Fatalf("expected sink error, got %v", err)
	}
}
