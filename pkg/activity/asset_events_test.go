package activity

import (
	"context"
	"errors"
	"testing"
)

func TestBuildAssetSavedEventIncludesMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := AssetEventInput{
		ActorID:        " actor ",
		UserID:         " user ",
		TenantID:       " tenant ",
		ObjectID:       " 7f1c ",
		Name:           "sword",
		Path:           "/items/sword.json",
		Metadata:       meta,
		DefinitionCode: "asset:save",
		Recipients:     []string{"ops@example.com"},
		Channel:        "assets",
	}

	event := BuildAssetSavedEvent(input)

	if event.Verb != VerbAssetSaved {
		t.Fatalf("expected verb %s got %s", VerbAssetSaved, event.Verb)
	}
	if event.ObjectType != ObjectTypeAsset || event.ObjectID != "7f1c" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["path"] != "/items/sword.json" || event.Metadata["name"] != "sword" {
		t.Fatalf("expected path and name metadata, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata, got %+v", event.Metadata)
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "ops@example.com" {
		t.Fatalf("expected input recipients untouched, got %v", input.Recipients)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildAssetEventObjectIDFallbacks(t *testing.T) {
	if got := BuildAssetCreatedEvent(AssetEventInput{Path: "/a.json"}).ObjectID; got != "/a.json" {
		t.Fatalf("expected path fallback, got %q", got)
	}
	if got := BuildAssetImportedEvent(AssetEventInput{Name: "a"}).ObjectID; got != "a" {
		t.Fatalf("expected name fallback, got %q", got)
	}
	if got := BuildAssetRestoredEvent(AssetEventInput{}).ObjectID; got != ObjectTypeAsset {
		t.Fatalf("expected object type fallback, got %q", got)
	}
}

func TestBuildAssetDecodeFailedEventRecordsFailure(t *testing.T) {
	event := BuildAssetDecodeFailedEvent(AssetEventInput{
		Path:        "/broken.json",
		Diagnostics: "error: count: cannot use string value as int",
		Err:         errors.New("hydrate: parse /broken.json: unexpected end of JSON input"),
	})
	if event.Verb != VerbAssetDecodeFailed {
		t.Fatalf("unexpected verb %s", event.Verb)
	}
	if event.Metadata["error"] == nil || event.Metadata["diagnostics"] == nil {
		t.Fatalf("expected failure metadata, got %+v", event.Metadata)
	}
}

func TestBuildAssetEventsWorkWithEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	if err := emitter.Emit(context.Background(), BuildAssetCreatedEvent(AssetEventInput{Path: "/x.json"})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected capture to record event, got %d", len(events))
	}
	if events[0].Verb != VerbAssetCreated || events[0].Channel != DefaultChannel {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestCaptureHookFiltersAndResets(t *testing.T) {
	capture := &CaptureHook{Err: errors.New("recorded anyway")}
	ctx := context.Background()
	for _, event := range []Event{
		BuildAssetSavedEvent(AssetEventInput{ObjectID: "a", Path: "/a.json"}),
		BuildAssetImportedEvent(AssetEventInput{ObjectID: "b", Path: "/b.json"}),
		BuildAssetRestoredEvent(AssetEventInput{ObjectID: "a", Path: "/a.json"}),
	} {
		if err := capture.Notify(ctx, event); err == nil {
			t.Fatalf("expected configured error")
		}
	}

	if got := capture.Verbs(); len(got) != 3 || got[1] != VerbAssetImported {
		t.Fatalf("unexpected verbs %v", got)
	}
	forA := capture.ForAsset("a")
	if len(forA) != 2 || forA[0].Verb != VerbAssetSaved || forA[1].Verb != VerbAssetRestored {
		t.Fatalf("unexpected events for a: %+v", forA)
	}

	events := capture.Events()
	events[0].Verb = "mutated"
	if capture.Events()[0].Verb != VerbAssetSaved {
		t.Fatalf("expected Events to return a copy")
	}

	capture.Reset()
	if len(capture.Events()) != 0 {
		t.Fatalf("expected reset to drop events")
	}
}
