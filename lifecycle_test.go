package jsonasset

import (
	"context"
	"testing"
)

func TestOnBeforeSaveKeepsStoredTextVerbatim(t *testing.T) {
	lib, st, _ := newTestLibrary(t)
	ctx := context.Background()
	asset, err := lib.CreateAsset(ctx, "/a.json")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	external := "{\"count\":9}"
	if err := st.Write(ctx, "/a.json", []byte(external)); err != nil {
		t.Fatalf("write: %v", err)
	}
	asset.OnBeforeSave(ctx)
	if asset.Snapshot() != external {
		t.Fatalf("expected verbatim stored text, got %q", asset.Snapshot())
	}
	if asset.Value.Count != 0 {
		t.Fatalf("expected payload untouched by snapshot, got %d", asset.Value.Count)
	}
}

func TestOnBeforeSaveEncodesTransientAsset(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	asset := lib.CreateInstance(func(c *counter) { c.Count = 4 })
	asset.OnBeforeSave(context.Background())

	text, err := asset.SerializeToJSON()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if asset.Snapshot() != text {
		t.Fatalf("expected encoded snapshot, got %q", asset.Snapshot())
	}
}

func TestOnEnableSources(t *testing.T) {
	lib, st, _ := newTestLibrary(t)
	ctx := context.Background()

	fresh := lib.CreateInstance(func(c *counter) { c.Count = 3 })
	if !fresh.OnEnable(ctx) {
		t.Fatalf("expected enable without sources to succeed")
	}
	if fresh.Value.Count != 3 || fresh.Value.sanitizes != 0 {
		t.Fatalf("expected default state kept, got %+v", fresh.Value)
	}

	cached := lib.CreateInstance()
	cached.lastKnownText = []byte(`{"count": 8}`)
	if !cached.OnEnable(ctx) || cached.Value.Count != 8 {
		t.Fatalf("expected decode from snapshot, got %+v", cached.Value)
	}

	located, err := lib.CreateAsset(ctx, "/a.json", func(c *counter) { c.Count = 1 })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Write(ctx, "/a.json", []byte(`{"count": 5}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	located.lastKnownText = []byte(`{"count": 99}`)
	if !located.OnEnable(ctx) || located.Value.Count != 5 {
		t.Fatalf("expected location to win over snapshot, got %+v", located.Value)
	}
}

func TestOnAfterLoadIsNoop(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	asset := lib.CreateInstance(func(c *counter) { c.Count = 2 })
	asset.OnAfterLoad()
	if asset.Value.Count != 2 || asset.Value.resets != 0 || asset.Value.sanitizes != 0 {
		t.Fatalf("expected no effect, got %+v", asset.Value)
	}
}

func TestDuplicateRebuildsFromSnapshot(t *testing.T) {
	lib, st, _ := newTestLibrary(t)
	ctx := context.Background()
	asset, err := lib.CreateAsset(ctx, "/a.json", func(c *counter) {
		c.Count = 3
		c.Name = "gear"
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	asset.Value.Count = 10

	dup, ok := asset.Duplicate(ctx)
	if !ok {
		t.Fatalf("expected duplicate to decode")
	}
	if dup == asset || dup.Value == asset.Value {
		t.Fatalf("expected a distinct copy")
	}
	if dup.Value.Count != 3 || dup.Value.Name != "gear" {
		t.Fatalf("expected copy of the stored text, got %+v", dup.Value)
	}
	if _, located := dup.Location(); located {
		t.Fatalf("expected duplicate to be transient")
	}
	if paths := st.Paths(""); len(paths) != 1 {
		t.Fatalf("expected no extra files, got %v", paths)
	}
}
