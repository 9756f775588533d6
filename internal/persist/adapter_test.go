package persist

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// countingBackend wraps a Backend and records calls.
type countingBackend struct {
	Backend
	gets, sets, removes int
	failSet             bool
}

func (c *countingBackend) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	return c.Backend.Get(ctx, key)
}

func (c *countingBackend) Set(ctx context.Context, key, value string) error {
	c.sets++
	if c.failSet {
		return errors.New("quota exceeded")
	}
	return c.Backend.Set(ctx, key, value)
}

func (c *countingBackend) Remove(ctx context.Context, key string) error {
	c.removes++
	return c.Backend.Remove(ctx, key)
}

type payload struct {
	Foo string `json:"foo"`
}

func TestLoadMissingReturnsFallback(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	fb := []int{1}
	got := Load(context.Background(), a, "missing-key", fb)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want fallback", got)
	}
}

func TestLoadCachesBackendRead(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	_ = mem.Set(ctx, "cached-key", `{"foo":"bar"}`)
	cb := &countingBackend{Backend: mem}
	a := NewAdapter(cb)

	first := Load(ctx, a, "cached-key", payload{})
	second := Load(ctx, a, "cached-key", payload{})
	if first.Foo != "bar" || second.Foo != "bar" {
		t.Fatalf("loads = %+v %+v", first, second)
	}
	if cb.gets != 1 {
		t.Fatalf("backend gets = %d, want 1", cb.gets)
	}
}

func TestSaveSkipsUnchangedPayload(t *testing.T) {
	ctx := context.Background()
	cb := &countingBackend{Backend: NewMemoryBackend()}
	a := NewAdapter(cb)

	if !a.Save(ctx, "diff-key", payload{Foo: "bar"}) {
		t.Fatalf("first save should write")
	}
	for i := 0; i < 5; i++ {
		if a.Save(ctx, "diff-key", payload{Foo: "bar"}) {
			t.Fatalf("identical save %d wrote again", i)
		}
	}
	if cb.sets != 1 {
		t.Fatalf("backend sets = %d, want 1", cb.sets)
	}
	if !a.Save(ctx, "diff-key", payload{Foo: "baz"}) || cb.sets != 2 {
		t.Fatalf("changed payload should write")
	}
}

func TestCorruptValueFallsBack(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	_ = mem.Set(ctx, "bad", `{not json`)
	a := NewAdapter(mem)
	got := Load(ctx, a, "bad", payload{Foo: "fallback"})
	if got.Foo != "fallback" {
		t.Fatalf("corrupt value should yield fallback, got %+v", got)
	}
	// A later save must still reach the backend.
	if !a.Save(ctx, "bad", payload{Foo: "fixed"}) {
		t.Fatalf("save after corrupt read did not write")
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	cb := &countingBackend{Backend: NewMemoryBackend(), failSet: true}
	a := NewAdapter(cb)
	if a.Save(ctx, "k", payload{Foo: "x"}) {
		t.Fatalf("failed write reported success")
	}
	cb.failSet = false
	if !a.Save(ctx, "k", payload{Foo: "x"}) {
		t.Fatalf("retry after failure should write")
	}
}

func TestClearAndResetCache(t *testing.T) {
	ctx := context.Background()
	cb := &countingBackend{Backend: NewMemoryBackend()}
	a := NewAdapter(cb)
	a.Save(ctx, "clear-me", payload{Foo: "world"})
	if got := Load(ctx, a, "clear-me", payload{}); got.Foo != "world" {
		t.Fatalf("load = %+v", got)
	}
	if !a.Clear(ctx, "clear-me") || cb.removes != 1 {
		t.Fatalf("clear did not remove")
	}
	if got := Load(ctx, a, "clear-me", []int{}); len(got) != 0 {
		t.Fatalf("cleared key returned %v", got)
	}

	_ = cb.Backend.Set(ctx, "outside", `"written elsewhere"`)
	if got := Load(ctx, a, "outside", ""); got != "written elsewhere" {
		t.Fatalf("load = %q", got)
	}
	_ = cb.Backend.Set(ctx, "outside", `"changed"`)
	if got := Load(ctx, a, "outside", ""); got != "written elsewhere" {
		t.Fatalf("cache should shadow backend until reset, got %q", got)
	}
	a.ResetCache()
	if got := Load(ctx, a, "outside", ""); got != "changed" {
		t.Fatalf("after reset got %q", got)
	}
}

func TestDifferencesKey(t *testing.T) {
	if DifferencesKey("") != "differences" || DifferencesKey("park") != "differences-park" {
		t.Fatalf("unexpected keys")
	}
}

func TestSQLiteBackend(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE kv_store (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL)`); err != nil {
		t.Fatalf("schema: %v", err)
	}

	ctx := context.Background()
	s := NewSQLiteBackend(db)
	if _, ok, err := s.Get(ctx, "nope"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v2" {
		t.Fatalf("get = %q %v", v, ok)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("key survived remove")
	}
}
