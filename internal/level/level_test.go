package level

import (
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
)

func TestParseImportRequiresDifferencesArray(t *testing.T) {
	cases := map[string]string{
		"missing":   `{"name":"x"}`,
		"object":    `{"differences":{"id":1}}`,
		"null":      `{"differences":null}`,
		"string":    `{"differences":"[]"}`,
		"top array": `[]`,
	}
	for name, payload := range cases {
		_, err := ParseImport([]byte(payload))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if name != "top array" && !errors.Is(err, ErrNoDifferences) {
			t.Errorf("%s: err = %v, want ErrNoDifferences", name, err)
		}
	}

	l, err := ParseImport([]byte(`{"differences":[]}`))
	if err != nil || l.Differences == nil || len(l.Differences) != 0 {
		t.Fatalf("empty array should be accepted: %+v %v", l, err)
	}
}

func TestApplyImportMergesOverBase(t *testing.T) {
	limit := 60
	base := Level{
		ID:            "parque",
		Name:          "El parque",
		OriginalImage: "/a.png",
		ModifiedImage: "/b.png",
		TimeLimit:     &limit,
		Differences:   geometry.Collection{{ID: 1, Shape: geometry.Circle{Radius: 3}}},
	}
	payload := `{"name":"Nuevo","pointsPerHit":300,"differences":[{"id":7,"type":"rect","x":10,"y":10,"width":4,"height":4}]}`

	got, err := ApplyImport(base, []byte(payload))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.ID != "parque" || got.OriginalImage != "/a.png" || got.TimeLimitOr(0) != 60 {
		t.Fatalf("base fields lost: %+v", got)
	}
	if got.Name != "Nuevo" || got.PointsPerHit == nil || *got.PointsPerHit != 300 {
		t.Fatalf("payload fields not applied: %+v", got)
	}
	if len(got.Differences) != 1 || got.Differences[0].ID != 7 || got.Differences[0].Kind() != geometry.KindRect {
		t.Fatalf("differences = %+v", got.Differences)
	}

	if _, err := ApplyImport(base, []byte(`{"name":"x"}`)); !errors.Is(err, ErrNoDifferences) {
		t.Fatalf("invalid payload accepted: %v", err)
	}
}

func TestImportRejectsDuplicateIDsAndClampsPositions(t *testing.T) {
	dup := `{"differences":[{"id":1,"x":10,"y":10},{"id":1,"x":20,"y":20}]}`
	if _, err := ParseImport([]byte(dup)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate ids: err = %v", err)
	}
	if _, err := ApplyImport(Level{ID: "parque"}, []byte(dup)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate ids via apply: err = %v", err)
	}

	l, err := ParseImport([]byte(`{"differences":[{"id":1,"x":-5,"y":133.456},{"id":2,"x":12.3456,"y":50}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d := l.Differences[0]; d.X != 0 || d.Y != 100 {
		t.Fatalf("not clamped: %v,%v", d.X, d.Y)
	}
	if d := l.Differences[1]; d.X != 12.35 {
		t.Fatalf("not rounded: %v", d.X)
	}
}

func TestExportUsesCurrentDifferences(t *testing.T) {
	base := Level{ID: "parque", Name: "El parque", Differences: geometry.Collection{{ID: 1, Shape: geometry.Circle{Radius: 3}}}}
	current := geometry.Collection{{ID: 2, X: 5, Y: 6, Tolerance: 1, Shape: geometry.Rect{Width: 3, Height: 4}}}
	b, err := Export(base, current)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	back, err := ParseImport(b)
	if err != nil {
		t.Fatalf("export does not re-import: %v", err)
	}
	if back.Name != "El parque" || len(back.Differences) != 1 || back.Differences[0].ID != 2 {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestRulesAndTimeLimit(t *testing.T) {
	p := 250
	l := Level{PointsPerHit: &p}
	r := l.Rules()
	if r.PointsPerHit == nil || *r.PointsPerHit != 250 || r.PenaltyPerMiss != nil {
		t.Fatalf("rules = %+v", r)
	}
	if l.TimeLimitOr(DefaultTimeLimit) != 120 {
		t.Fatalf("default time limit not used")
	}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.json": {Data: []byte(`{"levels":[
			{"id":"a","name":"A","file":"a.json"},
			{"id":"b","name":"B","file":"b.json"},
			{"id":"broken","name":"Broken","file":"broken.json"},
			{"id":"c","name":"C","file":"missing.json"}
		]}`)},
		"a.json":      {Data: []byte(`{"originalImage":"/a1.png","differences":[{"id":1,"x":10,"y":10}]}`)},
		"b.json":      {Data: []byte(`{"name":"Bee","differences":[]}`)},
		"broken.json": {Data: []byte(`{not json`)},
	}
}

func TestCatalogLoadSkipsBadEntries(t *testing.T) {
	c, err := Load(testFS())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("loaded %d levels, want 2", c.Len())
	}
	a, err := c.Get("a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if a.ID != "a" || a.Name != "A" {
		t.Fatalf("meta not applied: %+v", a)
	}
	if r, ok := a.Differences[0].Shape.(geometry.Circle); !ok || r.Radius != geometry.DefaultHitRadius {
		t.Fatalf("missing radius not defaulted: %+v", a.Differences[0])
	}
	b, _ := c.Get("b")
	if b.Name != "Bee" {
		t.Fatalf("file name should win over index name: %q", b.Name)
	}
	if _, err := c.Get("broken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("broken level should be skipped: %v", err)
	}
}

func TestCatalogGetReturnsCopy(t *testing.T) {
	c, _ := Load(testFS())
	a, _ := c.Get("a")
	a.Differences[0].X = 99
	again, _ := c.Get("a")
	if again.Differences[0].X != 10 {
		t.Fatalf("catalog level mutated through Get")
	}
}

func TestCatalogNextCycles(t *testing.T) {
	c, _ := Load(testFS())
	if m, ok := c.Next("a"); !ok || m.ID != "b" {
		t.Fatalf("next(a) = %v %v", m, ok)
	}
	if m, _ := c.Next("b"); m.ID != "a" {
		t.Fatalf("next(b) should wrap to a, got %v", m.ID)
	}
	if m, _ := c.Next("unknown"); m.ID != "a" {
		t.Fatalf("next(unknown) should be first, got %v", m.ID)
	}

	single, _ := Load(fstest.MapFS{
		"index.json": {Data: []byte(`{"levels":[{"id":"a","file":"a.json"}]}`)},
		"a.json":     {Data: []byte(`{"differences":[]}`)},
	})
	if _, ok := single.Next("a"); ok {
		t.Fatalf("single level catalog should not advance")
	}
}

func TestDailyIsDeterministic(t *testing.T) {
	c, _ := Load(testFS())
	day := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	first, err := c.Daily(day, "salt")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	later, _ := c.Daily(day.Add(12*time.Hour), "salt")
	if first.ID != later.ID {
		t.Fatalf("same UTC day gave %s and %s", first.ID, later.ID)
	}
	for i := 0; i < 50; i++ {
		idx := DailyIndex(day.AddDate(0, 0, i), "salt", 3)
		if idx < 0 || idx >= 3 {
			t.Fatalf("index %d out of range", idx)
		}
	}
	if DailyIndex(day, "salt", 0) != 0 {
		t.Fatalf("empty catalog index should be 0")
	}
}

func TestEmbeddedCatalog(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("open embedded: %v", err)
	}
	if c.Len() == 0 {
		t.Fatalf("embedded catalog is empty")
	}
	first, err := c.First()
	if err != nil || len(first.Differences) == 0 {
		t.Fatalf("first level = %+v %v", first, err)
	}
}
