package services_test

import (
	"testing"

	"github.com/pagelift/pagelift-backend/internal/data/repos/testutil"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

func TestRecordSourceSingleMatch(t *testing.T) {
	h := newHarness(t)
	testutil.SeedRecord(t, h.dbc, "team", map[string]interface{}{
		"name": "Ada", "role": "lead", "years": float64(7),
	})
	testutil.SeedRecord(t, h.dbc, "team", map[string]interface{}{
		"name": "Grace", "role": "dev",
	})

	got, err := h.records.Resolve(h.dbc, &snapshot.DataConfig{
		Collection: "team",
		Filter:     map[string]string{"role": "lead"},
		Fields:     []string{"name", "years"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got["name"] != "Ada" || got["years"] != "7" {
		t.Fatalf("single match projection: %+v", got)
	}
}

// Multiple matches flip the output shape to one comma-joined string per
// field. The behavior is deliberate; consumers depend on it.
func TestRecordSourceMultiMatchJoinsScalars(t *testing.T) {
	h := newHarness(t)
	testutil.SeedRecord(t, h.dbc, "cities", map[string]interface{}{"name": "Berlin"})
	testutil.SeedRecord(t, h.dbc, "cities", map[string]interface{}{"name": "Hamburg"})

	got, err := h.records.Resolve(h.dbc, &snapshot.DataConfig{
		Collection: "cities",
		Fields:     []string{"name"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	joined := got["name"]
	if joined != "Berlin, Hamburg" && joined != "Hamburg, Berlin" {
		t.Fatalf("joined result: %q", joined)
	}
}

func TestRecordSourceNoMatchAndUnknownCollection(t *testing.T) {
	h := newHarness(t)
	testutil.SeedRecord(t, h.dbc, "team", map[string]interface{}{"name": "Ada"})

	got, err := h.records.Resolve(h.dbc, &snapshot.DataConfig{
		Collection: "team",
		Filter:     map[string]string{"name": "Nobody"},
		Fields:     []string{"name"},
	})
	if err != nil {
		t.Fatalf("Resolve no match: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("no-match result not empty: %+v", got)
	}

	// A collection that never existed degrades to empty, never to an error.
	got, err = h.records.Resolve(h.dbc, &snapshot.DataConfig{
		Collection: "dropped_table",
		Fields:     []string{"name"},
	})
	if err != nil {
		t.Fatalf("Resolve unknown collection: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unknown collection result not empty: %+v", got)
	}
}

func TestRecordSourceNilConfig(t *testing.T) {
	h := newHarness(t)
	got, err := h.records.Resolve(h.dbc, nil)
	if err != nil {
		t.Fatalf("Resolve nil: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("nil config result not empty: %+v", got)
	}
}
