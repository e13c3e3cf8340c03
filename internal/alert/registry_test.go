package alert

import (
	"errors"
	"testing"

	"PairWatch/internal/domain/models"
	xlogger "PairWatch/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(source, symbol string)        {}
func (nopMetrics) RecordTickPublished(topic, symbol string)        {}
func (nopMetrics) RecordBarsSealed(symbol, interval string, n int) {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)    {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordAlertTriggered(rule string)                {}

func testRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewRegistry(l, nopMetrics{}, opts...)
}

func rule(name string, threshold float64) models.AlertRule {
	return models.AlertRule{Name: name, SymbolA: "AAA", SymbolB: "BBB", Threshold: threshold}
}

func TestAddDuplicateRejected(t *testing.T) {
	r := testRegistry(t)
	if err := r.Add(rule("wide", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(rule("wide", 3)); !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
}

func TestEvaluateFiresOnAbsoluteThreshold(t *testing.T) {
	r := testRegistry(t)
	if err := r.Add(rule("wide", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if fired := r.Evaluate("AAA", "BBB", 1.5); len(fired) != 0 {
		t.Fatalf("fired below threshold: %v", fired)
	}
	if fired := r.Evaluate("AAA", "BBB", -2.5); len(fired) != 1 {
		t.Fatalf("got %d events for z=-2.5, want 1", len(fired))
	}
	if fired := r.Evaluate("XXX", "BBB", 5); len(fired) != 0 {
		t.Fatalf("rule fired for the wrong pair: %v", fired)
	}

	hist := r.History(0)
	if len(hist) != 1 {
		t.Fatalf("history has %d events, want 1", len(hist))
	}
	if hist[0].ZScore != -2.5 {
		t.Fatalf("history zscore = %v, want -2.5", hist[0].ZScore)
	}
}

func TestDeactivatedRuleDoesNotFire(t *testing.T) {
	r := testRegistry(t)
	if err := r.Add(rule("wide", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.SetActive("wide", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if fired := r.Evaluate("AAA", "BBB", 10); len(fired) != 0 {
		t.Fatalf("deactivated rule fired: %v", fired)
	}

	if err := r.SetActive("wide", true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if fired := r.Evaluate("AAA", "BBB", 10); len(fired) != 1 {
		t.Fatalf("reactivated rule did not fire")
	}
}

func TestRemoveUnknownRule(t *testing.T) {
	r := testRegistry(t)
	if err := r.Remove("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	r := testRegistry(t, WithMaxHistory(3))
	if err := r.Add(rule("wide", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	for i := 0; i < 5; i++ {
		r.Evaluate("AAA", "BBB", float64(2+i))
	}

	hist := r.History(0)
	if len(hist) != 3 {
		t.Fatalf("history has %d events, want 3", len(hist))
	}
	if hist[0].ZScore != 4 {
		t.Fatalf("oldest kept zscore = %v, want 4", hist[0].ZScore)
	}
}

func TestHistoryLimit(t *testing.T) {
	r := testRegistry(t)
	if err := r.Add(rule("wide", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	for i := 0; i < 4; i++ {
		r.Evaluate("AAA", "BBB", 3)
	}
	if got := len(r.History(2)); got != 2 {
		t.Fatalf("limited history = %d, want 2", got)
	}
}
