package alert

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	xlogger "PairWatch/pkg/logger"
)

var (
	// ErrExists is returned when adding a rule whose name is taken.
	ErrExists = errors.New("alert rule already exists")
	// ErrNotFound is returned for operations on an unknown rule name.
	ErrNotFound = errors.New("alert rule not found")
)

// Option configures Registry.
type Option func(*Registry)

// WithMaxHistory caps the retained trigger history (oldest dropped).
func WithMaxHistory(n int) Option {
	return func(r *Registry) { r.maxHistory = n }
}

// Registry holds named z-score threshold rules and the history of their
// firings. Rules are evaluated on the pull path: whenever pair state is
// refreshed for a request, the latest z-score is checked against every
// active rule for that pair. There is no background evaluation loop.
type Registry struct {
	logger     *xlogger.Logger
	metrics    drepo.Metrics
	maxHistory int

	mu      sync.RWMutex
	rules   map[string]*models.AlertRule
	history []models.AlertEvent
}

// NewRegistry creates an empty alert registry. Default history cap: 500.
func NewRegistry(logger *xlogger.Logger, metrics drepo.Metrics, opts ...Option) *Registry {
	r := &Registry{
		logger:     logger,
		metrics:    metrics,
		maxHistory: 500,
		rules:      make(map[string]*models.AlertRule),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a new rule. The rule starts active.
func (r *Registry) Add(rule models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.Name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, rule.Name)
	}
	rule.Active = true
	rule.CreatedAt = time.Now().UTC()
	r.rules[rule.Name] = &rule

	r.logger.Info("alert rule added",
		xlogger.String("rule", rule.Name),
		xlogger.String("pair", rule.SymbolA+"/"+rule.SymbolB),
		xlogger.Any("threshold", rule.Threshold),
	)
	return nil
}

// Remove deletes a rule by name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(r.rules, name)
	return nil
}

// SetActive toggles a rule without losing its definition.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	rule.Active = active
	return nil
}

// List returns all rules, a copy.
func (r *Registry) List() []models.AlertRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AlertRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out
}

// History returns the most recent trigger events, newest last. limit <= 0
// returns everything retained.
func (r *Registry) History(limit int) []models.AlertEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AlertEvent, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// Evaluate checks the latest z-score of a pair against every active rule
// for that pair and records the firings. Returns the events fired by
// this call.
func (r *Registry) Evaluate(symbolA, symbolB string, zscore float64) []models.AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fired []models.AlertEvent
	for _, rule := range r.rules {
		if !rule.Active || rule.SymbolA != symbolA || rule.SymbolB != symbolB {
			continue
		}
		if abs(zscore) <= rule.Threshold {
			continue
		}
		ev := models.AlertEvent{
			Rule:        rule.Name,
			SymbolA:     symbolA,
			SymbolB:     symbolB,
			ZScore:      zscore,
			Threshold:   rule.Threshold,
			TriggeredAt: time.Now().UTC(),
		}
		fired = append(fired, ev)
		r.history = append(r.history, ev)
		r.metrics.RecordAlertTriggered(rule.Name)
		r.logger.Warn("alert triggered",
			xlogger.String("rule", rule.Name),
			xlogger.String("pair", symbolA+"/"+symbolB),
			xlogger.Any("zscore", zscore),
			xlogger.Any("threshold", rule.Threshold),
		)
	}

	if over := len(r.history) - r.maxHistory; over > 0 {
		r.history = append(r.history[:0], r.history[over:]...)
	}
	return fired
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
