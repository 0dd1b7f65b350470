package health

import (
	"log/slog"
)

// Registry holds the category checkers in their reporting order. The
// aggregator runs whatever the registry holds, so deployments can swap or
// extend categories without touching the aggregation logic.
type Registry struct {
	logger   *slog.Logger
	order    []string
	checkers map[string]Checker
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		order:    make([]string, 0),
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker. Registering the same category twice replaces the
// checker but keeps its original position.
func (r *Registry) Register(checker Checker) {
	category := checker.Category()

	if _, exists := r.checkers[category]; !exists {
		r.order = append(r.order, category)
	}

	r.checkers[category] = checker
}

// Checkers returns the registered checkers in registration order.
func (r *Registry) Checkers() []Checker {
	checkers := make([]Checker, 0, len(r.order))

	for _, category := range r.order {
		checkers = append(checkers, r.checkers[category])
	}

	return checkers
}

// Categories returns the registered category names in order.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.order...)
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.checkers) == 0 {
		return "No health categories registered", false
	}

	return "Health category registry is ready", true
}
