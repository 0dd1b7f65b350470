package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDependency is returned when a step depends on an id that does
	// not exist in the template.
	ErrUnknownDependency = errors.New("unknown step dependency")

	// ErrDependencyCycle is returned when the step dependencies form a cycle.
	ErrDependencyCycle = errors.New("step dependency cycle")
)

// StepGraph is the directed acyclic dependency graph over the steps of one
// workflow template. It is built once at template load time; an unknown
// dependency id or a cycle is a configuration error that blocks instantiation,
// not something checked per scheduling pass.
type StepGraph struct {
	order []string
	deps  map[string][]string
}

// NewStepGraph validates the dependency references of the given steps and
// returns the graph, failing fast on unknown ids or cycles.
func NewStepGraph(steps []WorkflowStep) (*StepGraph, error) {
	graph := &StepGraph{
		order: make([]string, 0, len(steps)),
		deps:  make(map[string][]string, len(steps)),
	}

	for _, step := range steps {
		graph.order = append(graph.order, step.ID)
		graph.deps[step.ID] = step.Dependencies
	}

	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if _, ok := graph.deps[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on %q: %w", step.ID, dep, ErrUnknownDependency)
			}
		}
	}

	if err := graph.checkAcyclic(); err != nil {
		return nil, err
	}

	return graph, nil
}

// Satisfied reports whether every dependency of the step resolves to
// StepStatusCompleted. A step with no dependencies is always satisfied.
// Skipped dependencies do not satisfy the step.
func (g *StepGraph) Satisfied(stepID string, statusOf func(string) StepStatus) bool {
	for _, dep := range g.deps[stepID] {
		if statusOf(dep) != StepStatusCompleted {
			return false
		}
	}

	return true
}

// Roots returns the ids of steps with no dependencies, in template order.
func (g *StepGraph) Roots() []string {
	roots := make([]string, 0)

	for _, id := range g.order {
		if len(g.deps[id]) == 0 {
			roots = append(roots, id)
		}
	}

	return roots
}

// Dependencies returns the dependency ids of a step.
func (g *StepGraph) Dependencies(stepID string) []string {
	return g.deps[stepID]
}

func (g *StepGraph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(g.order))

	var visit func(id string) error

	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("step %q: %w", id, ErrDependencyCycle)
		case done:
			return nil
		}

		state[id] = visiting

		for _, dep := range g.deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[id] = done

		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}

	return nil
}
