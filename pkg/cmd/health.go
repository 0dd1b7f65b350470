// Package cmd provides common initialization functions for the command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/health"
)

// NewHealthRegistry registers the six standard health categories in reporting
// order.
func NewHealthRegistry(logger *slog.Logger, validator *compliance.Validator) *health.Registry {
	registry := health.NewRegistry(logger)

	registry.Register(health.NewRecordsIntegrityChecker())
	registry.Register(health.NewFormsIntegrationChecker())
	registry.Register(health.NewWorkflowRobustnessChecker())
	registry.Register(health.NewComplianceAlignmentChecker(validator))
	registry.Register(health.NewJourneyTrackingChecker())
	registry.Register(health.NewVisitIntegrationChecker())

	return registry
}
