// Package health scores the platform across six independent categories and
// aggregates them into a single report for the dashboard.
package health

import (
	"context"

	"github.com/carebridge/chartflow/pkg/models"
)

// MaxScore is the starting score of every category before penalties.
const MaxScore = 100

// Feature flags describing which platform integrations are enabled. Checkers
// treat an absent flag as disabled.
const (
	FeatureWoundAssessmentForm = "wound_assessment_form"
	FeatureVitalSignsForm      = "vital_signs_form"
	FeaturePainScaleForm       = "pain_scale_form"
	FeatureDiabeticFootForm    = "diabetic_foot_form"
	FeatureJourneyMilestones   = "journey_milestones"
	FeatureEpisodeTimeline     = "episode_timeline"
	FeatureBedsideVisitSync    = "bedside_visit_sync"
)

// Snapshot is the state visible to the category checkers: current workflows,
// submitted records and the platform feature flags. Checkers only read it.
type Snapshot struct {
	Workflows []*models.ClinicalWorkflow
	Records   []*models.ClinicalRecord
	Features  map[string]bool
}

// Enabled reports whether a platform feature flag is set.
func (s Snapshot) Enabled(feature string) bool {
	return s.Features[feature]
}

// Checker is one health category. Check starts from MaxScore, subtracts a
// fixed penalty per discovered issue and floors at zero. The severity label on
// each issue is independent of its score penalty; the two concerns never mix.
type Checker interface {
	Category() string
	Check(ctx context.Context, snapshot Snapshot) models.CategoryResult
}

// scoreCard accumulates penalties, issues and de-duplicated recommendations
// for one category run.
type scoreCard struct {
	category        string
	score           int
	issues          []models.ValidationIssue
	recommendations []string
	seen            map[string]bool
}

func newScoreCard(category string) *scoreCard {
	return &scoreCard{
		category:        category,
		score:           MaxScore,
		issues:          make([]models.ValidationIssue, 0),
		recommendations: make([]string, 0),
		seen:            make(map[string]bool),
	}
}

// add records an issue, subtracts its penalty and files the recommendation,
// dropping duplicate recommendations within the category.
func (c *scoreCard) add(penalty int, issue models.ValidationIssue, recommendation string) {
	c.score -= penalty
	c.issues = append(c.issues, issue)

	if recommendation != "" && !c.seen[recommendation] {
		c.seen[recommendation] = true
		c.recommendations = append(c.recommendations, recommendation)
	}
}

func (c *scoreCard) result() models.CategoryResult {
	score := c.score
	if score < 0 {
		score = 0
	}

	return models.CategoryResult{
		Category:        c.category,
		Score:           score,
		Issues:          c.issues,
		Recommendations: c.recommendations,
	}
}
