package service

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/php369/urop-grading-api/internal/models"
)

// GradingValidator checks a candidate grading payload against score bounds
// and rubric completeness. Validation is deterministic and side-effect free;
// all violations are collected, none short-circuits.
type GradingValidator struct {
	sanitizer *bluemonday.Policy

	// RequireFullRubric hardens rule 3 to demand one selection per
	// criterion. Off by default: partial rubric completion is accepted.
	RequireFullRubric bool
}

// NewGradingValidator builds a validator with the default lenient rubric policy.
func NewGradingValidator() *GradingValidator {
	return &GradingValidator{sanitizer: bluemonday.StrictPolicy()}
}

// StripMarkup removes all HTML from rich text, leaving its plain content.
func (v *GradingValidator) StripMarkup(input string) string {
	return strings.TrimSpace(v.sanitizer.Sanitize(input))
}

// Validate returns field name to message for every violated rule, empty when
// the payload is acceptable.
func (v *GradingValidator) Validate(snapshot models.GradeSnapshot, maxScore float64, rubric []models.RubricCriterion) map[string]string {
	errs := map[string]string{}

	if snapshot.Score < 0 || snapshot.Score > maxScore+scoreEpsilon {
		errs["score"] = fmt.Sprintf("score must be between 0 and %g", maxScore)
	}

	if v.StripMarkup(snapshot.Feedback) == "" {
		errs["feedback"] = "feedback must not be empty"
	}

	if len(rubric) > 0 {
		switch {
		case len(snapshot.RubricScores) == 0:
			errs["rubric"] = "rubric-backed grading requires at least one rubric score"
		case v.RequireFullRubric && len(snapshot.RubricScores) < len(rubric):
			errs["rubric"] = fmt.Sprintf("all %d rubric criteria must be scored", len(rubric))
		}
	}

	for _, score := range snapshot.RubricScores {
		criterion, ok := models.CriterionByID(rubric, score.CriterionID)
		if !ok {
			continue // integrity concern, handled by CheckRubricIntegrity
		}
		if points := score.EffectivePoints(); points < 0 || points > criterion.MaxPoints+scoreEpsilon {
			field := models.RubricScoreChangeField(score.CriterionID)
			errs[field] = fmt.Sprintf("points must be between 0 and %g", criterion.MaxPoints)
		}
	}

	return errs
}

// CheckRubricIntegrity verifies that every rubric selection references a
// criterion of the active rubric and a level belonging to that criterion,
// with at most one selection per criterion. Violations are defects in the
// calling code or stored data and fail loudly.
func (v *GradingValidator) CheckRubricIntegrity(scores []models.RubricScore, rubric []models.RubricCriterion) error {
	seen := make(map[uint]struct{}, len(scores))
	for _, score := range scores {
		if _, dup := seen[score.CriterionID]; dup {
			return fmt.Errorf("%w: duplicate rubric score for criterion %d", ErrRubricIntegrity, score.CriterionID)
		}
		seen[score.CriterionID] = struct{}{}

		criterion, ok := models.CriterionByID(rubric, score.CriterionID)
		if !ok {
			return fmt.Errorf("%w: criterion %d is not part of the rubric", ErrRubricIntegrity, score.CriterionID)
		}
		if _, ok := criterion.LevelByID(score.LevelID); !ok {
			return fmt.Errorf("%w: level %d does not belong to criterion %d", ErrRubricIntegrity, score.LevelID, score.CriterionID)
		}
	}

	return nil
}
