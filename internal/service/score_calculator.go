package service

import "github.com/php369/urop-grading-api/internal/models"

// TotalPoints sums the effective points of all rubric selections. The result
// is independent of the selection order.
func TotalPoints(scores []models.RubricScore) float64 {
	var total float64
	for _, score := range scores {
		total += score.EffectivePoints()
	}
	return total
}

// MaxTotalPoints sums the point ceilings of all rubric criteria.
func MaxTotalPoints(criteria []models.RubricCriterion) float64 {
	var total float64
	for _, criterion := range criteria {
		total += criterion.MaxPoints
	}
	return total
}

// DeriveScore applies the derivation rule: with a rubric in play and at least
// one selection entered, the payload's top-level score is recomputed from the
// rubric; otherwise the user-supplied score stands.
func DeriveScore(snapshot *models.GradeSnapshot, rubric []models.RubricCriterion) {
	if len(rubric) == 0 || len(snapshot.RubricScores) == 0 {
		return
	}
	snapshot.Score = TotalPoints(snapshot.RubricScores)
}
