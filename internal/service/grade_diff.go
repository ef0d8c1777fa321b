package service

import (
	"math"
	"sort"

	"github.com/php369/urop-grading-api/internal/models"
)

const scoreEpsilon = 1e-9

// DiffSnapshots computes the field-level changes between two grade snapshots.
// Rubric selections are diffed per criterion. Added, removed, and repointed
// criteria record their effective points; a level swap that keeps the points
// records the level transition instead. Comment edits are recorded alongside.
// An empty result means the snapshots are equivalent.
func DiffSnapshots(prev, next models.GradeSnapshot) []models.FieldChange {
	changes := diffRubricScores(prev.RubricScores, next.RubricScores)

	if math.Abs(prev.Score-next.Score) > scoreEpsilon {
		oldScore, newScore := prev.Score, next.Score
		changes = append(changes, models.NumberChange(models.ChangeFieldScore, &oldScore, &newScore))
	}

	if prev.Feedback != next.Feedback {
		changes = append(changes, models.TextChange(models.ChangeFieldFeedback, prev.Feedback, next.Feedback))
	}

	if prev.PrivateNotes != next.PrivateNotes {
		changes = append(changes, models.TextChange(models.ChangeFieldPrivateNotes, prev.PrivateNotes, next.PrivateNotes))
	}

	return changes
}

func diffRubricScores(prev, next []models.RubricScore) []models.FieldChange {
	prevByCriterion := make(map[uint]models.RubricScore, len(prev))
	for _, score := range prev {
		prevByCriterion[score.CriterionID] = score
	}
	nextByCriterion := make(map[uint]models.RubricScore, len(next))
	for _, score := range next {
		nextByCriterion[score.CriterionID] = score
	}

	ids := make([]uint, 0, len(prevByCriterion)+len(nextByCriterion))
	seen := make(map[uint]struct{}, len(prevByCriterion))
	for id := range prevByCriterion {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range nextByCriterion {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var changes []models.FieldChange
	for _, id := range ids {
		field := models.RubricScoreChangeField(id)
		before, hadBefore := prevByCriterion[id]
		after, hasAfter := nextByCriterion[id]

		switch {
		case !hadBefore:
			points := after.EffectivePoints()
			changes = append(changes, models.NumberChange(field, nil, &points))
		case !hasAfter:
			points := before.EffectivePoints()
			changes = append(changes, models.NumberChange(field, &points, nil))
		default:
			if math.Abs(before.EffectivePoints()-after.EffectivePoints()) > scoreEpsilon {
				oldPoints, newPoints := before.EffectivePoints(), after.EffectivePoints()
				changes = append(changes, models.NumberChange(field, &oldPoints, &newPoints))
			} else if before.LevelID != after.LevelID {
				oldLevel, newLevel := float64(before.LevelID), float64(after.LevelID)
				changes = append(changes, models.NumberChange(models.RubricScoreLevelChangeField(id), &oldLevel, &newLevel))
			}
			if before.Comments != after.Comments {
				changes = append(changes, models.TextChange(field, before.Comments, after.Comments))
			}
		}
	}

	return changes
}
