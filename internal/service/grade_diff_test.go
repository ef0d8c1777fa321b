package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/php369/urop-grading-api/internal/models"
)

func changeByField(t *testing.T, changes []models.FieldChange, field string) models.FieldChange {
	t.Helper()
	for _, change := range changes {
		if change.Field == field {
			return change
		}
	}
	t.Fatalf("no change recorded for field %q", field)
	return models.FieldChange{}
}

func TestDiffSnapshotsEmptyForIdenticalInput(t *testing.T) {
	snapshot := models.GradeSnapshot{
		Score:    42,
		Feedback: "<p>Solid work</p>",
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 2, Points: 24},
		},
	}

	require.Empty(t, DiffSnapshots(snapshot, snapshot))
}

func TestDiffSnapshotsCustomPointsChange(t *testing.T) {
	prev := models.GradeSnapshot{
		Score: 42,
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 1, Points: 24},
			{CriterionID: 2, LevelID: 4, Points: 20, CustomPoints: floatPtr(18)},
		},
	}
	next := models.GradeSnapshot{
		Score: 40,
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 1, Points: 24},
			{CriterionID: 2, LevelID: 4, Points: 20, CustomPoints: floatPtr(16)},
		},
	}

	changes := DiffSnapshots(prev, next)
	require.Len(t, changes, 2)

	rubricChange := changeByField(t, changes, "rubricScore.2")
	require.Equal(t, models.ChangeKindNumber, rubricChange.Kind)
	require.Equal(t, 18.0, *rubricChange.OldNumber)
	require.Equal(t, 16.0, *rubricChange.NewNumber)

	scoreChange := changeByField(t, changes, "score")
	require.Equal(t, 42.0, *scoreChange.OldNumber)
	require.Equal(t, 40.0, *scoreChange.NewNumber)
}

func TestDiffSnapshotsAddedAndRemovedCriteria(t *testing.T) {
	prev := models.GradeSnapshot{
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 1, Points: 10},
		},
	}
	next := models.GradeSnapshot{
		RubricScores: []models.RubricScore{
			{CriterionID: 2, LevelID: 5, Points: 7},
		},
	}

	changes := DiffSnapshots(prev, next)

	removed := changeByField(t, changes, "rubricScore.1")
	require.Equal(t, 10.0, *removed.OldNumber)
	require.Nil(t, removed.NewNumber)

	added := changeByField(t, changes, "rubricScore.2")
	require.Nil(t, added.OldNumber)
	require.Equal(t, 7.0, *added.NewNumber)
}

func TestDiffSnapshotsLevelSwapAtEqualPoints(t *testing.T) {
	prev := models.GradeSnapshot{
		Score: 24,
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 2, Points: 24},
		},
	}
	next := models.GradeSnapshot{
		Score: 24,
		RubricScores: []models.RubricScore{
			{CriterionID: 1, LevelID: 3, Points: 24},
		},
	}

	changes := DiffSnapshots(prev, next)
	require.Len(t, changes, 1)

	levelChange := changeByField(t, changes, "rubricScore.1.level")
	require.Equal(t, models.ChangeKindNumber, levelChange.Kind)
	require.Equal(t, 2.0, *levelChange.OldNumber)
	require.Equal(t, 3.0, *levelChange.NewNumber)
}

func TestDiffSnapshotsCommentOnlyChange(t *testing.T) {
	prev := models.GradeSnapshot{
		RubricScores: []models.RubricScore{
			{CriterionID: 3, LevelID: 9, Points: 12, Comments: "close"},
		},
	}
	next := models.GradeSnapshot{
		RubricScores: []models.RubricScore{
			{CriterionID: 3, LevelID: 9, Points: 12, Comments: "very close"},
		},
	}

	changes := DiffSnapshots(prev, next)
	require.Len(t, changes, 1)
	require.Equal(t, models.ChangeKindText, changes[0].Kind)
	require.Equal(t, "close", *changes[0].OldText)
	require.Equal(t, "very close", *changes[0].NewText)
}

func TestDiffSnapshotsTextFields(t *testing.T) {
	prev := models.GradeSnapshot{Feedback: "ok", PrivateNotes: "check later"}
	next := models.GradeSnapshot{Feedback: "better", PrivateNotes: "check later"}

	changes := DiffSnapshots(prev, next)
	require.Len(t, changes, 1)
	require.Equal(t, "feedback", changes[0].Field)
	require.Equal(t, "ok", *changes[0].OldText)
	require.Equal(t, "better", *changes[0].NewText)
}
