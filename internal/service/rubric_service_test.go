package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/php369/urop-grading-api/internal/models"
)

type fakeRubricRepo struct {
	criteria map[uint][]models.RubricCriterion
}

func newFakeRubricRepo() *fakeRubricRepo {
	return &fakeRubricRepo{criteria: map[uint][]models.RubricCriterion{}}
}

func (f *fakeRubricRepo) CriteriaFor(_ context.Context, assessmentID uint) ([]models.RubricCriterion, error) {
	return f.criteria[assessmentID], nil
}

func (f *fakeRubricRepo) ReplaceForAssessment(_ context.Context, assessmentID uint, criteria []models.RubricCriterion) error {
	stored := make([]models.RubricCriterion, len(criteria))
	copy(stored, criteria)
	for i := range stored {
		stored[i].ID = uint(i + 1)
		stored[i].AssessmentID = assessmentID
	}
	f.criteria[assessmentID] = stored
	return nil
}

const validRubricDocument = `{
  "assessment_id": 10,
  "criteria": [
    {
      "name": "Methodology",
      "description": "Soundness of the research design",
      "max_points": 30,
      "levels": [
        {"name": "Excellent", "points": 30},
        {"name": "Adequate", "points": 24}
      ]
    },
    {
      "name": "Writing",
      "max_points": 20,
      "levels": [
        {"name": "Clear", "points": 20},
        {"name": "Rough", "points": 12}
      ]
    }
  ]
}`

func newRubricFixture(t *testing.T) (RubricService, *fakeRubricRepo) {
	t.Helper()
	repo := newFakeRubricRepo()
	svc, err := NewRubricService(repo, nil, testLogger())
	require.NoError(t, err)
	return svc, repo
}

func TestRubricImportPersistsCriteriaInOrder(t *testing.T) {
	svc, repo := newRubricFixture(t)

	imported, err := svc.Import(context.Background(), []byte(validRubricDocument), ActivityActor{ID: 1, Role: "admin"})
	require.NoError(t, err)
	require.Len(t, imported, 2)
	require.Equal(t, "Methodology", imported[0].Name)
	require.Equal(t, 1, imported[0].Position)
	require.Equal(t, "Writing", imported[1].Name)
	require.Equal(t, 2, imported[1].Position)
	require.Len(t, imported[0].Levels, 2)

	stored, err := svc.CriteriaFor(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, 30.0, stored[0].MaxPoints)
	require.NotEmpty(t, repo.criteria[10])
}

func TestRubricImportReplacesExistingDefinition(t *testing.T) {
	svc, repo := newRubricFixture(t)

	repo.criteria[10] = []models.RubricCriterion{{ID: 9, AssessmentID: 10, Name: "Old", MaxPoints: 5}}

	_, err := svc.Import(context.Background(), []byte(validRubricDocument), ActivityActor{ID: 1, Role: "admin"})
	require.NoError(t, err)

	stored, err := svc.CriteriaFor(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NotEqual(t, "Old", stored[0].Name)
}

func TestRubricImportRejectsMalformedDocuments(t *testing.T) {
	svc, repo := newRubricFixture(t)

	cases := map[string]string{
		"not json":            `{"assessment_id": 10,`,
		"missing criteria":    `{"assessment_id": 10}`,
		"empty criteria":      `{"assessment_id": 10, "criteria": []}`,
		"zero max points":     `{"assessment_id": 10, "criteria": [{"name": "A", "max_points": 0, "levels": [{"name": "L", "points": 0}]}]}`,
		"level without name":  `{"assessment_id": 10, "criteria": [{"name": "A", "max_points": 10, "levels": [{"points": 5}]}]}`,
		"no assessment":       `{"criteria": [{"name": "A", "max_points": 10, "levels": [{"name": "L", "points": 5}]}]}`,
		"level beyond ceiling": `{"assessment_id": 10, "criteria": [{"name": "A", "max_points": 10, "levels": [{"name": "L", "points": 15}]}]}`,
	}

	for name, document := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), []byte(document), ActivityActor{ID: 1, Role: "admin"})
			require.ErrorIs(t, err, ErrRubricDefinitionInvalid)
		})
	}

	require.Empty(t, repo.criteria, "rejected documents must not write rows")
}
