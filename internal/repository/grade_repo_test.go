package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
)

func setupGradeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Grade{}, &models.GradeVersion{}))
	return db
}

func createGrade(t *testing.T, repo GradeRepository, submissionID uint) models.Grade {
	t.Helper()

	grade := models.Grade{
		SubmissionID: submissionID,
		GraderID:     7,
		Score:        40,
		Feedback:     "initial pass",
		Version:      1,
		GradedAt:     time.Now(),
	}
	initial := models.GradeVersion{
		Version:  1,
		Action:   models.GradeActionCreated,
		GraderID: 7,
		Score:    40,
		Feedback: "initial pass",
		GradedAt: grade.GradedAt,
	}
	require.NoError(t, repo.Create(context.Background(), &grade, &initial))
	require.NotZero(t, grade.ID)
	require.Equal(t, grade.ID, initial.GradeID)
	return grade
}

func TestGradeRepositoryCreateWritesLedgerEntry(t *testing.T) {
	db := setupGradeTestDB(t)
	repo := NewGradeRepository(db)

	grade := createGrade(t, repo, 101)

	versions, err := repo.Versions(context.Background(), grade.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, 1, versions[0].Version)
	require.Equal(t, models.GradeActionCreated, versions[0].Action)

	loaded, err := repo.GetBySubmission(context.Background(), 101)
	require.NoError(t, err)
	require.Equal(t, grade.ID, loaded.ID)
}

func TestGradeRepositoryAppendVersionGuardsOnVersion(t *testing.T) {
	db := setupGradeTestDB(t)
	repo := NewGradeRepository(db)

	grade := createGrade(t, repo, 102)

	grade.Score = 45
	grade.Feedback = "second pass"
	entry := models.GradeVersion{
		Version:  2,
		Action:   models.GradeActionUpdated,
		GraderID: 7,
		Score:    45,
		Feedback: "second pass",
		GradedAt: time.Now(),
	}
	require.NoError(t, repo.AppendVersion(context.Background(), &grade, 1, &entry))

	loaded, err := repo.GetByID(context.Background(), grade.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Version)
	require.Equal(t, 45.0, loaded.Score)

	// the same expected version cannot be consumed twice
	stale := models.GradeVersion{
		Version:  2,
		Action:   models.GradeActionUpdated,
		GraderID: 8,
		Score:    50,
		GradedAt: time.Now(),
	}
	err = repo.AppendVersion(context.Background(), &grade, 1, &stale)
	require.ErrorIs(t, err, ErrVersionConflict)

	versions, err := repo.Versions(context.Background(), grade.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2, "a rejected append must not leave a ledger entry")
}

func TestGradeRepositoryVersionAt(t *testing.T) {
	db := setupGradeTestDB(t)
	repo := NewGradeRepository(db)

	grade := createGrade(t, repo, 103)

	entry, err := repo.VersionAt(context.Background(), grade.ID, 1)
	require.NoError(t, err)
	require.Equal(t, models.GradeActionCreated, entry.Action)

	_, err = repo.VersionAt(context.Background(), grade.ID, 5)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGradeRepositoryEnforcesOneGradePerSubmission(t *testing.T) {
	db := setupGradeTestDB(t)
	repo := NewGradeRepository(db)

	createGrade(t, repo, 104)

	duplicate := models.Grade{SubmissionID: 104, GraderID: 9, Score: 10, Version: 1, GradedAt: time.Now()}
	initial := models.GradeVersion{Version: 1, Action: models.GradeActionCreated, GraderID: 9, Score: 10, GradedAt: time.Now()}
	require.Error(t, repo.Create(context.Background(), &duplicate, &initial))
}
