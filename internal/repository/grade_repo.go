package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
)

// ErrVersionConflict indicates a guarded grade update matched zero rows
// because the expected version no longer held.
var ErrVersionConflict = errors.New("grade version conflict")

// GradeRepository persists grades and their append-only version ledger.
type GradeRepository interface {
	GetByID(ctx context.Context, id uint) (models.Grade, error)
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error)
	Create(ctx context.Context, grade *models.Grade, initial *models.GradeVersion) error
	AppendVersion(ctx context.Context, grade *models.Grade, expectedVersion int, entry *models.GradeVersion) error
	Versions(ctx context.Context, gradeID uint) ([]models.GradeVersion, error)
	VersionAt(ctx context.Context, gradeID uint, version int) (models.GradeVersion, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository builds a grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) GetByID(ctx context.Context, id uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).First(&grade, id).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

func (r *gradeRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

// Create inserts the grade and its version-1 ledger entry in one transaction.
func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade, initial *models.GradeVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grade).Error; err != nil {
			return err
		}

		initial.GradeID = grade.ID
		return tx.Create(initial).Error
	})
}

// AppendVersion applies the new snapshot to the grade with a version guard
// and inserts the ledger entry, as one atomic unit. Version allocation and
// the snapshot write cannot interleave with a concurrent append.
func (r *gradeRepository) AppendVersion(ctx context.Context, grade *models.Grade, expectedVersion int, entry *models.GradeVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Grade{}).
			Where("id = ? AND version = ?", grade.ID, expectedVersion).
			Updates(map[string]interface{}{
				"score":         grade.Score,
				"feedback":      grade.Feedback,
				"rubric_scores": grade.RubricScores,
				"private_notes": grade.PrivateNotes,
				"grader_id":     grade.GraderID,
				"version":       entry.Version,
				"updated_at":    grade.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		entry.GradeID = grade.ID
		return tx.Create(entry).Error
	})
}

func (r *gradeRepository) Versions(ctx context.Context, gradeID uint) ([]models.GradeVersion, error) {
	var versions []models.GradeVersion
	if err := r.db.WithContext(ctx).
		Where("grade_id = ?", gradeID).
		Order("version ASC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *gradeRepository) VersionAt(ctx context.Context, gradeID uint, version int) (models.GradeVersion, error) {
	var entry models.GradeVersion
	if err := r.db.WithContext(ctx).
		Where("grade_id = ? AND version = ?", gradeID, version).
		First(&entry).Error; err != nil {
		return models.GradeVersion{}, err
	}
	return entry, nil
}
