package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
)

// RubricRepository provides persistence for rubric definitions.
type RubricRepository interface {
	CriteriaFor(ctx context.Context, assessmentID uint) ([]models.RubricCriterion, error)
	ReplaceForAssessment(ctx context.Context, assessmentID uint, criteria []models.RubricCriterion) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository builds a rubric repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) CriteriaFor(ctx context.Context, assessmentID uint) ([]models.RubricCriterion, error) {
	var criteria []models.RubricCriterion
	if err := r.db.WithContext(ctx).
		Preload("Levels", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Where("assessment_id = ?", assessmentID).
		Order("position ASC").
		Find(&criteria).Error; err != nil {
		return nil, err
	}

	return criteria, nil
}

func (r *rubricRepository) ReplaceForAssessment(ctx context.Context, assessmentID uint, criteria []models.RubricCriterion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.RubricCriterion
		if err := tx.Where("assessment_id = ?", assessmentID).Find(&existing).Error; err != nil {
			return err
		}

		for _, criterion := range existing {
			if err := tx.Where("criterion_id = ?", criterion.ID).Delete(&models.RubricLevel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("assessment_id = ?", assessmentID).Delete(&models.RubricCriterion{}).Error; err != nil {
			return err
		}

		for i := range criteria {
			criteria[i].AssessmentID = assessmentID
			if err := tx.Create(&criteria[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
