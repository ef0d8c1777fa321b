package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
)

// SubmissionRepository reads submissions and flips their graded status. The
// rest of the submission lifecycle belongs to the surrounding portal.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	MarkGraded(ctx context.Context, id uint) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository builds a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Assessment").
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) MarkGraded(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("status", models.SubmissionStatusGraded).Error
}
