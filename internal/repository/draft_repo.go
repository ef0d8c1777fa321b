package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/php369/urop-grading-api/internal/models"
)

// DraftRepository persists unversioned grading drafts, last write wins.
type DraftRepository interface {
	Upsert(ctx context.Context, draft *models.GradeDraft) error
	GetBySubmission(ctx context.Context, submissionID uint) (models.GradeDraft, error)
	DeleteBySubmission(ctx context.Context, submissionID uint) error
}

type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository builds a draft repository.
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Upsert(ctx context.Context, draft *models.GradeDraft) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"grader_id", "payload", "updated_at"}),
		}).
		Create(draft).Error
}

func (r *draftRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.GradeDraft, error) {
	var draft models.GradeDraft
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&draft).Error; err != nil {
		return models.GradeDraft{}, err
	}
	return draft, nil
}

func (r *draftRepository) DeleteBySubmission(ctx context.Context, submissionID uint) error {
	return r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&models.GradeDraft{}).Error
}
