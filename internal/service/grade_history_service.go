package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
	"github.com/php369/urop-grading-api/internal/repository"
)

// GradeHistoryStore is the append-only ledger of grade versions. Entries are
// never mutated or deleted; each one records the full snapshot plus the diff
// against its predecessor.
type GradeHistoryStore interface {
	// AppendInitial writes the grade and its version-1 "created" entry, whose
	// changes list is empty by definition.
	AppendInitial(ctx context.Context, grade *models.Grade, snapshot models.GradeSnapshot, graderID uint, gradedAt time.Time) error
	// Append diffs the candidate snapshot against the grade's current state,
	// allocates the next version atomically with the snapshot write, and
	// returns ErrNoOpUpdate when the diff is empty and ErrStaleVersion when
	// the expected version no longer holds.
	Append(ctx context.Context, grade *models.Grade, snapshot models.GradeSnapshot, action models.GradeAction, graderID uint, expectedVersion int, gradedAt time.Time) (models.GradeVersion, error)
	History(ctx context.Context, gradeID uint) ([]models.GradeVersion, error)
	EntryAt(ctx context.Context, gradeID uint, version int) (models.GradeVersion, error)
}

type gradeHistoryStore struct {
	grades repository.GradeRepository
	logger zerolog.Logger
}

// NewGradeHistoryStore builds the ledger on top of the grade repository.
func NewGradeHistoryStore(grades repository.GradeRepository, logger zerolog.Logger) GradeHistoryStore {
	return &gradeHistoryStore{
		grades: grades,
		logger: logger.With().Str("component", "grade_history_store").Logger(),
	}
}

func (s *gradeHistoryStore) AppendInitial(ctx context.Context, grade *models.Grade, snapshot models.GradeSnapshot, graderID uint, gradedAt time.Time) error {
	if err := grade.ApplySnapshot(snapshot); err != nil {
		return err
	}
	grade.GraderID = graderID
	grade.Version = 1
	grade.GradedAt = gradedAt

	entry, err := buildVersionEntry(snapshot, models.GradeActionCreated, 1, graderID, gradedAt, nil)
	if err != nil {
		return err
	}

	return s.grades.Create(ctx, grade, &entry)
}

func (s *gradeHistoryStore) Append(ctx context.Context, grade *models.Grade, snapshot models.GradeSnapshot, action models.GradeAction, graderID uint, expectedVersion int, gradedAt time.Time) (models.GradeVersion, error) {
	current, err := grade.Snapshot()
	if err != nil {
		return models.GradeVersion{}, err
	}

	changes := DiffSnapshots(current, snapshot)
	if len(changes) == 0 {
		return models.GradeVersion{}, ErrNoOpUpdate
	}

	entry, err := buildVersionEntry(snapshot, action, expectedVersion+1, graderID, gradedAt, changes)
	if err != nil {
		return models.GradeVersion{}, err
	}

	if err := grade.ApplySnapshot(snapshot); err != nil {
		return models.GradeVersion{}, err
	}
	grade.GraderID = graderID
	grade.UpdatedAt = gradedAt

	if err := s.grades.AppendVersion(ctx, grade, expectedVersion, &entry); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return models.GradeVersion{}, ErrStaleVersion
		}
		return models.GradeVersion{}, err
	}

	grade.Version = entry.Version
	s.logger.Debug().
		Uint("grade_id", grade.ID).
		Int("version", entry.Version).
		Str("action", string(action)).
		Int("changes", len(changes)).
		Msg("grade version appended")

	return entry, nil
}

func (s *gradeHistoryStore) History(ctx context.Context, gradeID uint) ([]models.GradeVersion, error) {
	return s.grades.Versions(ctx, gradeID)
}

func (s *gradeHistoryStore) EntryAt(ctx context.Context, gradeID uint, version int) (models.GradeVersion, error) {
	entry, err := s.grades.VersionAt(ctx, gradeID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradeVersion{}, ErrVersionNotFound
		}
		return models.GradeVersion{}, err
	}
	return entry, nil
}

func buildVersionEntry(snapshot models.GradeSnapshot, action models.GradeAction, version int, graderID uint, gradedAt time.Time, changes []models.FieldChange) (models.GradeVersion, error) {
	encodedScores, err := models.EncodeRubricScores(snapshot.RubricScores)
	if err != nil {
		return models.GradeVersion{}, err
	}

	encodedChanges, err := models.EncodeFieldChanges(changes)
	if err != nil {
		return models.GradeVersion{}, err
	}

	return models.GradeVersion{
		Version:      version,
		Action:       action,
		GraderID:     graderID,
		Score:        snapshot.Score,
		Feedback:     snapshot.Feedback,
		RubricScores: encodedScores,
		PrivateNotes: snapshot.PrivateNotes,
		Changes:      encodedChanges,
		GradedAt:     gradedAt,
	}, nil
}
