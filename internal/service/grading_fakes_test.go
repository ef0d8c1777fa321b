package service

import (
	"context"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/models"
	"github.com/php369/urop-grading-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeSubmissionRepo struct {
	submissions map[uint]models.Submission
	graded      []uint
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) MarkGraded(_ context.Context, id uint) error {
	submission, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Status = models.SubmissionStatusGraded
	f.submissions[id] = submission
	f.graded = append(f.graded, id)
	return nil
}

type fakeGradeRepo struct {
	grades   map[uint]models.Grade
	versions map[uint][]models.GradeVersion
	nextID   uint
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{
		grades:   map[uint]models.Grade{},
		versions: map[uint][]models.GradeVersion{},
		nextID:   1,
	}
}

func (f *fakeGradeRepo) GetByID(_ context.Context, id uint) (models.Grade, error) {
	grade, ok := f.grades[id]
	if !ok {
		return models.Grade{}, gorm.ErrRecordNotFound
	}
	return grade, nil
}

func (f *fakeGradeRepo) GetBySubmission(_ context.Context, submissionID uint) (models.Grade, error) {
	for _, grade := range f.grades {
		if grade.SubmissionID == submissionID {
			return grade, nil
		}
	}
	return models.Grade{}, gorm.ErrRecordNotFound
}

func (f *fakeGradeRepo) Create(_ context.Context, grade *models.Grade, initial *models.GradeVersion) error {
	grade.ID = f.nextID
	f.nextID++
	initial.GradeID = grade.ID
	f.grades[grade.ID] = *grade
	f.versions[grade.ID] = append(f.versions[grade.ID], *initial)
	return nil
}

func (f *fakeGradeRepo) AppendVersion(_ context.Context, grade *models.Grade, expectedVersion int, entry *models.GradeVersion) error {
	stored, ok := f.grades[grade.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	updated := *grade
	updated.Version = entry.Version
	f.grades[grade.ID] = updated

	entry.GradeID = grade.ID
	f.versions[grade.ID] = append(f.versions[grade.ID], *entry)
	return nil
}

func (f *fakeGradeRepo) Versions(_ context.Context, gradeID uint) ([]models.GradeVersion, error) {
	entries := append([]models.GradeVersion(nil), f.versions[gradeID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

func (f *fakeGradeRepo) VersionAt(_ context.Context, gradeID uint, version int) (models.GradeVersion, error) {
	for _, entry := range f.versions[gradeID] {
		if entry.Version == version {
			return entry, nil
		}
	}
	return models.GradeVersion{}, gorm.ErrRecordNotFound
}

type fakeDraftRepo struct {
	drafts map[uint]models.GradeDraft
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: map[uint]models.GradeDraft{}}
}

func (f *fakeDraftRepo) Upsert(_ context.Context, draft *models.GradeDraft) error {
	f.drafts[draft.SubmissionID] = *draft
	return nil
}

func (f *fakeDraftRepo) GetBySubmission(_ context.Context, submissionID uint) (models.GradeDraft, error) {
	draft, ok := f.drafts[submissionID]
	if !ok {
		return models.GradeDraft{}, gorm.ErrRecordNotFound
	}
	return draft, nil
}

func (f *fakeDraftRepo) DeleteBySubmission(_ context.Context, submissionID uint) error {
	delete(f.drafts, submissionID)
	return nil
}

type fakeRubricCatalog struct {
	criteria map[uint][]models.RubricCriterion
}

func (f *fakeRubricCatalog) CriteriaFor(_ context.Context, assessmentID uint) ([]models.RubricCriterion, error) {
	return f.criteria[assessmentID], nil
}

type fakeEventPublisher struct {
	events []GradeEvent
}

func (f *fakeEventPublisher) Publish(_ context.Context, event GradeEvent) error {
	f.events = append(f.events, event)
	return nil
}
