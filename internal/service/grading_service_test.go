package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/php369/urop-grading-api/internal/dto"
	"github.com/php369/urop-grading-api/internal/models"
)

type gradingFixture struct {
	service     GradingService
	submissions *fakeSubmissionRepo
	grades      *fakeGradeRepo
	drafts      *fakeDraftRepo
	events      *fakeEventPublisher
}

func newGradingFixture(rubric []models.RubricCriterion) *gradingFixture {
	submissions := &fakeSubmissionRepo{submissions: map[uint]models.Submission{
		1: {
			ID:           1,
			AssessmentID: 10,
			StudentID:    5,
			Status:       models.SubmissionStatusSubmitted,
			Assessment:   models.Assessment{ID: 10, Title: "Research Proposal", MaxScore: 100},
		},
	}}
	grades := newFakeGradeRepo()
	drafts := newFakeDraftRepo()
	events := &fakeEventPublisher{}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(GradingServiceDeps{
		Submissions: submissions,
		Grades:      grades,
		Drafts:      drafts,
		Rubrics:     &fakeRubricCatalog{criteria: map[uint][]models.RubricCriterion{10: rubric}},
		History:     NewGradeHistoryStore(grades, testLogger()),
		Validator:   validate,
		Events:      events,
	}, testLogger())

	return &gradingFixture{
		service:     svc,
		submissions: submissions,
		grades:      grades,
		drafts:      drafts,
		events:      events,
	}
}

func rubricPayload(customB *float64) dto.GradingDataRequest {
	return dto.GradingDataRequest{
		Score:    0, // derived from rubric selections
		Feedback: "<p>Strong proposal with minor gaps.</p>",
		RubricScores: []dto.RubricScoreInput{
			{CriterionID: 1, LevelID: 2, Points: 24},
			{CriterionID: 2, LevelID: 4, Points: 20, CustomPoints: customB},
		},
		PrivateNotes: "verify citations before release",
	}
}

func actor() ActivityActor {
	return ActivityActor{ID: 7, Role: "faculty"}
}

func TestSubmitGradeDerivesScoreAndCreatesVersionOne(t *testing.T) {
	fx := newGradingFixture(testRubric())

	grade, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)
	require.Equal(t, 42.0, grade.Score)
	require.Equal(t, 1, grade.Version)
	require.Equal(t, uint(7), grade.GraderID)

	history, err := fx.service.GetHistory(context.Background(), grade.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.GradeActionCreated, history[0].Action)
	require.Empty(t, history[0].Changes)

	require.Equal(t, []uint{1}, fx.submissions.graded)
	require.Len(t, fx.events.events, 1)
	require.Equal(t, models.GradeActionCreated, fx.events.events[0].Action)
}

func TestSubmitGradeRoundTripThroughGradingContext(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	ctx, err := fx.service.GetGradingContext(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, ctx.Grade)
	require.Equal(t, submitted.Score, ctx.Grade.Score)
	require.Equal(t, submitted.Feedback, ctx.Grade.Feedback)
	require.Equal(t, submitted.Version, ctx.Grade.Version)
	require.Len(t, ctx.History, 1)
	require.Equal(t, 50.0, ctx.MaxTotal)
	require.Len(t, ctx.Rubric, 2)
}

func TestSubmitGradeCollectsAllViolations(t *testing.T) {
	fx := newGradingFixture(nil)

	payload := dto.GradingDataRequest{Score: 105, Feedback: ""}
	_, err := fx.service.SubmitGrade(context.Background(), 1, payload, actor())

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "score")
	require.Contains(t, validationErr.Fields, "feedback")
	require.Empty(t, fx.grades.grades, "no grade may exist after a rejected submit")
}

func TestSubmitGradeConflictsWhenGradeExists(t *testing.T) {
	fx := newGradingFixture(testRubric())

	_, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	_, err = fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.ErrorIs(t, err, ErrGradeConflict)
}

func TestSubmitGradeUnknownSubmission(t *testing.T) {
	fx := newGradingFixture(nil)

	_, err := fx.service.SubmitGrade(context.Background(), 99, dto.GradingDataRequest{Score: 10, Feedback: "x"}, actor())
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmitGradeRejectsForeignCriterion(t *testing.T) {
	fx := newGradingFixture(testRubric())

	payload := rubricPayload(nil)
	payload.RubricScores = append(payload.RubricScores, dto.RubricScoreInput{CriterionID: 42, LevelID: 1, Points: 3})

	_, err := fx.service.SubmitGrade(context.Background(), 1, payload, actor())
	require.ErrorIs(t, err, ErrRubricIntegrity)
}

func TestUpdateGradeAppendsVersionWithDiff(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)
	require.Equal(t, 42.0, submitted.Score)

	updated, err := fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
		GradingDataRequest: rubricPayload(floatPtr(16)),
		ExpectedVersion:    1,
	}, actor())
	require.NoError(t, err)
	require.Equal(t, 40.0, updated.Score)
	require.Equal(t, 2, updated.Version)

	entry, err := fx.service.GetHistoryEntry(context.Background(), submitted.ID, 2)
	require.NoError(t, err)
	require.Equal(t, models.GradeActionUpdated, entry.Action)
	require.Len(t, entry.Changes, 2)

	fields := map[string]dto.FieldChangeResponse{}
	for _, change := range entry.Changes {
		fields[change.Field] = change
	}
	require.Equal(t, 18.0, fields["rubricScore.2"].OldValue)
	require.Equal(t, 16.0, fields["rubricScore.2"].NewValue)
	require.Equal(t, 42.0, fields["score"].OldValue)
	require.Equal(t, 40.0, fields["score"].NewValue)
}

func TestUpdateGradeStaleVersion(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	first, err := fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
		GradingDataRequest: rubricPayload(floatPtr(16)),
		ExpectedVersion:    1,
	}, actor())
	require.NoError(t, err)
	require.Equal(t, 2, first.Version)

	// a second caller raced on the same observed version and must lose
	_, err = fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
		GradingDataRequest: rubricPayload(floatPtr(14)),
		ExpectedVersion:    1,
	}, actor())
	require.ErrorIs(t, err, ErrStaleVersion)
}

func TestUpdateGradeRejectsNoOp(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	_, err = fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
		GradingDataRequest: rubricPayload(floatPtr(18)),
		ExpectedVersion:    1,
	}, actor())
	require.ErrorIs(t, err, ErrNoOpUpdate)

	history, err := fx.service.GetHistory(context.Background(), submitted.ID)
	require.NoError(t, err)
	require.Len(t, history, 1, "no-op must not append a ledger entry")
}

func TestVersionMonotonicity(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	overrides := []float64{16, 14, 12}
	version := submitted.Version
	for _, override := range overrides {
		updated, err := fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
			GradingDataRequest: rubricPayload(floatPtr(override)),
			ExpectedVersion:    version,
		}, actor())
		require.NoError(t, err)
		require.Equal(t, version+1, updated.Version)
		version = updated.Version
	}

	history, err := fx.service.GetHistory(context.Background(), submitted.ID)
	require.NoError(t, err)
	require.Len(t, history, len(overrides)+1)
	for i, entry := range history {
		require.Equal(t, i+1, entry.Version)
	}
}

func TestRestoreGradeVersionAppendsRevisedCopy(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	for _, override := range []float64{16, 14} {
		_, err := fx.service.UpdateGrade(context.Background(), submitted.ID, dto.GradeUpdateRequest{
			GradingDataRequest: rubricPayload(floatPtr(override)),
			ExpectedVersion:    fx.grades.grades[submitted.ID].Version,
		}, actor())
		require.NoError(t, err)
	}

	restored, err := fx.service.RestoreGradeVersion(context.Background(), submitted.ID, 1, actor())
	require.NoError(t, err)
	require.Equal(t, 4, restored.Version)
	require.Equal(t, 42.0, restored.Score)

	entry, err := fx.service.GetHistoryEntry(context.Background(), submitted.ID, 4)
	require.NoError(t, err)
	require.Equal(t, models.GradeActionRevised, entry.Action)
	require.Equal(t, submitted.Feedback, entry.Feedback)
	require.Equal(t, submitted.PrivateNotes, entry.PrivateNotes)
	require.NotEmpty(t, entry.Changes, "restore diffs against the immediately preceding version")

	history, err := fx.service.GetHistory(context.Background(), submitted.ID)
	require.NoError(t, err)
	require.Len(t, history, 4, "restore never rewrites earlier entries")
}

func TestRestoreGradeVersionUnknownTarget(t *testing.T) {
	fx := newGradingFixture(testRubric())

	submitted, err := fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	_, err = fx.service.RestoreGradeVersion(context.Background(), submitted.ID, 9, actor())
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestSaveDraftIsAdvisoryAndOverwrites(t *testing.T) {
	fx := newGradingFixture(testRubric())

	incomplete := dto.GradingDataRequest{Score: 0, Feedback: ""}
	draft, err := fx.service.SaveDraft(context.Background(), 1, incomplete, actor())
	require.NoError(t, err, "incomplete drafts are accepted")
	require.Contains(t, draft.Advisories, "feedback")

	second := dto.GradingDataRequest{Score: 12, Feedback: "half done", PrivateNotes: "resume at criterion 2"}
	draft, err = fx.service.SaveDraft(context.Background(), 1, second, actor())
	require.NoError(t, err)

	stored, err := fx.service.GetDraft(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 12.0, stored.Payload.Score)
	require.Equal(t, "half done", stored.Payload.Feedback)
	require.Len(t, fx.drafts.drafts, 1, "drafts are last write wins")
}

func TestSubmitGradeDiscardsDraft(t *testing.T) {
	fx := newGradingFixture(testRubric())

	_, err := fx.service.SaveDraft(context.Background(), 1, dto.GradingDataRequest{Score: 5, Feedback: "wip"}, actor())
	require.NoError(t, err)

	_, err = fx.service.SubmitGrade(context.Background(), 1, rubricPayload(floatPtr(18)), actor())
	require.NoError(t, err)

	_, err = fx.service.GetDraft(context.Background(), 1)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestGetGradingContextForUngradedSubmission(t *testing.T) {
	fx := newGradingFixture(testRubric())

	ctx, err := fx.service.GetGradingContext(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, ctx.Grade)
	require.Empty(t, ctx.History)
	require.Equal(t, models.SubmissionStatusSubmitted, ctx.Submission.Status)
}
