package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/php369/urop-grading-api/internal/dto"
	"github.com/php369/urop-grading-api/internal/models"
	"github.com/php369/urop-grading-api/internal/repository"
)

const gradingTracerName = "github.com/php369/urop-grading-api/internal/service/grading"

// GradingService orchestrates submit, update, draft and restore operations
// over the rubric catalog, score calculator, validator and version ledger.
// It is the sole writer of the ledger.
type GradingService interface {
	SubmitGrade(ctx context.Context, submissionID uint, payload dto.GradingDataRequest, actor ActivityActor) (dto.GradeResponse, error)
	UpdateGrade(ctx context.Context, gradeID uint, payload dto.GradeUpdateRequest, actor ActivityActor) (dto.GradeResponse, error)
	SaveDraft(ctx context.Context, submissionID uint, payload dto.GradingDataRequest, actor ActivityActor) (dto.DraftResponse, error)
	RestoreGradeVersion(ctx context.Context, gradeID uint, targetVersion int, actor ActivityActor) (dto.GradeResponse, error)
	GetGradingContext(ctx context.Context, submissionID uint) (dto.GradingContextResponse, error)
	GetHistory(ctx context.Context, gradeID uint) ([]dto.GradeVersionResponse, error)
	GetHistoryEntry(ctx context.Context, gradeID uint, version int) (dto.GradeVersionResponse, error)
	GetDraft(ctx context.Context, submissionID uint) (dto.DraftResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	drafts      repository.DraftRepository
	rubrics     RubricCatalog
	history     GradeHistoryStore
	checker     *GradingValidator
	validator   *validator.Validate
	activity    ActivityRecorder
	events      GradeEventPublisher
	cache       *redis.Client
	cacheTTL    time.Duration
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// GradingServiceDeps bundles the collaborators of the grading service.
type GradingServiceDeps struct {
	Submissions repository.SubmissionRepository
	Grades      repository.GradeRepository
	Drafts      repository.DraftRepository
	Rubrics     RubricCatalog
	History     GradeHistoryStore
	Checker     *GradingValidator
	Validator   *validator.Validate
	Activity    ActivityRecorder
	Events      GradeEventPublisher
	Cache       *redis.Client
	CacheTTL    time.Duration
}

// NewGradingService constructs the grading orchestrator.
func NewGradingService(deps GradingServiceDeps, logger zerolog.Logger) GradingService {
	checker := deps.Checker
	if checker == nil {
		checker = NewGradingValidator()
	}

	return &gradingService{
		submissions: deps.Submissions,
		grades:      deps.Grades,
		drafts:      deps.Drafts,
		rubrics:     deps.Rubrics,
		history:     deps.History,
		checker:     checker,
		validator:   deps.Validator,
		activity:    deps.Activity,
		events:      deps.Events,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		tracer:      otel.Tracer(gradingTracerName),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) SubmitGrade(ctx context.Context, submissionID uint, payload dto.GradingDataRequest, actor ActivityActor) (dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload_invalid")
		return dto.GradeResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.GradeResponse{}, err
	}

	if _, err := s.grades.GetBySubmission(ctx, submissionID); err == nil {
		return dto.GradeResponse{}, ErrGradeConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_lookup_failed")
		return dto.GradeResponse{}, err
	}

	rubric, err := s.rubrics.CriteriaFor(ctx, submission.AssessmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_lookup_failed")
		return dto.GradeResponse{}, err
	}

	snapshot := payload.Snapshot()
	if err := s.prepareSnapshot(&snapshot, submission, rubric); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot_rejected")
		return dto.GradeResponse{}, err
	}

	grade := models.Grade{SubmissionID: submissionID}
	gradedAt := s.now()
	if err := s.history.AppendInitial(ctx, &grade, snapshot, actor.ID, gradedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_create_failed")
		return dto.GradeResponse{}, err
	}

	if err := s.submissions.MarkGraded(ctx, submissionID); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to mark submission graded")
	}

	if err := s.drafts.DeleteBySubmission(ctx, submissionID); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to discard draft after submit")
	}

	s.afterWrite(ctx, grade, models.GradeActionCreated, actor)

	span.SetAttributes(
		attribute.Float64("grading.score", grade.Score),
		attribute.Int("grading.version", grade.Version),
	)

	return dto.NewGradeResponse(grade)
}

func (s *gradingService) UpdateGrade(ctx context.Context, gradeID uint, payload dto.GradeUpdateRequest, actor ActivityActor) (dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update", trace.WithAttributes(
		attribute.Int64("grading.grade_id", int64(gradeID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Int("grading.expected_version", payload.ExpectedVersion),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload_invalid")
		return dto.GradeResponse{}, err
	}

	return s.applyVersion(ctx, gradeID, payload.GradingDataRequest.Snapshot(), models.GradeActionUpdated, payload.ExpectedVersion, actor)
}

func (s *gradingService) RestoreGradeVersion(ctx context.Context, gradeID uint, targetVersion int, actor ActivityActor) (dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.restore", trace.WithAttributes(
		attribute.Int64("grading.grade_id", int64(gradeID)),
		attribute.Int("grading.target_version", targetVersion),
	))
	defer span.End()

	grade, err := s.loadGrade(ctx, gradeID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	entry, err := s.history.EntryAt(ctx, gradeID, targetVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target_version_missing")
		return dto.GradeResponse{}, err
	}

	snapshot, err := entry.Snapshot()
	if err != nil {
		return dto.GradeResponse{}, err
	}

	// Restoring appends a new forward version matching the target; the
	// ledger is never rewound.
	return s.applyVersion(ctx, gradeID, snapshot, models.GradeActionRevised, grade.Version, actor)
}

// applyVersion is the shared re-grade path: derive, validate, append, mutate.
func (s *gradingService) applyVersion(ctx context.Context, gradeID uint, snapshot models.GradeSnapshot, action models.GradeAction, expectedVersion int, actor ActivityActor) (dto.GradeResponse, error) {
	grade, err := s.loadGrade(ctx, gradeID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if grade.Version != expectedVersion {
		return dto.GradeResponse{}, ErrStaleVersion
	}

	submission, err := s.submissions.GetByID(ctx, grade.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrSubmissionNotFound
		}
		return dto.GradeResponse{}, err
	}

	rubric, err := s.rubrics.CriteriaFor(ctx, submission.AssessmentID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.prepareSnapshot(&snapshot, submission, rubric); err != nil {
		return dto.GradeResponse{}, err
	}

	if _, err := s.history.Append(ctx, &grade, snapshot, action, actor.ID, expectedVersion, s.now()); err != nil {
		return dto.GradeResponse{}, err
	}

	s.afterWrite(ctx, grade, action, actor)

	return dto.NewGradeResponse(grade)
}

// prepareSnapshot recomputes the derived score and runs integrity and field
// validation. Every failure happens before any ledger write.
func (s *gradingService) prepareSnapshot(snapshot *models.GradeSnapshot, submission models.Submission, rubric []models.RubricCriterion) error {
	if err := s.checker.CheckRubricIntegrity(snapshot.RubricScores, rubric); err != nil {
		return err
	}

	DeriveScore(snapshot, rubric)

	if fields := s.checker.Validate(*snapshot, submission.MaxScore(), rubric); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

func (s *gradingService) SaveDraft(ctx context.Context, submissionID uint, payload dto.GradingDataRequest, actor ActivityActor) (dto.DraftResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DraftResponse{}, ErrSubmissionNotFound
		}
		return dto.DraftResponse{}, err
	}

	rubric, err := s.rubrics.CriteriaFor(ctx, submission.AssessmentID)
	if err != nil {
		return dto.DraftResponse{}, err
	}

	// Drafts accept incomplete payloads; validation findings are advisory.
	snapshot := payload.Snapshot()
	advisories := s.checker.Validate(snapshot, submission.MaxScore(), rubric)

	draft := models.GradeDraft{
		SubmissionID: submissionID,
		GraderID:     actor.ID,
		UpdatedAt:    s.now(),
	}
	if err := draft.SetPayload(snapshot); err != nil {
		return dto.DraftResponse{}, err
	}

	if err := s.drafts.Upsert(ctx, &draft); err != nil {
		return dto.DraftResponse{}, err
	}

	return dto.NewDraftResponse(draft, advisories)
}

func (s *gradingService) GetDraft(ctx context.Context, submissionID uint) (dto.DraftResponse, error) {
	draft, err := s.drafts.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DraftResponse{}, ErrDraftNotFound
		}
		return dto.DraftResponse{}, err
	}

	return dto.NewDraftResponse(draft, nil)
}

func (s *gradingService) GetGradingContext(ctx context.Context, submissionID uint) (dto.GradingContextResponse, error) {
	cacheKey := gradingContextCacheKey(submissionID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.GradingContextResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("submission_id", submissionID).Msg("grading context cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read grading context cache")
		}
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingContextResponse{}, ErrSubmissionNotFound
		}
		return dto.GradingContextResponse{}, err
	}

	rubric, err := s.rubrics.CriteriaFor(ctx, submission.AssessmentID)
	if err != nil {
		return dto.GradingContextResponse{}, err
	}

	response := dto.GradingContextResponse{
		Submission: dto.NewSubmissionLite(submission),
		Rubric:     dto.NewRubricResponse(rubric),
		History:    []dto.GradeVersionResponse{},
		MaxTotal:   MaxTotalPoints(rubric),
	}

	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	switch {
	case err == nil:
		gradeResponse, convertErr := dto.NewGradeResponse(grade)
		if convertErr != nil {
			return dto.GradingContextResponse{}, convertErr
		}
		response.Grade = &gradeResponse

		history, historyErr := s.GetHistory(ctx, grade.ID)
		if historyErr != nil {
			return dto.GradingContextResponse{}, historyErr
		}
		response.History = history
	case errors.Is(err, gorm.ErrRecordNotFound):
		// ungraded submission, context still renders
	default:
		return dto.GradingContextResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store grading context cache")
			}
		}
	}

	return response, nil
}

func (s *gradingService) GetHistory(ctx context.Context, gradeID uint) ([]dto.GradeVersionResponse, error) {
	if _, err := s.loadGrade(ctx, gradeID); err != nil {
		return nil, err
	}

	entries, err := s.history.History(ctx, gradeID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GradeVersionResponse, 0, len(entries))
	for _, entry := range entries {
		response, err := dto.NewGradeVersionResponse(entry)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *gradingService) GetHistoryEntry(ctx context.Context, gradeID uint, version int) (dto.GradeVersionResponse, error) {
	if _, err := s.loadGrade(ctx, gradeID); err != nil {
		return dto.GradeVersionResponse{}, err
	}

	entry, err := s.history.EntryAt(ctx, gradeID, version)
	if err != nil {
		return dto.GradeVersionResponse{}, err
	}

	return dto.NewGradeVersionResponse(entry)
}

func (s *gradingService) loadGrade(ctx context.Context, gradeID uint) (models.Grade, error) {
	grade, err := s.grades.GetByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, ErrGradeNotFound
		}
		return models.Grade{}, err
	}
	return grade, nil
}

// afterWrite performs the non-fatal side effects of a successful ledger
// write: cache invalidation, audit trail, event fan-out.
func (s *gradingService) afterWrite(ctx context.Context, grade models.Grade, action models.GradeAction, actor ActivityActor) {
	if s.cache != nil {
		if err := s.cache.Del(ctx, gradingContextCacheKey(grade.SubmissionID)).Err(); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", grade.SubmissionID).Msg("failed to invalidate grading context cache")
		}
	}

	if s.activity != nil {
		gradeID := grade.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     fmt.Sprintf("grade.%s", action),
			EntityType: "grade",
			EntityID:   &gradeID,
			Metadata: map[string]interface{}{
				"submission_id": grade.SubmissionID,
				"score":         grade.Score,
				"version":       grade.Version,
			},
		})
	}

	if s.events != nil {
		event := GradeEvent{
			SubmissionID: grade.SubmissionID,
			GradeID:      grade.ID,
			Version:      grade.Version,
			Action:       action,
			Score:        grade.Score,
			GraderID:     grade.GraderID,
			OccurredAt:   s.now(),
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("grade_id", grade.ID).Msg("failed to publish grade event")
		}
	}
}

func gradingContextCacheKey(submissionID uint) string {
	return fmt.Sprintf("grading:context:%d", submissionID)
}
