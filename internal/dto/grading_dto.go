package dto

import (
	"time"

	"github.com/php369/urop-grading-api/internal/models"
)

// RubricScoreInput is one criterion selection inside a grading payload.
type RubricScoreInput struct {
	CriterionID  uint     `json:"criterion_id" validate:"required,gt=0"`
	LevelID      uint     `json:"level_id" validate:"required,gt=0"`
	Points       float64  `json:"points" validate:"gte=0"`
	CustomPoints *float64 `json:"custom_points" validate:"omitempty,gte=0"`
	Comments     string   `json:"comments"`
}

// GradingDataRequest is the grading payload for submit, update and draft
// endpoints. Score is authoritative only for rubric-less grading; with rubric
// selections present the service recomputes it.
type GradingDataRequest struct {
	Score        float64            `json:"score" validate:"gte=0"`
	Feedback     string             `json:"feedback"`
	RubricScores []RubricScoreInput `json:"rubric_scores" validate:"omitempty,dive"`
	PrivateNotes string             `json:"private_notes"`
}

// GradeUpdateRequest wraps a grading payload with the optimistic concurrency
// guard for re-grades.
type GradeUpdateRequest struct {
	GradingDataRequest
	ExpectedVersion int `json:"expected_version" validate:"required,gte=1"`
}

// Snapshot converts the request into the engine's snapshot value.
func (r GradingDataRequest) Snapshot() models.GradeSnapshot {
	scores := make([]models.RubricScore, 0, len(r.RubricScores))
	for _, input := range r.RubricScores {
		scores = append(scores, models.RubricScore{
			CriterionID:  input.CriterionID,
			LevelID:      input.LevelID,
			Points:       input.Points,
			CustomPoints: input.CustomPoints,
			Comments:     input.Comments,
		})
	}

	return models.GradeSnapshot{
		Score:        r.Score,
		Feedback:     r.Feedback,
		RubricScores: scores,
		PrivateNotes: r.PrivateNotes,
	}
}

// RubricScoreResponse serializes one stored criterion selection.
type RubricScoreResponse struct {
	CriterionID     uint     `json:"criterion_id"`
	LevelID         uint     `json:"level_id"`
	Points          float64  `json:"points"`
	CustomPoints    *float64 `json:"custom_points,omitempty"`
	EffectivePoints float64  `json:"effective_points"`
	Comments        string   `json:"comments,omitempty"`
}

// GradeResponse is returned to graders when viewing or mutating a grade.
// Private notes stay on this faculty-facing surface only.
type GradeResponse struct {
	ID           uint                  `json:"id"`
	SubmissionID uint                  `json:"submission_id"`
	GraderID     uint                  `json:"grader_id"`
	Score        float64               `json:"score"`
	Feedback     string                `json:"feedback"`
	RubricScores []RubricScoreResponse `json:"rubric_scores"`
	PrivateNotes string                `json:"private_notes"`
	Version      int                   `json:"version"`
	GradedAt     time.Time             `json:"graded_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// FieldChangeResponse serializes one before/after pair from a version diff.
type FieldChangeResponse struct {
	Field    string            `json:"field"`
	Kind     models.ChangeKind `json:"kind"`
	OldValue interface{}       `json:"old_value"`
	NewValue interface{}       `json:"new_value"`
}

// GradeVersionResponse serializes one ledger entry.
type GradeVersionResponse struct {
	Version      int                   `json:"version"`
	Action       models.GradeAction    `json:"action"`
	GraderID     uint                  `json:"grader_id"`
	Score        float64               `json:"score"`
	Feedback     string                `json:"feedback"`
	RubricScores []RubricScoreResponse `json:"rubric_scores"`
	PrivateNotes string                `json:"private_notes"`
	Changes      []FieldChangeResponse `json:"changes"`
	GradedAt     time.Time             `json:"graded_at"`
}

// DraftResponse serializes a stored grading draft together with advisory
// validation findings.
type DraftResponse struct {
	SubmissionID uint              `json:"submission_id"`
	GraderID     uint              `json:"grader_id"`
	Payload      GradingDataView   `json:"payload"`
	Advisories   map[string]string `json:"advisories,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// GradingDataView mirrors GradingDataRequest for read-back.
type GradingDataView struct {
	Score        float64               `json:"score"`
	Feedback     string                `json:"feedback"`
	RubricScores []RubricScoreResponse `json:"rubric_scores"`
	PrivateNotes string                `json:"private_notes"`
}

// SubmissionLite summarizes a submission for the grading view.
type SubmissionLite struct {
	ID           uint      `json:"id"`
	AssessmentID uint      `json:"assessment_id"`
	StudentID    uint      `json:"student_id"`
	Status       string    `json:"status"`
	MaxScore     float64   `json:"max_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// GradingContextResponse is the read-only composite used to render a grading
// view: submission, rubric, live grade and the full ledger.
type GradingContextResponse struct {
	Submission SubmissionLite            `json:"submission"`
	Rubric     []RubricCriterionResponse `json:"rubric"`
	Grade      *GradeResponse            `json:"grade"`
	History    []GradeVersionResponse    `json:"history"`
	MaxTotal   float64                   `json:"max_total"`
}

// NewRubricScoreResponses converts stored rubric selections.
func NewRubricScoreResponses(scores []models.RubricScore) []RubricScoreResponse {
	responses := make([]RubricScoreResponse, 0, len(scores))
	for _, score := range scores {
		responses = append(responses, RubricScoreResponse{
			CriterionID:     score.CriterionID,
			LevelID:         score.LevelID,
			Points:          score.Points,
			CustomPoints:    score.CustomPoints,
			EffectivePoints: score.EffectivePoints(),
			Comments:        score.Comments,
		})
	}
	return responses
}

// NewGradeResponse converts a Grade model into a DTO.
func NewGradeResponse(grade models.Grade) (GradeResponse, error) {
	scores, err := models.DecodeRubricScores(grade.RubricScores)
	if err != nil {
		return GradeResponse{}, err
	}

	return GradeResponse{
		ID:           grade.ID,
		SubmissionID: grade.SubmissionID,
		GraderID:     grade.GraderID,
		Score:        grade.Score,
		Feedback:     grade.Feedback,
		RubricScores: NewRubricScoreResponses(scores),
		PrivateNotes: grade.PrivateNotes,
		Version:      grade.Version,
		GradedAt:     grade.GradedAt,
		UpdatedAt:    grade.UpdatedAt,
	}, nil
}

// NewGradeVersionResponse converts a ledger entry into a DTO.
func NewGradeVersionResponse(entry models.GradeVersion) (GradeVersionResponse, error) {
	scores, err := models.DecodeRubricScores(entry.RubricScores)
	if err != nil {
		return GradeVersionResponse{}, err
	}

	changes, err := entry.FieldChanges()
	if err != nil {
		return GradeVersionResponse{}, err
	}

	changeResponses := make([]FieldChangeResponse, 0, len(changes))
	for _, change := range changes {
		response := FieldChangeResponse{Field: change.Field, Kind: change.Kind}
		switch change.Kind {
		case models.ChangeKindNumber:
			if change.OldNumber != nil {
				response.OldValue = *change.OldNumber
			}
			if change.NewNumber != nil {
				response.NewValue = *change.NewNumber
			}
		case models.ChangeKindText:
			if change.OldText != nil {
				response.OldValue = *change.OldText
			}
			if change.NewText != nil {
				response.NewValue = *change.NewText
			}
		}
		changeResponses = append(changeResponses, response)
	}

	return GradeVersionResponse{
		Version:      entry.Version,
		Action:       entry.Action,
		GraderID:     entry.GraderID,
		Score:        entry.Score,
		Feedback:     entry.Feedback,
		RubricScores: NewRubricScoreResponses(scores),
		PrivateNotes: entry.PrivateNotes,
		Changes:      changeResponses,
		GradedAt:     entry.GradedAt,
	}, nil
}

// NewDraftResponse converts a stored draft into a DTO.
func NewDraftResponse(draft models.GradeDraft, advisories map[string]string) (DraftResponse, error) {
	snapshot, err := draft.SnapshotPayload()
	if err != nil {
		return DraftResponse{}, err
	}

	return DraftResponse{
		SubmissionID: draft.SubmissionID,
		GraderID:     draft.GraderID,
		Payload: GradingDataView{
			Score:        snapshot.Score,
			Feedback:     snapshot.Feedback,
			RubricScores: NewRubricScoreResponses(snapshot.RubricScores),
			PrivateNotes: snapshot.PrivateNotes,
		},
		Advisories: advisories,
		UpdatedAt:  draft.UpdatedAt,
	}, nil
}

// NewSubmissionLite summarizes a submission for the grading view.
func NewSubmissionLite(submission models.Submission) SubmissionLite {
	return SubmissionLite{
		ID:           submission.ID,
		AssessmentID: submission.AssessmentID,
		StudentID:    submission.StudentID,
		Status:       submission.Status,
		MaxScore:     submission.MaxScore(),
		SubmittedAt:  submission.SubmittedAt,
	}
}
