package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// GradeAction tags how a grade version came to exist.
type GradeAction string

const (
	// GradeActionCreated marks the initial version of a grade.
	GradeActionCreated GradeAction = "created"
	// GradeActionUpdated marks a regular re-grade.
	GradeActionUpdated GradeAction = "updated"
	// GradeActionRevised marks a version produced by restoring an earlier one.
	GradeActionRevised GradeAction = "revised"
)

// RubricScore captures one criterion selection inside a grading payload.
// Points hold the selected level's base value at selection time; CustomPoints
// overrides it when the grader adjusts within the criterion ceiling.
type RubricScore struct {
	CriterionID  uint     `json:"criterion_id"`
	LevelID      uint     `json:"level_id"`
	Points       float64  `json:"points"`
	CustomPoints *float64 `json:"custom_points,omitempty"`
	Comments     string   `json:"comments,omitempty"`
}

// EffectivePoints returns the custom override when present, the level's base points otherwise.
func (s RubricScore) EffectivePoints() float64 {
	if s.CustomPoints != nil {
		return *s.CustomPoints
	}
	return s.Points
}

// GradeSnapshot is the full grading state recorded at one version.
type GradeSnapshot struct {
	Score        float64       `json:"score"`
	Feedback     string        `json:"feedback"`
	RubricScores []RubricScore `json:"rubric_scores"`
	PrivateNotes string        `json:"private_notes"`
}

// Grade is the live, authoritative scoring record for one submission.
// Its Version always equals the highest version in the ledger.
type Grade struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;uniqueIndex" json:"submission_id"`
	GraderID     uint           `gorm:"not null" json:"grader_id"`
	Score        float64        `gorm:"not null" json:"score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	RubricScores datatypes.JSON `gorm:"type:json" json:"rubric_scores"`
	PrivateNotes string         `gorm:"type:text" json:"-"`
	Version      int            `gorm:"not null" json:"version"`
	GradedAt     time.Time      `gorm:"not null" json:"graded_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Versions     []GradeVersion `gorm:"foreignKey:GradeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Snapshot decodes the grade's current state into a value snapshot.
func (g Grade) Snapshot() (GradeSnapshot, error) {
	scores, err := DecodeRubricScores(g.RubricScores)
	if err != nil {
		return GradeSnapshot{}, err
	}
	return GradeSnapshot{
		Score:        g.Score,
		Feedback:     g.Feedback,
		RubricScores: scores,
		PrivateNotes: g.PrivateNotes,
	}, nil
}

// ApplySnapshot overwrites the grade's mutable fields from a snapshot.
func (g *Grade) ApplySnapshot(snapshot GradeSnapshot) error {
	encoded, err := EncodeRubricScores(snapshot.RubricScores)
	if err != nil {
		return err
	}
	g.Score = snapshot.Score
	g.Feedback = snapshot.Feedback
	g.RubricScores = encoded
	g.PrivateNotes = snapshot.PrivateNotes
	return nil
}

// GradeVersion is one immutable entry in a grade's append-only ledger.
type GradeVersion struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	GradeID      uint           `gorm:"not null;uniqueIndex:idx_grade_versions_grade_version" json:"grade_id"`
	Version      int            `gorm:"not null;uniqueIndex:idx_grade_versions_grade_version" json:"version"`
	Action       GradeAction    `gorm:"size:16;not null" json:"action"`
	GraderID     uint           `gorm:"not null" json:"grader_id"`
	Score        float64        `gorm:"not null" json:"score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	RubricScores datatypes.JSON `gorm:"type:json" json:"rubric_scores"`
	PrivateNotes string         `gorm:"type:text" json:"-"`
	Changes      datatypes.JSON `gorm:"type:json" json:"changes"`
	GradedAt     time.Time      `gorm:"not null" json:"graded_at"`
}

// Snapshot decodes the version's recorded state.
func (v GradeVersion) Snapshot() (GradeSnapshot, error) {
	scores, err := DecodeRubricScores(v.RubricScores)
	if err != nil {
		return GradeSnapshot{}, err
	}
	return GradeSnapshot{
		Score:        v.Score,
		Feedback:     v.Feedback,
		RubricScores: scores,
		PrivateNotes: v.PrivateNotes,
	}, nil
}

// FieldChanges decodes the version's diff against its predecessor.
func (v GradeVersion) FieldChanges() ([]FieldChange, error) {
	if len(v.Changes) == 0 {
		return nil, nil
	}
	var changes []FieldChange
	if err := json.Unmarshal(v.Changes, &changes); err != nil {
		return nil, fmt.Errorf("decode grade version changes: %w", err)
	}
	return changes, nil
}

// ChangeKind discriminates the value type carried by a FieldChange.
type ChangeKind string

const (
	// ChangeKindNumber marks numeric before/after values.
	ChangeKindNumber ChangeKind = "number"
	// ChangeKindText marks textual before/after values.
	ChangeKindText ChangeKind = "text"
)

// Well-known change field names.
const (
	ChangeFieldScore        = "score"
	ChangeFieldFeedback     = "feedback"
	ChangeFieldPrivateNotes = "privateNotes"
)

// RubricScoreChangeField names the change record for one criterion's score.
func RubricScoreChangeField(criterionID uint) string {
	return fmt.Sprintf("rubricScore.%d", criterionID)
}

// RubricScoreLevelChangeField names the change record for a criterion's
// selected level when the swap leaves the points untouched.
func RubricScoreLevelChangeField(criterionID uint) string {
	return fmt.Sprintf("rubricScore.%d.level", criterionID)
}

// FieldChange records one before/after pair in a grade version diff. The Kind
// selects which value pair is populated; nil pointers encode absent values
// (a rubric score that was added or removed).
type FieldChange struct {
	Field     string     `json:"field"`
	Kind      ChangeKind `json:"kind"`
	OldNumber *float64   `json:"old_value,omitempty"`
	NewNumber *float64   `json:"new_value,omitempty"`
	OldText   *string    `json:"old_text,omitempty"`
	NewText   *string    `json:"new_text,omitempty"`
}

// NumberChange builds a numeric field change.
func NumberChange(field string, oldValue, newValue *float64) FieldChange {
	return FieldChange{Field: field, Kind: ChangeKindNumber, OldNumber: oldValue, NewNumber: newValue}
}

// TextChange builds a textual field change.
func TextChange(field string, oldValue, newValue string) FieldChange {
	return FieldChange{Field: field, Kind: ChangeKindText, OldText: &oldValue, NewText: &newValue}
}

// EncodeFieldChanges serializes a diff for ledger storage.
func EncodeFieldChanges(changes []FieldChange) (datatypes.JSON, error) {
	if len(changes) == 0 {
		return datatypes.JSON([]byte("[]")), nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode field changes: %w", err)
	}
	return datatypes.JSON(data), nil
}

// EncodeRubricScores serializes rubric selections for storage.
func EncodeRubricScores(scores []RubricScore) (datatypes.JSON, error) {
	if len(scores) == 0 {
		return datatypes.JSON([]byte("[]")), nil
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("encode rubric scores: %w", err)
	}
	return datatypes.JSON(data), nil
}

// DecodeRubricScores deserializes stored rubric selections.
func DecodeRubricScores(data datatypes.JSON) ([]RubricScore, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var scores []RubricScore
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("decode rubric scores: %w", err)
	}
	return scores, nil
}
