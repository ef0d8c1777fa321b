package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// GradeDraft is an unversioned in-progress grading payload. Drafts carry no
// history and are overwritten on every save.
type GradeDraft struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;uniqueIndex" json:"submission_id"`
	GraderID     uint           `gorm:"not null" json:"grader_id"`
	Payload      datatypes.JSON `gorm:"type:json" json:"payload"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SnapshotPayload decodes the stored grading payload.
func (d GradeDraft) SnapshotPayload() (GradeSnapshot, error) {
	var snapshot GradeSnapshot
	if len(d.Payload) == 0 {
		return snapshot, nil
	}
	if err := json.Unmarshal(d.Payload, &snapshot); err != nil {
		return GradeSnapshot{}, fmt.Errorf("decode draft payload: %w", err)
	}
	return snapshot, nil
}

// SetPayload serializes the grading payload into the draft.
func (d *GradeDraft) SetPayload(snapshot GradeSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode draft payload: %w", err)
	}
	d.Payload = datatypes.JSON(data)
	return nil
}
