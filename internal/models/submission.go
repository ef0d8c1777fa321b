package models

import "time"

// Assessment is the published definition a submission answers. Owned by the
// surrounding portal; the engine only reads its scoring ceiling.
type Assessment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	MaxScore    float64   `gorm:"not null" json:"max_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submission represents student work awaiting or holding a grade.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssessmentID uint       `gorm:"not null;index" json:"assessment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	Status       string     `gorm:"size:32;not null" json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assessment   Assessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
}

const (
	// SubmissionStatusSubmitted indicates work uploaded but not yet graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates an authoritative grade exists.
	SubmissionStatusGraded = "graded"
)

// IsGraded reports whether the submission already carries a grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// MaxScore returns the scoring ceiling, falling back to 100 when the
// assessment predates explicit ceilings.
func (s Submission) MaxScore() float64 {
	if s.Assessment.MaxScore > 0 {
		return s.Assessment.MaxScore
	}
	return 100
}
