package models

import "time"

// RubricCriterion is one gradable dimension of an assessment rubric.
// Criteria are frozen once the owning assessment is published.
type RubricCriterion struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	AssessmentID uint          `gorm:"not null;index" json:"assessment_id"`
	Name         string        `gorm:"size:255;not null" json:"name"`
	Description  string        `gorm:"type:text" json:"description"`
	MaxPoints    float64       `gorm:"not null" json:"max_points"`
	Position     int           `gorm:"not null" json:"position"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Levels       []RubricLevel `gorm:"foreignKey:CriterionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"levels"`
}

// RubricLevel is one selectable performance tier within a criterion.
type RubricLevel struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	CriterionID uint    `gorm:"not null;index" json:"criterion_id"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Points      float64 `gorm:"not null" json:"points"`
	Position    int     `gorm:"not null" json:"position"`
}

// LevelByID returns the level with the given identifier, if it belongs to the criterion.
func (c RubricCriterion) LevelByID(levelID uint) (RubricLevel, bool) {
	for _, level := range c.Levels {
		if level.ID == levelID {
			return level, true
		}
	}
	return RubricLevel{}, false
}

// CriterionByID looks up a criterion within a rubric.
func CriterionByID(rubric []RubricCriterion, criterionID uint) (RubricCriterion, bool) {
	for _, criterion := range rubric {
		if criterion.ID == criterionID {
			return criterion, true
		}
	}
	return RubricCriterion{}, false
}
