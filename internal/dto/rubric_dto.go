package dto

import "github.com/php369/urop-grading-api/internal/models"

// RubricLevelResponse serializes one performance tier.
type RubricLevelResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Points      float64 `json:"points"`
	Position    int     `json:"position"`
}

// RubricCriterionResponse serializes one criterion with its levels.
type RubricCriterionResponse struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	MaxPoints   float64               `json:"max_points"`
	Position    int                   `json:"position"`
	Levels      []RubricLevelResponse `json:"levels"`
}

// NewRubricResponse converts rubric criteria into DTOs.
func NewRubricResponse(criteria []models.RubricCriterion) []RubricCriterionResponse {
	responses := make([]RubricCriterionResponse, 0, len(criteria))
	for _, criterion := range criteria {
		levels := make([]RubricLevelResponse, 0, len(criterion.Levels))
		for _, level := range criterion.Levels {
			levels = append(levels, RubricLevelResponse{
				ID:          level.ID,
				Name:        level.Name,
				Description: level.Description,
				Points:      level.Points,
				Position:    level.Position,
			})
		}
		responses = append(responses, RubricCriterionResponse{
			ID:          criterion.ID,
			Name:        criterion.Name,
			Description: criterion.Description,
			MaxPoints:   criterion.MaxPoints,
			Position:    criterion.Position,
			Levels:      levels,
		})
	}
	return responses
}
