package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/php369/urop-grading-api/internal/dto"
	"github.com/php369/urop-grading-api/internal/models"
	"github.com/php369/urop-grading-api/internal/repository"
)

// rubricDefinitionSchema constrains imported rubric documents before any row
// is written.
const rubricDefinitionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["assessment_id", "criteria"],
  "properties": {
    "assessment_id": {"type": "integer", "minimum": 1},
    "criteria": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "max_points", "levels"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "max_points": {"type": "number", "exclusiveMinimum": 0},
          "levels": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name", "points"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "description": {"type": "string"},
                "points": {"type": "number", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

// RubricCatalog is the read-only lookup of rubric criteria for an assessment.
// An empty result means free-score grading.
type RubricCatalog interface {
	CriteriaFor(ctx context.Context, assessmentID uint) ([]models.RubricCriterion, error)
}

// RubricService adds the administrative import path on top of the catalog.
type RubricService interface {
	RubricCatalog
	Import(ctx context.Context, document []byte, actor ActivityActor) ([]dto.RubricCriterionResponse, error)
}

type rubricService struct {
	repo     repository.RubricRepository
	schema   *jsonschema.Schema
	activity ActivityRecorder
	logger   zerolog.Logger
}

// NewRubricService compiles the rubric document schema and builds the service.
func NewRubricService(repo repository.RubricRepository, activity ActivityRecorder, logger zerolog.Logger) (RubricService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rubric.schema.json", strings.NewReader(rubricDefinitionSchema)); err != nil {
		return nil, fmt.Errorf("add rubric schema resource: %w", err)
	}
	schema, err := compiler.Compile("rubric.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile rubric schema: %w", err)
	}

	return &rubricService{
		repo:     repo,
		schema:   schema,
		activity: activity,
		logger:   logger.With().Str("component", "rubric_service").Logger(),
	}, nil
}

func (s *rubricService) CriteriaFor(ctx context.Context, assessmentID uint) ([]models.RubricCriterion, error) {
	return s.repo.CriteriaFor(ctx, assessmentID)
}

type rubricLevelDefinition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Points      float64 `json:"points"`
}

type rubricCriterionDefinition struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	MaxPoints   float64                 `json:"max_points"`
	Levels      []rubricLevelDefinition `json:"levels"`
}

type rubricDefinition struct {
	AssessmentID uint                        `json:"assessment_id"`
	Criteria     []rubricCriterionDefinition `json:"criteria"`
}

func (s *rubricService) Import(ctx context.Context, document []byte, actor ActivityActor) ([]dto.RubricCriterionResponse, error) {
	var raw interface{}
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRubricDefinitionInvalid, err)
	}

	if err := s.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRubricDefinitionInvalid, err)
	}

	var definition rubricDefinition
	if err := json.Unmarshal(document, &definition); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRubricDefinitionInvalid, err)
	}

	criteria := make([]models.RubricCriterion, 0, len(definition.Criteria))
	for i, input := range definition.Criteria {
		criterion := models.RubricCriterion{
			Name:        input.Name,
			Description: input.Description,
			MaxPoints:   input.MaxPoints,
			Position:    i + 1,
		}
		for j, level := range input.Levels {
			if level.Points > input.MaxPoints {
				return nil, fmt.Errorf("%w: level %q exceeds criterion %q max points", ErrRubricDefinitionInvalid, level.Name, input.Name)
			}
			criterion.Levels = append(criterion.Levels, models.RubricLevel{
				Name:        level.Name,
				Description: level.Description,
				Points:      level.Points,
				Position:    j + 1,
			})
		}
		criteria = append(criteria, criterion)
	}

	if err := s.repo.ReplaceForAssessment(ctx, definition.AssessmentID, criteria); err != nil {
		return nil, err
	}

	if s.activity != nil {
		assessmentID := definition.AssessmentID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "rubric.imported",
			EntityType: "assessment",
			EntityID:   &assessmentID,
			Metadata: map[string]interface{}{
				"criteria": len(criteria),
			},
		})
	}

	s.logger.Info().
		Uint("assessment_id", definition.AssessmentID).
		Int("criteria", len(criteria)).
		Msg("rubric imported")

	stored, err := s.repo.CriteriaFor(ctx, definition.AssessmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewRubricResponse(stored), nil
}
