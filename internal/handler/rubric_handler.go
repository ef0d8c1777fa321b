package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/php369/urop-grading-api/internal/dto"
	"github.com/php369/urop-grading-api/internal/service"
	"github.com/php369/urop-grading-api/internal/utils"
)

// RubricHandler exposes rubric lookup and administrative import.
type RubricHandler struct {
	service service.RubricService
	logger  zerolog.Logger
}

// NewRubricHandler constructs the handler.
func NewRubricHandler(service service.RubricService, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service: service,
		logger:  logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// RegisterAssessmentRoutes attaches rubric read endpoints.
func (h *RubricHandler) RegisterAssessmentRoutes(router fiber.Router) {
	router.Get("/:id/rubric", h.getRubric)
}

// RegisterRubricRoutes attaches rubric administration endpoints.
func (h *RubricHandler) RegisterRubricRoutes(router fiber.Router) {
	router.Post("/import", h.importRubric)
}

func (h *RubricHandler) getRubric(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	criteria, err := h.service.CriteriaFor(c.Context(), assessmentID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("assessment_id", assessmentID).Msg("failed to load rubric")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load rubric")
	}

	return utils.SendSuccess(c, "rubric loaded", dto.NewRubricResponse(criteria))
}

func (h *RubricHandler) importRubric(c *fiber.Ctx) error {
	actor := graderFromContext(c)

	imported, err := h.service.Import(c.Context(), c.Body(), actor)
	if err != nil {
		if errors.Is(err, service.ErrRubricDefinitionInvalid) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to import rubric")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to import rubric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric imported", imported)
}
