package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/php369/urop-grading-api/internal/dto"
	"github.com/php369/urop-grading-api/internal/service"
	"github.com/php369/urop-grading-api/internal/utils"
)

// GradingHandler wires the grading engine's HTTP surface.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// RegisterSubmissionRoutes attaches submission-scoped grading endpoints.
func (h *GradingHandler) RegisterSubmissionRoutes(router fiber.Router) {
	router.Post("/:id/grade", h.submitGrade)
	router.Put("/:id/draft", h.saveDraft)
	router.Get("/:id/draft", h.getDraft)
	router.Get("/:id/grading-context", h.getGradingContext)
}

// RegisterGradeRoutes attaches grade-scoped endpoints.
func (h *GradingHandler) RegisterGradeRoutes(router fiber.Router) {
	router.Patch("/:id", h.updateGrade)
	router.Post("/:id/restore/:version", h.restoreVersion)
	router.Get("/:id/history", h.getHistory)
	router.Get("/:id/history/:version", h.getHistoryEntry)
}

func (h *GradingHandler) submitGrade(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradingDataRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := graderFromContext(c)
	grade, err := h.service.SubmitGrade(c.Context(), submissionID, payload, actor)
	if err != nil {
		return h.sendGradingError(c, err, "failed to submit grade")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade submitted", grade)
}

func (h *GradingHandler) updateGrade(c *fiber.Ctx) error {
	gradeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := graderFromContext(c)
	grade, err := h.service.UpdateGrade(c.Context(), gradeID, payload, actor)
	if err != nil {
		return h.sendGradingError(c, err, "failed to update grade")
	}

	return utils.SendSuccess(c, "grade updated", grade)
}

func (h *GradingHandler) saveDraft(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradingDataRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := graderFromContext(c)
	draft, err := h.service.SaveDraft(c.Context(), submissionID, payload, actor)
	if err != nil {
		return h.sendGradingError(c, err, "failed to save draft")
	}

	return utils.SendSuccess(c, "draft saved", draft)
}

func (h *GradingHandler) getDraft(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	draft, err := h.service.GetDraft(c.Context(), submissionID)
	if err != nil {
		return h.sendGradingError(c, err, "failed to load draft")
	}

	return utils.SendSuccess(c, "draft loaded", draft)
}

func (h *GradingHandler) restoreVersion(c *fiber.Ctx) error {
	gradeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	targetVersion, err := parseIntParam(c, "version")
	if err != nil || targetVersion < 1 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid version")
	}

	actor := graderFromContext(c)
	grade, err := h.service.RestoreGradeVersion(c.Context(), gradeID, targetVersion, actor)
	if err != nil {
		return h.sendGradingError(c, err, "failed to restore grade version")
	}

	return utils.SendSuccess(c, "grade version restored", grade)
}

func (h *GradingHandler) getGradingContext(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	context, err := h.service.GetGradingContext(c.Context(), submissionID)
	if err != nil {
		return h.sendGradingError(c, err, "failed to load grading context")
	}

	return utils.SendSuccess(c, "grading context loaded", context)
}

func (h *GradingHandler) getHistory(c *fiber.Ctx) error {
	gradeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	history, err := h.service.GetHistory(c.Context(), gradeID)
	if err != nil {
		return h.sendGradingError(c, err, "failed to load grade history")
	}

	return utils.SendSuccess(c, "grade history loaded", history)
}

func (h *GradingHandler) getHistoryEntry(c *fiber.Ctx) error {
	gradeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	version, err := parseIntParam(c, "version")
	if err != nil || version < 1 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid version")
	}

	entry, err := h.service.GetHistoryEntry(c.Context(), gradeID, version)
	if err != nil {
		return h.sendGradingError(c, err, "failed to load grade version")
	}

	return utils.SendSuccess(c, "grade version loaded", entry)
}

// sendGradingError maps the engine's recoverable error taxonomy onto HTTP
// statuses. Anything unmapped is a server fault and logged.
func (h *GradingHandler) sendGradingError(c *fiber.Ctx, err error, fallback string) error {
	var validationErr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrGradeNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrDraftNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGradeConflict),
		errors.Is(err, service.ErrStaleVersion),
		errors.Is(err, service.ErrNoOpUpdate):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErr):
		return utils.SendValidationErrors(c, "grading payload rejected", validationErr.Fields)
	case errors.Is(err, service.ErrRubricIntegrity):
		requestLogger(h.logger, c).Error().Err(err).Msg("rubric integrity violation in grading payload")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
