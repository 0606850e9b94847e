package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mentor-agenda/internal/delivery/http/middleware"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/usecase"
)

type EventsHandler struct {
	usecase usecase.EventsUsecase
	logger  *zap.Logger
}

func NewEventsHandler(usecase usecase.EventsUsecase, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// ListEvents godoc
// @Summary List upcoming calendar events
// @Tags events
// @Produce json
// @Param companyId path string true "Encrypted company id"
// @Success 200 {object} entity.APIResponse
// @Failure 401 {object} entity.APIResponse
// @Failure 502 {object} entity.APIResponse
// @Router /events/{companyId} [get]
func (h *EventsHandler) ListEvents(c *fiber.Ctx) error {
	companyID := middleware.CompanyID(c)

	events, err := h.usecase.ListUpcoming(c.UserContext(), companyID)
	if err != nil {
		h.logger.Error("Error retrieving events",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return h.calendarError(c, err, "Error retrieving events")
	}

	return c.JSON(entity.NewSuccessResponse(events, "Events retrieved"))
}

// AddEvent godoc
// @Summary Create a calendar event with a Meet link
// @Tags events
// @Accept json
// @Produce json
// @Param companyId path string true "Encrypted company id"
// @Param draft body entity.EventDraft true "Event"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 401 {object} entity.APIResponse
// @Failure 502 {object} entity.APIResponse
// @Router /events/{companyId}/add [post]
func (h *EventsHandler) AddEvent(c *fiber.Ctx) error {
	companyID := middleware.CompanyID(c)

	var draft entity.EventDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse("BAD_REQUEST", "Invalid event payload"),
		)
	}

	event, err := h.usecase.AddEvent(c.UserContext(), companyID, draft)
	if err != nil {
		h.logger.Error("Error creating event",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return h.calendarError(c, err, "Error creating event")
	}

	return c.JSON(entity.NewSuccessResponse(event, "Event created successfully"))
}

func (h *EventsHandler) calendarError(c *fiber.Ctx, err error, message string) error {
	requestID, _ := c.Locals("requestid").(string)

	switch {
	case errors.Is(err, entity.ErrInvalidEventDraft):
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse("BAD_REQUEST", err.Error()).WithRequestID(requestID),
		)
	case errors.Is(err, entity.ErrUnauthorized),
		errors.Is(err, entity.ErrReauthenticationRequired),
		errors.Is(err, entity.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(
			entity.NewErrorResponse("UNAUTHORIZED", "Please authenticate via /auth.").WithRequestID(requestID),
		)
	case errors.Is(err, entity.ErrProvider):
		return c.Status(fiber.StatusBadGateway).JSON(
			entity.NewErrorResponse("PROVIDER_ERROR", message).WithRequestID(requestID),
		)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse("INTERNAL_ERROR", message).WithRequestID(requestID),
		)
	}
}
