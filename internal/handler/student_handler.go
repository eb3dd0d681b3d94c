package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campuskit/student-registry-api/internal/dto"
	"github.com/campuskit/student-registry-api/internal/service"
	"github.com/campuskit/student-registry-api/internal/utils"
)

// StudentHandler wires the student registry endpoints. It is a thin adapter:
// all decisions live in the service, the handler only shapes requests and
// maps outcome classifications onto HTTP statuses.
type StudentHandler struct {
	service service.StudentLifecycleService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.StudentLifecycleService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Post("/:id/deactivate", h.deactivate)
	router.Post("/:id/reactivate", h.reactivate)
	router.Delete("/:id", h.delete)
	router.Get("/:id/events", h.history)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	req := dto.StudentListRequest{
		State:         strings.TrimSpace(c.Query("state")),
		NameContains:  c.Query("name"),
		EmailContains: c.Query("email"),
	}

	if raw := strings.TrimSpace(c.Query("created_after")); raw != "" {
		createdAfter, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			createdAfter, err = time.Parse(dto.DateLayout, raw)
		}
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid created_after value")
		}
		req.CreatedAfter = &createdAfter
	}

	outcome := h.service.List(c.Context(), req)
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "students retrieved", outcome.Value)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	outcome := h.service.GetByID(c.Context(), c.Params("id"))
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "student retrieved", outcome.Value)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	outcome := h.service.Create(c.Context(), payload)
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", outcome.Value)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	var payload dto.StudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	outcome := h.service.Update(c.Context(), c.Params("id"), payload)
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "student updated", outcome.Value)
}

func (h *StudentHandler) deactivate(c *fiber.Ctx) error {
	outcome := h.service.Deactivate(c.Context(), c.Params("id"))
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "student deactivated", fiber.Map{"deactivated": outcome.Value})
}

func (h *StudentHandler) reactivate(c *fiber.Ctx) error {
	outcome := h.service.Reactivate(c.Context(), c.Params("id"))
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "student reactivated", outcome.Value)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	outcome := h.service.Delete(c.Context(), c.Params("id"))
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "student deleted", fiber.Map{"deleted": outcome.Value})
}

func (h *StudentHandler) history(c *fiber.Ctx) error {
	outcome := h.service.History(c.Context(), c.Params("id"))
	if !outcome.OK {
		return h.sendFailure(c, outcome.Class, outcome.Message, outcome.Conflict)
	}

	return utils.SendSuccess(c, "events retrieved", outcome.Value)
}

// sendFailure maps a failure classification onto an HTTP status. The
// classification is the only signal used here; the service never sees status
// codes.
func (h *StudentHandler) sendFailure(c *fiber.Ctx, class service.FailureClass, message string, conflict *service.ConflictInfo) error {
	status := fiber.StatusInternalServerError
	switch class {
	case service.FailureNotFound:
		status = fiber.StatusNotFound
	case service.FailureConflict:
		status = fiber.StatusConflict
	case service.FailureValidation:
		status = fiber.StatusBadRequest
	case service.FailureUnexpected:
		requestLogger(h.logger, c).Error().Str("message", message).Msg("request failed unexpectedly")
	}

	if conflict != nil {
		return utils.SendErrorWithData(c, status, message, conflict)
	}

	return utils.SendError(c, status, message)
}
