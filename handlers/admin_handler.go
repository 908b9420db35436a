package handlers

import (
	"context"
	"log"

	"github.com/anjiri1684/academy_billing/services"
	"github.com/anjiri1684/academy_billing/websocket"
	"github.com/go-playground/validator/v10"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var validate = validator.New()

type Reallocator interface {
	Reallocate(ctx context.Context, studentID uuid.UUID, opts services.Options) (services.StudentReport, error)
	ReallocateAll(ctx context.Context, opts services.Options) (services.BatchReport, error)
	UpdateClassStatus(ctx context.Context, classID uuid.UUID, status string) (services.StudentReport, error)
}

type AdminHandler struct {
	service Reallocator
	hub     *websocket.Hub
}

func NewAdminHandler(service Reallocator, hub *websocket.Hub) *AdminHandler {
	return &AdminHandler{service: service, hub: hub}
}

type ReallocationRequest struct {
	StudentID string `json:"student_id" validate:"omitempty,uuid"`
	DryRun    bool   `json:"dry_run"`
}

// TriggerReallocation reallocates one student, or every student when no
// student_id is given.
func (h *AdminHandler) TriggerReallocation(c *fiber.Ctx) error {
	var req ReallocationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
		}
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	opts := services.Options{DryRun: req.DryRun}

	if req.StudentID == "" {
		batch, err := h.service.ReallocateAll(c.UserContext(), opts)
		if err != nil {
			log.Printf("🔥 Reallocation sweep failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reallocation sweep failed"})
		}
		return c.JSON(batch)
	}

	studentID, _ := uuid.Parse(req.StudentID)
	report, err := h.service.Reallocate(c.UserContext(), studentID, opts)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(report)
}

type ClassStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending attended cancelled_by_student cancelled_by_teacher absent_student waiting_list"`
}

func (h *AdminHandler) UpdateClassStatus(c *fiber.Ctx) error {
	classID, err := uuid.Parse(c.Params("classId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class ID"})
	}

	var req ClassStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := h.service.UpdateClassStatus(c.UserContext(), classID, req.Status)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"class_id": classID,
		"status":   req.Status,
		"report":   report,
	})
}

func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrClassNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	case errors.Is(err, services.ErrPackageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class status"})
	}
	log.Printf("🔥 Reallocation failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reallocation failed, nothing was changed"})
}

// ServeWs streams reallocation events to an admin dashboard until the
// client goes away. Clients don't send anything; reads only detect closure.
func (h *AdminHandler) ServeWs(c *websocketcontrib.Conn) {
	adminID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	client := &websocket.Client{UserID: adminID, Conn: c}
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				log.Printf("WebSocket closed for admin %s", adminID)
			} else {
				log.Printf("WebSocket read error for admin %s: %v", adminID, err)
			}
			return
		}
	}
}
