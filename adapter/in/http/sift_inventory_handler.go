package http

import (
	"errors"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// InventoryHandler serves the sender inventory surface.
type InventoryHandler struct {
	inventoryRepo out.InventoryRepository
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(inventoryRepo out.InventoryRepository) *InventoryHandler {
	return &InventoryHandler{inventoryRepo: inventoryRepo}
}

// RegisterRoutes registers inventory routes.
func (h *InventoryHandler) RegisterRoutes(app fiber.Router) {
	inventory := app.Group("/inventory")
	inventory.Get("/", h.ListInventory)
	inventory.Patch("/:id/status", h.UpdateStatus)
	inventory.Delete("/", h.DeleteInventory)
}

// ListInventory returns the current user's sender inventory, most recently
// seen first.
func (h *InventoryHandler) ListInventory(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	opts := &out.InventoryListOptions{
		MailboxID: c.Query("mailbox_id"),
		Limit:     c.QueryInt("limit", 100),
	}
	if v := c.Query("has_unsub"); v != "" {
		hasUnsub := v == "true" || v == "1"
		opts.HasUnsub = &hasUnsub
	}
	if v := c.Query("last_seen_after"); v != "" {
		after, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid last_seen_after"})
		}
		opts.LastSeenAfter = after
	}

	rows, err := h.inventoryRepo.List(c.Context(), userID, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"inventory": rows,
		"count":     len(rows),
	})
}

// UpdateStatus marks a sender row, e.g. ignored after the user dismisses it.
func (h *InventoryHandler) UpdateStatus(c *fiber.Ctx) error {
	if _, ok := c.Locals("user_id").(uuid.UUID); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	status := domain.InventoryStatus(req.Status)
	switch status {
	case domain.InventoryActive, domain.InventoryMoved, domain.InventoryIgnored:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}

	if err := h.inventoryRepo.UpdateStatus(c.Context(), c.Params("id"), status); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sender not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"id":     c.Params("id"),
		"status": string(status),
	})
}

// DeleteInventory erases all sender inventory for the current user.
func (h *InventoryHandler) DeleteInventory(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	deleted, err := h.inventoryRepo.DeleteByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
