package http

import (
	"errors"

	"sift_server/core/domain"
	"sift_server/core/port/out"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Evidence listings are capped regardless of the requested limit.
const maxEvidenceLimit = 100

// Account listings are capped regardless of the requested limit.
const maxAccountLimit = 500

// AccountHandler serves the inferred-account query surface.
type AccountHandler struct {
	accountRepo   out.AccountRepository
	evidenceRepo  out.EvidenceRepository
	inventoryRepo out.InventoryRepository
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountRepo out.AccountRepository, evidenceRepo out.EvidenceRepository, inventoryRepo out.InventoryRepository) *AccountHandler {
	return &AccountHandler{
		accountRepo:   accountRepo,
		evidenceRepo:  evidenceRepo,
		inventoryRepo: inventoryRepo,
	}
}

// RegisterRoutes registers account routes.
func (h *AccountHandler) RegisterRoutes(app fiber.Router) {
	accounts := app.Group("/accounts")
	accounts.Get("/", h.ListAccounts)
	accounts.Get("/:id", h.GetAccount)
	accounts.Get("/:id/evidence", h.ListEvidence)
	accounts.Delete("/", h.DeleteAccounts)
}

// ListAccounts returns the current user's inferred accounts, most recently
// seen first.
func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxAccountLimit {
		limit = maxAccountLimit
	}

	opts := &out.AccountListOptions{
		EmailIdentityID: c.Query("email_identity_id"),
		Category:        domain.AccountCategory(c.Query("category")),
		Status:          domain.AccountStatus(c.Query("status")),
		MinConfidence:   c.QueryFloat("min_confidence", 0),
		Limit:           limit,
	}

	accounts, err := h.accountRepo.ListByUser(c.Context(), userID, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount returns a single inferred account by ID.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	account, err := h.accountRepo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Check ownership
	if account.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}

	return c.JSON(account)
}

// ListEvidence returns the evidence trail behind an account, newest first.
func (h *AccountHandler) ListEvidence(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	account, err := h.accountRepo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Check ownership
	if account.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}

	limit := c.QueryInt("limit", maxEvidenceLimit)
	if limit <= 0 || limit > maxEvidenceLimit {
		limit = maxEvidenceLimit
	}

	records, err := h.evidenceRepo.ListByAccount(c.Context(), account.ID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"evidence": records,
		"count":    len(records),
	})
}

// DeleteAccounts erases all inferred data for the current user: accounts,
// their evidence trail, and the sender inventory.
func (h *AccountHandler) DeleteAccounts(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	accountsDeleted, err := h.accountRepo.DeleteByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	evidenceDeleted, err := h.evidenceRepo.DeleteByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	inventoryDeleted, err := h.inventoryRepo.DeleteByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"accounts_deleted":  accountsDeleted,
		"evidence_deleted":  evidenceDeleted,
		"inventory_deleted": inventoryDeleted,
	})
}
