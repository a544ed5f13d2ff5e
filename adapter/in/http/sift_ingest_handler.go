package http

import (
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/in"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IngestHandler accepts batches of message headers from the mailbox sync
// worker and runs them through the inference pipeline.
type IngestHandler struct {
	ingest   in.MessageIngest
	maxBatch int
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingest in.MessageIngest, maxBatch int) *IngestHandler {
	return &IngestHandler{
		ingest:   ingest,
		maxBatch: maxBatch,
	}
}

// RegisterRoutes registers ingest routes.
func (h *IngestHandler) RegisterRoutes(app fiber.Router) {
	sync := app.Group("/sync")
	sync.Post("/messages", h.IngestMessages)
}

type ingestMessagePayload struct {
	ProviderMsgID       string     `json:"provider_msg_id"`
	From                string     `json:"from"`
	To                  string     `json:"to,omitempty"`
	Subject             string     `json:"subject"`
	ReceivedAt          *time.Time `json:"received_at,omitempty"`
	ListUnsubscribe     string     `json:"list_unsubscribe,omitempty"`
	ListUnsubscribePost string     `json:"list_unsubscribe_post,omitempty"`
}

type ingestRequest struct {
	MailboxID       string                 `json:"mailbox_id"`
	EmailIdentityID string                 `json:"email_identity_id"`
	Messages        []ingestMessagePayload `json:"messages"`
}

type ingestFailure struct {
	Index         int    `json:"index"`
	ProviderMsgID string `json:"provider_msg_id"`
	Error         string `json:"error"`
}

// IngestMessages processes a batch of message headers. Messages are handled
// sequentially and independently: one failing message does not abort the
// batch, it is reported in the response instead.
func (h *IngestHandler) IngestMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.MailboxID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mailbox_id is required"})
	}
	if req.EmailIdentityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email_identity_id is required"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "messages is empty"})
	}
	if h.maxBatch > 0 && len(req.Messages) > h.maxBatch {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error":     "batch too large",
			"max_batch": h.maxBatch,
		})
	}

	scope := in.IngestScope{
		UserID:          userID,
		MailboxID:       req.MailboxID,
		EmailIdentityID: req.EmailIdentityID,
	}

	var failures []ingestFailure
	for i, m := range req.Messages {
		msg := &domain.RawMessage{
			ProviderMsgID:       m.ProviderMsgID,
			From:                m.From,
			To:                  m.To,
			Subject:             m.Subject,
			ListUnsubscribe:     m.ListUnsubscribe,
			ListUnsubscribePost: m.ListUnsubscribePost,
		}
		if m.ReceivedAt != nil {
			msg.ReceivedAt = *m.ReceivedAt
		}

		if err := h.ingest.ProcessMessage(c.Context(), scope, msg); err != nil {
			failures = append(failures, ingestFailure{
				Index:         i,
				ProviderMsgID: m.ProviderMsgID,
				Error:         err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"processed": len(req.Messages) - len(failures),
		"failed":    len(failures),
		"failures":  failures,
	})
}
