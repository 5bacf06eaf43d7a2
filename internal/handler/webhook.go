package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pos/internal/service"
)

const signatureHeader = "Stripe-Signature"

// WebhookHandler receives signed gateway events.
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// WebhookResponse acknowledges a verified event.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /webhook
//
// The signature covers the exact request bytes, so the body is read raw and
// never bound.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	if _, err := h.webhookService.Handle(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		_ = c.Error(err)
		c.String(mapErrorToHTTPStatus(err), "Webhook Error: %s", err.Error())
		return
	}

	respondJSON(c, http.StatusOK, WebhookResponse{Received: true})
}
