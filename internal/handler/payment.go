package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pos/internal/domain"
	"pos/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

// PaymentHandler handles HTTP requests for card-present payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentIntentRequest is the HTTP request body for creating a payment intent.
type CreatePaymentIntentRequest struct {
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
	ReceiptEmail string            `json:"receipt_email"`
}

// CreatePaymentIntentResponse is the HTTP response for a created intent.
type CreatePaymentIntentResponse struct {
	PaymentIntent string `json:"payment_intent"`
}

// PaymentIntentRequest is the HTTP request body naming an existing intent.
type PaymentIntentRequest struct {
	PaymentIntent string `json:"payment_intent"`
}

// ProcessOnReaderResponse is the HTTP response once the reader finished.
type ProcessOnReaderResponse struct {
	Success       bool                  `json:"success"`
	PaymentIntent *domain.PaymentIntent `json:"payment_intent"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// CreatePaymentIntent handles POST /create-payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req CreatePaymentIntentRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id, err := h.paymentService.CreateIntent(c.Request.Context(), service.CreateIntentRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Metadata:       req.Metadata,
		ReceiptEmail:   req.ReceiptEmail,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CreatePaymentIntentResponse{PaymentIntent: id})
}

// ProcessOnReader handles POST /process-on-reader
//
// The request stays open until the intent reaches a terminal status or the
// poll bounds are hit.
func (h *PaymentHandler) ProcessOnReader(c *gin.Context) {
	var req PaymentIntentRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	intent, err := h.paymentService.ProcessOnReader(c.Request.Context(), req.PaymentIntent)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ProcessOnReaderResponse{Success: true, PaymentIntent: intent})

	// Runs after the response has been written.
	h.paymentService.ScheduleContactCollection(intent)
}

// CancelPayment handles POST /cancel-payment
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	var req PaymentIntentRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.paymentService.CancelPayment(c.Request.Context(), req.PaymentIntent); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SuccessResponse{Success: true})
}

// bindJSON decodes the body into obj. An empty body leaves obj zeroed.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
