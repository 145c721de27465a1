package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/services"
)

// PaymentHandler fronts the opaque payment provider. The exam core never
// touches this flow.
type PaymentHandler struct {
	log      *zap.Logger
	provider *services.PaymentProvider
}

func NewPaymentHandler(log *zap.Logger, provider *services.PaymentProvider) *PaymentHandler {
	return &PaymentHandler{log: log, provider: provider}
}

type checkoutRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	PlanID string  `json:"planId" binding:"required"`
}

// Checkout opens a provider session and returns the redirect reference.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and planId are required"})
		return
	}

	redirect, err := h.provider.CreateCheckout(req.Amount, req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": redirect})
}
