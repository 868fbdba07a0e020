// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package v1 contains the HTTP handlers of the saga API.
package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
	"github.com/mallkit/ordersaga/internal/ordersaga/repository"
	"github.com/mallkit/ordersaga/internal/ordersaga/saga"
)

// SagaStarter is the subset of the orchestrator the handler depends on.
type SagaStarter interface {
	Start(ctx context.Context, req model.CreateOrderRequest) (string, <-chan saga.Outcome, error)
	Retry(ctx context.Context, sagaID string) error
}

// OutcomeAwaiter blocks a caller until its saga resolves.
type OutcomeAwaiter interface {
	Await(ctx context.Context, sagaID string, wait <-chan saga.Outcome, timeout time.Duration) saga.Outcome
}

// SagaHandler handles saga-related HTTP requests.
type SagaHandler struct {
	starter      SagaStarter
	awaiter      OutcomeAwaiter
	sagas        repository.SagaRepository
	awaitTimeout time.Duration
}

// NewSagaHandler creates a saga handler with dependency injection.
func NewSagaHandler(starter SagaStarter, awaiter OutcomeAwaiter, sagas repository.SagaRepository, awaitTimeout time.Duration) *SagaHandler {
	if awaitTimeout <= 0 {
		awaitTimeout = saga.DefaultAwaitTimeout
	}
	return &SagaHandler{
		starter:      starter,
		awaiter:      awaiter,
		sagas:        sagas,
		awaitTimeout: awaitTimeout,
	}
}

// CreateOrder starts an order/payment saga and waits for its outcome.
//
//	@Summary		Create an order with saga coordination
//	@Description	Creates an order, requests payment and waits for the saga outcome
//	@Tags			saga
//	@Accept			json
//	@Produce		json
//	@Param			order	body		model.CreateOrderRequest	true	"Order information"
//	@Success		200		{object}	model.OrderResponse			"Saga outcome"
//	@Failure		400		{object}	map[string]interface{}		"Bad request"
//	@Failure		500		{object}	model.OrderResponse			"Saga failed to start"
//	@Router			/api/saga/orders [post]
func (h *SagaHandler) CreateOrder(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	sagaID, wait, err := h.starter.Start(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.OrderResponse{
			OrderID: req.OrderID,
			Status:  model.OutcomeError,
			Message: err.Error(),
		})
		return
	}

	// One extra second over the correlator timeout, so a caller-side TIMEOUT
	// outcome is produced by the correlator rather than by the HTTP layer.
	outcome := h.awaiter.Await(c.Request.Context(), sagaID, wait, h.awaitTimeout+time.Second)

	status := http.StatusOK
	if outcome.Status == model.OutcomeError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, model.OrderResponse{
		OrderID: outcome.OrderID,
		Status:  outcome.Status,
		Message: outcome.Message,
	})
}

// GetSagaStatus returns the saga snapshot for an order.
//
//	@Summary		Get saga status by order id
//	@Tags			saga
//	@Produce		json
//	@Param			orderId	path		string						true	"Order ID"
//	@Success		200		{object}	model.SagaStatusResponse	"Saga snapshot"
//	@Failure		404		{object}	map[string]interface{}		"Saga not found"
//	@Router			/api/saga/orders/{orderId}/status [get]
func (h *SagaHandler) GetSagaStatus(c *gin.Context) {
	orderID := c.Param("orderId")
	record, err := h.sagas.FindByOrderID(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "saga not found",
		})
		return
	}
	c.JSON(http.StatusOK, model.NewSagaStatusResponse(record))
}

// ListInProgress returns all sagas that have not reached a terminal step.
//
//	@Summary		List in-progress sagas
//	@Tags			saga
//	@Produce		json
//	@Success		200	{array}	model.SagaRecord	"In-progress sagas"
//	@Router			/api/saga/transactions/in-progress [get]
func (h *SagaHandler) ListInProgress(c *gin.Context) {
	records, err := h.sagas.ListInProgress()
	if err != nil {
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, records)
}

// RetrySaga triggers the manual retry hook for a stuck saga.
//
//	@Summary		Manually retry an in-progress saga
//	@Tags			saga
//	@Produce		json
//	@Param			sagaId	path		string					true	"Saga ID"
//	@Success		200		{object}	map[string]interface{}	"Retry accepted"
//	@Failure		404		{object}	map[string]interface{}	"Saga not found"
//	@Failure		409		{object}	map[string]interface{}	"Saga not retryable"
//	@Router			/api/saga/transactions/{sagaId}/retry [post]
func (h *SagaHandler) RetrySaga(c *gin.Context) {
	sagaID := c.Param("sagaId")
	err := h.starter.Retry(c.Request.Context(), sagaID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, map[string]interface{}{
			"message": "saga retry started",
			"saga_id": sagaID,
		})
	case errors.Is(err, saga.ErrSagaNotFound):
		c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, saga.ErrSagaNotRetryable):
		c.JSON(http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
	}
}
