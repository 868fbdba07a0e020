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

package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/internal/ordersaga/messaging"
	"github.com/mallkit/ordersaga/internal/ordersaga/metrics"
	"github.com/mallkit/ordersaga/internal/ordersaga/model"
	"github.com/mallkit/ordersaga/internal/ordersaga/repository"
	"github.com/mallkit/ordersaga/pkg/logger"
)

var (
	// ErrSagaNotFound indicates no saga record exists for the given id.
	ErrSagaNotFound = errors.New("saga not found")

	// ErrSagaNotRetryable indicates a retry was requested for a saga that is
	// not in progress.
	ErrSagaNotRetryable = errors.New("saga is not in progress, cannot retry")
)

// Orchestrator drives sagas from start to a terminal step. It owns the
// correlation table, persists every transition through the saga repository,
// and serializes work per saga with keyed locks; there is no global lock.
type Orchestrator struct {
	sagas     repository.SagaRepository
	orders    repository.OrderRepository
	publisher messaging.Publisher
	table     *CorrelationTable

	// locks holds one mutex per in-flight saga id.
	locks sync.Map
}

// NewOrchestrator creates a saga orchestrator.
func NewOrchestrator(
	sagas repository.SagaRepository,
	orders repository.OrderRepository,
	publisher messaging.Publisher,
	table *CorrelationTable,
) *Orchestrator {
	return &Orchestrator{
		sagas:     sagas,
		orders:    orders,
		publisher: publisher,
		table:     table,
	}
}

// Table returns the correlation table owned by this orchestrator.
func (o *Orchestrator) Table() *CorrelationTable {
	return o.table
}

// Start begins a new order/payment saga: it persists the saga record,
// registers the caller's correlation entry, creates the order, publishes the
// payment request and leaves the saga at PAYMENT_REQUESTED. It returns as
// soon as the request is published; the caller waits for the payment outcome
// on the returned channel.
//
// Any failure mid-sequence compensates the partial saga before the wrapped
// error is returned.
func (o *Orchestrator) Start(ctx context.Context, req model.CreateOrderRequest) (string, <-chan Outcome, error) {
	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}
	sagaID := uuid.New().String()

	now := time.Now()
	saga := &model.SagaRecord{
		SagaID:      sagaID,
		OrderID:     orderID,
		Amount:      req.Amount,
		CurrentStep: StepStarted.String(),
		Status:      model.SagaStatusInProgress,
		LastMessage: "saga started",
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.sagas.Create(saga); err != nil {
		return "", nil, fmt.Errorf("create saga record: %w", err)
	}

	lock := o.lockFor(sagaID)
	lock.Lock()
	defer lock.Unlock()

	wait, err := o.table.Insert(sagaID, orderID)
	if err != nil {
		return "", nil, o.failStart(ctx, saga, err)
	}

	logger.GetLogger().Info("saga started",
		zap.String("saga_id", sagaID),
		zap.String("order_id", orderID),
		zap.Float64("amount", req.Amount))

	order := &model.Order{
		OrderID: orderID,
		Amount:  req.Amount,
		Status:  model.OrderStatusPending,
		SagaID:  sagaID,
	}
	if err := o.orders.Create(order); err != nil {
		return "", nil, o.failStart(ctx, saga, fmt.Errorf("create order: %w", err))
	}
	if err := o.transition(saga, EventOrderCreated, "order created"); err != nil {
		return "", nil, o.failStart(ctx, saga, err)
	}

	if err := o.publisher.PublishPaymentRequest(ctx, messaging.PaymentRequest{
		OrderID:       orderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		SagaID:        sagaID,
	}); err != nil {
		return "", nil, o.failStart(ctx, saga, err)
	}
	if err := o.transition(saga, EventPaymentPublished, "payment request sent"); err != nil {
		return "", nil, o.failStart(ctx, saga, err)
	}

	metrics.IncSagaStarted()
	return sagaID, wait, nil
}

// failStart compensates a partially started saga and wraps the cause for the
// caller. The lock is already held.
func (o *Orchestrator) failStart(ctx context.Context, saga *model.SagaRecord, cause error) error {
	if err := o.compensateLocked(ctx, saga, cause.Error()); err != nil {
		logger.GetLogger().Error("compensation after failed start also failed",
			zap.String("saga_id", saga.SagaID),
			zap.Error(err))
	}
	return fmt.Errorf("order saga failed: %w", cause)
}

// HandleResult applies an inbound payment result to its saga. A result for
// an unknown or already finished saga is logged and dropped: it is an
// expected race with timeout-driven compensation, never an error.
func (o *Orchestrator) HandleResult(ctx context.Context, result messaging.PaymentResult) error {
	lock := o.lockFor(result.SagaID)
	lock.Lock()
	defer lock.Unlock()

	saga, err := o.sagas.FindBySagaID(result.SagaID)
	if err != nil {
		return fmt.Errorf("load saga %s: %w", result.SagaID, err)
	}
	if saga == nil {
		logger.GetLogger().Warn("payment result for unknown saga, dropping",
			zap.String("saga_id", result.SagaID),
			zap.String("status", result.Status))
		return nil
	}
	if saga.Status == model.SagaStatusFinished {
		logger.GetLogger().Info("payment result for finished saga, dropping",
			zap.String("saga_id", result.SagaID),
			zap.String("current_step", saga.CurrentStep))
		return nil
	}

	if !result.Succeeded() {
		reason := result.Message
		if reason == "" {
			reason = "payment failed"
		}
		return o.compensateLocked(ctx, saga, reason)
	}
	return o.completeLocked(saga, result)
}

// completeLocked finishes a saga after a successful payment: the order is
// marked completed and the saga transitions to COMPLETED.
func (o *Orchestrator) completeLocked(saga *model.SagaRecord, result messaging.PaymentResult) error {
	order, err := o.resolveOrder(saga, result.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.GetLogger().Error("no order found for completed saga",
			zap.String("saga_id", saga.SagaID),
			zap.String("order_id", saga.OrderID))
	} else {
		order.Status = model.OrderStatusCompleted
		if err := o.orders.Update(order); err != nil {
			return fmt.Errorf("mark order completed: %w", err)
		}
	}

	if err := o.transition(saga, EventPaymentSucceeded, "order and payment completed"); err != nil {
		return err
	}

	logger.GetLogger().Info("saga completed",
		zap.String("saga_id", saga.SagaID),
		zap.String("order_id", saga.OrderID))

	o.table.Complete(saga.SagaID, Outcome{
		OrderID: saga.OrderID,
		Status:  model.OrderStatusCompleted,
		Message: "Order completed successfully",
	})
	return nil
}

// Compensate unwinds a saga: a best-effort payment cancel when the payment
// request is already out, then cancellation of the order. The caller's record
// is only an id carrier; the current state is reloaded under the saga's lock,
// so a record that went terminal in the meantime is a guaranteed no-op. That
// makes races between the supervisor sweep, the caller timeout and a
// completing payment result safe.
func (o *Orchestrator) Compensate(ctx context.Context, saga *model.SagaRecord, reason string) error {
	return o.CompensateSaga(ctx, saga.SagaID, reason)
}

// CompensateSaga implements Compensator for callers that only hold a saga id.
func (o *Orchestrator) CompensateSaga(ctx context.Context, sagaID, reason string) error {
	lock := o.lockFor(sagaID)
	lock.Lock()
	defer lock.Unlock()

	saga, err := o.sagas.FindBySagaID(sagaID)
	if err != nil {
		return fmt.Errorf("load saga %s: %w", sagaID, err)
	}
	if saga == nil {
		logger.GetLogger().Warn("compensation requested for unknown saga",
			zap.String("saga_id", sagaID))
		return nil
	}
	return o.compensateLocked(ctx, saga, reason)
}

func (o *Orchestrator) compensateLocked(ctx context.Context, saga *model.SagaRecord, reason string) error {
	step, err := ParseStep(saga.CurrentStep)
	if err != nil {
		return err
	}
	if step.IsTerminal() || saga.Status == model.SagaStatusFinished {
		return nil
	}

	logger.GetLogger().Info("compensating saga",
		zap.String("saga_id", saga.SagaID),
		zap.String("order_id", saga.OrderID),
		zap.String("current_step", saga.CurrentStep),
		zap.String("reason", reason))

	// Past the publish point the payment side may have work in flight; the
	// cancel signal is fire-and-forget and never blocks the order
	// cancellation.
	if step >= StepPaymentRequested {
		if err := o.publisher.PublishPaymentCancel(ctx, messaging.PaymentCancel{
			OrderID: saga.OrderID,
			SagaID:  saga.SagaID,
			Reason:  reason,
		}); err != nil {
			logger.GetLogger().Warn("payment cancel publish failed",
				zap.String("saga_id", saga.SagaID),
				zap.Error(err))
		}
	}

	outcome := Outcome{
		OrderID: saga.OrderID,
		Status:  model.OrderStatusCancelled,
		Message: reason,
	}
	if reason == ReasonTimeout {
		outcome.Status = model.OutcomeTimeout
		outcome.Message = "order processing timed out"
	}

	if err := o.cancelOrder(saga, reason); err != nil {
		if tErr := o.transition(saga, EventCompensationFailed, "compensation failed: "+err.Error()); tErr != nil {
			logger.GetLogger().Error("failed to persist compensation failure",
				zap.String("saga_id", saga.SagaID),
				zap.Error(tErr))
		}
		outcome.Status = model.OutcomeError
		outcome.Message = "compensation failed: " + err.Error()
		o.table.Complete(saga.SagaID, outcome)
		return fmt.Errorf("compensate saga %s: %w", saga.SagaID, err)
	}

	if err := o.transition(saga, EventCompensate, "compensated: "+reason); err != nil {
		return err
	}
	if reason == ReasonTimeout {
		metrics.IncSagaTimedOut()
	}

	o.table.Complete(saga.SagaID, outcome)
	return nil
}

// cancelOrder cancels the saga's order and records the failure reason.
// A missing order is tolerated: the saga may have failed before the order
// row was written.
func (o *Orchestrator) cancelOrder(saga *model.SagaRecord, reason string) error {
	order, err := o.resolveOrder(saga, saga.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.GetLogger().Warn("no order to cancel",
			zap.String("saga_id", saga.SagaID),
			zap.String("order_id", saga.OrderID))
		return nil
	}
	order.Status = model.OrderStatusCancelled
	order.FailureReason = reason
	if err := o.orders.Update(order); err != nil {
		return fmt.Errorf("cancel order %s: %w", order.OrderID, err)
	}
	logger.GetLogger().Info("order cancelled",
		zap.String("order_id", order.OrderID),
		zap.String("reason", reason))
	return nil
}

// resolveOrder finds the saga's order by order id first, falling back to the
// saga id back-reference for results that omitted the order id.
func (o *Orchestrator) resolveOrder(saga *model.SagaRecord, orderID string) (*model.Order, error) {
	if orderID == "" {
		orderID = saga.OrderID
	}
	if orderID != "" {
		order, err := o.orders.FindByOrderID(orderID)
		if err != nil {
			return nil, fmt.Errorf("find order %s: %w", orderID, err)
		}
		if order != nil {
			return order, nil
		}
	}
	order, err := o.orders.FindBySagaID(saga.SagaID)
	if err != nil {
		return nil, fmt.Errorf("find order by saga %s: %w", saga.SagaID, err)
	}
	return order, nil
}

// Retry is the manual operator hook for sagas stuck in progress. It
// dispatches on the current step but intentionally performs no resend; the
// concrete retry strategy is an extension point.
func (o *Orchestrator) Retry(ctx context.Context, sagaID string) error {
	saga, err := o.sagas.FindBySagaID(sagaID)
	if err != nil {
		return fmt.Errorf("load saga %s: %w", sagaID, err)
	}
	if saga == nil {
		return ErrSagaNotFound
	}
	if saga.Status != model.SagaStatusInProgress {
		return ErrSagaNotRetryable
	}

	switch saga.CurrentStep {
	case StepOrderCreated.String():
		// Extension point: resend the payment request.
		logger.GetLogger().Info("manual retry requested before payment was sent",
			zap.String("saga_id", sagaID))
	case StepPaymentRequested.String():
		// Extension point: re-poll the payment status.
		logger.GetLogger().Info("manual retry requested while awaiting payment result",
			zap.String("saga_id", sagaID))
	default:
		logger.GetLogger().Warn("manual retry requested at non-retryable step",
			zap.String("saga_id", sagaID),
			zap.String("current_step", saga.CurrentStep))
	}
	return nil
}

// transition applies event to the saga through the state machine and
// persists the result. Entering a terminal step flips the status to FINISHED
// and stamps finishedAt exactly once.
func (o *Orchestrator) transition(saga *model.SagaRecord, event Event, message string) error {
	current, err := ParseStep(saga.CurrentStep)
	if err != nil {
		return err
	}
	next, err := Next(current, event)
	if err != nil {
		return fmt.Errorf("step %s, event %s: %w", current, event, err)
	}

	now := time.Now()
	saga.CurrentStep = next.String()
	saga.LastMessage = message
	saga.UpdatedAt = now
	if next.IsTerminal() {
		saga.Status = model.SagaStatusFinished
		if saga.FinishedAt == nil {
			finished := now
			saga.FinishedAt = &finished
		}
	}

	if err := o.sagas.Update(saga); err != nil {
		return fmt.Errorf("persist transition to %s: %w", next, err)
	}
	if next.IsTerminal() {
		metrics.IncSagaFinished(next.String())
	}
	return nil
}

// lockFor returns the mutex serializing work on one saga.
func (o *Orchestrator) lockFor(sagaID string) *sync.Mutex {
	lock, _ := o.locks.LoadOrStore(sagaID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
