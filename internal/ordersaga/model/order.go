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

// Package model defines the persisted entities of the saga service and the
// request/response types of its HTTP surface.
package model

import (
	"time"
)

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Outcome statuses visible to callers, beyond the order statuses above.
const (
	OutcomeTimeout  = "TIMEOUT"
	OutcomeError    = "ERROR"
	OutcomeNotFound = "NOT_FOUND"
)

// Order is the durable order row created as the first saga step.
//
// Invariant: once Status is CANCELLED, FailureReason is non-empty.
type Order struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	OrderID       string    `gorm:"column:order_id;uniqueIndex;not null" json:"order_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	FailureReason string    `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	SagaID        string    `gorm:"column:saga_id;index" json:"saga_id"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the gorm table name.
func (Order) TableName() string {
	return "orders"
}

// CreateOrderRequest is the request body for starting an order/payment saga.
// OrderID is optional; one is generated when absent.
type CreateOrderRequest struct {
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

// OrderResponse is the caller-facing outcome of a saga.
type OrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
