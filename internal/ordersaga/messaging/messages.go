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

// Package messaging carries the saga's Kafka surface: the payment topics,
// their JSON payloads, the publisher used by the orchestrator, and the
// consumer that feeds payment results back into it.
package messaging

// Kafka topics shared with the payment service.
const (
	TopicPaymentRequest = "payment.request"
	TopicPaymentResult  = "payment.result"
	TopicPaymentCancel  = "payment.cancel"
)

// Consumer group for payment results on the orchestrator side.
const ResultConsumerGroup = "order-saga-group"

// Payment result statuses produced by the payment service.
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusSuccess   = "SUCCESS"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusError     = "ERROR"
)

// PaymentRequest is published on payment.request to start the payment step.
type PaymentRequest struct {
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	SagaID        string  `json:"saga_id"`
}

// PaymentResult is consumed from payment.result. OrderID may be empty; the
// orchestrator resolves the order through the saga's stored order id or by a
// store lookup on the saga id.
type PaymentResult struct {
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
	SagaID  string `json:"saga_id"`
}

// Succeeded reports whether the result denotes a successful payment.
func (r PaymentResult) Succeeded() bool {
	return r.Status == PaymentStatusCompleted || r.Status == PaymentStatusSuccess
}

// PaymentCancel is published on payment.cancel as the best-effort
// compensation signal toward the payment service.
type PaymentCancel struct {
	OrderID string `json:"order_id"`
	SagaID  string `json:"saga_id"`
	Reason  string `json:"reason"`
}
