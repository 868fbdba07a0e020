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

// Package paymentsim is a stand-in for the external payment service, used
// for local end-to-end runs: it consumes payment requests, applies a simple
// decline rule and publishes results, and it acknowledges cancel signals.
package paymentsim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/internal/ordersaga/messaging"
	"github.com/mallkit/ordersaga/pkg/logger"
)

// Consumer group for the simulated payment service.
const requestConsumerGroup = "payment-saga-group"

// DeclineRule decides whether a payment request is declined and with what
// message. The default declines nothing.
type DeclineRule func(req messaging.PaymentRequest) (declined bool, message string)

// DeclineOver returns a rule declining requests above the given amount.
func DeclineOver(limit float64) DeclineRule {
	return func(req messaging.PaymentRequest) (bool, string) {
		if req.Amount > limit {
			return true, "amount exceeds simulated limit"
		}
		return false, ""
	}
}

// Simulator consumes payment.request, publishes payment.result and logs
// payment.cancel signals.
type Simulator struct {
	requests *kafka.Reader
	cancels  *kafka.Reader
	results  *kafka.Writer
	rule     DeclineRule
	delay    time.Duration
}

// New creates a simulator against the given brokers. A nil rule approves
// every payment; delay models gateway latency.
func New(brokers []string, rule DeclineRule, delay time.Duration) *Simulator {
	if rule == nil {
		rule = func(messaging.PaymentRequest) (bool, string) { return false, "" }
	}
	return &Simulator{
		requests: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: requestConsumerGroup,
			Topic:   messaging.TopicPaymentRequest,
		}),
		cancels: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: "payment-cancel-group",
			Topic:   messaging.TopicPaymentCancel,
		}),
		results: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        messaging.TopicPaymentResult,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		rule:  rule,
		delay: delay,
	}
}

// Run consumes both topics until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	go s.consumeCancels(ctx)
	return s.consumeRequests(ctx)
}

func (s *Simulator) consumeRequests(ctx context.Context) error {
	for {
		msg, err := s.requests.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var req messaging.PaymentRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			logger.GetLogger().Error("undecodable payment request, dropping", zap.Error(err))
		} else {
			s.process(ctx, req)
		}

		if err := s.requests.CommitMessages(ctx, msg); err != nil {
			logger.GetLogger().Error("commit payment request failed", zap.Error(err))
		}
	}
}

func (s *Simulator) process(ctx context.Context, req messaging.PaymentRequest) {
	logger.GetLogger().Info("payment request received",
		zap.String("order_id", req.OrderID),
		zap.String("saga_id", req.SagaID),
		zap.Float64("amount", req.Amount))

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return
		}
	}

	result := messaging.PaymentResult{
		OrderID: req.OrderID,
		Status:  messaging.PaymentStatusCompleted,
		Message: "Payment processed successfully",
		SagaID:  req.SagaID,
	}
	if declined, reason := s.rule(req); declined {
		result.Status = messaging.PaymentStatusFailed
		result.Message = reason
	}

	value, err := json.Marshal(result)
	if err != nil {
		logger.GetLogger().Error("marshal payment result failed", zap.Error(err))
		return
	}
	if err := s.results.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.SagaID),
		Value: value,
	}); err != nil {
		logger.GetLogger().Error("publish payment result failed",
			zap.String("saga_id", req.SagaID),
			zap.Error(err))
		return
	}
	logger.GetLogger().Info("payment result published",
		zap.String("saga_id", req.SagaID),
		zap.String("status", result.Status))
}

func (s *Simulator) consumeCancels(ctx context.Context) {
	for {
		msg, err := s.cancels.FetchMessage(ctx)
		if err != nil {
			return
		}

		var cancel messaging.PaymentCancel
		if err := json.Unmarshal(msg.Value, &cancel); err != nil {
			logger.GetLogger().Error("undecodable payment cancel, dropping", zap.Error(err))
		} else {
			logger.GetLogger().Info("payment cancel received",
				zap.String("order_id", cancel.OrderID),
				zap.String("saga_id", cancel.SagaID),
				zap.String("reason", cancel.Reason))
		}

		if err := s.cancels.CommitMessages(ctx, msg); err != nil {
			logger.GetLogger().Error("commit payment cancel failed", zap.Error(err))
		}
	}
}

// Close closes the simulator's Kafka endpoints.
func (s *Simulator) Close() error {
	rErr := s.requests.Close()
	cErr := s.cancels.Close()
	wErr := s.results.Close()
	if rErr != nil {
		return rErr
	}
	if cErr != nil {
		return cErr
	}
	return wErr
}
