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

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/pkg/logger"
)

// Publisher publishes the saga's outbound payment messages.
type Publisher interface {
	PublishPaymentRequest(ctx context.Context, req PaymentRequest) error
	PublishPaymentCancel(ctx context.Context, cancel PaymentCancel) error
	Close() error
}

// kafkaWriter is the subset of kafka.Writer the publisher uses; tests
// substitute a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer kafkaWriter
}

// NewPublisher creates a Kafka publisher for the given brokers. Messages are
// keyed by saga id so retries of the same saga land on the same partition.
func NewPublisher(brokers []string) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &kafkaPublisher{writer: writer}
}

// PublishPaymentRequest publishes the payment request for a saga.
func (p *kafkaPublisher) PublishPaymentRequest(ctx context.Context, req PaymentRequest) error {
	if err := p.publish(ctx, TopicPaymentRequest, req.SagaID, req); err != nil {
		return fmt.Errorf("publish payment request: %w", err)
	}
	logger.GetLogger().Info("payment request published",
		zap.String("order_id", req.OrderID),
		zap.String("saga_id", req.SagaID))
	return nil
}

// PublishPaymentCancel publishes the best-effort cancellation signal.
func (p *kafkaPublisher) PublishPaymentCancel(ctx context.Context, cancel PaymentCancel) error {
	if err := p.publish(ctx, TopicPaymentCancel, cancel.SagaID, cancel); err != nil {
		return fmt.Errorf("publish payment cancel: %w", err)
	}
	logger.GetLogger().Info("payment cancel published",
		zap.String("order_id", cancel.OrderID),
		zap.String("saga_id", cancel.SagaID),
		zap.String("reason", cancel.Reason))
	return nil
}

func (p *kafkaPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
