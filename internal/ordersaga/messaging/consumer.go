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
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/pkg/logger"
)

// fetchRetryDelay is the pause before re-fetching after a transient broker
// error. Variable so tests can shorten it.
var fetchRetryDelay = time.Second

// ResultHandler applies an inbound payment result to its saga. The
// orchestrator implements it.
type ResultHandler interface {
	HandleResult(ctx context.Context, result PaymentResult) error
}

// resultReader is the subset of kafka.Reader the consumer uses; tests
// substitute a fake.
type resultReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ResultConsumer reads payment results from the bus and feeds them into the
// orchestrator. Delivery is at-least-once: decode and handler failures are
// logged and the message is committed anyway, because a payment result that
// cannot be applied (unknown saga, already compensated) is an expected race,
// and redelivering it cannot change that.
type ResultConsumer struct {
	reader  resultReader
	handler ResultHandler
}

// NewResultConsumer creates a consumer on the payment.result topic in the
// orchestrator's consumer group.
func NewResultConsumer(brokers []string, handler ResultHandler) *ResultConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: ResultConsumerGroup,
		Topic:   TopicPaymentResult,
	})
	return &ResultConsumer{reader: reader, handler: handler}
}

// Run consumes until the context is cancelled. Nothing that happens to a
// single message may kill the worker: handler errors are logged, and
// transient fetch errors are retried after a short pause. Sagas whose results
// cannot be consumed are eventually terminalized by the timeout supervisor,
// but that backstop is no reason to stop consuming.
func (c *ResultConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			logger.GetLogger().Error("fetch payment result failed, retrying",
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.GetLogger().Error("commit payment result failed", zap.Error(err))
		}
	}
}

func (c *ResultConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var result PaymentResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		logger.GetLogger().Error("undecodable payment result, dropping",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}

	logger.GetLogger().Info("payment result received",
		zap.String("saga_id", result.SagaID),
		zap.String("order_id", result.OrderID),
		zap.String("status", result.Status))

	if err := c.handler.HandleResult(ctx, result); err != nil {
		logger.GetLogger().Error("payment result handling failed",
			zap.String("saga_id", result.SagaID),
			zap.Error(err))
	}
}

// Close closes the underlying reader.
func (c *ResultConsumer) Close() error {
	return c.reader.Close()
}
