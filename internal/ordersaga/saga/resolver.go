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
	"time"

	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
	"github.com/mallkit/ordersaga/pkg/logger"
)

// DefaultAwaitTimeout is the per-caller wait applied when no explicit
// timeout is configured.
const DefaultAwaitTimeout = 30 * time.Second

// ReasonTimeout is the compensation reason used by both the caller timeout
// and the supervisor sweep, so either clock produces the same terminal state.
const ReasonTimeout = "timeout"

// Compensator forces a saga into compensation by id. The orchestrator
// implements it; the correlator and the supervisor depend only on this.
type Compensator interface {
	CompensateSaga(ctx context.Context, sagaID, reason string) error
}

// ResultCorrelator bridges the orchestrator's asynchronous completion of a
// saga back to the caller blocked on it. The caller-facing timeout and the
// saga-level timeout are independent clocks; when the caller's fires first,
// the correlator itself compensates the saga so the caller never receives a
// timeout answer while the saga silently stays in progress.
type ResultCorrelator struct {
	table       *CorrelationTable
	compensator Compensator
}

// NewResultCorrelator creates a correlator over the orchestrator's
// correlation table.
func NewResultCorrelator(table *CorrelationTable, compensator Compensator) *ResultCorrelator {
	return &ResultCorrelator{table: table, compensator: compensator}
}

// Await blocks until the saga's outcome is delivered or the timeout elapses.
// On timeout it claims the correlation entry; when the claim wins it
// compensates the saga and synthesizes a TIMEOUT outcome, and when it loses
// the race the real outcome is already in flight and is returned instead.
// Await always resolves within the timeout plus the compensation latency.
func (c *ResultCorrelator) Await(ctx context.Context, sagaID string, wait <-chan Outcome, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-wait:
		return outcome
	case <-ctx.Done():
		return c.resolveTimeout(sagaID, wait)
	case <-timer.C:
		return c.resolveTimeout(sagaID, wait)
	}
}

// resolveTimeout settles the claim-once race with the result path. Exactly
// one of the two removes the entry; the loser here falls back to the outcome
// the winner already delivered.
func (c *ResultCorrelator) resolveTimeout(sagaID string, wait <-chan Outcome) Outcome {
	orderID, claimed := c.table.Claim(sagaID)
	if !claimed {
		// The result path claimed first; its outcome is already on the
		// channel, the send happens inside the claim.
		return <-wait
	}

	// Compensation runs on a fresh context: the caller's context is the one
	// that just expired.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.compensator.CompensateSaga(ctx, sagaID, ReasonTimeout); err != nil {
		logger.GetLogger().Error("timeout compensation failed",
			zap.String("saga_id", sagaID),
			zap.Error(err))
	}

	return Outcome{
		OrderID: orderID,
		Status:  model.OutcomeTimeout,
		Message: "order processing timed out",
	}
}
