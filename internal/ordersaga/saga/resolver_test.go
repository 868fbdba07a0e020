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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
)

// fakeCompensator records compensation requests.
type fakeCompensator struct {
	mu      sync.Mutex
	calls   []string
	reasons []string
	err     error
}

func (c *fakeCompensator) CompensateSaga(_ context.Context, sagaID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sagaID)
	c.reasons = append(c.reasons, reason)
	return c.err
}

func (c *fakeCompensator) compensated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func TestResultCorrelator_Await_ResultFirst(t *testing.T) {
	table := NewCorrelationTable()
	comp := &fakeCompensator{}
	correlator := NewResultCorrelator(table, comp)

	wait, err := table.Insert("saga-1", "order-1")
	require.NoError(t, err)

	go func() {
		table.Complete("saga-1", Outcome{
			OrderID: "order-1",
			Status:  model.OrderStatusCompleted,
			Message: "Order completed successfully",
		})
	}()

	outcome := correlator.Await(context.Background(), "saga-1", wait, time.Second)
	assert.Equal(t, model.OrderStatusCompleted, outcome.Status)
	assert.Equal(t, "order-1", outcome.OrderID)
	assert.Empty(t, comp.compensated())
}

func TestResultCorrelator_Await_Timeout(t *testing.T) {
	table := NewCorrelationTable()
	comp := &fakeCompensator{}
	correlator := NewResultCorrelator(table, comp)

	wait, err := table.Insert("saga-1", "order-1")
	require.NoError(t, err)

	outcome := correlator.Await(context.Background(), "saga-1", wait, 10*time.Millisecond)
	assert.Equal(t, model.OutcomeTimeout, outcome.Status)
	assert.Equal(t, "order-1", outcome.OrderID)
	assert.Equal(t, "order processing timed out", outcome.Message)

	// The timeout path must have compensated the saga, and the entry must be
	// gone so a late result finds nothing to deliver to.
	assert.Equal(t, []string{"saga-1"}, comp.compensated())
	assert.False(t, table.Complete("saga-1", Outcome{Status: model.OrderStatusCompleted}))
}

func TestResultCorrelator_Await_TimeoutCompensationError(t *testing.T) {
	table := NewCorrelationTable()
	comp := &fakeCompensator{err: errors.New("db down")}
	correlator := NewResultCorrelator(table, comp)

	wait, err := table.Insert("saga-1", "order-1")
	require.NoError(t, err)

	// Even a failed compensation still answers TIMEOUT; retry is the
	// supervisor's job.
	outcome := correlator.Await(context.Background(), "saga-1", wait, 10*time.Millisecond)
	assert.Equal(t, model.OutcomeTimeout, outcome.Status)
}

func TestResultCorrelator_Await_ContextCancelled(t *testing.T) {
	table := NewCorrelationTable()
	comp := &fakeCompensator{}
	correlator := NewResultCorrelator(table, comp)

	wait, err := table.Insert("saga-1", "order-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := correlator.Await(ctx, "saga-1", wait, time.Minute)
	assert.Equal(t, model.OutcomeTimeout, outcome.Status)
	assert.Equal(t, []string{"saga-1"}, comp.compensated())
}

func TestResultCorrelator_Await_LostClaimReturnsRealOutcome(t *testing.T) {
	table := NewCorrelationTable()
	comp := &fakeCompensator{}
	correlator := NewResultCorrelator(table, comp)

	wait, err := table.Insert("saga-1", "order-1")
	require.NoError(t, err)

	// The result path claims first; the correlator's timeout path must then
	// fall back to the delivered outcome instead of synthesizing TIMEOUT.
	require.True(t, table.Complete("saga-1", Outcome{
		OrderID: "order-1",
		Status:  model.OrderStatusCompleted,
		Message: "Order completed successfully",
	}))

	outcome := correlator.resolveTimeout("saga-1", wait)
	assert.Equal(t, model.OrderStatusCompleted, outcome.Status)
	assert.Empty(t, comp.compensated())
}
