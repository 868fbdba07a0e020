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
	"errors"
	"sync"
)

// Outcome is the structured result delivered to a caller waiting on a saga.
type Outcome struct {
	OrderID string
	Status  string
	Message string
}

// ErrDuplicateCorrelation indicates a correlation entry already exists for
// the saga id.
var ErrDuplicateCorrelation = errors.New("correlation entry already exists")

type pendingEntry struct {
	orderID string
	// outcome carries exactly one value; the sender holds the claim.
	outcome chan Outcome
}

// CorrelationTable maps in-flight saga ids to their pending caller handles.
// Entries are removed by an atomic claim shared between the result path and
// the timeout path, so exactly one of them resolves the caller.
//
// The table is owned by the orchestrator instance; it is in-memory and
// best-effort. Entries lost to a restart are terminalized by the timeout
// supervisor instead.
type CorrelationTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

// NewCorrelationTable creates an empty correlation table.
func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{entries: make(map[string]*pendingEntry)}
}

// Insert registers a pending caller for the saga and returns the channel the
// caller will receive its outcome on. The order id is cached because the
// inbound result message may omit it.
func (t *CorrelationTable) Insert(sagaID, orderID string) (<-chan Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[sagaID]; exists {
		return nil, ErrDuplicateCorrelation
	}
	entry := &pendingEntry{
		orderID: orderID,
		outcome: make(chan Outcome, 1),
	}
	t.entries[sagaID] = entry
	return entry.outcome, nil
}

// Complete claims the entry for the saga and delivers the outcome to its
// caller. It returns false when the entry was never inserted or was already
// claimed; the losing path must treat that as a no-op.
func (t *CorrelationTable) Complete(sagaID string, outcome Outcome) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[sagaID]
	if !ok {
		return false
	}
	delete(t.entries, sagaID)
	entry.outcome <- outcome
	return true
}

// Claim removes the entry without delivering an outcome. It is the timeout
// path's half of the claim-once contract: when Claim wins, the caller
// synthesizes its own TIMEOUT outcome; when it loses, the outcome is already
// on the channel returned by Insert.
func (t *CorrelationTable) Claim(sagaID string) (orderID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[sagaID]
	if !exists {
		return "", false
	}
	delete(t.entries, sagaID)
	return entry.orderID, true
}

// Peek returns the cached order id for the saga without claiming the entry.
func (t *CorrelationTable) Peek(sagaID string) (orderID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[sagaID]
	if !exists {
		return "", false
	}
	return entry.orderID, true
}

// Len returns the number of pending entries.
func (t *CorrelationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
