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
	"sync"
	"time"

	"github.com/mallkit/ordersaga/internal/ordersaga/messaging"
	"github.com/mallkit/ordersaga/internal/ordersaga/model"
)

// memSagaRepo is an in-memory SagaRepository. It stores copies, like a real
// store would, so mutations only take effect through Update.
type memSagaRepo struct {
	mu        sync.Mutex
	sagas     map[string]model.SagaRecord
	createErr error
	updateErr error
	updates   int
}

func newMemSagaRepo() *memSagaRepo {
	return &memSagaRepo{sagas: make(map[string]model.SagaRecord)}
}

func (r *memSagaRepo) Create(saga *model.SagaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.sagas[saga.SagaID] = *saga
	return nil
}

func (r *memSagaRepo) Update(saga *model.SagaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	r.sagas[saga.SagaID] = *saga
	return nil
}

func (r *memSagaRepo) FindBySagaID(sagaID string) (*model.SagaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saga, ok := r.sagas[sagaID]
	if !ok {
		return nil, nil
	}
	copied := saga
	return &copied, nil
}

func (r *memSagaRepo) FindByOrderID(orderID string) (*model.SagaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, saga := range r.sagas {
		if saga.OrderID == orderID {
			copied := saga
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memSagaRepo) FindStale(before time.Time) ([]model.SagaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []model.SagaRecord
	for _, saga := range r.sagas {
		if saga.Status == model.SagaStatusInProgress && saga.StartedAt.Before(before) {
			stale = append(stale, saga)
		}
	}
	return stale, nil
}

func (r *memSagaRepo) ListInProgress() ([]model.SagaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SagaRecord
	for _, saga := range r.sagas {
		if saga.Status == model.SagaStatusInProgress {
			out = append(out, saga)
		}
	}
	return out, nil
}

func (r *memSagaRepo) CountByStep(step string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, saga := range r.sagas {
		if saga.CurrentStep == step && saga.Status == model.SagaStatusInProgress {
			count++
		}
	}
	return count, nil
}

func (r *memSagaRepo) get(sagaID string) model.SagaRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sagas[sagaID]
}

func (r *memSagaRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *memSagaRepo) setUpdateErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

// memOrderRepo is an in-memory OrderRepository.
type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]model.Order
	createErr error
	updateErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]model.Order)}
}

func (r *memOrderRepo) Create(order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[order.OrderID] = *order
	return nil
}

func (r *memOrderRepo) Update(order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.orders[order.OrderID] = *order
	return nil
}

func (r *memOrderRepo) FindByOrderID(orderID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := order
	return &copied, nil
}

func (r *memOrderRepo) FindBySagaID(sagaID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.SagaID == sagaID {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) get(orderID string) model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[orderID]
}

func (r *memOrderRepo) setUpdateErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

// fakePublisher records published messages and can fail on demand.
type fakePublisher struct {
	mu         sync.Mutex
	requests   []messaging.PaymentRequest
	cancels    []messaging.PaymentCancel
	requestErr error
	cancelErr  error
}

func (p *fakePublisher) PublishPaymentRequest(_ context.Context, req messaging.PaymentRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return p.requestErr
	}
	p.requests = append(p.requests, req)
	return nil
}

func (p *fakePublisher) PublishPaymentCancel(_ context.Context, cancel messaging.PaymentCancel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelErr != nil {
		return p.cancelErr
	}
	p.cancels = append(p.cancels, cancel)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) sentRequests() []messaging.PaymentRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.PaymentRequest(nil), p.requests...)
}

func (p *fakePublisher) sentCancels() []messaging.PaymentCancel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.PaymentCancel(nil), p.cancels...)
}

// newTestOrchestrator wires an orchestrator over in-memory stores.
func newTestOrchestrator() (*Orchestrator, *memSagaRepo, *memOrderRepo, *fakePublisher) {
	sagas := newMemSagaRepo()
	orders := newMemOrderRepo()
	publisher := &fakePublisher{}
	orch := NewOrchestrator(sagas, orders, publisher, NewCorrelationTable())
	return orch, sagas, orders, publisher
}
