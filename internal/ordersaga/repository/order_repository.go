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

package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
)

// OrderRepository is the interface for the order store.
type OrderRepository interface {
	Create(order *model.Order) error
	Update(order *model.Order) error
	FindByOrderID(orderID string) (*model.Order, error)
	// FindBySagaID looks an order up through its saga back-reference. This is
	// the fallback path for payment results that omit the order id.
	FindBySagaID(sagaID string) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create persists a new order.
func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

// Update persists the full order state.
func (r *orderRepository) Update(order *model.Order) error {
	return r.db.Save(order).Error
}

// FindByOrderID returns the order with the given order id, or nil when the
// order does not exist.
func (r *orderRepository) FindByOrderID(orderID string) (*model.Order, error) {
	var order model.Order
	result := r.db.Where("order_id = ?", orderID).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &order, nil
}

// FindBySagaID returns the first order carrying the given saga id, or nil.
func (r *orderRepository) FindBySagaID(sagaID string) (*model.Order, error) {
	var order model.Order
	result := r.db.Where("saga_id = ?", sagaID).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &order, nil
}
