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

// Package repository contains the gorm-backed stores for orders and saga
// records. Saga record updates are the durability boundary of the
// orchestrator: a transition has happened only once it is persisted here.
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
)

// SagaRepository is the interface for the saga record store.
type SagaRepository interface {
	Create(saga *model.SagaRecord) error
	Update(saga *model.SagaRecord) error
	FindBySagaID(sagaID string) (*model.SagaRecord, error)
	FindByOrderID(orderID string) (*model.SagaRecord, error)
	// FindStale returns in-progress sagas started before the given instant.
	FindStale(before time.Time) ([]model.SagaRecord, error)
	ListInProgress() ([]model.SagaRecord, error)
	// CountByStep returns the number of in-progress sagas currently at step.
	CountByStep(step string) (int64, error)
}

type sagaRepository struct {
	db *gorm.DB
}

// NewSagaRepository creates a new saga record repository.
func NewSagaRepository(db *gorm.DB) SagaRepository {
	return &sagaRepository{db: db}
}

// Create persists a new saga record.
func (r *sagaRepository) Create(saga *model.SagaRecord) error {
	return r.db.Create(saga).Error
}

// Update persists the full saga record state.
func (r *sagaRepository) Update(saga *model.SagaRecord) error {
	return r.db.Save(saga).Error
}

// FindBySagaID returns the saga with the given saga id, or nil when no such
// saga exists. Absence is not an error: an inbound result for an unknown saga
// is an expected race with timeout compensation.
func (r *sagaRepository) FindBySagaID(sagaID string) (*model.SagaRecord, error) {
	var saga model.SagaRecord
	result := r.db.Where("saga_id = ?", sagaID).First(&saga)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &saga, nil
}

// FindByOrderID returns the saga driving the given order, or nil.
func (r *sagaRepository) FindByOrderID(orderID string) (*model.SagaRecord, error) {
	var saga model.SagaRecord
	result := r.db.Where("order_id = ?", orderID).First(&saga)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &saga, nil
}

// FindStale returns in-progress sagas whose started_at is before the cutoff.
func (r *sagaRepository) FindStale(before time.Time) ([]model.SagaRecord, error) {
	var sagas []model.SagaRecord
	result := r.db.
		Where("status = ? AND started_at < ?", model.SagaStatusInProgress, before).
		Find(&sagas)
	if result.Error != nil {
		return nil, result.Error
	}
	return sagas, nil
}

// ListInProgress returns all sagas still in progress.
func (r *sagaRepository) ListInProgress() ([]model.SagaRecord, error) {
	var sagas []model.SagaRecord
	result := r.db.Where("status = ?", model.SagaStatusInProgress).Find(&sagas)
	if result.Error != nil {
		return nil, result.Error
	}
	return sagas, nil
}

// CountByStep counts in-progress sagas at the given step.
func (r *sagaRepository) CountByStep(step string) (int64, error) {
	var count int64
	result := r.db.Model(&model.SagaRecord{}).
		Where("current_step = ? AND status = ?", step, model.SagaStatusInProgress).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
