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

package model

import (
	"time"
)

// Saga record statuses.
const (
	SagaStatusInProgress = "IN_PROGRESS"
	SagaStatusFinished   = "FINISHED"
)

// SagaRecord is the durable representation of a saga. It survives
// orchestrator restarts and is never deleted; finished records are retained
// for audit and status queries.
//
// Invariant: Status is FINISHED exactly when CurrentStep is terminal, and
// FinishedAt is set once, at the transition into the terminal step.
type SagaRecord struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	SagaID      string     `gorm:"column:saga_id;uniqueIndex;not null" json:"saga_id"`
	OrderID     string     `gorm:"column:order_id;index" json:"order_id"`
	Amount      float64    `json:"amount"`
	CurrentStep string     `gorm:"column:current_step" json:"current_step"`
	Status      string     `gorm:"index" json:"status"`
	LastMessage string     `gorm:"column:last_message" json:"last_message"`
	StartedAt   time.Time  `gorm:"column:started_at" json:"started_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

// TableName overrides the gorm table name.
func (SagaRecord) TableName() string {
	return "saga_transactions"
}

// SagaStatusResponse is the snapshot returned by the saga status query.
type SagaStatusResponse struct {
	SagaID      string    `json:"saga_id"`
	OrderID     string    `json:"order_id"`
	CurrentStep string    `json:"current_step"`
	Status      string    `json:"status"`
	LastMessage string    `json:"last_message"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSagaStatusResponse builds a status snapshot from a saga record.
func NewSagaStatusResponse(s *SagaRecord) *SagaStatusResponse {
	return &SagaStatusResponse{
		SagaID:      s.SagaID,
		OrderID:     s.OrderID,
		CurrentStep: s.CurrentStep,
		Status:      s.Status,
		LastMessage: s.LastMessage,
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
