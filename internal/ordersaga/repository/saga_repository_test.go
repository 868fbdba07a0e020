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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/mallkit/ordersaga/internal/ordersaga/model"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB.Close()
	}
	return gormDB, mock, cleanup
}

func sagaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "saga_id", "order_id", "amount", "current_step", "status",
		"last_message", "started_at", "updated_at", "finished_at",
	})
}

func TestSagaRepository_Create(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success_create_saga",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO `saga_transactions`").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectError: false,
		},
		{
			name: "error_database_failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO `saga_transactions`").
					WillReturnError(errors.New("database error"))
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.setupMock(mock)

			repo := NewSagaRepository(db)
			now := time.Now()
			err := repo.Create(&model.SagaRecord{
				SagaID:      "saga-1",
				OrderID:     "order-1",
				Amount:      49.99,
				CurrentStep: "STARTED",
				Status:      model.SagaStatusInProgress,
				StartedAt:   now,
				UpdatedAt:   now,
			})

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSagaRepository_Update(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `saga_transactions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewSagaRepository(db)
	now := time.Now()
	err := repo.Update(&model.SagaRecord{
		ID:          1,
		SagaID:      "saga-1",
		OrderID:     "order-1",
		Amount:      49.99,
		CurrentStep: "COMPLETED",
		Status:      model.SagaStatusFinished,
		LastMessage: "order and payment completed",
		StartedAt:   now,
		UpdatedAt:   now,
		FinishedAt:  &now,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSagaRepository_FindBySagaID(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantSaga  bool
		wantErr   bool
	}{
		{
			name: "success_found",
			setupMock: func(mock sqlmock.Sqlmock) {
				now := time.Now()
				mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
					WithArgs("saga-1", 1).
					WillReturnRows(sagaRows().AddRow(
						1, "saga-1", "order-1", 49.99, "PAYMENT_REQUESTED",
						model.SagaStatusInProgress, "payment request sent", now, now, nil,
					))
			},
			wantSaga: true,
		},
		{
			name: "not_found_returns_nil_without_error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
					WithArgs("saga-missing", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
		},
		{
			name: "error_database_failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.setupMock(mock)

			repo := NewSagaRepository(db)
			sagaID := "saga-1"
			if tt.name == "not_found_returns_nil_without_error" {
				sagaID = "saga-missing"
			}
			saga, err := repo.FindBySagaID(sagaID)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.wantSaga {
				require.NotNil(t, saga)
				assert.Equal(t, "saga-1", saga.SagaID)
				assert.Equal(t, "PAYMENT_REQUESTED", saga.CurrentStep)
			} else {
				assert.Nil(t, saga)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSagaRepository_FindByOrderID(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
		WithArgs("order-1", 1).
		WillReturnRows(sagaRows().AddRow(
			1, "saga-1", "order-1", 49.99, "COMPLETED",
			model.SagaStatusFinished, "order and payment completed", now, now, now,
		))

	repo := NewSagaRepository(db)
	saga, err := repo.FindByOrderID("order-1")
	require.NoError(t, err)
	require.NotNil(t, saga)
	assert.Equal(t, "saga-1", saga.SagaID)
	require.NotNil(t, saga.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSagaRepository_FindStale(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	cutoff := now.Add(-time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
		WithArgs(model.SagaStatusInProgress, cutoff).
		WillReturnRows(sagaRows().
			AddRow(1, "saga-1", "order-1", 10.0, "PAYMENT_REQUESTED",
				model.SagaStatusInProgress, "payment request sent", now.Add(-2*time.Minute), now.Add(-2*time.Minute), nil).
			AddRow(2, "saga-2", "order-2", 20.0, "ORDER_CREATED",
				model.SagaStatusInProgress, "order created", now.Add(-3*time.Minute), now.Add(-3*time.Minute), nil))

	repo := NewSagaRepository(db)
	stale, err := repo.FindStale(cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "saga-1", stale[0].SagaID)
	assert.Equal(t, "saga-2", stale[1].SagaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSagaRepository_ListInProgress(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `saga_transactions`").
		WithArgs(model.SagaStatusInProgress).
		WillReturnRows(sagaRows().AddRow(
			1, "saga-1", "order-1", 10.0, "PAYMENT_REQUESTED",
			model.SagaStatusInProgress, "payment request sent", now, now, nil,
		))

	repo := NewSagaRepository(db)
	sagas, err := repo.ListInProgress()
	require.NoError(t, err)
	require.Len(t, sagas, 1)
	assert.Equal(t, model.SagaStatusInProgress, sagas[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSagaRepository_CountByStep(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `saga_transactions`").
		WithArgs("PAYMENT_REQUESTED", model.SagaStatusInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	repo := NewSagaRepository(db)
	count, err := repo.CountByStep("PAYMENT_REQUESTED")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
