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

	"github.com/mallkit/ordersaga/internal/ordersaga/metrics"
	"github.com/mallkit/ordersaga/internal/ordersaga/repository"
	"github.com/mallkit/ordersaga/pkg/logger"
)

// Supervisor timing defaults, mirroring the sweep cadence the service has
// always run with: the sweep interval stays shorter than the staleness
// threshold so a stuck saga is terminal within threshold plus one interval.
const (
	DefaultSweepInterval      = 30 * time.Second
	DefaultStalenessThreshold = time.Minute
	DefaultStatsInterval      = time.Hour
)

// Supervisor is the backstop that guarantees every saga reaches a terminal
// step: a periodic sweep compensates in-progress sagas older than the
// staleness threshold. It covers sagas whose caller already gave up (their
// compensation is a safe no-op) and sagas whose call path died before its
// own timeout fired, including correlation state lost to a restart.
//
// A secondary periodic job reports the step distribution of in-progress
// sagas; it has no side effects on saga state.
type Supervisor struct {
	sagas       repository.SagaRepository
	compensator Compensator

	sweepInterval time.Duration
	staleness     time.Duration
	statsInterval time.Duration

	done chan struct{}
}

// NewSupervisor creates a timeout supervisor. Non-positive durations fall
// back to the defaults.
func NewSupervisor(sagas repository.SagaRepository, compensator Compensator, sweepInterval, staleness, statsInterval time.Duration) *Supervisor {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if staleness <= 0 {
		staleness = DefaultStalenessThreshold
	}
	if statsInterval <= 0 {
		statsInterval = DefaultStatsInterval
	}
	return &Supervisor{
		sagas:         sagas,
		compensator:   compensator,
		sweepInterval: sweepInterval,
		staleness:     staleness,
		statsInterval: statsInterval,
		done:          make(chan struct{}),
	}
}

// Start runs the sweep and stats loops until the context is cancelled or
// Stop is called.
func (s *Supervisor) Start(ctx context.Context) {
	go s.sweepLoop(ctx)
	go s.statsLoop(ctx)
}

// Stop terminates both loops.
func (s *Supervisor) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Supervisor) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep compensates every in-progress saga older than the staleness
// threshold. Individual failures are logged and do not stop the sweep.
func (s *Supervisor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleness)
	stale, err := s.sagas.FindStale(cutoff)
	if err != nil {
		logger.GetLogger().Error("timeout sweep query failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	logger.GetLogger().Info("timeout sweep found stale sagas",
		zap.Int("count", len(stale)),
		zap.Duration("staleness", s.staleness))

	for i := range stale {
		saga := &stale[i]
		logger.GetLogger().Warn("compensating timed out saga",
			zap.String("saga_id", saga.SagaID),
			zap.String("order_id", saga.OrderID),
			zap.Duration("age", time.Since(saga.StartedAt)))

		if err := s.compensator.CompensateSaga(ctx, saga.SagaID, ReasonTimeout); err != nil {
			logger.GetLogger().Error("timeout compensation failed",
				zap.String("saga_id", saga.SagaID),
				zap.Error(err))
		}
	}
}

func (s *Supervisor) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.ReportStats()
		}
	}
}

// ReportStats logs the step distribution of in-progress sagas and updates
// the corresponding gauges. It never mutates saga state.
func (s *Supervisor) ReportStats() {
	steps := []Step{StepStarted, StepOrderCreated, StepPaymentRequested}
	total := int64(0)
	for _, step := range steps {
		count, err := s.sagas.CountByStep(step.String())
		if err != nil {
			logger.GetLogger().Error("step statistics query failed",
				zap.String("step", step.String()),
				zap.Error(err))
			continue
		}
		total += count
		metrics.SetInProgress(step.String(), float64(count))
		if count > 0 {
			logger.GetLogger().Info("in-progress sagas at step",
				zap.String("step", step.String()),
				zap.Int64("count", count))
		}
	}
	logger.GetLogger().Info("saga status statistics", zap.Int64("in_progress", total))
}
