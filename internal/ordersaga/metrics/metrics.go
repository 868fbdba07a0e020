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

// Package metrics exposes Prometheus metrics for saga execution.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry = prometheus.NewRegistry()

	sagasStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ordersaga_sagas_started_total",
		Help: "Total number of sagas started.",
	})
	sagasFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersaga_sagas_finished_total",
			Help: "Total number of sagas reaching a terminal step.",
		},
		[]string{"step"},
	)
	sagasTimedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ordersaga_sagas_timed_out_total",
		Help: "Total number of sagas compensated by a timeout.",
	})
	inProgressByStep = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ordersaga_in_progress_sagas",
			Help: "Number of in-progress sagas by current step.",
		},
		[]string{"step"},
	)
)

// Init registers all collectors with the registry once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			sagasStarted,
			sagasFinished,
			sagasTimedOut,
			inProgressByStep,
		)
	})
}

// Handler exposes the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncSagaStarted increments the started saga counter.
func IncSagaStarted() {
	Init()
	sagasStarted.Inc()
}

// IncSagaFinished increments the finished counter for a terminal step.
func IncSagaFinished(step string) {
	Init()
	sagasFinished.WithLabelValues(step).Inc()
}

// IncSagaTimedOut increments the timed out saga counter.
func IncSagaTimedOut() {
	Init()
	sagasTimedOut.Inc()
}

// SetInProgress sets the in-progress gauge for a step.
func SetInProgress(step string, count float64) {
	Init()
	inProgressByStep.WithLabelValues(step).Set(count)
}
