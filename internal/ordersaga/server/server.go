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

// Package server wires the saga service together and runs it.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mallkit/ordersaga/internal/ordersaga/config"
	"github.com/mallkit/ordersaga/internal/ordersaga/db"
	sagav1 "github.com/mallkit/ordersaga/internal/ordersaga/handler/http/saga/v1"
	"github.com/mallkit/ordersaga/internal/ordersaga/messaging"
	"github.com/mallkit/ordersaga/internal/ordersaga/repository"
	"github.com/mallkit/ordersaga/internal/ordersaga/saga"
	"github.com/mallkit/ordersaga/pkg/logger"
)

// Server is the saga service: HTTP API, result consumer and timeout
// supervisor sharing a single orchestrator.
type Server struct {
	cfg        *config.OrderSagaConfig
	router     *gin.Engine
	publisher  messaging.Publisher
	consumer   *messaging.ResultConsumer
	supervisor *saga.Supervisor

	cancel context.CancelFunc
}

// NewServer creates a fully wired server instance.
func NewServer() (*Server, error) {
	cfg := config.GetConfig()

	conn := db.GetDB()
	sagaRepo := repository.NewSagaRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)

	publisher := messaging.NewPublisher(cfg.Kafka.Brokers)
	table := saga.NewCorrelationTable()
	orchestrator := saga.NewOrchestrator(sagaRepo, orderRepo, publisher, table)
	correlator := saga.NewResultCorrelator(table, orchestrator)
	supervisor := saga.NewSupervisor(sagaRepo, orchestrator,
		cfg.Saga.SweepInterval, cfg.Saga.StalenessThreshold, cfg.Saga.StatsInterval)
	consumer := messaging.NewResultConsumer(cfg.Kafka.Brokers, orchestrator)

	sagaHandler := sagav1.NewSagaHandler(orchestrator, correlator, sagaRepo, cfg.Saga.AwaitTimeout)

	return &Server{
		cfg:        cfg,
		router:     RegisterRoutes(sagaHandler),
		publisher:  publisher,
		consumer:   consumer,
		supervisor: supervisor,
	}, nil
}

// Run starts the result consumer, the timeout supervisor and the HTTP
// server. It blocks until the HTTP server exits.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.supervisor.Start(ctx)

	go func() {
		if err := s.consumer.Run(ctx); err != nil {
			logger.GetLogger().Error("payment result consumer stopped", zap.Error(err))
		}
	}()

	logger.GetLogger().Info("saga service listening",
		zap.String("port", s.cfg.Server.Port))
	return s.router.Run(":" + s.cfg.Server.Port)
}

// Shutdown stops the background workers and closes the Kafka endpoints.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.supervisor.Stop()
	if err := s.consumer.Close(); err != nil {
		logger.GetLogger().Error("closing result consumer failed", zap.Error(err))
	}
	if err := s.publisher.Close(); err != nil {
		logger.GetLogger().Error("closing publisher failed", zap.Error(err))
	}
}
