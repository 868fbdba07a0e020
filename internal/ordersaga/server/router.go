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

package server

import (
	"github.com/gin-gonic/gin"

	"github.com/mallkit/ordersaga/internal/ordersaga/handler/http/health"
	sagav1 "github.com/mallkit/ordersaga/internal/ordersaga/handler/http/saga/v1"
	"github.com/mallkit/ordersaga/internal/ordersaga/metrics"
)

// RegisterRoutes builds the gin engine for the saga service.
func RegisterRoutes(sagaHandler *sagav1.SagaHandler) *gin.Engine {
	r := gin.Default()

	sagaGroup := r.Group("/api/saga")
	{
		sagaGroup.POST("/orders", sagaHandler.CreateOrder)
		sagaGroup.GET("/orders/:orderId/status", sagaHandler.GetSagaStatus)
		sagaGroup.GET("/transactions/in-progress", sagaHandler.ListInProgress)
		sagaGroup.POST("/transactions/:sagaId/retry", sagaHandler.RetrySaga)
	}

	healthHandler := health.NewHandler()
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
