// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typebind

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

// RegisterRoutes registers all typebind routes with the router.
//
// Endpoints:
//
//	POST /v1/typebind/init        - Build a universe for a project
//	POST /v1/typebind/resolve     - Resolve a type parameter
//	POST /v1/typebind/chain       - Show the inheritance chain
//	POST /v1/typebind/subtype     - Compare two type expressions
//	GET  /v1/typebind/types       - List types by prefix
//	GET  /v1/typebind/types/:name - Describe a type
//	GET  /v1/typebind/health      - Health check
//	GET  /v1/typebind/ready       - Readiness check
//
// Example:
//
//	svc := typebind.NewService(typebind.DefaultServiceConfig())
//	v1 := router.Group("/v1")
//	typebind.RegisterRoutes(v1, typebind.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	tb := rg.Group("/typebind")
	{
		tb.POST("/init", handlers.HandleInit)
		tb.POST("/resolve", handlers.HandleResolve)
		tb.POST("/chain", handlers.HandleChain)
		tb.POST("/subtype", handlers.HandleSubtype)

		tb.GET("/types", handlers.HandleListTypes)
		tb.GET("/types/:name", handlers.HandleType)

		tb.GET("/health", handlers.HandleHealth)
		tb.GET("/ready", handlers.HandleReady)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName labels otelgin spans.
	ServiceName string

	// RateLimit is requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter builds a gin engine with recovery, tracing, request IDs, rate
// limiting and the typebind routes.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "typebind"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(RequestID())

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	v1 := router.Group("/v1")
	v1.Use(RateLimit(limiter))
	RegisterRoutes(v1, handlers)

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return router
}
