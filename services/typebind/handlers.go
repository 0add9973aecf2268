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
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/typebind/services/typebind/resolve"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// Handlers contains the HTTP handlers for typebind.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// errorStatus maps a service error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRelativePath):
		return http.StatusBadRequest, "INVALID_PATH"
	case errors.Is(err, ErrPathTraversal):
		return http.StatusBadRequest, "PATH_TRAVERSAL"
	case errors.Is(err, ErrPathNotAllowed):
		return http.StatusForbidden, "PATH_NOT_ALLOWED"
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "PATH_NOT_FOUND"
	case errors.Is(err, ErrProjectTooLarge):
		return http.StatusBadRequest, "PROJECT_TOO_LARGE"
	case errors.Is(err, ErrInitInProgress):
		return http.StatusConflict, "INIT_IN_PROGRESS"
	case errors.Is(err, ErrInitTimeout):
		return http.StatusGatewayTimeout, "INIT_TIMEOUT"
	case errors.Is(err, ErrUniverseNotFound):
		return http.StatusNotFound, "UNIVERSE_NOT_FOUND"
	case errors.Is(err, ErrUniverseExpired):
		return http.StatusGone, "UNIVERSE_EXPIRED"
	case errors.Is(err, ErrTypeNotFound):
		return http.StatusNotFound, "TYPE_NOT_FOUND"
	case errors.Is(err, ErrInvalidMode):
		return http.StatusBadRequest, "INVALID_MODE"
	case errors.Is(err, typeexpr.ErrInvalidExpression):
		return http.StatusBadRequest, "INVALID_EXPRESSION"
	case resolve.IsUnreachableAncestor(err):
		return http.StatusUnprocessableEntity, "UNREACHABLE_ANCESTOR"
	case resolve.IsMalformedTypeExpression(err):
		return http.StatusUnprocessableEntity, "MALFORMED_TYPE"
	case resolve.IsParameterIndexOutOfRange(err):
		return http.StatusUnprocessableEntity, "PARAMETER_OUT_OF_RANGE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "code", code)
	} else {
		logger.Warn("request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func invalidRequest(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request body",
		Code:    "INVALID_REQUEST",
		Details: err.Error(),
	})
}

// HandleInit handles POST /v1/typebind/init.
//
// Response:
//
//	200 OK: InitResponse
//	400 Bad Request: Invalid body, path or project size
//	403 Forbidden: Root outside the allowed roots
//	409 Conflict: Init already running for the root
//	504 Gateway Timeout: Init timed out
func (h *Handlers) HandleInit(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleInit")

	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, logger, err)
		return
	}

	logger.Info("Initializing universe", "project_root", req.ProjectRoot)
	resp, err := h.svc.Init(c.Request.Context(), req.ProjectRoot, req.ExcludePatterns)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleResolve handles POST /v1/typebind/resolve.
//
// Response:
//
//	200 OK: ResolveResponse
//	400 Bad Request: Invalid body or mode
//	404 Not Found: Unknown universe or type
//	422 Unprocessable Entity: Resolution failed
func (h *Handlers) HandleResolve(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, logger, err)
		return
	}

	resp, err := h.svc.Resolve(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleChain handles POST /v1/typebind/chain.
func (h *Handlers) HandleChain(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleChain")

	var req ChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, logger, err)
		return
	}

	resp, err := h.svc.Chain(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSubtype handles POST /v1/typebind/subtype.
func (h *Handlers) HandleSubtype(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleSubtype")

	var req SubtypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, logger, err)
		return
	}

	resp, err := h.svc.Subtype(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleListTypes handles GET /v1/typebind/types?universe_id=&prefix=.
func (h *Handlers) HandleListTypes(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleListTypes")

	id := c.Query("universe_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "universe_id is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	resp, err := h.svc.ListTypes(c.Request.Context(), id, c.Query("prefix"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleType handles GET /v1/typebind/types/:name?universe_id=.
func (h *Handlers) HandleType(c *gin.Context) {
	logger := slog.With("request_id", requestID(c), "handler", "HandleType")

	id := c.Query("universe_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "universe_id is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	resp, err := h.svc.Type(c.Request.Context(), id, c.Param("name"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/typebind/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/typebind/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Ready:         true,
		UniverseCount: h.svc.UniverseCount(),
		StoreEnabled:  h.svc.StoreEnabled(),
	})
}
