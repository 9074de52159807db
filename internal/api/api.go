// Package api implements the HTTP handlers of the LRS.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veris-dev/veris-lrs/internal/auth"
	"github.com/veris-dev/veris-lrs/internal/identity"
	"github.com/veris-dev/veris-lrs/internal/lrs"
	"github.com/veris-dev/veris-lrs/internal/store"
)

// Handler carries the service dependencies the routes need.
type Handler struct {
	Records *lrs.Service
	Users   *identity.Service
	Auth    *auth.Authenticator
	Log     *zap.Logger
	Version string
}

// Status reports liveness. Public.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "LRS is up", "version": h.Version})
}

// IngestStatement accepts one arbitrary statement document. Failure detail
// stays in the server log; the caller only sees the status code.
func (h *Handler) IngestStatement(c *gin.Context) {
	var doc store.Record
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.Log.Error("unreadable statement body", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	if err := h.Records.Ingest(c.Request.Context(), doc); err != nil {
		h.Log.Error("statement ingestion failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "done"})
}

// QueryStatements runs a caller-specified query over the base statement
// collection and returns the materialized page plus its size.
func (h *Handler) QueryStatements(c *gin.Context) {
	var req lrs.QueryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Log.Error("unreadable query body", zap.Error(err))
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	res, err := h.Records.Query(c.Request.Context(), req)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, res)
}
