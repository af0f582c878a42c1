package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nutrikit/nutrikit/internal/authorization"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	identity, _ := currentIdentity(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), identity, authorization.ObjectAuditLog, authorization.ActionAuditLogView); err != nil {
		AbortWithError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := s.auditSvc.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
