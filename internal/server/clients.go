package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
)

func (s *Server) ListClients(c *gin.Context) {
	identity, _ := currentIdentity(c)

	clients, err := s.clientSvc.List(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}

func (s *Server) CreateClient(c *gin.Context) {
	identity, _ := currentIdentity(c)

	var req clientdomain.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.clientSvc.Create(c.Request.Context(), identity.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// ownedClient loads the path client and checks it belongs to the caller.
func (s *Server) ownedClient(c *gin.Context) (clientdomain.Client, bool) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_client_id", "invalid client id"))
		return clientdomain.Client{}, false
	}

	var cl clientdomain.Client
	if err := s.db.WithContext(c.Request.Context()).First(&cl, "id = ?", clientID).Error; err != nil {
		AbortWithError(c, clientdomain.ErrNotFound)
		return clientdomain.Client{}, false
	}

	identity, _ := currentIdentity(c)
	if cl.CoachID != identity.UserID {
		AbortWithError(c, ErrForbidden)
		return clientdomain.Client{}, false
	}
	return cl, true
}

type recordMessageRequest struct {
	Direction clientdomain.Direction `json:"direction"`
	Body      string                 `json:"body"`
	SentAt    *time.Time             `json:"sent_at,omitempty"`
}

func (s *Server) RecordClientMessage(c *gin.Context) {
	cl, ok := s.ownedClient(c)
	if !ok {
		return
	}

	var req recordMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	switch req.Direction {
	case clientdomain.DirectionInbound, clientdomain.DirectionOutbound:
	default:
		AbortWithError(c, newValidationError("direction", "invalid_direction", "direction must be inbound or outbound"))
		return
	}

	var sentAt time.Time
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}
	msg, err := s.clientSvc.RecordMessage(c.Request.Context(), cl.ID, req.Direction, req.Body, sentAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

type recordProgressRequest struct {
	Kind       string     `json:"kind"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

func (s *Server) RecordClientProgress(c *gin.Context) {
	cl, ok := s.ownedClient(c)
	if !ok {
		return
	}

	var req recordProgressRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var recordedAt time.Time
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}
	rec, err := s.clientSvc.RecordProgress(c.Request.Context(), cl.ID, req.Kind, recordedAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": rec})
}
