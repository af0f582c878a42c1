package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"github.com/nutrikit/nutrikit/internal/authorization"
	invitedomain "github.com/nutrikit/nutrikit/internal/invite/domain"
)

type createInviteRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) CreateInvite(c *gin.Context) {
	identity, _ := currentIdentity(c)
	ctx := c.Request.Context()
	if err := s.authzSvc.Authorize(ctx, identity, authorization.ObjectInvite, authorization.ActionInviteCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createInviteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// Coach-issued invites bind the redeemer to the issuing coach.
	var coachID *snowflake.ID
	if identity.HasRole(authdomain.RoleCoach) {
		id := identity.UserID
		coachID = &id
	}

	invite, err := s.inviteSvc.Create(ctx, invitedomain.CreateInviteRequest{
		CoachID:   coachID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": invite})
}

type redeemInviteRequest struct {
	Code string `json:"code"`
}

func (s *Server) RedeemInvite(c *gin.Context) {
	identity, _ := currentIdentity(c)

	var req redeemInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "invite code is required"))
		return
	}

	ctx := c.Request.Context()
	invite, err := s.inviteSvc.Redeem(ctx, req.Code, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := identity.UserID
	targetID := invite.Code
	_ = s.auditSvc.Record(ctx, &actorID, "invite.redeemed", "invite", &targetID, nil)

	c.JSON(http.StatusOK, gin.H{"data": invite})
}
