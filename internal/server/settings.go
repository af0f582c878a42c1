package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nutrikit/nutrikit/internal/authorization"
	settingsdomain "github.com/nutrikit/nutrikit/internal/settings/domain"
)

func (s *Server) GetUPISettings(c *gin.Context) {
	identity, _ := currentIdentity(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), identity, authorization.ObjectSettings, authorization.ActionSettingsView); err != nil {
		AbortWithError(c, err)
		return
	}

	collection, err := s.settingsSvc.UPICollection(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": collection})
}

type updateUPIRequest struct {
	VPA       string `json:"upi_vpa"`
	PayeeName string `json:"upi_name"`
}

func (s *Server) UpdateUPISettings(c *gin.Context) {
	identity, _ := currentIdentity(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), identity, authorization.ObjectSettings, authorization.ActionSettingsUpdate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateUPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.VPA = strings.TrimSpace(req.VPA)
	req.PayeeName = strings.TrimSpace(req.PayeeName)
	if req.VPA == "" {
		AbortWithError(c, newValidationError("upi_vpa", "invalid_upi_vpa", "upi vpa is required"))
		return
	}
	if req.PayeeName == "" {
		AbortWithError(c, newValidationError("upi_name", "invalid_upi_name", "upi payee name is required"))
		return
	}

	ctx := c.Request.Context()
	if err := s.settingsSvc.Upsert(ctx, settingsdomain.KeyUPIVPA, req.VPA); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.settingsSvc.Upsert(ctx, settingsdomain.KeyUPIName, req.PayeeName); err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := identity.UserID
	_ = s.auditSvc.Record(ctx, &actorID, "settings.updated", "settings", nil, map[string]any{
		"upi_vpa":  req.VPA,
		"upi_name": req.PayeeName,
	})

	c.JSON(http.StatusOK, gin.H{"data": settingsdomain.UPICollection{
		VPA:       req.VPA,
		PayeeName: req.PayeeName,
	}})
}
