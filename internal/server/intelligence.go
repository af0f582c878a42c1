package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) RiskReport(c *gin.Context) {
	identity, _ := currentIdentity(c)

	risks, err := s.engagementSvc.ScoreClients(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": risks})
}

func (s *Server) RiskAlerts(c *gin.Context) {
	identity, _ := currentIdentity(c)

	alerts, err := s.engagementSvc.BuildAlerts(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (s *Server) NudgeAllRed(c *gin.Context) {
	identity, _ := currentIdentity(c)

	result, err := s.engagementSvc.NudgeAllRed(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
