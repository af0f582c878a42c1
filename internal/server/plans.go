package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nutrikit/nutrikit/internal/authorization"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
)

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (s *Server) CreatePlan(c *gin.Context) {
	identity, _ := currentIdentity(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), identity, authorization.ObjectPlan, authorization.ActionPlanCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req plandomain.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.planSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}
