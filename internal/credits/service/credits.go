package service

import (
	"github.com/gin-gonic/gin"

	"github.com/shrinkray/image-optimizer-backend/internal/auth/middleware"
	"github.com/shrinkray/image-optimizer-backend/internal/credits/biz"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/response"
)

// CreditsService handles credit balance requests
type CreditsService struct {
	uc     *biz.CreditsUseCase
	logger *logger.Logger
}

func NewCreditsService(uc *biz.CreditsUseCase, log *logger.Logger) *CreditsService {
	return &CreditsService{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes registers credit routes on the router. authRequired
// must reject unauthenticated requests before these handlers run.
func (s *CreditsService) RegisterRoutes(r gin.IRouter, authRequired gin.HandlerFunc) {
	credits := r.Group("/credits", authRequired)
	{
		credits.GET("", s.GetBalance)
	}
}

// GetBalance returns the authenticated user's credit balance
func (s *CreditsService) GetBalance(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	balance, err := s.uc.Balance(c.Request.Context(), userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.OK(c, gin.H{"balance": balance})
}
