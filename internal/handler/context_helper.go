package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uns-cex/matricula-api/internal/middleware"
	"github.com/uns-cex/matricula-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
