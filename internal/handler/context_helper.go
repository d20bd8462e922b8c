package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Sai-Yarlagadda/grading-14763/internal/middleware"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
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

// actorID is empty when the API runs without authentication.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
