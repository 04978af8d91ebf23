package api

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"toolcrib/internal/models"
)

const (
	ctxOperatorID   = "operator_id"
	ctxOperatorName = "operator_name"
)

// AuthMiddleware handles JWT authentication and resolves the acting
// operator. Engine calls always receive the actor explicitly; nothing
// downstream reads the token again.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		name, _ := claims["name"].(string)
		if sub == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token missing subject"})
			c.Abort()
			return
		}
		if name == "" {
			name = sub
		}
		c.Set(ctxOperatorID, sub)
		c.Set(ctxOperatorName, name)
		c.Next()
	}
}

// currentActor returns the operator resolved by the auth middleware.
func currentActor(c *gin.Context) models.Actor {
	return models.Actor{
		ID:   c.GetString(ctxOperatorID),
		Name: c.GetString(ctxOperatorName),
	}
}
