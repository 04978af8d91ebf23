package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolcrib/internal/models"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(testSecret), func(c *gin.Context) {
		actor := currentActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "name": actor.Name})
	})
	return r
}

func TestAuthMiddlewareResolvesOperator(t *testing.T) {
	r := authTestRouter()

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "EMP-001", "name": "Pat Storekeeper"})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EMP-001")
	assert.Contains(t, w.Body.String(), "Pat Storekeeper")
}

func TestAuthMiddlewareNameFallsBackToSubject(t *testing.T) {
	r := authTestRouter()

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "EMP-002"})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"EMP-002"`)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	r := authTestRouter()

	cases := []struct {
		name  string
		token string
	}{
		{"no header", ""},
		{"wrong secret", signToken(t, "other-secret", jwt.MapClaims{"sub": "EMP-001"})},
		{"missing subject", signToken(t, testSecret, jwt.MapClaims{"name": "Nobody"})},
		{"garbage", "Bearer not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCurrentActorShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxOperatorID, "EMP-009")
	c.Set(ctxOperatorName, "Quinn Storekeeper")
	assert.Equal(t, models.Actor{ID: "EMP-009", Name: "Quinn Storekeeper"}, currentActor(c))
}
