package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "unit-test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, role string, dur time.Duration) string {
	t.Helper()
	claims := JWTClaims{
		UserID:   "u-1",
		Username: "ana",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
		},
	}
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func protectedRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuth(secret), RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": GetClaims(c).Username})
	})
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protectedRouter(RoleCashier, RoleSupervisor, RoleAdmin)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), RoleCashier, -time.Minute), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), RoleCashier, time.Hour), http.StatusUnauthorized},
		{"alg none", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, RoleCashier, time.Hour), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), RoleCashier, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(r, tt.header).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter(RoleSupervisor, RoleAdmin)

	w := get(r, "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(secret), RoleCashier, time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(secret), RoleAdmin, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana")
}
