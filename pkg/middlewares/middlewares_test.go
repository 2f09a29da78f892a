package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
)

func newRouter(s *auth.Signer, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	g := r.Group("", JWTAuth(s))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/who", func(c *gin.Context) {
		sub, role := Identity(c)
		c.JSON(http.StatusOK, gin.H{"sub": sub, "role": role, "rid": GetRequestID(c.Request.Context())})
	})
	return r
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	r := newRouter(auth.NewSigner("k"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	s := auth.NewSigner("k")
	tok, err := s.CreateAccessToken("u-1", auth.RoleClient, "c@x.io", time.Hour)
	require.NoError(t, err)

	r := newRouter(s)
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set(HeaderRequestID, "rid-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sub":"u-1","role":"client","rid":"rid-7"}`, w.Body.String())
	assert.Equal(t, "rid-7", w.Header().Get(HeaderRequestID))
}

func TestRequireRole_Forbidden(t *testing.T) {
	s := auth.NewSigner("k")
	tok, err := s.CreateAccessToken("u-1", auth.RoleClient, "", time.Hour)
	require.NoError(t, err)

	r := newRouter(s, auth.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
