package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func testRouter() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", Middleware(testSecret))
	return router, group
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	router, group := testRouter()

	var gotUser interface{}
	var gotRole interface{}
	group.GET("/whoami", func(c *gin.Context) {
		gotUser, _ = c.Get("user_id")
		gotRole, _ = c.Get("role")
		c.Status(http.StatusOK)
	})

	userID := uuid.New()
	token, err := IssueToken(testSecret, userID, RoleAdmin, time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, RoleAdmin, gotRole)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	router, group := testRouter()
	group.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	router, group := testRouter()
	group.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := IssueToken(testSecret, uuid.New(), RoleAdmin, -time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	router, group := testRouter()
	group.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := IssueToken("other-secret", uuid.New(), RoleAdmin, time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminBlocksNonAdmins(t *testing.T) {
	router, group := testRouter()
	admin := group.Group("/", RequireAdmin())
	admin.POST("/review", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := IssueToken(testSecret, uuid.New(), "owner", time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/review", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
