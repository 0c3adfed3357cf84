package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func bearer(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := utils.GenerateToken(user, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func protectedRouter(db *gorm.DB, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthRequired(db)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		utils.Success(c, gin.H{"user": CurrentUser(c).Username})
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r http.Handler, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired_NoHeader(t *testing.T) {
	db := testutil.NewDB(t)
	w := serve(protectedRouter(db), "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, utils.CodeAuthentication, body.Error.Code)
}

func TestAuthRequired_BadToken(t *testing.T) {
	db := testutil.NewDB(t)
	r := protectedRouter(db)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer not-a-jwt").Code)
}

func TestAuthRequired_ValidToken(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")

	w := serve(protectedRouter(db), bearer(t, user))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alice"`)
}

func TestAuthRequired_BannedUser(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "troll")
	auth := bearer(t, user)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	w := serve(protectedRouter(db), auth)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.CodeAuthorization, decode(t, w).Error.Code)
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "leaver")
	auth := bearer(t, user)
	utils.BlacklistToken(auth[len("Bearer "):], time.Now().Add(time.Hour))

	assert.Equal(t, http.StatusUnauthorized, serve(protectedRouter(db), auth).Code)
}

func TestRequireRoles(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user")
	mod := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	r := protectedRouter(db, models.RoleModerator, models.RoleAdmin)

	w := serve(r, bearer(t, user))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.CodeAuthorization, decode(t, w).Error.Code)

	assert.Equal(t, http.StatusOK, serve(r, bearer(t, mod)).Code)
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	db := testutil.NewDB(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", OptionalAuth(db), func(c *gin.Context) {
		utils.Success(c, gin.H{"anonymous": CurrentUser(c) == nil})
	})

	w := serve(r, "Bearer garbage")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}
