package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/api"
	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/testhelpers"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

const publicBaseURL = "http://foodgram.test"

// imageFunc adapts a function to service.ImageStore
type imageFunc func(ctx context.Context, prefix, dataURL string) (string, error)

func (f imageFunc) Save(ctx context.Context, prefix, dataURL string) (string, error) {
	return f(ctx, prefix, dataURL)
}

var fakeImages = imageFunc(func(_ context.Context, prefix, _ string) (string, error) {
	return "https://media.example.com/" + prefix + "/image.png", nil
})

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	authService := service.NewAuthService(db, "test-secret", time.Hour)
	relationService := service.NewRelationService(db)
	requireAuth := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuth(authService)

	router := gin.New()
	v1 := router.Group("/api")
	api.NewAuthHandler(authService).RegisterRoutes(v1, requireAuth)
	api.NewUserHandler(authService, service.NewUserService(db, fakeImages), relationService, 2).
		RegisterRoutes(v1, optionalAuth, requireAuth)
	api.NewCatalogHandler(service.NewCatalogService(db)).RegisterRoutes(v1, requireAuth, middleware.AdminOnly())

	recipes := api.NewRecipeHandler(service.NewRecipeService(db, fakeImages), relationService, service.NewShoppingListService(db), publicBaseURL, 2)
	recipes.RegisterRoutes(v1, optionalAuth, requireAuth)
	recipes.RegisterShortLinkRoutes(router)

	return &testEnv{db: db, router: router, auth: authService}
}

// token logs a fixture user in
func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(&types.TokenClaims{UserID: user.ID, Version: user.TokenVersion})
	require.NoError(t, err)
	return token
}

// PerformRequestWithToken sends body as JSON; an empty token sends an
// anonymous request.
func (e *testEnv) PerformRequestWithToken(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
