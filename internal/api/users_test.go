package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/testhelpers"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupRouter(t)

	body := map[string]string{
		"email":      "cook@example.com",
		"username":   "cook",
		"first_name": "Home",
		"last_name":  "Cook",
		"password":   "password123",
	}
	w := env.PerformRequestWithToken(t, http.MethodPost, "/api/users/", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.UserResponse](t, w)
	assert.Equal(t, "cook", created.Username)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode[middleware.ErrorResponse](t, w).Field)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/", "", map[string]string{"email": "short@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email": "cook@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email": "cook@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[types.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.UserResponse](t, w).ID)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/", token, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/auth/token/logout/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	env := setupRouter(t)

	w := env.PerformRequestWithToken(t, http.MethodGet, "/api/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/me/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListUsersPaginated(t *testing.T) {
	env := setupRouter(t)
	for _, name := range []string{"anna", "boris", "clara"} {
		testhelpers.CreateUser(t, env.db, name)
	}

	w := env.PerformRequestWithToken(t, http.MethodGet, "/api/users/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.UserResponse]](t, w)
	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "anna", page.Results[0].Username)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/?page=2", "", nil)
	page = decode[types.Page[types.UserResponse]](t, w)
	require.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
	assert.NotNil(t, page.Previous)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/not-a-uuid/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeFlow(t *testing.T) {
	env := setupRouter(t)
	reader := testhelpers.CreateUser(t, env.db, "reader")
	chef := testhelpers.CreateUser(t, env.db, "chef")
	for _, name := range []string{"Soup", "Stew", "Salad"} {
		testhelpers.CreateRecipe(t, env.db, chef, name, nil, nil)
	}
	token := env.token(t, reader)
	subscribe := "/api/users/" + chef.ID.String() + "/subscribe/"

	w := env.PerformRequestWithToken(t, http.MethodPost, subscribe+"?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode[types.SubscriptionResponse](t, w)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(3), sub.RecipesCount)
	assert.Len(t, sub.Recipes, 1)

	w = env.PerformRequestWithToken(t, http.MethodPost, subscribe, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/"+reader.ID.String()+"/subscribe/", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/"+chef.ID.String()+"/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.UserResponse](t, w).IsSubscribed)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/subscriptions/?recipes_limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/users/subscriptions/?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs := decode[types.Page[types.SubscriptionResponse]](t, w)
	require.Len(t, subs.Results, 1)
	assert.Len(t, subs.Results[0].Recipes, 2)

	w = env.PerformRequestWithToken(t, http.MethodDelete, subscribe, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.PerformRequestWithToken(t, http.MethodDelete, subscribe, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, testhelpers.Count(t, env.db, &models.Follow{}, "follower_id = ?", reader.ID))
}

func TestAvatarAndPassword(t *testing.T) {
	env := setupRouter(t)
	user := testhelpers.CreateUser(t, env.db, "user")
	token := env.token(t, user)

	w := env.PerformRequestWithToken(t, http.MethodDelete, "/api/users/me/avatar/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPut, "/api/users/me/avatar/", token, map[string]string{"avatar": "data:image/png;base64,AAAA"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://media.example.com/avatars/image.png", decode[map[string]string](t, w)["avatar"])

	w = env.PerformRequestWithToken(t, http.MethodDelete, "/api/users/me/avatar/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": "wrong-password", "new_password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": testhelpers.TestPassword, "new_password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
