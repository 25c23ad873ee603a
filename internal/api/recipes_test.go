package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/testhelpers"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

func recipeBody(name string, tag *models.Tag, ingredient *models.Ingredient, amount int) map[string]any {
	return map[string]any{
		"name":         name,
		"text":         "Boil and season.",
		"cooking_time": 20,
		"tags":         []string{tag.ID.String()},
		"ingredients":  []map[string]any{{"id": ingredient.ID.String(), "amount": amount}},
	}
}

func TestCreateAndGetRecipe(t *testing.T) {
	env := setupRouter(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	tag := testhelpers.CreateTag(t, env.db, "dinner")
	salt := testhelpers.CreateIngredient(t, env.db, "salt", "g")
	token := env.token(t, author)

	body := recipeBody("Soup", tag, salt, 5)
	body["image"] = "data:image/png;base64,AAAA"
	w := env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[types.RecipeResponse](t, w)
	assert.Equal(t, "Soup", created.Name)
	assert.Equal(t, author.ID, created.Author.ID)
	require.Len(t, created.Tags, 1)
	assert.Equal(t, "dinner", created.Tags[0].Slug)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, 5, created.Ingredients[0].Amount)
	assert.Equal(t, "g", created.Ingredients[0].MeasurementUnit)
	require.NotNil(t, created.Image)
	assert.Equal(t, "https://media.example.com/recipes/image.png", *created.Image)
	assert.False(t, created.IsFavorited)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/", token, recipeBody("Soup", tag, salt, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/"+created.ID.String()+"/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.RecipeResponse](t, w).ID)

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/", "", recipeBody("Stew", tag, salt, 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := setupRouter(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	tag := testhelpers.CreateTag(t, env.db, "dinner")
	salt := testhelpers.CreateIngredient(t, env.db, "salt", "g")
	token := env.token(t, author)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"zero amount", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": salt.ID.String(), "amount": 0}}
		}, http.StatusBadRequest},
		{"no tags", func(b map[string]any) { b["tags"] = []string{} }, http.StatusBadRequest},
		{"missing ingredients", func(b map[string]any) { delete(b, "ingredients") }, http.StatusBadRequest},
		{"zero cooking time", func(b map[string]any) { b["cooking_time"] = 0 }, http.StatusBadRequest},
		{"missing name", func(b map[string]any) { delete(b, "name") }, http.StatusBadRequest},
		{"unknown tag", func(b map[string]any) { b["tags"] = []string{author.ID.String()} }, http.StatusNotFound},
		{"unknown ingredient", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": tag.ID.String(), "amount": 1}}
		}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := recipeBody("Soup", tag, salt, 1)
			tt.mutate(body)
			w := env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/", token, body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, testhelpers.Count(t, env.db, &models.Recipe{}, "1 = 1"))
}

func TestUpdateAndDeleteRecipe(t *testing.T) {
	env := setupRouter(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	stranger := testhelpers.CreateUser(t, env.db, "stranger")
	admin := testhelpers.CreateAdmin(t, env.db, "admin")
	recipe := testhelpers.CreateRecipe(t, env.db, author, "Soup", testhelpers.CreateTag(t, env.db, "dinner"), nil)
	path := "/api/recipes/" + recipe.ID.String() + "/"

	w := env.PerformRequestWithToken(t, http.MethodPatch, path, env.token(t, stranger), map[string]any{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodPatch, path, env.token(t, author), map[string]any{"cooking_time": 45})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.RecipeResponse](t, w)
	assert.Equal(t, 45, updated.CookingTime)
	assert.Equal(t, "Soup", updated.Name)
	assert.Len(t, updated.Tags, 1)

	w = env.PerformRequestWithToken(t, http.MethodPatch, path, env.token(t, author), map[string]any{"tags": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodDelete, path, env.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodDelete, path, env.token(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.PerformRequestWithToken(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecipesFilters(t *testing.T) {
	env := setupRouter(t)
	alice := testhelpers.CreateUser(t, env.db, "alice")
	bob := testhelpers.CreateUser(t, env.db, "bob")
	dinner := testhelpers.CreateTag(t, env.db, "dinner")
	lunch := testhelpers.CreateTag(t, env.db, "lunch")

	soup := testhelpers.CreateRecipe(t, env.db, alice, "Soup", dinner, nil)
	testhelpers.CreateRecipe(t, env.db, alice, "Salad", lunch, nil)
	testhelpers.CreateRecipe(t, env.db, bob, "Stew", dinner, nil)
	require.NoError(t, env.db.Create(&models.Favorite{UserID: bob.ID, RecipeID: soup.ID}).Error)

	list := func(query, token string) types.Page[types.RecipeResponse] {
		t.Helper()
		w := env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/"+query, token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[types.Page[types.RecipeResponse]](t, w)
	}

	all := list("", "")
	assert.Equal(t, int64(3), all.Count)
	assert.Len(t, all.Results, 2)
	assert.NotNil(t, all.Next)

	assert.Equal(t, int64(2), list("?author="+alice.ID.String(), "").Count)
	assert.Equal(t, int64(2), list("?tags=dinner", "").Count)
	assert.Equal(t, int64(3), list("?tags=dinner&tags=lunch&limit=10", "").Count)

	favorites := list("?is_favorited=1", env.token(t, bob))
	require.Len(t, favorites.Results, 1)
	assert.Equal(t, "Soup", favorites.Results[0].Name)
	assert.True(t, favorites.Results[0].IsFavorited)

	assert.Zero(t, list("?is_favorited=1", "").Count)
	assert.Zero(t, list("?is_in_shopping_cart=true", env.token(t, bob)).Count)

	w := env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/?author=nobody", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoriteAndShoppingCart(t *testing.T) {
	env := setupRouter(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	shopper := testhelpers.CreateUser(t, env.db, "shopper")
	flour := testhelpers.CreateIngredient(t, env.db, "flour", "g")
	bread := testhelpers.CreateRecipe(t, env.db, author, "Bread", nil, map[*models.Ingredient]int{flour: 10})
	cake := testhelpers.CreateRecipe(t, env.db, author, "Cake", nil, map[*models.Ingredient]int{flour: 5})
	token := env.token(t, shopper)

	favorite := "/api/recipes/" + bread.ID.String() + "/favorite/"
	w := env.PerformRequestWithToken(t, http.MethodPost, favorite, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	short := decode[types.RecipeShortResponse](t, w)
	assert.Equal(t, "Bread", short.Name)

	w = env.PerformRequestWithToken(t, http.MethodPost, favorite, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.PerformRequestWithToken(t, http.MethodDelete, favorite, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.PerformRequestWithToken(t, http.MethodDelete, favorite, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.PerformRequestWithToken(t, http.MethodPost, favorite, token, nil)
	assert.Equal(t, http.StatusCreated, w.Code, "favorite again after removal")
	assert.Equal(t, int64(1), testhelpers.Count(t, env.db, &models.Favorite{}, "user_id = ? AND recipe_id = ?", shopper.ID, bread.ID))

	w = env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/"+author.ID.String()+"/favorite/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, recipe := range []*models.Recipe{bread, cake} {
		w = env.PerformRequestWithToken(t, http.MethodPost, "/api/recipes/"+recipe.ID.String()+"/shopping_cart/", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/shopping_cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for i := 0; i < 2; i++ {
		w = env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/shopping_cart/", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []service.ShoppingItem{{Name: "flour", MeasurementUnit: "g", Amount: 15}}, decode[[]service.ShoppingItem](t, w))
	}
	assert.Equal(t, int64(2), testhelpers.Count(t, env.db, &models.ShoppingCart{}, "user_id = ?", shopper.ID))

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shopping_list.txt")
	assert.Equal(t, "Shopping list:\n• flour — 15 g\n", w.Body.String())
	assert.Zero(t, testhelpers.Count(t, env.db, &models.ShoppingCart{}, "user_id = ?", shopper.ID))

	w = env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestShortLinks(t *testing.T) {
	env := setupRouter(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	recipe := testhelpers.CreateRecipe(t, env.db, author, "Soup", nil, nil)

	w := env.PerformRequestWithToken(t, http.MethodGet, "/api/recipes/"+recipe.ID.String()+"/get-link/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	link := decode[map[string]string](t, w)["short-link"]
	assert.Equal(t, publicBaseURL+"/s/"+recipe.ShortLink, link)

	w = env.PerformRequestWithToken(t, http.MethodGet, "/s/"+recipe.ShortLink, "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, publicBaseURL+"/recipes/"+recipe.ID.String(), w.Header().Get("Location"))

	w = env.PerformRequestWithToken(t, http.MethodGet, "/s/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
