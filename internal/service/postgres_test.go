package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/testhelpers"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

func TestPostgresRecipeLifecycle(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t, "../../migrations")
	ctx := context.Background()

	author := testhelpers.CreateUser(t, db, "author")
	shopper := testhelpers.CreateUser(t, db, "shopper")
	tag := testhelpers.CreateTag(t, db, "dinner")
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	eggs := testhelpers.CreateIngredient(t, db, "eggs", "pcs")

	recipes := service.NewRecipeService(db, nil)
	write := func(name string, amount int) service.RecipeWrite {
		return service.RecipeWrite{
			Name:        ptr(name),
			Text:        ptr("Bake it."),
			CookingTime: ptr(30),
			Tags:        &[]uuid.UUID{tag.ID},
			Ingredients: &[]types.IngredientLine{
				{ID: &flour.ID, Amount: ptr(amount)},
				{ID: &eggs.ID, Amount: ptr(2)},
			},
		}
	}

	bread, err := recipes.CreateRecipe(ctx, author.ID, write("Bread", 10))
	require.NoError(t, err)
	cake, err := recipes.CreateRecipe(ctx, author.ID, write("Cake", 5))
	require.NoError(t, err)

	_, err = recipes.CreateRecipe(ctx, author.ID, write("Bread", 1))
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	relations := service.NewRelationService(db)
	for _, r := range []*models.Recipe{bread, cake} {
		require.NoError(t, relations.Toggle(ctx, service.ToggleParams{
			Relation: service.RelationShoppingCart, ActorID: shopper.ID, TargetID: r.ID, Op: validation.OpCreate,
		}))
	}

	report, err := service.NewShoppingListService(db).Build(ctx, shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shopping list:\n• eggs — 4 pcs\n• flour — 15 g\n", report)

	require.NoError(t, recipes.DeleteRecipe(ctx, actorFor(author), bread.ID))
	assert.Zero(t, testhelpers.Count(t, db, &models.RecipeIngredient{}, "recipe_id = ?", bread.ID))
}

func TestPostgresConcurrentFavorite(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t, "../../migrations")
	ctx := context.Background()

	author := testhelpers.CreateUser(t, db, "author")
	fan := testhelpers.CreateUser(t, db, "fan")
	recipe := testhelpers.CreateRecipe(t, db, author, "Soup", nil, nil)
	relations := service.NewRelationService(db)

	const attempts = 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = relations.Toggle(ctx, service.ToggleParams{
				Relation: service.RelationFavorite, ActorID: fan.ID, TargetID: recipe.ID, Op: validation.OpCreate,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), testhelpers.Count(t, db, &models.Favorite{}, "user_id = ?", fan.ID))
}
