package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/database"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

// RecipeWrite carries the fields of a recipe create or update. A nil field
// is "not supplied": required on create, "no change" on update.
type RecipeWrite struct {
	Name        *string
	Text        *string
	CookingTime *int
	// Image is a base64 data URL; an empty string clears the image on update.
	Image       *string
	Tags        *[]uuid.UUID
	Ingredients *[]types.IngredientLine
}

// RecipeService handles recipe operations
type RecipeService struct {
	db         *gorm.DB
	images     ImageStore
	shortLinks models.ShortLinkGenerator
}

// NewRecipeService creates a new RecipeService instance. images may be nil,
// in which case writes carrying an image are rejected.
func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{
		db:         db,
		images:     images,
		shortLinks: models.NewShortLink,
	}
}

// WithShortLinkGenerator replaces the short-link token source.
func (s *RecipeService) WithShortLinkGenerator(gen models.ShortLinkGenerator) *RecipeService {
	s.shortLinks = gen
	return s
}

// CreateRecipe persists a recipe with its tags and ingredient lines in one
// transaction and returns it with all relations loaded.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uuid.UUID, in RecipeWrite) (*models.Recipe, error) {
	if err := validation.TagsAndIngredients(true, in.Ingredients, in.Tags); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" {
		return nil, apperr.MissingField("name")
	}
	if in.Text == nil || *in.Text == "" {
		return nil, apperr.MissingField("text")
	}
	if in.CookingTime == nil {
		return nil, apperr.MissingField("cooking_time")
	}
	if err := validation.Positive("cooking_time", *in.CookingTime); err != nil {
		return nil, err
	}

	var image string
	if in.Image != nil && *in.Image != "" {
		if err := s.checkReferences(ctx, authorID, nil, in); err != nil {
			return nil, err
		}
		url, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		image = url
	}

	recipe := models.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Name:        *in.Name,
		Text:        *in.Text,
		Image:       image,
		CookingTime: *in.CookingTime,
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := validation.UniqueField(ctx, tx, &models.Recipe{}, "name", recipe.Name, nil, byAuthor(authorID)); err != nil {
			return err
		}
		tags, err := validation.Tags(ctx, tx, *in.Tags)
		if err != nil {
			return err
		}
		lines, err := resolveIngredientLines(ctx, tx, *in.Ingredients)
		if err != nil {
			return err
		}

		link, err := s.assignShortLink(ctx, tx)
		if err != nil {
			return err
		}
		recipe.ShortLink = link

		if err := tx.Omit("Author", "Tags", "Ingredients").Create(&recipe).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("name", fmt.Sprintf("%s is already taken", recipe.Name))
			}
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		if err := replaceRecipeTags(tx, recipe.ID, tags); err != nil {
			return err
		}
		return insertRecipeIngredients(tx, recipe.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "recipe created", "recipe_id", recipe.ID, "author_id", authorID, "short_link", recipe.ShortLink)
	return s.GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe applies in to an existing recipe. Supplied tags replace the
// whole tag set; supplied ingredients replace every existing ingredient line.
func (s *RecipeService) UpdateRecipe(ctx context.Context, actor types.Actor, id uuid.UUID, in RecipeWrite) (*models.Recipe, error) {
	current, err := s.findRecipe(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(current.AuthorID) {
		return nil, apperr.PermissionDenied("only the author can change this recipe")
	}
	if err := validation.TagsAndIngredients(false, in.Ingredients, in.Tags); err != nil {
		return nil, err
	}
	if in.Name != nil && *in.Name == "" {
		return nil, apperr.Validation("name", "must not be empty")
	}
	if in.Text != nil && *in.Text == "" {
		return nil, apperr.Validation("text", "must not be empty")
	}
	if in.CookingTime != nil {
		if err := validation.Positive("cooking_time", *in.CookingTime); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Text != nil {
		updates["text"] = *in.Text
	}
	if in.CookingTime != nil {
		updates["cooking_time"] = *in.CookingTime
	}
	if in.Image != nil {
		url := ""
		if *in.Image != "" {
			if err := s.checkReferences(ctx, current.AuthorID, &id, in); err != nil {
				return nil, err
			}
			if url, err = s.storeImage(ctx, *in.Image); err != nil {
				return nil, err
			}
		}
		updates["image"] = url
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if in.Name != nil && *in.Name != current.Name {
			if err := validation.UniqueField(ctx, tx, &models.Recipe{}, "name", *in.Name, &id, byAuthor(current.AuthorID)); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("name", "recipe name is already taken")
			}
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		if in.Tags != nil {
			tags, err := validation.Tags(ctx, tx, *in.Tags)
			if err != nil {
				return err
			}
			if err := replaceRecipeTags(tx, id, tags); err != nil {
				return err
			}
		}

		if in.Ingredients != nil {
			lines, err := resolveIngredientLines(ctx, tx, *in.Ingredients)
			if err != nil {
				return err
			}
			if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return fmt.Errorf("failed to clear recipe ingredients: %w", err)
			}
			if err := insertRecipeIngredients(tx, id, lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, id)
}

// DeleteRecipe removes a recipe together with its ingredient lines, tag
// links, favorites and shopping-cart entries. Tags and ingredients remain.
func (s *RecipeService) DeleteRecipe(ctx context.Context, actor types.Actor, id uuid.UUID) error {
	recipe, err := s.findRecipe(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(recipe.AuthorID) {
		return apperr.PermissionDenied("only the author can delete this recipe")
	}

	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCart{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(dependent).Error; err != nil {
				return fmt.Errorf("failed to delete recipe dependents: %w", err)
			}
		}
		if err := tx.Delete(&models.Recipe{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
}

// GetRecipe retrieves a recipe by ID with its author, tags and ingredients
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := withRecipeRelations(s.db.WithContext(ctx)).First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("recipe", "recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	sortIngredients(&recipe)
	return &recipe, nil
}

// ListRecipes returns one page of recipes, newest first, and the total
// number of recipes matching filter.
func (s *RecipeService) ListRecipes(ctx context.Context, actor types.Actor, filter types.RecipeFilter, page types.PageRequest) ([]models.Recipe, int64, error) {
	if (filter.IsFavorited || filter.IsInShoppingCart) && !actor.Authenticated {
		return []models.Recipe{}, 0, nil
	}

	build := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Recipe{})
		if filter.AuthorID != nil {
			q = q.Where("recipes.author_id = ?", *filter.AuthorID)
		}
		if len(filter.TagSlugs) > 0 {
			tagged := s.db.WithContext(ctx).Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", filter.TagSlugs)
			q = q.Where("recipes.id IN (?)", tagged)
		}
		if filter.IsFavorited {
			q = q.Where("recipes.id IN (?)", s.db.WithContext(ctx).Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", actor.UserID))
		}
		if filter.IsInShoppingCart {
			q = q.Where("recipes.id IN (?)", s.db.WithContext(ctx).Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", actor.UserID))
		}
		return q
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withRecipeRelations(build()).
		Order("recipes.created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	for i := range recipes {
		sortIngredients(&recipes[i])
	}
	return recipes, total, nil
}

// ShortLink returns the short-link token of a recipe
func (s *RecipeService) ShortLink(ctx context.Context, id uuid.UUID) (string, error) {
	recipe, err := s.findRecipe(ctx, s.db, id)
	if err != nil {
		return "", err
	}
	return recipe.ShortLink, nil
}

// ResolveShortLink maps a short-link token to its recipe id
func (s *RecipeService) ResolveShortLink(ctx context.Context, token string) (uuid.UUID, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Select("id").Where("short_link = ?", token).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, apperr.NotFound("short_link", "short link not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve short link: %w", err)
	}
	return recipe.ID, nil
}

// Present builds the full projections of recipes as seen by actor.
func (s *RecipeService) Present(ctx context.Context, actor types.Actor, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	out := make([]types.RecipeResponse, 0, len(recipes))
	if len(recipes) == 0 {
		return out, nil
	}

	var favorited, inCart, following map[uuid.UUID]bool
	if actor.Authenticated {
		ids := make([]uuid.UUID, len(recipes))
		authors := make([]uuid.UUID, len(recipes))
		for i, r := range recipes {
			ids[i] = r.ID
			authors[i] = r.AuthorID
		}
		var err error
		if favorited, err = idSet(ctx, s.db, &models.Favorite{}, "recipe_id", "user_id = ? AND recipe_id IN ?", actor.UserID, ids); err != nil {
			return nil, err
		}
		if inCart, err = idSet(ctx, s.db, &models.ShoppingCart{}, "recipe_id", "user_id = ? AND recipe_id IN ?", actor.UserID, ids); err != nil {
			return nil, err
		}
		if following, err = idSet(ctx, s.db, &models.Follow{}, "following_id", "follower_id = ? AND following_id IN ?", actor.UserID, authors); err != nil {
			return nil, err
		}
	}

	for i := range recipes {
		r := &recipes[i]
		resp := types.RecipeResponse{
			ID:               r.ID,
			Tags:             r.Tags,
			Author:           types.NewUserResponse(&r.Author, following[r.AuthorID]),
			Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.Ingredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            types.NewRecipeShortResponse(r).Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		if resp.Tags == nil {
			resp.Tags = []models.Tag{}
		}
		for _, line := range r.Ingredients {
			resp.Ingredients = append(resp.Ingredients, types.RecipeIngredientResponse{
				ID:              line.IngredientID,
				Name:            line.Ingredient.Name,
				MeasurementUnit: line.Ingredient.MeasurementUnit,
				Amount:          line.Amount,
			})
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *RecipeService) findRecipe(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := db.WithContext(ctx).First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("recipe", "recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RecipeService) storeImage(ctx context.Context, dataURL string) (string, error) {
	if s.images == nil {
		return "", apperr.Validation("image", "image uploads are not configured")
	}
	return s.images.Save(ctx, "recipes", dataURL)
}

// checkReferences runs the name, tag and ingredient checks ahead of an image
// upload so a write rejected by them leaves nothing in the bucket. The
// transaction repeats them against its own snapshot.
func (s *RecipeService) checkReferences(ctx context.Context, authorID uuid.UUID, self *uuid.UUID, in RecipeWrite) error {
	db := s.db.WithContext(ctx)
	if in.Name != nil {
		if err := validation.UniqueField(ctx, db, &models.Recipe{}, "name", *in.Name, self, byAuthor(authorID)); err != nil {
			return err
		}
	}
	if in.Tags != nil {
		if _, err := validation.Tags(ctx, db, *in.Tags); err != nil {
			return err
		}
	}
	if in.Ingredients != nil {
		if _, err := resolveIngredientLines(ctx, db, *in.Ingredients); err != nil {
			return err
		}
	}
	return nil
}

// assignShortLink draws candidate tokens until one is unused.
func (s *RecipeService) assignShortLink(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < models.ShortLinkAttempts; attempt++ {
		candidate := s.shortLinks()
		taken, err := validation.Exists(ctx, tx, &models.Recipe{}, "short_link = ?", candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check short link: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperr.Storage("could not generate a unique short link", nil)
}

// resolveIngredientLines validates every line and collapses repeated
// ingredient ids, keeping the last amount and the first position.
func resolveIngredientLines(ctx context.Context, tx *gorm.DB, lines []types.IngredientLine) ([]models.RecipeIngredient, error) {
	order := make([]uuid.UUID, 0, len(lines))
	amounts := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		id, amount, err := validation.IngredientLine(ctx, tx, line.ID, line.Amount)
		if err != nil {
			return nil, err
		}
		if _, seen := amounts[id]; !seen {
			order = append(order, id)
		}
		amounts[id] = amount
	}

	rows := make([]models.RecipeIngredient, 0, len(order))
	for _, id := range order {
		rows = append(rows, models.RecipeIngredient{IngredientID: id, Amount: amounts[id]})
	}
	return rows, nil
}

func insertRecipeIngredients(tx *gorm.DB, recipeID uuid.UUID, rows []models.RecipeIngredient) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].RecipeID = recipeID
	}
	if err := tx.Omit("Ingredient").CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert recipe ingredients: %w", err)
	}
	return nil
}

// replaceRecipeTags makes tags exactly the tag set of the recipe.
func replaceRecipeTags(tx *gorm.DB, recipeID uuid.UUID, tags []models.Tag) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return fmt.Errorf("failed to clear recipe tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}
	links := make([]models.RecipeTag, len(tags))
	for i, tag := range tags {
		links[i] = models.RecipeTag{RecipeID: recipeID, TagID: tag.ID}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link recipe tags: %w", err)
	}
	return nil
}

func withRecipeRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients.Ingredient")
}

func sortIngredients(r *models.Recipe) {
	sort.SliceStable(r.Ingredients, func(i, j int) bool {
		return r.Ingredients[i].Ingredient.Name < r.Ingredients[j].Ingredient.Name
	})
}

func byAuthor(authorID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ?", authorID)
	}
}

// idSet plucks column from the rows of model matching query into a set.
func idSet(ctx context.Context, db *gorm.DB, model interface{}, column, query string, args ...interface{}) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Pluck(column, &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", column, err)
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
