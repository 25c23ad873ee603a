package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/database"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

// CatalogService manages the global tag and ingredient lists
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListTags returns every tag ordered by name
func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// GetTag retrieves a tag by ID
func (s *CatalogService) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := first(ctx, s.db, &tag, id, "tag"); err != nil {
		return nil, err
	}
	return &tag, nil
}

// CreateTag adds a tag with a unique name and slug
func (s *CatalogService) CreateTag(ctx context.Context, req *types.TagRequest) (*models.Tag, error) {
	tag := models.Tag{Name: strings.TrimSpace(req.Name), Slug: strings.TrimSpace(req.Slug)}
	if err := s.checkTag(ctx, &tag, nil); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, writeError("tag", err)
	}
	return &tag, nil
}

// UpdateTag renames a tag
func (s *CatalogService) UpdateTag(ctx context.Context, id uuid.UUID, req *types.TagRequest) (*models.Tag, error) {
	tag, err := s.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	tag.Name = strings.TrimSpace(req.Name)
	tag.Slug = strings.TrimSpace(req.Slug)
	if err := s.checkTag(ctx, tag, &id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(tag).Error; err != nil {
		return nil, writeError("tag", err)
	}
	return tag, nil
}

// DeleteTag removes a tag and detaches it from every recipe
func (s *CatalogService) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetTag(ctx, id); err != nil {
		return err
	}
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		return tx.Delete(&models.Tag{}, "id = ?", id).Error
	})
}

func (s *CatalogService) checkTag(ctx context.Context, tag *models.Tag, exclude *uuid.UUID) error {
	if err := validation.UniqueField(ctx, s.db, &models.Tag{}, "name", tag.Name, exclude); err != nil {
		return err
	}
	return validation.UniqueField(ctx, s.db, &models.Tag{}, "slug", tag.Slug, exclude)
}

// ListIngredients returns ingredients ordered by name. When name is given,
// ingredients starting with it come first, followed by those containing it.
func (s *CatalogService) ListIngredients(ctx context.Context, name string) ([]models.Ingredient, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	ingredients := []models.Ingredient{}
	if name == "" {
		if err := s.db.WithContext(ctx).Order("name").Find(&ingredients).Error; err != nil {
			return nil, fmt.Errorf("failed to list ingredients: %w", err)
		}
		return ingredients, nil
	}

	var prefixed, containing []models.Ingredient
	err := s.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(name)+"%").
		Order("name").
		Find(&prefixed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	err = s.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' AND LOWER(name) NOT LIKE ? ESCAPE '\'`, "%"+escapeLike(name)+"%", escapeLike(name)+"%").
		Order("name").
		Find(&containing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	ingredients = append(ingredients, prefixed...)
	return append(ingredients, containing...), nil
}

// GetIngredient retrieves an ingredient by ID
func (s *CatalogService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := first(ctx, s.db, &ingredient, id, "ingredient"); err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// CreateIngredient adds an ingredient with a unique name
func (s *CatalogService) CreateIngredient(ctx context.Context, req *types.IngredientRequest) (*models.Ingredient, error) {
	ingredient := models.Ingredient{
		Name:            strings.TrimSpace(req.Name),
		MeasurementUnit: strings.TrimSpace(req.MeasurementUnit),
	}
	if err := validation.UniqueField(ctx, s.db, &models.Ingredient{}, "name", ingredient.Name, nil); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		return nil, writeError("ingredient", err)
	}
	return &ingredient, nil
}

// UpdateIngredient changes the name or unit of an ingredient
func (s *CatalogService) UpdateIngredient(ctx context.Context, id uuid.UUID, req *types.IngredientRequest) (*models.Ingredient, error) {
	ingredient, err := s.GetIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	ingredient.Name = strings.TrimSpace(req.Name)
	ingredient.MeasurementUnit = strings.TrimSpace(req.MeasurementUnit)
	if err := validation.UniqueField(ctx, s.db, &models.Ingredient{}, "name", ingredient.Name, &id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(ingredient).Error; err != nil {
		return nil, writeError("ingredient", err)
	}
	return ingredient, nil
}

// DeleteIngredient removes an ingredient unless a recipe still uses it
func (s *CatalogService) DeleteIngredient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetIngredient(ctx, id); err != nil {
		return err
	}
	used, err := validation.Exists(ctx, s.db, &models.RecipeIngredient{}, "ingredient_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to check ingredient usage: %w", err)
	}
	if used {
		return apperr.Conflict("ingredient", "ingredient is used by recipes")
	}
	return s.db.WithContext(ctx).Delete(&models.Ingredient{}, "id = ?", id).Error
}

func first(ctx context.Context, db *gorm.DB, dest interface{}, id uuid.UUID, field string) error {
	err := db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(field, field+" not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", field, err)
	}
	return nil
}

func writeError(field string, err error) error {
	if database.IsUniqueViolation(err) {
		return apperr.Conflict(field, field+" already exists")
	}
	return fmt.Errorf("failed to save %s: %w", field, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
