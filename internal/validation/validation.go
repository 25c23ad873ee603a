// Package validation holds the predicates checked before any mutation. Each
// returns an *apperr.Error so callers can short-circuit uniformly.
package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
)

// MinAmount is the smallest ingredient amount a recipe may use.
const MinAmount = 1

// Op is the direction of a toggle request.
type Op int

const (
	OpCreate Op = iota + 1
	OpDelete
)

// IngredientLine checks a single (ingredient id, amount) pair and confirms
// the ingredient exists.
func IngredientLine(ctx context.Context, db *gorm.DB, id *uuid.UUID, amount *int) (uuid.UUID, int, error) {
	if id == nil || *id == uuid.Nil {
		return uuid.Nil, 0, apperr.MissingField("ingredients.id")
	}
	if amount == nil {
		return uuid.Nil, 0, apperr.MissingField("ingredients.amount")
	}
	if *amount < MinAmount {
		return uuid.Nil, 0, apperr.OutOfRange("ingredients.amount", MinAmount)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return uuid.Nil, 0, fmt.Errorf("failed to look up ingredient: %w", err)
	}
	if count == 0 {
		return uuid.Nil, 0, apperr.NotFound("ingredients.id", fmt.Sprintf("ingredient %s not found", *id))
	}
	return *id, *amount, nil
}

// TagsAndIngredients enforces that a new recipe carries at least one tag and
// one ingredient. On update a nil slice means "no change", but an explicit
// empty list is still rejected.
func TagsAndIngredients[I, T any](isCreate bool, ingredients *[]I, tags *[]T) error {
	if isCreate {
		if ingredients == nil || len(*ingredients) == 0 {
			return apperr.MissingField("ingredients")
		}
		if tags == nil || len(*tags) == 0 {
			return apperr.MissingField("tags")
		}
		return nil
	}
	if ingredients != nil && len(*ingredients) == 0 {
		return apperr.Validation("ingredients", "must not be empty")
	}
	if tags != nil && len(*tags) == 0 {
		return apperr.Validation("tags", "must not be empty")
	}
	return nil
}

// RelationToggle rejects a create when the relation already exists and a
// delete when it does not.
func RelationToggle(exists bool, op Op, relation string) error {
	switch op {
	case OpCreate:
		if exists {
			return apperr.Conflict(relation, "already exists")
		}
	case OpDelete:
		if !exists {
			return apperr.Conflict(relation, "does not exist")
		}
	default:
		return fmt.Errorf("unknown toggle operation %d", op)
	}
	return nil
}

// SelfReference rejects relations whose actor and target are the same.
func SelfReference(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return apperr.InvalidOperation("user", "cannot target yourself")
	}
	return nil
}

// Positive rejects values below 1.
func Positive(field string, value int) error {
	if value < 1 {
		return apperr.OutOfRange(field, 1)
	}
	return nil
}

// UniqueField fails with a conflict when a row other than excludeID already
// holds value in column field. Extra scopes narrow the uniqueness domain, as
// with recipe names which are unique per author. field must be a trusted
// column name.
func UniqueField(ctx context.Context, db *gorm.DB, model interface{}, field string, value interface{}, excludeID *uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) error {
	query := db.WithContext(ctx).Model(model).Where(field+" = ?", value).Scopes(scopes...)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check uniqueness of %s: %w", field, err)
	}
	if count > 0 {
		return apperr.Conflict(field, fmt.Sprintf("%v is already taken", value))
	}
	return nil
}

// Tags loads the tags with the given ids, failing with NotFound when any id
// is unknown. Duplicate ids collapse.
func Tags(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]models.Tag, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var tags []models.Tag
	if err := db.WithContext(ctx).Where("id IN ?", unique).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(unique) {
		found := make(map[uuid.UUID]struct{}, len(tags))
		for _, t := range tags {
			found[t.ID] = struct{}{}
		}
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				return nil, apperr.NotFound("tags", fmt.Sprintf("tag %s not found", id))
			}
		}
	}
	return tags, nil
}

// Exists reports whether any row of model matches the given conditions.
func Exists(ctx context.Context, db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(model).Where(query, args...).Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return count > 0, nil
}
