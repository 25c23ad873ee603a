package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/database"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

// Relation is a user-owned link that can be toggled on and off
type Relation int

const (
	RelationFavorite Relation = iota + 1
	RelationShoppingCart
	RelationFollow
)

func (r Relation) String() string {
	switch r {
	case RelationFavorite:
		return "favorite"
	case RelationShoppingCart:
		return "shopping_cart"
	case RelationFollow:
		return "subscription"
	default:
		return "unknown"
	}
}

// ToggleParams describes one toggle request. TargetID is a recipe for
// favorites and the shopping cart, and a user for follows.
type ToggleParams struct {
	Relation Relation
	ActorID  uuid.UUID
	TargetID uuid.UUID
	Op       validation.Op
}

// RelationService toggles favorites, shopping-cart entries and follows
type RelationService struct {
	db *gorm.DB
}

// NewRelationService creates a new RelationService instance
func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

// Toggle creates or removes the relation described by p. Creating an
// existing relation or removing a missing one fails with a conflict.
func (s *RelationService) Toggle(ctx context.Context, p ToggleParams) error {
	table, err := tableFor(p)
	if err != nil {
		return err
	}

	if p.Relation == RelationFollow {
		if err := validation.SelfReference(p.ActorID, p.TargetID); err != nil {
			return err
		}
	}

	found, err := validation.Exists(ctx, s.db, table.target, "id = ?", p.TargetID)
	if err != nil {
		return fmt.Errorf("failed to look up %s target: %w", p.Relation, err)
	}
	if !found {
		return apperr.NotFound(table.targetField, table.targetField+" not found")
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		exists, err := validation.Exists(ctx, tx, table.row, table.match, p.ActorID, p.TargetID)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", p.Relation, err)
		}
		if err := validation.RelationToggle(exists, p.Op, p.Relation.String()); err != nil {
			return err
		}

		if p.Op == validation.OpCreate {
			if err := tx.Create(table.row).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return apperr.Conflict(p.Relation.String(), "already exists")
				}
				return fmt.Errorf("failed to create %s: %w", p.Relation, err)
			}
			return nil
		}

		res := tx.Where(table.match, p.ActorID, p.TargetID).Delete(table.row)
		if res.Error != nil {
			return fmt.Errorf("failed to delete %s: %w", p.Relation, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(p.Relation.String(), "does not exist")
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "relation toggled", "relation", p.Relation.String(), "op", p.Op, "actor_id", p.ActorID, "target_id", p.TargetID)
	return nil
}

type relationTable struct {
	row         interface{}
	target      interface{}
	targetField string
	match       string
}

func tableFor(p ToggleParams) (relationTable, error) {
	switch p.Relation {
	case RelationFavorite:
		return relationTable{
			row:         &models.Favorite{UserID: p.ActorID, RecipeID: p.TargetID},
			target:      &models.Recipe{},
			targetField: "recipe",
			match:       "user_id = ? AND recipe_id = ?",
		}, nil
	case RelationShoppingCart:
		return relationTable{
			row:         &models.ShoppingCart{UserID: p.ActorID, RecipeID: p.TargetID},
			target:      &models.Recipe{},
			targetField: "recipe",
			match:       "user_id = ? AND recipe_id = ?",
		}, nil
	case RelationFollow:
		return relationTable{
			row:         &models.Follow{FollowerID: p.ActorID, FollowingID: p.TargetID},
			target:      &models.User{},
			targetField: "user",
			match:       "follower_id = ? AND following_id = ?",
		}, nil
	default:
		return relationTable{}, fmt.Errorf("unknown relation %d", p.Relation)
	}
}
