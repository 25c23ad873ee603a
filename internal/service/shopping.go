package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/database"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
)

// ShoppingListHeader is the first line of every rendered shopping list
const ShoppingListHeader = "Shopping list:"

// ShoppingItem is one aggregated line of a shopping list
type ShoppingItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// ShoppingListService aggregates and clears shopping carts
type ShoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new ShoppingListService instance
func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Build sums the ingredients of every recipe in the user's cart, grouped by
// ingredient name and unit, and empties the cart in the same transaction.
func (s *ShoppingListService) Build(ctx context.Context, userID uuid.UUID) (string, error) {
	var items []ShoppingItem
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if items, err = aggregateCart(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return fmt.Errorf("failed to clear shopping cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "shopping list downloaded", "user_id", userID, "items", len(items))
	return RenderShoppingList(items), nil
}

// Items returns the aggregated cart without clearing it.
func (s *ShoppingListService) Items(ctx context.Context, userID uuid.UUID) ([]ShoppingItem, error) {
	items, err := aggregateCart(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []ShoppingItem{}
	}
	return items, nil
}

func aggregateCart(db *gorm.DB, userID uuid.UUID) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := db.Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping cart: %w", err)
	}
	return items, nil
}

// RenderShoppingList formats items as a plain-text list, one ingredient per
// line in the order given.
func RenderShoppingList(items []ShoppingItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %s — %d %s\n", item.Name, item.Amount, item.MeasurementUnit)
	}
	return b.String()
}
