package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

// ImageStore persists base64 data-URL images and returns their public URL
type ImageStore interface {
	Save(ctx context.Context, prefix, dataURL string) (string, error)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(ctx context.Context, token string) (types.Actor, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uuid.UUID, in RecipeWrite) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, actor types.Actor, id uuid.UUID, in RecipeWrite) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, actor types.Actor, id uuid.UUID) error
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, actor types.Actor, filter types.RecipeFilter, page types.PageRequest) ([]models.Recipe, int64, error)
	Present(ctx context.Context, actor types.Actor, recipes []models.Recipe) ([]types.RecipeResponse, error)
	ShortLink(ctx context.Context, id uuid.UUID) (string, error)
	ResolveShortLink(ctx context.Context, token string) (uuid.UUID, error)
}

// IRelationService defines the interface for favorite, cart and follow toggles
type IRelationService interface {
	Toggle(ctx context.Context, p ToggleParams) error
}

// IShoppingListService defines the interface for shopping-list downloads and previews
type IShoppingListService interface {
	Build(ctx context.Context, userID uuid.UUID) (string, error)
	Items(ctx context.Context, userID uuid.UUID) ([]ShoppingItem, error)
}
