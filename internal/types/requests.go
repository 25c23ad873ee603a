package types

import "github.com/google/uuid"

// RegisterRequest is the body of POST /users/
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the body of POST /auth/token/login/
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetPasswordRequest is the body of POST /users/set_password/
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

// AvatarRequest carries a base64 data URL
type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// IngredientLine is one ingredient of a recipe write. Both fields are
// pointers so that absence can be told apart from zero.
type IngredientLine struct {
	ID     *uuid.UUID `json:"id"`
	Amount *int       `json:"amount"`
}

// CreateRecipeRequest is the body of POST /recipes/
type CreateRecipeRequest struct {
	Name        string            `json:"name" binding:"required,max=256"`
	Text        string            `json:"text" binding:"required"`
	CookingTime int               `json:"cooking_time" binding:"required,min=1"`
	Image       string            `json:"image"`
	Tags        *[]uuid.UUID      `json:"tags"`
	Ingredients *[]IngredientLine `json:"ingredients"`
}

// UpdateRecipeRequest is the body of PATCH /recipes/{id}/. Omitted fields
// are left unchanged.
type UpdateRecipeRequest struct {
	Name        *string           `json:"name" binding:"omitempty,min=1,max=256"`
	Text        *string           `json:"text" binding:"omitempty,min=1"`
	CookingTime *int              `json:"cooking_time" binding:"omitempty,min=1"`
	Image       *string           `json:"image"`
	Tags        *[]uuid.UUID      `json:"tags"`
	Ingredients *[]IngredientLine `json:"ingredients"`
}

// TagRequest is the admin body for creating or updating a tag
type TagRequest struct {
	Name string `json:"name" binding:"required,max=32"`
	Slug string `json:"slug" binding:"required,max=32"`
}

// IngredientRequest is the admin body for creating or updating an ingredient
type IngredientRequest struct {
	Name            string `json:"name" binding:"required,max=128"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=64"`
}

// RecipeFilter narrows recipe listings
type RecipeFilter struct {
	AuthorID         *uuid.UUID
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
}

// PageRequest selects a page of a listing; Page starts at 1
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
