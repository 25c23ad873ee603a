package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

// UserService serves user profiles, avatars and subscriptions
type UserService struct {
	db     *gorm.DB
	images ImageStore
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB, images ImageStore) *UserService {
	return &UserService{db: db, images: images}
}

// ListUsers returns one page of users ordered by username
func (s *UserService) ListUsers(ctx context.Context, actor types.Actor, page types.PageRequest) ([]types.UserResponse, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	out, err := s.present(ctx, actor, users)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetUser returns the profile of one user as seen by actor
func (s *UserService) GetUser(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.present(ctx, actor, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// SetAvatar stores a new avatar image and returns its URL
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, dataURL string) (string, error) {
	if s.images == nil {
		return "", apperr.Validation("avatar", "image uploads are not configured")
	}
	url, err := s.images.Save(ctx, "avatars", dataURL)
	if err != nil {
		return "", err
	}
	if err := s.updateAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

// DeleteAvatar clears the avatar of the user. It fails with NotFound when
// no avatar is set.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return apperr.NotFound("avatar", "avatar not set")
	}
	return s.updateAvatar(ctx, userID, "")
}

func (s *UserService) updateAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("avatar", url)
	if res.Error != nil {
		return fmt.Errorf("failed to update avatar: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user", "user not found")
	}
	return nil
}

// Subscriptions returns one page of the authors actor follows, each with
// at most recipesLimit of their newest recipes. A non-positive limit means
// no limit.
func (s *UserService) Subscriptions(ctx context.Context, actor types.Actor, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	following := s.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", actor.UserID)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", following).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := s.db.WithContext(ctx).
		Where("id IN (?)", following).
		Order("username").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		sub, err := s.subscription(ctx, &authors[i], recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sub)
	}
	return out, total, nil
}

// Subscription projects one followed author for the follow response
func (s *UserService) Subscription(ctx context.Context, authorID uuid.UUID, recipesLimit int) (*types.SubscriptionResponse, error) {
	author, err := s.findUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.subscription(ctx, author, recipesLimit)
}

func (s *UserService) subscription(ctx context.Context, author *models.User, recipesLimit int) (*types.SubscriptionResponse, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	q := s.db.WithContext(ctx).Where("author_id = ?", author.ID).Order("created_at DESC")
	if recipesLimit > 0 {
		q = q.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	sub := &types.SubscriptionResponse{
		UserResponse: types.NewUserResponse(author, true),
		Recipes:      make([]types.RecipeShortResponse, 0, len(recipes)),
		RecipesCount: count,
	}
	for i := range recipes {
		sub.Recipes = append(sub.Recipes, types.NewRecipeShortResponse(&recipes[i]))
	}
	return sub, nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *UserService) present(ctx context.Context, actor types.Actor, users []models.User) ([]types.UserResponse, error) {
	following := map[uuid.UUID]bool{}
	if actor.Authenticated && len(users) > 0 {
		ids := make([]uuid.UUID, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var err error
		following, err = idSet(ctx, s.db, &models.Follow{}, "following_id", "follower_id = ? AND following_id IN ?", actor.UserID, ids)
		if err != nil {
			return nil, err
		}
	}

	out := make([]types.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, types.NewUserResponse(&users[i], following[users[i].ID]))
	}
	return out, nil
}
