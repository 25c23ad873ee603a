package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/testhelpers"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

func TestSubscriptions(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewUserService(db, nil)
	ctx := context.Background()

	reader := testhelpers.CreateUser(t, db, "reader")
	chef := testhelpers.CreateUser(t, db, "chef")
	baker := testhelpers.CreateUser(t, db, "baker")
	testhelpers.CreateUser(t, db, "stranger")

	for _, name := range []string{"One", "Two", "Three"} {
		testhelpers.CreateRecipe(t, db, chef, name, nil, nil)
	}
	require.NoError(t, db.Create(&models.Follow{FollowerID: reader.ID, FollowingID: chef.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: reader.ID, FollowingID: baker.ID}).Error)

	subs, total, err := svc.Subscriptions(ctx, actorFor(reader), types.PageRequest{Page: 1, Limit: 10}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)

	assert.Equal(t, "baker", subs[0].Username)
	assert.Zero(t, subs[0].RecipesCount)
	assert.Empty(t, subs[0].Recipes)

	assert.Equal(t, "chef", subs[1].Username)
	assert.True(t, subs[1].IsSubscribed)
	assert.Equal(t, int64(3), subs[1].RecipesCount)
	assert.Len(t, subs[1].Recipes, 2)

	one, err := svc.Subscription(ctx, chef.ID, 0)
	require.NoError(t, err)
	assert.Len(t, one.Recipes, 3)
}

func TestGetUserSubscribedFlag(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := service.NewUserService(db, nil)
	ctx := context.Background()

	reader := testhelpers.CreateUser(t, db, "reader")
	chef := testhelpers.CreateUser(t, db, "chef")
	require.NoError(t, db.Create(&models.Follow{FollowerID: reader.ID, FollowingID: chef.ID}).Error)

	seen, err := svc.GetUser(ctx, actorFor(reader), chef.ID)
	require.NoError(t, err)
	assert.True(t, seen.IsSubscribed)
	assert.Nil(t, seen.Avatar)

	anonymous, err := svc.GetUser(ctx, types.Anonymous, chef.ID)
	require.NoError(t, err)
	assert.False(t, anonymous.IsSubscribed)

	users, total, err := svc.ListUsers(ctx, actorFor(reader), types.PageRequest{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, "chef", users[0].Username)
}

func TestAvatar(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	images := new(mockImageStore)
	svc := service.NewUserService(db, images)
	ctx := context.Background()

	user := testhelpers.CreateUser(t, db, "user")

	err := svc.DeleteAvatar(ctx, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	images.On("Save", mock.Anything, "avatars", "data:image/png;base64,AAAA").
		Return("https://media.example.com/avatars/a.png", nil).Once()
	url, err := svc.SetAvatar(ctx, user.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/avatars/a.png", url)

	require.NoError(t, svc.DeleteAvatar(ctx, user.ID))
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Empty(t, reloaded.Avatar)
}
