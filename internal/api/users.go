package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

// UserHandler serves registration, profiles, avatars and subscriptions
type UserHandler struct {
	authService     service.IAuthService
	userService     *service.UserService
	relationService service.IRelationService
	pageSize        int
}

func NewUserHandler(authService service.IAuthService, userService *service.UserService, relationService service.IRelationService, pageSize int) *UserHandler {
	return &UserHandler{
		authService:     authService,
		userService:     userService,
		relationService: relationService,
		pageSize:        pageSize,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, optionalAuth, requireAuth gin.HandlerFunc) {
	users := router.Group("/users")
	{
		users.POST("/", optionalAuth, h.Register)
		users.GET("/", optionalAuth, h.ListUsers)
		users.GET("/me/", requireAuth, h.Me)
		users.PUT("/me/avatar/", requireAuth, h.SetAvatar)
		users.DELETE("/me/avatar/", requireAuth, h.DeleteAvatar)
		users.POST("/set_password/", requireAuth, h.SetPassword)
		users.GET("/subscriptions/", requireAuth, h.Subscriptions)
		users.GET("/:id/", optionalAuth, h.GetUser)
		users.POST("/:id/subscribe/", requireAuth, h.Subscribe)
		users.DELETE("/:id/subscribe/", requireAuth, h.Unsubscribe)
	}
}

// Register creates an account. Authenticated users cannot register.
func (h *UserHandler) Register(c *gin.Context) {
	if middleware.Actor(c).Authenticated {
		respondError(c, apperr.PermissionDenied("already authenticated"))
		return
	}

	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewUserResponse(user, false))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), middleware.Actor(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, users))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	actor := middleware.Actor(c)
	user, err := h.userService.GetUser(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	url, err := h.userService.SetAvatar(c.Request.Context(), middleware.Actor(c).UserID, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.userService.DeleteAvatar(c.Request.Context(), middleware.Actor(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), middleware.Actor(c).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	subs, total, err := h.userService.Subscriptions(c.Request.Context(), middleware.Actor(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, subs))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	h.toggleFollow(c, validation.OpCreate)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	h.toggleFollow(c, validation.OpDelete)
}

func (h *UserHandler) toggleFollow(c *gin.Context, op validation.Op) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.relationService.Toggle(c.Request.Context(), service.ToggleParams{
		Relation: service.RelationFollow,
		ActorID:  middleware.Actor(c).UserID,
		TargetID: id,
		Op:       op,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if op == validation.OpDelete {
		c.Status(http.StatusNoContent)
		return
	}

	sub, err := h.userService.Subscription(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// recipesLimit reads the optional recipes_limit query parameter
func recipesLimit(c *gin.Context) (int, error) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("recipes_limit", "must be a non-negative integer")
	}
	return n, nil
}
