package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
	"github.com/foodgram-dev/foodgram/backend/internal/models"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
	"github.com/foodgram-dev/foodgram/backend/internal/validation"
)

// RecipeHandler serves recipes, favorites, the shopping cart and short links
type RecipeHandler struct {
	recipeService   service.IRecipeService
	relationService service.IRelationService
	shoppingService service.IShoppingListService
	publicBaseURL   string
	pageSize        int
	createLimiter   *middleware.RateLimiter
}

func NewRecipeHandler(recipeService service.IRecipeService, relationService service.IRelationService, shoppingService service.IShoppingListService, publicBaseURL string, pageSize int) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		relationService: relationService,
		shoppingService: shoppingService,
		publicBaseURL:   strings.TrimRight(publicBaseURL, "/"),
		pageSize:        pageSize,
	}
}

// WithCreateRateLimit throttles recipe creation per user
func (h *RecipeHandler) WithCreateRateLimit(limiter *middleware.RateLimiter) *RecipeHandler {
	h.createLimiter = limiter
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, optionalAuth, requireAuth gin.HandlerFunc) {
	create := []gin.HandlerFunc{requireAuth}
	if h.createLimiter != nil {
		create = append(create, h.createLimiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", optionalAuth, h.ListRecipes)
		recipes.POST("/", create...)
		recipes.GET("/download_shopping_cart/", requireAuth, h.DownloadShoppingCart)
		recipes.GET("/shopping_cart/", requireAuth, h.PreviewShoppingCart)
		recipes.GET("/:id/", optionalAuth, h.GetRecipe)
		recipes.PATCH("/:id/", requireAuth, h.UpdateRecipe)
		recipes.DELETE("/:id/", requireAuth, h.DeleteRecipe)
		recipes.GET("/:id/get-link/", optionalAuth, h.GetLink)
		recipes.POST("/:id/favorite/", requireAuth, h.toggle(service.RelationFavorite, validation.OpCreate))
		recipes.DELETE("/:id/favorite/", requireAuth, h.toggle(service.RelationFavorite, validation.OpDelete))
		recipes.POST("/:id/shopping_cart/", requireAuth, h.toggle(service.RelationShoppingCart, validation.OpCreate))
		recipes.DELETE("/:id/shopping_cart/", requireAuth, h.toggle(service.RelationShoppingCart, validation.OpDelete))
	}
}

// RegisterShortLinkRoutes mounts the short-link redirect at the site root
func (h *RecipeHandler) RegisterShortLinkRoutes(router gin.IRoutes) {
	router.GET("/s/:token", h.RedirectShortLink)
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	filter, err := recipeFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := middleware.Actor(c)
	recipes, total, err := h.recipeService.ListRecipes(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.recipeService.Present(c.Request.Context(), actor, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, results))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := service.RecipeWrite{
		Name:        &req.Name,
		Text:        &req.Text,
		CookingTime: &req.CookingTime,
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	}
	if req.Image != "" {
		in.Image = &req.Image
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), middleware.Actor(c).UserID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), middleware.Actor(c), id, service.RecipeWrite{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       req.Image,
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// toggle builds the handler of one favorite or shopping-cart transition
func (h *RecipeHandler) toggle(relation service.Relation, op validation.Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		err := h.relationService.Toggle(c.Request.Context(), service.ToggleParams{
			Relation: relation,
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

		recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, types.NewRecipeShortResponse(recipe))
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	report, err := h.shoppingService.Build(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

// PreviewShoppingCart lists the aggregated cart as JSON and leaves it intact
func (h *RecipeHandler) PreviewShoppingCart(c *gin.Context) {
	items, err := h.shoppingService.Items(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	token, err := h.recipeService.ShortLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ShortLinkResponse{ShortLink: fmt.Sprintf("%s/s/%s", h.publicBaseURL, token)})
}

func (h *RecipeHandler) RedirectShortLink(c *gin.Context) {
	id, err := h.recipeService.ResolveShortLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/recipes/%s", h.publicBaseURL, id))
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	out, err := h.recipeService.Present(c.Request.Context(), middleware.Actor(c), []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out[0])
}

// recipeFilter reads the author, tags, is_favorited and is_in_shopping_cart
// query parameters
func recipeFilter(c *gin.Context) (types.RecipeFilter, error) {
	var filter types.RecipeFilter
	if raw := c.Query("author"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, apperr.Validation("author", "must be a valid id")
		}
		filter.AuthorID = &id
	}
	for _, slug := range c.QueryArray("tags") {
		if slug = strings.TrimSpace(slug); slug != "" {
			filter.TagSlugs = append(filter.TagSlugs, slug)
		}
	}
	filter.IsFavorited = truthy(c.Query("is_favorited"))
	filter.IsInShoppingCart = truthy(c.Query("is_in_shopping_cart"))
	return filter, nil
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}
