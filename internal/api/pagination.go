package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

const maxPageSize = 100

// pageRequest reads the page and limit query parameters
func pageRequest(c *gin.Context, defaultSize int) (types.PageRequest, error) {
	page := types.PageRequest{Page: 1, Limit: defaultSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apperr.Validation("page", "must be a positive integer")
		}
		page.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apperr.Validation("limit", "must be a positive integer")
		}
		page.Limit = min(n, maxPageSize)
	}
	return page, nil
}

// newPage wraps results with the count and the links to neighbouring pages
func newPage[T any](c *gin.Context, req types.PageRequest, count int64, results []T) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	p := types.Page[T]{Count: count, Results: results}
	if int64(req.Offset()+len(results)) < count {
		p.Next = pageURL(c, req.Page+1)
	}
	if req.Page > 1 {
		p.Previous = pageURL(c, req.Page-1)
	}
	return p
}

func pageURL(c *gin.Context, page int) *string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
