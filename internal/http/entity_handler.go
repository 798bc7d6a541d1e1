// Package http provides the gin handlers and router for the directory
// service API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/repository"
)

// EntityHandler serves the CRUD, listing, nearby, and search routes of
// one entity kind through its cache-aware repository.
type EntityHandler[T any, PT interface {
	*T
	repository.Document
}] struct {
	repo *repository.Repository[T, PT]
}

// NewEntityHandler creates a handler over a repository.
func NewEntityHandler[T any, PT interface {
	*T
	repository.Document
}](repo *repository.Repository[T, PT]) *EntityHandler[T, PT] {
	return &EntityHandler[T, PT]{repo: repo}
}

// Register mounts the handler's routes under its kind's collection name.
func (h *EntityHandler[T, PT]) Register(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.repo.Kind().Collection())
	g.GET("", h.List)
	g.GET("/nearby", h.Nearby)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List returns one cached page of entities.
func (h *EntityHandler[T, PT]) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	page, err := h.repo.GetAllCached(c.Request.Context(), q.Page, q.Limit, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get returns one entity by id, read through the cache.
func (h *EntityHandler[T, PT]) Get(c *gin.Context) {
	doc, err := h.repo.FindByIDCached(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Create inserts a new entity and clears the kind's cached listings.
func (h *EntityHandler[T, PT]) Create(c *gin.Context) {
	doc := PT(new(T))
	if err := c.ShouldBindJSON(doc); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	created, err := h.repo.CreateCached(c.Request.Context(), doc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update applies a partial update and clears the kind's cached shapes.
func (h *EntityHandler[T, PT]) Update(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	// Server-owned fields are never client-writable.
	delete(fields, "_id")
	delete(fields, "id")
	delete(fields, "rating")
	delete(fields, "num_reviews")
	delete(fields, "created_at")
	delete(fields, "updated_at")

	updated, err := h.repo.UpdateByIDCached(c.Request.Context(), c.Param("id"), bson.M(fields))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes an entity.
func (h *EntityHandler[T, PT]) Delete(c *gin.Context) {
	if err := h.repo.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Nearby pages entities by proximity, optionally filtered by a text query.
func (h *EntityHandler[T, PT]) Nearby(c *gin.Context) {
	var q dto.NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	page, err := h.repo.FindNearbyPaginated(c.Request.Context(), repository.NearbyParams{
		Lat:          q.Lat,
		Lng:          q.Lng,
		RadiusMeters: q.RadiusMeters,
		Page:         q.Page,
		Limit:        q.Limit,
		Query:        q.Q,
		SearchFields: q.SearchFields,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Search pages entities matching a text query.
func (h *EntityHandler[T, PT]) Search(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	page, err := h.repo.SearchPaginated(c.Request.Context(), repository.SearchParams{
		Query:     q.Q,
		Category:  q.Category,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}
