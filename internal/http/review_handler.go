package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/service"
)

// ReviewHandler serves the review integrity routes.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Register mounts the review routes.
func (h *ReviewHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/reviews")
	g.POST("", h.Add)
	g.GET("/for/:kind/:entityId", h.ListForEntity)
	g.GET("/by/:userId/:kind/:entityId", h.FindByUserAndEntity)
	g.POST("/:id/helpful", h.MarkAsHelpful)
	g.DELETE("/:id/helpful", h.RemoveHelpfulVote)
	g.DELETE("/:id", h.Delete)
}

// Add creates a review; a second review for the same (author, kind,
// entity) triple is a 409.
func (h *ReviewHandler) Add(c *gin.Context) {
	var req dto.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	review, err := h.reviews.AddReview(c.Request.Context(), service.AddReviewInput{
		Author:     req.Author,
		EntityKind: req.EntityKind,
		Entity:     req.Entity,
		Rating:     req.Rating,
		Title:      req.Title,
		Comment:    req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// ListForEntity pages the reviews of one entity.
func (h *ReviewHandler) ListForEntity(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	page, err := h.reviews.ListForEntity(c.Request.Context(), c.Param("kind"), c.Param("entityId"), q.Page, q.Limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// FindByUserAndEntity returns the unique review for a triple, 404 when
// the user has not reviewed the entity.
func (h *ReviewHandler) FindByUserAndEntity(c *gin.Context) {
	review, err := h.reviews.FindByUserAndEntity(c.Request.Context(), c.Param("userId"), c.Param("kind"), c.Param("entityId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// MarkAsHelpful records a helpful vote; voting twice is a 409.
func (h *ReviewHandler) MarkAsHelpful(c *gin.Context) {
	var req dto.HelpfulVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	review, err := h.reviews.MarkAsHelpful(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// RemoveHelpfulVote withdraws a vote; an absent vote is a 404.
func (h *ReviewHandler) RemoveHelpfulVote(c *gin.Context) {
	var req dto.HelpfulVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	review, err := h.reviews.RemoveHelpfulVote(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// Delete removes a review and refreshes the entity's rating rollup.
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.reviews.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
