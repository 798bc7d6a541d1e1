// Package dto defines request/response shapes for the HTTP API.
package dto

// AddReviewRequest is the payload for creating a review.
type AddReviewRequest struct {
	Author     string `json:"author" binding:"required" example:"665f1c2e8b3f4a0012345678"`
	EntityKind string `json:"entity_kind" binding:"required" example:"restaurant"`
	Entity     string `json:"entity" binding:"required" example:"665f1c2e8b3f4a0087654321"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Title      string `json:"title,omitempty" example:"Great spot"`
	Comment    string `json:"comment,omitempty" example:"Best seitan in town."`
}

// HelpfulVoteRequest identifies the voting user.
type HelpfulVoteRequest struct {
	UserID string `json:"user_id" binding:"required" example:"665f1c2e8b3f4a0012345678"`
}

// NearbyQuery carries the nearby-search query parameters.
type NearbyQuery struct {
	Lat          float64  `form:"lat" binding:"required"`
	Lng          float64  `form:"lng" binding:"required"`
	RadiusMeters float64  `form:"radius"`
	Page         int      `form:"page"`
	Limit        int      `form:"limit"`
	Q            string   `form:"q"`
	SearchFields []string `form:"search_fields"`
}

// ListQuery carries common pagination parameters.
type ListQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// SearchQuery carries text-search parameters.
type SearchQuery struct {
	Q         string `form:"q"`
	Category  string `form:"category"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}
