package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a user's review of a directory entity. One review may
// exist per (author, entity_kind, entity) triple, enforced by a unique
// compound index. helpful_count always equals len(helpful_votes).
type Review struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Author       primitive.ObjectID   `bson:"author" json:"author"`
	EntityKind   EntityKind           `bson:"entity_kind" json:"entity_kind"`
	Entity       primitive.ObjectID   `bson:"entity" json:"entity"`
	Rating       int                  `bson:"rating" json:"rating"`
	Title        string               `bson:"title,omitempty" json:"title,omitempty"`
	Comment      string               `bson:"comment,omitempty" json:"comment,omitempty"`
	HelpfulCount int                  `bson:"helpful_count" json:"helpful_count"`
	HelpfulVotes []primitive.ObjectID `bson:"helpful_votes" json:"helpful_votes"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// AggregateRating is the rollup written back onto the reviewed entity
// whenever its review set changes.
type AggregateRating struct {
	Rating     float64 `bson:"rating" json:"rating"`
	NumReviews int     `bson:"num_reviews" json:"num_reviews"`
}
