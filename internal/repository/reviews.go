package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/domain/model"
)

// ReviewRepositoryInterface defines the review persistence operations
// consumed by the integrity service. Implementations must make the
// vote toggles atomic with respect to concurrent toggles on the same
// review, and must surface duplicate-insert as Conflict.
type ReviewRepositoryInterface interface {
	Insert(ctx context.Context, review *model.Review) (*model.Review, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error)
	FindByUserAndEntity(ctx context.Context, author primitive.ObjectID, kind model.EntityKind, entity primitive.ObjectID) (*model.Review, error)
	ListForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, page, limit int) (dto.Paginated[model.Review], error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error)
	AddHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error)
	RemoveHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error)
	AggregateForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID) (model.AggregateRating, error)
	UpdateEntityRating(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, agg model.AggregateRating) error
}

// ReviewRepository is the MongoDB-backed review store.
type ReviewRepository struct {
	db         *MongoDB
	collection *mongo.Collection
}

// NewReviewRepository creates a review repository.
func NewReviewRepository(db *MongoDB) *ReviewRepository {
	return &ReviewRepository{db: db, collection: db.Reviews}
}

// Insert writes a new review. The unique (author, entity_kind, entity)
// index is the authoritative uniqueness guard: a duplicate-key error
// maps to the same Conflict the service's pre-check produces, so a
// concurrent second insert can never slip through.
func (r *ReviewRepository) Insert(ctx context.Context, review *model.Review) (*model.Review, error) {
	review.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	if review.HelpfulVotes == nil {
		review.HelpfulVotes = []primitive.ObjectID{}
	}
	review.HelpfulCount = len(review.HelpfulVotes)

	if _, err := r.collection.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("user has already reviewed this entity")
		}
		return nil, apperr.Internal("insert review", err)
	}
	return review, nil
}

// FindByID loads one review.
func (r *ReviewRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound(fmt.Sprintf("review %s not found", id.Hex()))
	}
	if err != nil {
		return nil, apperr.Internal("find review", err)
	}
	return &review, nil
}

// FindByUserAndEntity looks up the unique review for a triple. Absent
// is NotFound.
func (r *ReviewRepository) FindByUserAndEntity(ctx context.Context, author primitive.ObjectID, kind model.EntityKind, entity primitive.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.collection.FindOne(ctx, bson.M{
		"author":      author,
		"entity_kind": kind,
		"entity":      entity,
	}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("review not found")
	}
	if err != nil {
		return nil, apperr.Internal("find review by user and entity", err)
	}
	return &review, nil
}

// ListForEntity pages the reviews of one entity, newest first.
func (r *ReviewRepository) ListForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, page, limit int) (dto.Paginated[model.Review], error) {
	page, limit = NormalizePage(page, limit)
	filter := bson.M{"entity_kind": kind, "entity": entity}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return dto.Paginated[model.Review]{}, apperr.Internal("count reviews", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return dto.Paginated[model.Review]{}, apperr.Internal("find reviews", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	data := make([]model.Review, 0)
	if err := cursor.All(ctx, &data); err != nil {
		return dto.Paginated[model.Review]{}, apperr.Internal("decode reviews", err)
	}

	return dto.Paginated[model.Review]{Data: data, Meta: PageMetaFor(page, limit, total)}, nil
}

// DeleteByID removes a review and returns the removed document so the
// caller can recompute the entity's aggregate.
func (r *ReviewRepository) DeleteByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound(fmt.Sprintf("review %s not found", id.Hex()))
	}
	if err != nil {
		return nil, apperr.Internal("delete review", err)
	}
	return &review, nil
}

// AddHelpfulVote appends userID to the vote set and bumps the counter
// in one conditional update: the $ne guard makes a duplicate vote
// match nothing, so two concurrent votes by the same user cannot both
// increment. Duplicate is Conflict, missing review is NotFound.
func (r *ReviewRepository) AddHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": reviewID, "helpful_votes": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"helpful_votes": userID},
			"$inc":      bson.M{"helpful_count": 1},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&review)

	if err == mongo.ErrNoDocuments {
		// Filter missed: either no such review, or the vote exists.
		if _, findErr := r.FindByID(ctx, reviewID); findErr != nil {
			return nil, findErr
		}
		return nil, apperr.Conflict("user has already voted on this review")
	}
	if err != nil {
		return nil, apperr.Internal("add helpful vote", err)
	}
	return &review, nil
}

// RemoveHelpfulVote is the symmetric $pull. A vote that is not present
// is NotFound rather than a silent success: it signals a client logic
// error.
func (r *ReviewRepository) RemoveHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error) {
	var review model.Review
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": reviewID, "helpful_votes": userID},
		bson.M{
			"$pull": bson.M{"helpful_votes": userID},
			"$inc":  bson.M{"helpful_count": -1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&review)

	if err == mongo.ErrNoDocuments {
		if _, findErr := r.FindByID(ctx, reviewID); findErr != nil {
			return nil, findErr
		}
		return nil, apperr.NotFound("vote not found")
	}
	if err != nil {
		return nil, apperr.Internal("remove helpful vote", err)
	}
	return &review, nil
}

// AggregateForEntity recomputes the entity's rating rollup from its
// current review set.
func (r *ReviewRepository) AggregateForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID) (model.AggregateRating, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"entity_kind": kind, "entity": entity}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"rating":      bson.M{"$avg": "$rating"},
			"num_reviews": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return model.AggregateRating{}, apperr.Internal("aggregate ratings", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var results []model.AggregateRating
	if err := cursor.All(ctx, &results); err != nil {
		return model.AggregateRating{}, apperr.Internal("decode aggregate", err)
	}
	if len(results) == 0 {
		return model.AggregateRating{}, nil
	}
	return results[0], nil
}

// UpdateEntityRating writes the rollup back onto the reviewed entity.
func (r *ReviewRepository) UpdateEntityRating(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, agg model.AggregateRating) error {
	_, err := r.db.EntityCollection(kind).UpdateOne(
		ctx,
		bson.M{"_id": entity},
		bson.M{"$set": bson.M{
			"rating":      agg.Rating,
			"num_reviews": agg.NumReviews,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		return apperr.Internal("update entity rating", err)
	}
	return nil
}
