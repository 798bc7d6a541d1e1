// Package service contains the business logic of the directory service.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/domain/model"
	"github.com/openveg/directory-service/internal/metrics"
	"github.com/openveg/directory-service/internal/repository"
)

// AddReviewInput is the validated input for AddReview.
type AddReviewInput struct {
	Author     string
	EntityKind string
	Entity     string
	Rating     int
	Title      string
	Comment    string
}

// ReviewService guards the review invariants: one review per
// (author, entity kind, entity), helpful_count always equal to the
// vote set size. Every successful mutation recomputes the target
// entity's rating rollup and invalidates the kind's cache tag so
// stale rating/num_reviews copies are never served.
type ReviewService struct {
	reviews repository.ReviewRepositoryInterface
	cache   *cache.Service
	log     zerolog.Logger
}

// NewReviewService creates a review integrity service.
func NewReviewService(reviews repository.ReviewRepositoryInterface, cacheSvc *cache.Service, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		cache:   cacheSvc,
		log:     log.With().Str("component", "reviews").Logger(),
	}
}

// AddReview validates the input against the closed entity kind set,
// pre-checks for an existing review (friendly Conflict), and inserts.
// Correctness under concurrency does not rest on the pre-check: the
// store's unique index turns a racing duplicate insert into the same
// Conflict.
func (s *ReviewService) AddReview(ctx context.Context, in AddReviewInput) (*model.Review, error) {
	kind, ok := model.ParseEntityKind(in.EntityKind)
	if !ok {
		metrics.RecordReviewMutation("add", "invalid")
		return nil, apperr.InvalidArgument(fmt.Sprintf("unknown entity kind %q", in.EntityKind))
	}
	if in.Rating < 1 || in.Rating > 5 {
		metrics.RecordReviewMutation("add", "invalid")
		return nil, apperr.InvalidArgument("rating must be between 1 and 5")
	}

	author, err := repository.ParseID(in.Author)
	if err != nil {
		metrics.RecordReviewMutation("add", "invalid")
		return nil, err
	}
	entity, err := repository.ParseID(in.Entity)
	if err != nil {
		metrics.RecordReviewMutation("add", "invalid")
		return nil, err
	}

	if existing, err := s.reviews.FindByUserAndEntity(ctx, author, kind, entity); err == nil && existing != nil {
		metrics.RecordReviewMutation("add", "conflict")
		return nil, apperr.Conflict("user has already reviewed this entity")
	} else if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		metrics.RecordReviewMutation("add", "error")
		return nil, err
	}

	review := &model.Review{
		Author:     author,
		EntityKind: kind,
		Entity:     entity,
		Rating:     in.Rating,
		Title:      in.Title,
		Comment:    in.Comment,
	}
	created, err := s.reviews.Insert(ctx, review)
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			metrics.RecordReviewMutation("add", "conflict")
		} else {
			metrics.RecordReviewMutation("add", "error")
		}
		return nil, err
	}

	s.refreshEntityRating(ctx, kind, entity)
	metrics.RecordReviewMutation("add", "success")
	return created, nil
}

// FindByUserAndEntity looks up the unique review for a triple.
func (s *ReviewService) FindByUserAndEntity(ctx context.Context, userID, entityKind, entityID string) (*model.Review, error) {
	kind, ok := model.ParseEntityKind(entityKind)
	if !ok {
		return nil, apperr.InvalidArgument(fmt.Sprintf("unknown entity kind %q", entityKind))
	}
	author, err := repository.ParseID(userID)
	if err != nil {
		return nil, err
	}
	entity, err := repository.ParseID(entityID)
	if err != nil {
		return nil, err
	}
	return s.reviews.FindByUserAndEntity(ctx, author, kind, entity)
}

// ListForEntity pages the reviews of an entity.
func (s *ReviewService) ListForEntity(ctx context.Context, entityKind, entityID string, page, limit int) (dto.Paginated[model.Review], error) {
	kind, ok := model.ParseEntityKind(entityKind)
	if !ok {
		return dto.Paginated[model.Review]{}, apperr.InvalidArgument(fmt.Sprintf("unknown entity kind %q", entityKind))
	}
	entity, err := repository.ParseID(entityID)
	if err != nil {
		return dto.Paginated[model.Review]{}, err
	}
	return s.reviews.ListForEntity(ctx, kind, entity, page, limit)
}

// MarkAsHelpful records userID's helpful vote on a review. Voting
// twice is Conflict; the underlying update is atomic so concurrent
// duplicate votes cannot both count.
func (s *ReviewService) MarkAsHelpful(ctx context.Context, reviewID, userID string) (*model.Review, error) {
	rid, uid, err := parseVoteIDs(reviewID, userID)
	if err != nil {
		metrics.RecordReviewMutation("vote", "invalid")
		return nil, err
	}

	review, err := s.reviews.AddHelpfulVote(ctx, rid, uid)
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			metrics.RecordReviewMutation("vote", "conflict")
		} else {
			metrics.RecordReviewMutation("vote", "error")
		}
		return nil, err
	}

	s.cache.InvalidateByTag(ctx, review.EntityKind.String())
	metrics.RecordReviewMutation("vote", "success")
	return review, nil
}

// RemoveHelpfulVote withdraws a vote; an absent vote is NotFound.
func (s *ReviewService) RemoveHelpfulVote(ctx context.Context, reviewID, userID string) (*model.Review, error) {
	rid, uid, err := parseVoteIDs(reviewID, userID)
	if err != nil {
		metrics.RecordReviewMutation("unvote", "invalid")
		return nil, err
	}

	review, err := s.reviews.RemoveHelpfulVote(ctx, rid, uid)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			metrics.RecordReviewMutation("unvote", "not_found")
		} else {
			metrics.RecordReviewMutation("unvote", "error")
		}
		return nil, err
	}

	s.cache.InvalidateByTag(ctx, review.EntityKind.String())
	metrics.RecordReviewMutation("unvote", "success")
	return review, nil
}

// DeleteReview removes a review (author- or admin-initiated) and
// refreshes the entity rollup.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID string) error {
	rid, err := repository.ParseID(reviewID)
	if err != nil {
		return err
	}

	removed, err := s.reviews.DeleteByID(ctx, rid)
	if err != nil {
		metrics.RecordReviewMutation("delete", "error")
		return err
	}

	s.refreshEntityRating(ctx, removed.EntityKind, removed.Entity)
	metrics.RecordReviewMutation("delete", "success")
	return nil
}

// refreshEntityRating recomputes and persists the aggregate, then
// invalidates the kind tag. A rollup failure is logged, not surfaced:
// the review write already succeeded and the rollup converges on the
// next mutation.
func (s *ReviewService) refreshEntityRating(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID) {
	agg, err := s.reviews.AggregateForEntity(ctx, kind, entity)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind.String()).Str("entity", entity.Hex()).Msg("aggregate recompute failed")
	} else if err := s.reviews.UpdateEntityRating(ctx, kind, entity, agg); err != nil {
		s.log.Error().Err(err).Str("kind", kind.String()).Str("entity", entity.Hex()).Msg("rating update failed")
	}

	s.cache.InvalidateByTag(ctx, kind.String())
}

func parseVoteIDs(reviewID, userID string) (primitive.ObjectID, primitive.ObjectID, error) {
	rid, err := repository.ParseID(reviewID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	uid, err := repository.ParseID(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return rid, uid, nil
}
