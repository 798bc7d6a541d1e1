// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/domain/model"
)

type MockReviewRepositoryInterface struct {
	mock.Mock
}

func (m *MockReviewRepositoryInterface) Insert(ctx context.Context, review *model.Review) (*model.Review, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) FindByUserAndEntity(ctx context.Context, author primitive.ObjectID, kind model.EntityKind, entity primitive.ObjectID) (*model.Review, error) {
	args := m.Called(ctx, author, kind, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) ListForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, page, limit int) (dto.Paginated[model.Review], error) {
	args := m.Called(ctx, kind, entity, page, limit)
	return args.Get(0).(dto.Paginated[model.Review]), args.Error(1)
}

func (m *MockReviewRepositoryInterface) DeleteByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) AddHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error) {
	args := m.Called(ctx, reviewID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) RemoveHelpfulVote(ctx context.Context, reviewID, userID primitive.ObjectID) (*model.Review, error) {
	args := m.Called(ctx, reviewID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepositoryInterface) AggregateForEntity(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID) (model.AggregateRating, error) {
	args := m.Called(ctx, kind, entity)
	return args.Get(0).(model.AggregateRating), args.Error(1)
}

func (m *MockReviewRepositoryInterface) UpdateEntityRating(ctx context.Context, kind model.EntityKind, entity primitive.ObjectID, agg model.AggregateRating) error {
	args := m.Called(ctx, kind, entity, agg)
	return args.Error(0)
}
