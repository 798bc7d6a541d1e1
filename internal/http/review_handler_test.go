package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/domain/model"
	apphttp "github.com/openveg/directory-service/internal/http"
	"github.com/openveg/directory-service/internal/middleware"
	"github.com/openveg/directory-service/internal/mocks"
	"github.com/openveg/directory-service/internal/service"
)

func testCacheService(t *testing.T) *cache.Service {
	t.Helper()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	return cache.NewService(store, time.Minute, time.Second, zerolog.Nop())
}

func reviewRouter(t *testing.T, repo *mocks.MockReviewRepositoryInterface) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())

	svc := service.NewReviewService(repo, testCacheService(t), zerolog.Nop())
	api := router.Group("/api/v1")
	apphttp.NewReviewHandler(svc).Register(api)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestReviewHandler_Add(t *testing.T) {
	author := primitive.NewObjectID()
	entity := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("FindByUserAndEntity", mock.Anything, author, model.KindRestaurant, entity).
		Return(nil, apperr.NotFound("review not found"))
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*model.Review")).
		Return(&model.Review{ID: primitive.NewObjectID(), Author: author, EntityKind: model.KindRestaurant, Entity: entity, Rating: 5}, nil)
	repo.On("AggregateForEntity", mock.Anything, model.KindRestaurant, entity).
		Return(model.AggregateRating{Rating: 5, NumReviews: 1}, nil)
	repo.On("UpdateEntityRating", mock.Anything, model.KindRestaurant, entity, mock.Anything).
		Return(nil)

	router := reviewRouter(t, repo)
	w := postJSON(router, "/api/v1/reviews", dto.AddReviewRequest{
		Author:     author.Hex(),
		EntityKind: "restaurant",
		Entity:     entity.Hex(),
		Rating:     5,
		Comment:    "excellent",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var created model.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 5, created.Rating)
	repo.AssertExpectations(t)
}

func TestReviewHandler_AddDuplicateIs409(t *testing.T) {
	author := primitive.NewObjectID()
	entity := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("FindByUserAndEntity", mock.Anything, author, model.KindRestaurant, entity).
		Return(&model.Review{ID: primitive.NewObjectID()}, nil)

	router := reviewRouter(t, repo)
	w := postJSON(router, "/api/v1/reviews", dto.AddReviewRequest{
		Author:     author.Hex(),
		EntityKind: "restaurant",
		Entity:     entity.Hex(),
		Rating:     4,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeConflict)
	assert.Contains(t, w.Body.String(), "already reviewed")
}

func TestReviewHandler_AddValidation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing author", body: dto.AddReviewRequest{EntityKind: "doctor", Entity: primitive.NewObjectID().Hex(), Rating: 4}},
		{name: "rating out of range", body: map[string]interface{}{
			"author": primitive.NewObjectID().Hex(), "entity_kind": "doctor", "entity": primitive.NewObjectID().Hex(), "rating": 9,
		}},
		{name: "unknown kind", body: dto.AddReviewRequest{
			Author: primitive.NewObjectID().Hex(), EntityKind: "hotel", Entity: primitive.NewObjectID().Hex(), Rating: 4,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := reviewRouter(t, new(mocks.MockReviewRepositoryInterface))
			w := postJSON(router, "/api/v1/reviews", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidRequest)
		})
	}
}

func TestReviewHandler_MarkAsHelpful(t *testing.T) {
	reviewID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("AddHelpfulVote", mock.Anything, reviewID, userID).
		Return(&model.Review{ID: reviewID, EntityKind: model.KindDoctor, HelpfulCount: 3, HelpfulVotes: []primitive.ObjectID{userID, primitive.NewObjectID(), primitive.NewObjectID()}}, nil)

	router := reviewRouter(t, repo)
	w := postJSON(router, "/api/v1/reviews/"+reviewID.Hex()+"/helpful", dto.HelpfulVoteRequest{UserID: userID.Hex()})

	assert.Equal(t, http.StatusOK, w.Code)

	var review model.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	assert.Equal(t, 3, review.HelpfulCount)
}

func TestReviewHandler_DuplicateVoteIs409(t *testing.T) {
	reviewID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("AddHelpfulVote", mock.Anything, reviewID, userID).
		Return(nil, apperr.Conflict("user has already voted on this review"))

	router := reviewRouter(t, repo)
	w := postJSON(router, "/api/v1/reviews/"+reviewID.Hex()+"/helpful", dto.HelpfulVoteRequest{UserID: userID.Hex()})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already voted")
}

func TestReviewHandler_RemoveAbsentVoteIs404(t *testing.T) {
	reviewID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("RemoveHelpfulVote", mock.Anything, reviewID, userID).
		Return(nil, apperr.NotFound("vote not found"))

	router := reviewRouter(t, repo)

	payload, _ := json.Marshal(dto.HelpfulVoteRequest{UserID: userID.Hex()})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+reviewID.Hex()+"/helpful", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeNotFound)
}

func TestReviewHandler_Delete(t *testing.T) {
	reviewID := primitive.NewObjectID()
	entity := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("DeleteByID", mock.Anything, reviewID).
		Return(&model.Review{ID: reviewID, EntityKind: model.KindMarket, Entity: entity}, nil)
	repo.On("AggregateForEntity", mock.Anything, model.KindMarket, entity).
		Return(model.AggregateRating{}, nil)
	repo.On("UpdateEntityRating", mock.Anything, model.KindMarket, entity, mock.Anything).
		Return(nil)

	router := reviewRouter(t, repo)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+reviewID.Hex(), nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestReviewHandler_ListForEntity(t *testing.T) {
	entity := primitive.NewObjectID()

	repo := new(mocks.MockReviewRepositoryInterface)
	repo.On("ListForEntity", mock.Anything, model.KindDoctor, entity, 2, 5).
		Return(dto.Paginated[model.Review]{
			Data: []model.Review{{ID: primitive.NewObjectID(), Rating: 4}},
			Meta: dto.PageMeta{Page: 2, Limit: 5, Total: 6, Pages: 2},
		}, nil)

	router := reviewRouter(t, repo)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/for/doctor/"+entity.Hex()+"?page=2&limit=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var page dto.Paginated[model.Review]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(6), page.Meta.Total)
}
