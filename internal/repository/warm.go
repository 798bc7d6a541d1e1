package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openveg/directory-service/internal/cache"
)

// WarmListings pre-populates the first listing page for the kind.
// Returns the number of entries written.
func (r *Repository[T, PT]) WarmListings(ctx context.Context) (int, error) {
	result, err := r.GetAllPaginated(ctx, 1, DefaultPageLimit, nil)
	if err != nil {
		return 0, err
	}

	key := KeyForPage(r.kind, 1, DefaultPageLimit, nil)
	cache.Set(ctx, r.cache, key, result, r.kind.String(), cache.SetOptions{})
	return 1, nil
}

// WarmTop caches the top-n documents by rating under their individual
// "{kind}:{id}" keys, so the hottest records never hit the store cold.
func (r *Repository[T, PT]) WarmTop(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		n = DefaultPageLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "num_reviews", Value: -1}}).
		SetLimit(int64(n))

	docs, err := r.findAll(ctx, bson.M{}, opts)
	if err != nil {
		return 0, err
	}

	warmed := 0
	for i := range docs {
		id := PT(&docs[i]).GetID()
		if id.IsZero() {
			continue
		}
		key := KeyForID(r.kind, id.Hex())
		cache.Set(ctx, r.cache, key, docs[i], r.kind.String(), cache.SetOptions{})
		warmed++
	}
	return warmed, nil
}
