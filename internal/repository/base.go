package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/domain/dto"
	"github.com/openveg/directory-service/internal/domain/model"
)

const (
	// DefaultRadiusMeters is the nearby-search radius when none is given.
	DefaultRadiusMeters = 5000
	// MaxPageLimit caps the page size a caller can request.
	MaxPageLimit = 100
	// DefaultPageLimit applies when the caller passes no limit.
	DefaultPageLimit = 10

	// earthRadiusMeters converts a radius to radians for $centerSphere.
	earthRadiusMeters = 6378137.0
)

// Document is implemented by every entity document the generic
// repository manages (pointer receivers on the embedded Listing).
type Document interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	Touch()
}

// NearbyParams are the inputs to FindNearbyPaginated.
type NearbyParams struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	Page         int
	Limit        int
	Query        string
	SearchFields []string
	Filter       bson.M
}

// SearchParams are the inputs to SearchPaginated.
type SearchParams struct {
	Query     string
	Category  string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Repository is the generic cache-aware CRUD layer over one entity
// collection. PT is the pointer type of T and carries the Document
// methods.
type Repository[T any, PT interface {
	*T
	Document
}] struct {
	collection *mongo.Collection
	kind       model.EntityKind
	cache      *cache.Service
	log        zerolog.Logger
}

// NewRepository creates a repository for kind over its collection.
func NewRepository[T any, PT interface {
	*T
	Document
}](db *MongoDB, kind model.EntityKind, cacheSvc *cache.Service, log zerolog.Logger) *Repository[T, PT] {
	return &Repository[T, PT]{
		collection: db.EntityCollection(kind),
		kind:       kind,
		cache:      cacheSvc,
		log:        log.With().Str("repository", kind.String()).Logger(),
	}
}

// Kind returns the entity kind this repository serves.
func (r *Repository[T, PT]) Kind() model.EntityKind { return r.kind }

// ParseID validates a caller-supplied identifier against the store's
// native ObjectID format. Malformed ids never reach the store.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidArgument(fmt.Sprintf("invalid id %q", id))
	}
	return oid, nil
}

// NormalizePage clamps (page, limit) to (>=1, 1..MaxPageLimit).
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// PageMetaFor computes paging metadata; Pages is ceil(total/limit).
func PageMetaFor(page, limit int, total int64) dto.PageMeta {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return dto.PageMeta{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Cache key convention: deterministic, so identical queries collide on
// the same entry.

// KeyForID is "{kind}:{id}".
func KeyForID(kind model.EntityKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// KeyForAll is "{kind}:all".
func KeyForAll(kind model.EntityKind) string {
	return fmt.Sprintf("%s:all", kind)
}

// KeyForPage is "{kind}:page:{p}:limit:{l}" with an optional
// ":f:{filterJSON}" suffix for filtered listings.
func KeyForPage(kind model.EntityKind, page, limit int, filter bson.M) string {
	key := fmt.Sprintf("%s:page:%d:limit:%d", kind, page, limit)
	if len(filter) > 0 {
		if raw, err := json.Marshal(filter); err == nil {
			key += ":f:" + string(raw)
		}
	}
	return key
}

// FindByID loads one document by its string id.
func (r *Repository[T, PT]) FindByID(ctx context.Context, id string) (PT, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	var doc T
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound(fmt.Sprintf("%s %s not found", r.kind, id))
	}
	if err != nil {
		return nil, apperr.Internal("find by id", err)
	}
	return PT(&doc), nil
}

// Create inserts a new document, assigning its id and timestamps.
func (r *Repository[T, PT]) Create(ctx context.Context, doc PT) (PT, error) {
	doc.SetID(primitive.NewObjectID())
	doc.Touch()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, apperr.Internal("insert", err)
	}
	return doc, nil
}

// UpdateByID applies a $set of fields and returns the updated document.
func (r *Repository[T, PT]) UpdateByID(ctx context.Context, id string, fields bson.M) (PT, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	var doc T
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound(fmt.Sprintf("%s %s not found", r.kind, id))
	}
	if err != nil {
		return nil, apperr.Internal("update by id", err)
	}
	return PT(&doc), nil
}

// DeleteByID removes a document and invalidates its cached shapes.
func (r *Repository[T, PT]) DeleteByID(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperr.Internal("delete by id", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(fmt.Sprintf("%s %s not found", r.kind, id))
	}
	r.invalidateListings(ctx)
	return nil
}

// GetAllPaginated returns one page of documents matching filter.
// An out-of-range page yields empty data with accurate meta.
func (r *Repository[T, PT]) GetAllPaginated(ctx context.Context, page, limit int, filter bson.M) (dto.Paginated[T], error) {
	page, limit = NormalizePage(page, limit)
	if filter == nil {
		filter = bson.M{}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return dto.Paginated[T]{}, apperr.Internal("count", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	data, err := r.findAll(ctx, filter, opts)
	if err != nil {
		return dto.Paginated[T]{}, err
	}

	return dto.Paginated[T]{Data: data, Meta: PageMetaFor(page, limit, total)}, nil
}

// FindNearbyPaginated pages documents by proximity, optionally unioned
// with a case-insensitive substring match across SearchFields.
func (r *Repository[T, PT]) FindNearbyPaginated(ctx context.Context, p NearbyParams) (dto.Paginated[T], error) {
	page, limit := NormalizePage(p.Page, p.Limit)
	radius := p.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	base := bson.M{}
	for k, v := range p.Filter {
		base[k] = v
	}
	if p.Query != "" {
		fields := p.SearchFields
		if len(fields) == 0 {
			fields = []string{"name", "description"}
		}
		base["$or"] = textOrClauses(p.Query, fields)
	}

	// $near sorts by distance but is rejected inside count, so the
	// count side uses $geoWithin over the same radius.
	nearFilter := bson.M{"location": bson.M{
		"$near": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": []float64{p.Lng, p.Lat}},
			"$maxDistance": radius,
		},
	}}
	countFilter := bson.M{"location": bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": []interface{}{[]float64{p.Lng, p.Lat}, radius / earthRadiusMeters},
		},
	}}
	for k, v := range base {
		nearFilter[k] = v
		countFilter[k] = v
	}

	total, err := r.collection.CountDocuments(ctx, countFilter)
	if err != nil {
		return dto.Paginated[T]{}, apperr.Internal("nearby count", err)
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	data, err := r.findAll(ctx, nearFilter, opts)
	if err != nil {
		return dto.Paginated[T]{}, err
	}

	return dto.Paginated[T]{Data: data, Meta: PageMetaFor(page, limit, total)}, nil
}

// SearchPaginated pages documents matching a text query and optional
// category, sorted by the requested field.
func (r *Repository[T, PT]) SearchPaginated(ctx context.Context, p SearchParams) (dto.Paginated[T], error) {
	page, limit := NormalizePage(p.Page, p.Limit)

	filter := bson.M{}
	if p.Query != "" {
		filter["$or"] = textOrClauses(p.Query, []string{"name", "description", "address"})
	}
	if p.Category != "" {
		filter["category"] = p.Category
	}

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := -1
	if strings.EqualFold(p.SortOrder, "asc") {
		order = 1
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return dto.Paginated[T]{}, apperr.Internal("search count", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: order}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	data, err := r.findAll(ctx, filter, opts)
	if err != nil {
		return dto.Paginated[T]{}, err
	}

	return dto.Paginated[T]{Data: data, Meta: PageMetaFor(page, limit, total)}, nil
}

// FindByIDCached is the cache-aside read of FindByID, keyed
// "{kind}:{id}" and tagged with the kind.
func (r *Repository[T, PT]) FindByIDCached(ctx context.Context, id string) (*T, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}

	key := KeyForID(r.kind, id)
	value, err := cache.GetOrLoad(ctx, r.cache, key, r.kind.String(), cache.SetOptions{}, func(ctx context.Context) (T, error) {
		doc, err := r.FindByID(ctx, id)
		if err != nil {
			var zero T
			return zero, err
		}
		return *(*T)(doc), nil
	})
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetAllCached is the cache-aside read of GetAllPaginated.
func (r *Repository[T, PT]) GetAllCached(ctx context.Context, page, limit int, filter bson.M) (dto.Paginated[T], error) {
	normPage, normLimit := NormalizePage(page, limit)
	key := KeyForPage(r.kind, normPage, normLimit, filter)
	return cache.GetOrLoad(ctx, r.cache, key, r.kind.String(), cache.SetOptions{}, func(ctx context.Context) (dto.Paginated[T], error) {
		return r.GetAllPaginated(ctx, normPage, normLimit, filter)
	})
}

// CreateCached inserts, then invalidates every cached listing shape of
// the kind. Over-invalidation is deliberate: stale listings must never
// be served after a mutation.
func (r *Repository[T, PT]) CreateCached(ctx context.Context, doc PT) (PT, error) {
	created, err := r.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	r.invalidateListings(ctx)
	return created, nil
}

// UpdateByIDCached updates, then invalidates the kind's cached shapes.
func (r *Repository[T, PT]) UpdateByIDCached(ctx context.Context, id string, fields bson.M) (PT, error) {
	updated, err := r.UpdateByID(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	r.invalidateListings(ctx)
	return updated, nil
}

// invalidateListings clears "{kind}:all*" pattern matches and the kind
// tag after an authoritative write.
func (r *Repository[T, PT]) invalidateListings(ctx context.Context) {
	r.cache.InvalidatePattern(ctx, KeyForAll(r.kind)+"*")
	r.cache.InvalidateByTag(ctx, r.kind.String())
}

func (r *Repository[T, PT]) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Internal("find", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	data := make([]T, 0)
	if err := cursor.All(ctx, &data); err != nil {
		return nil, apperr.Internal("decode", err)
	}
	return data, nil
}

// textOrClauses builds the case-insensitive substring $or branch.
func textOrClauses(query string, fields []string) []bson.M {
	pattern := regexp.QuoteMeta(query)
	clauses := make([]bson.M, 0, len(fields))
	for _, field := range fields {
		clauses = append(clauses, bson.M{
			field: bson.M{"$regex": primitive.Regex{Pattern: pattern, Options: "i"}},
		})
	}
	return clauses
}
