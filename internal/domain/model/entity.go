// Package model defines the domain documents stored in MongoDB.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntityKind identifies a reviewable entity collection. The set is
// closed: anything outside it is rejected before reaching the store.
type EntityKind string

const (
	KindRestaurant EntityKind = "restaurant"
	KindRecipe     EntityKind = "recipe"
	KindMarket     EntityKind = "market"
	KindBusiness   EntityKind = "business"
	KindDoctor     EntityKind = "doctor"
	KindSanctuary  EntityKind = "sanctuary"
)

// AllKinds lists every valid entity kind, in warming order.
var AllKinds = []EntityKind{
	KindRestaurant,
	KindRecipe,
	KindMarket,
	KindBusiness,
	KindDoctor,
	KindSanctuary,
}

// Valid reports whether k is a member of the closed kind set.
func (k EntityKind) Valid() bool {
	switch k {
	case KindRestaurant, KindRecipe, KindMarket, KindBusiness, KindDoctor, KindSanctuary:
		return true
	}
	return false
}

// String returns the kind as its collection/tag name.
func (k EntityKind) String() string { return string(k) }

// Collection returns the MongoDB collection name for the kind.
// Collections are the plural form of the kind.
func (k EntityKind) Collection() string {
	if k == KindSanctuary {
		return "sanctuaries"
	}
	return string(k) + "s"
}

// ParseEntityKind parses s into an EntityKind. The boolean is false
// when s is not in the closed set.
func ParseEntityKind(s string) (EntityKind, bool) {
	k := EntityKind(s)
	return k, k.Valid()
}

// GeoPoint is a GeoJSON Point as stored under a 2dsphere index.
// Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from latitude/longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Listing carries the fields shared by every directory entity. Entity
// documents embed it inline so the generic repository can page, search
// and geo-filter any kind the same way.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	Location    *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Rating      float64            `bson:"rating" json:"rating"`
	NumReviews  int                `bson:"num_reviews" json:"num_reviews"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// GetID implements Document.
func (l *Listing) GetID() primitive.ObjectID { return l.ID }

// SetID implements Document.
func (l *Listing) SetID(id primitive.ObjectID) { l.ID = id }

// Touch stamps creation/update times before a write.
func (l *Listing) Touch() {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

// Restaurant is a reviewable eatery.
type Restaurant struct {
	Listing  `bson:",inline"`
	Cuisine  string   `bson:"cuisine,omitempty" json:"cuisine,omitempty"`
	Phone    string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Website  string   `bson:"website,omitempty" json:"website,omitempty"`
	Features []string `bson:"features,omitempty" json:"features,omitempty"`
}

// Recipe is a reviewable recipe entry.
type Recipe struct {
	Listing     `bson:",inline"`
	Ingredients []string `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	PrepMinutes int      `bson:"prep_minutes,omitempty" json:"prep_minutes,omitempty"`
	Servings    int      `bson:"servings,omitempty" json:"servings,omitempty"`
}

// Market is a reviewable grocery or farmers market.
type Market struct {
	Listing    `bson:",inline"`
	MarketType string `bson:"market_type,omitempty" json:"market_type,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Business is a reviewable general business.
type Business struct {
	Listing  `bson:",inline"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`
	Website  string `bson:"website,omitempty" json:"website,omitempty"`
}

// Doctor is a reviewable medical practitioner.
type Doctor struct {
	Listing   `bson:",inline"`
	Specialty string `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Sanctuary is a reviewable animal sanctuary.
type Sanctuary struct {
	Listing  `bson:",inline"`
	Animals  []string `bson:"animals,omitempty" json:"animals,omitempty"`
	Website  string   `bson:"website,omitempty" json:"website,omitempty"`
	Visiting bool     `bson:"visiting" json:"visiting"`
}
