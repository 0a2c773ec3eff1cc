package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chitram/companion/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type listingDoc struct {
	City      string             `bson:"_id"`
	Movies    []domain.CityMovie `bson:"movies"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// ListingRepository keeps one document per city, replaced on every refresh.
type ListingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(client *mongo.Client, dbName, collectionName string) *ListingRepository {
	return &ListingRepository{collection: client.Database(dbName).Collection(collectionName)}
}

// CityKey normalizes a city name into its document id.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func (r *ListingRepository) SaveListing(ctx context.Context, city string, movies []domain.CityMovie) error {
	if movies == nil {
		movies = []domain.CityMovie{}
	}
	doc := listingDoc{City: CityKey(city), Movies: movies, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.City}, doc, opts); err != nil {
		return fmt.Errorf("failed to save listing for %s: %w", doc.City, err)
	}
	return nil
}

// GetListing returns an empty list for a city that was never refreshed.
func (r *ListingRepository) GetListing(ctx context.Context, city string) ([]domain.CityMovie, error) {
	var doc listingDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": CityKey(city)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.CityMovie{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing for %s: %w", city, err)
	}
	if doc.Movies == nil {
		doc.Movies = []domain.CityMovie{}
	}
	return doc.Movies, nil
}

var _ domain.ListingRepository = (*ListingRepository)(nil)
