package listings

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
)

// SoldRepository persists archival records of sold listings.
type SoldRepository struct {
	collection *mongo.Collection
}

// NewSoldRepository constructs a sold-vehicle repo bound to the provided Mongo client.
func NewSoldRepository(client *db.Client) *SoldRepository {
	return &SoldRepository{collection: client.Collection(db.CollectionSoldVehicles)}
}

// Insert stores a new sold record and returns it with its assigned id.
func (r *SoldRepository) Insert(ctx context.Context, sold *SoldVehicle) (*SoldVehicle, error) {
	res, err := r.collection.InsertOne(ctx, sold)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		sold.ID = id
	}
	return sold, nil
}

// FindByID loads a sold record by its object id.
func (r *SoldRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*SoldVehicle, error) {
	var sold SoldVehicle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sold); err != nil {
		return nil, err
	}
	return &sold, nil
}
