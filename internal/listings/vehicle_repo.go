package listings

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
)

// VehicleRepository persists published listings.
type VehicleRepository struct {
	collection *mongo.Collection
}

// NewVehicleRepository constructs a vehicle repo bound to the provided Mongo client.
func NewVehicleRepository(client *db.Client) *VehicleRepository {
	return &VehicleRepository{collection: client.Collection(db.CollectionVehicles)}
}

// Insert stores a new published vehicle and returns it with its assigned id.
func (r *VehicleRepository) Insert(ctx context.Context, vehicle *Vehicle) (*Vehicle, error) {
	res, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		vehicle.ID = id
	}
	return vehicle, nil
}

// FindByID loads a published vehicle by its object id.
func (r *VehicleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	var vehicle Vehicle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Delete removes a published vehicle and returns the removed document, or
// mongo.ErrNoDocuments when the id does not exist.
func (r *VehicleRepository) Delete(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	var vehicle Vehicle
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// SetFeatured flips the homepage-feature flag on a published vehicle.
func (r *VehicleRepository) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isFeatured": featured, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindExpired returns up to limit published vehicles whose expiresAt has
// passed, oldest first.
func (r *VehicleRepository) FindExpired(ctx context.Context, now time.Time, limit int64) ([]Vehicle, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "expiresAt", Value: 1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"expiresAt": bson.M{"$lt": now}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vehicles []Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}
