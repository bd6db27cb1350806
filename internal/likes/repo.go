package likes

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
)

// Like joins a user to a published vehicle they liked.
type Like struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user"`
	VehicleID primitive.ObjectID `bson:"vehicle"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Repository encapsulates like persistence.
type Repository struct {
	collection *mongo.Collection
}

// NewRepository constructs a likes repo bound to the provided Mongo client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{collection: client.Collection(db.CollectionLikes)}
}

// DeleteByVehicle removes every like referencing the vehicle. Called when a
// published listing is deleted so like records never dangle.
func (r *Repository) DeleteByVehicle(ctx context.Context, vehicleID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"vehicle": vehicleID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
