package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
)

// User is the owner document backing quota checks and listing references.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	Name           string               `bson:"name"`
	Email          string               `bson:"email"`
	Role           enums.UserRole       `bson:"role"`
	TotalVehicles  int                  `bson:"totalVehicles"`
	ListedVehicles []primitive.ObjectID `bson:"listedVehicles"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

// Repository encapsulates user persistence.
type Repository struct {
	collection *mongo.Collection
}

// NewRepository constructs a users repo bound to the provided Mongo client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{collection: client.Collection(db.CollectionUsers)}
}

// FindByID loads a user by their object id.
func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetTotalVehicles overwrites the owner's listing counter. The submission
// path reads the counter for the quota check and writes the new value back,
// accepting the lost-update window between concurrent submissions.
func (r *Repository) SetTotalVehicles(ctx context.Context, id primitive.ObjectID, total int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"totalVehicles": total, "updatedAt": time.Now().UTC()}},
	)
	return err
}

// IncrementTotalVehicles applies an atomic $inc to the owner's counter.
// Moderation and cleanup paths use this rather than read-then-write.
func (r *Repository) IncrementTotalVehicles(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"totalVehicles": delta},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	return err
}

// AddListedVehicle pushes a published vehicle id onto the owner's list.
func (r *Repository) AddListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"listedVehicles": vehicleID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	return err
}

// RemoveListedVehicle pulls a vehicle id from the owner's list.
func (r *Repository) RemoveListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"listedVehicles": vehicleID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	return err
}
