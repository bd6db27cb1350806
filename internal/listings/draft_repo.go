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

// DraftRepository persists pending listings awaiting moderation.
type DraftRepository struct {
	collection *mongo.Collection
}

// NewDraftRepository constructs a draft repo bound to the provided Mongo client.
func NewDraftRepository(client *db.Client) *DraftRepository {
	return &DraftRepository{collection: client.Collection(db.CollectionPendingVehicles)}
}

// Insert stores a new draft and returns it with its assigned id.
func (r *DraftRepository) Insert(ctx context.Context, draft *Draft) (*Draft, error) {
	res, err := r.collection.InsertOne(ctx, draft)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		draft.ID = id
	}
	return draft, nil
}

// FindByID loads a draft by its object id.
func (r *DraftRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Draft, error) {
	var draft Draft
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Delete removes a draft and returns the removed document, or
// mongo.ErrNoDocuments when the id does not exist.
func (r *DraftRepository) Delete(ctx context.Context, id primitive.ObjectID) (*Draft, error) {
	var draft Draft
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// FindOldest returns the earliest-created draft, or mongo.ErrNoDocuments when
// the moderation queue is empty. Ties on createdAt break by _id so the walk
// order is total.
func (r *DraftRepository) FindOldest(ctx context.Context) (*Draft, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var draft Draft
	if err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// FindNextAfter returns the chronologically next draft after the given
// position: the earliest draft with a strictly later createdAt, with ties on
// createdAt broken by _id.
func (r *DraftRepository) FindNextAfter(ctx context.Context, createdAt time.Time, id primitive.ObjectID) (*Draft, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"createdAt": bson.M{"$gt": createdAt}},
			bson.M{"createdAt": createdAt, "_id": bson.M{"$gt": id}},
		},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var draft Draft
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}
