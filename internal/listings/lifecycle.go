package listings

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
)

// DeleteOptions controls the cleanup that runs after a published listing is
// removed. SkipImages keeps the storage objects, used when the images live on
// in another record (a sold archive).
type DeleteOptions struct {
	SkipImages bool
}

// GetVehicle loads a published listing.
func (s *service) GetVehicle(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return vehicle, nil
}

// SetFeatured flips the homepage-feature flag on a published listing.
func (s *service) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error {
	if err := s.vehicles.SetFeatured(ctx, id, featured); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	return nil
}

// Delete removes a published listing on behalf of its owner or an admin, then
// runs the cleanup hooks: image deletion (unless skipped), owner reference and
// counter updates, and the like cascade.
func (s *service) Delete(ctx context.Context, actor Actor, id primitive.ObjectID, opts DeleteOptions) error {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !actor.Role.IsElevated() && vehicle.ListedBy != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the listing owner may delete it")
	}
	return s.removeVehicle(ctx, vehicle, opts)
}

// MarkSold archives a published listing as sold. Only the owner may do this.
// The archive copy keeps the image URLs, so the original is removed with
// image cleanup skipped.
func (s *service) MarkSold(ctx context.Context, actor Actor, id primitive.ObjectID) (*SoldVehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if vehicle.ListedBy != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the listing owner may mark it sold")
	}

	now := s.now()
	sold := &SoldVehicle{
		Attributes: vehicle.Attributes,
		SoldAt:     now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	archived, err := s.sold.Insert(ctx, sold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive sold listing")
	}

	if err := s.removeVehicle(ctx, vehicle, DeleteOptions{SkipImages: true}); err != nil {
		return nil, err
	}
	return archived, nil
}

// DeleteExpired removes published listings whose expiresAt has passed,
// images included, and reports how many were removed. A failure on one
// listing does not stop the sweep.
func (s *service) DeleteExpired(ctx context.Context, now time.Time, limit int64) (int, error) {
	expired, err := s.vehicles.FindExpired(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load expired listings")
	}

	removed := 0
	for i := range expired {
		if err := s.removeVehicle(ctx, &expired[i], DeleteOptions{}); err != nil {
			s.logg.Error(s.logg.WithListingID(ctx, expired[i].ID.Hex()), "remove expired listing", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// removeVehicle deletes the vehicle document and runs the post-delete
// cleanup. The owner bookkeeping and like cascade always run; only the image
// deletion is optional.
func (s *service) removeVehicle(ctx context.Context, vehicle *Vehicle, opts DeleteOptions) error {
	if _, err := s.vehicles.Delete(ctx, vehicle.ID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove listing")
	}

	if !opts.SkipImages {
		s.deleteImages(ctx, vehicle.Images)
	}

	if err := s.owners.RemoveListedVehicle(ctx, vehicle.ListedBy, vehicle.ID); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, vehicle.ID.Hex()), "remove listing from owner", err)
	}
	if err := s.owners.IncrementTotalVehicles(ctx, vehicle.ListedBy, -1); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, vehicle.ID.Hex()), "decrement owner listing counter", err)
	}
	if _, err := s.likes.DeleteByVehicle(ctx, vehicle.ID); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, vehicle.ID.Hex()), "cascade listing likes", err)
	}
	return nil
}
