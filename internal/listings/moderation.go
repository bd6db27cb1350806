package listings

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/coolmotors/coolmotors-backend/pkg/db"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
)

// Approve publishes a pending draft: its content is copied into a fresh
// vehicle document, the owner's listed-vehicles reference is updated, and the
// draft is removed with its images left in place (the published record now
// owns them). Any failure before the draft delete leaves the draft and its
// images untouched.
func (s *service) Approve(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pending listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending listing")
	}

	now := s.now()
	vehicle := &Vehicle{
		Attributes:    draft.Attributes,
		NumberOfLikes: 0,
		IsFeatured:    false,
		ExpiresAt:     now.Add(s.listingTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	published, err := s.vehicles.Insert(ctx, vehicle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish listing")
	}

	if err := s.owners.AddListedVehicle(ctx, draft.ListedBy, published.ID); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, published.ID.Hex()), "record listing on owner", err)
	}

	if _, err := s.drafts.Delete(ctx, draft.ID); err != nil && !db.IsNotFound(err) {
		// The listing is live; a stale draft is the lesser problem.
		s.logg.Error(s.logg.WithListingID(ctx, published.ID.Hex()), "remove approved draft", err)
	}

	s.metrics.IncDecision("approved")
	return published, nil
}

// Disapprove rejects a pending draft: the draft is removed, its images are
// deleted from storage, and the owner's listing counter is decremented.
func (s *service) Disapprove(ctx context.Context, id primitive.ObjectID) error {
	draft, err := s.drafts.Delete(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pending listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove pending listing")
	}

	s.deleteImages(ctx, draft.Images)

	if err := s.owners.IncrementTotalVehicles(ctx, draft.ListedBy, -1); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, draft.ID.Hex()), "decrement owner listing counter", err)
	}

	s.metrics.IncDecision("disapproved")
	return nil
}

// OldestPending returns the earliest-submitted draft, or nil when the
// moderation queue is empty.
func (s *service) OldestPending(ctx context.Context) (*Draft, error) {
	draft, err := s.drafts.FindOldest(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oldest pending listing")
	}
	return draft, nil
}

// NextPendingAfter returns the draft submitted next after the given one.
// Both a missing reference draft and an exhausted queue surface as not found.
func (s *service) NextPendingAfter(ctx context.Context, id primitive.ObjectID) (*Draft, error) {
	current, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pending listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending listing")
	}

	next, err := s.drafts.FindNextAfter(ctx, current.CreatedAt, current.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no further pending listings")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load next pending listing")
	}
	return next, nil
}

// deleteImages removes the storage objects behind the given URLs, one by one.
// Failures are logged and counted but never surfaced.
func (s *service) deleteImages(ctx context.Context, urls []string) {
	orphaned := 0
	for _, url := range urls {
		key := s.storage.KeyFromURL(url)
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			orphaned++
			s.logg.Error(s.logg.WithField(ctx, "object_key", key), "delete listing image", err)
		}
	}
	if orphaned > 0 {
		s.metrics.IncOrphanedObjects(orphaned)
	}
}
