package listings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"

	"github.com/coolmotors/coolmotors-backend/internal/imaging"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
)

const defaultMaxImageCount = 20

// Actor identifies the authenticated caller of a listing operation.
type Actor struct {
	ID   primitive.ObjectID
	Role enums.UserRole
}

// ImageUpload is one raw image received with a submission, in request order.
type ImageUpload struct {
	FileName string
	Data     []byte
}

// SubmitInput carries a validated listing submission into the pipeline.
type SubmitInput struct {
	Actor              Actor
	Make               string
	Model              string
	Variant            string
	Year               int
	Price              int64
	FuelType           enums.FuelType
	Transmission       enums.Transmission
	EngineDisplacement *float64
	EngineType         *enums.EngineKind
	Odometer           int64
	Ownership          int
	State              enums.Region
	Location           string
	Description        string
	Images             []ImageUpload
}

// Submit runs the submission pipeline: quota check, per-image normalization
// and upload, then the draft insert. Any failure after the first stored
// object triggers a best-effort compensating delete of everything written so
// far; the primary error is always the one surfaced.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*Draft, error) {
	if len(input.Images) == 0 {
		s.metrics.IncSubmission("rejected_no_images")
		return nil, pkgerrors.New(pkgerrors.CodeMissingImages, "at least one image is required")
	}
	if len(input.Images) > s.maxImageCount {
		s.metrics.IncSubmission("rejected_too_many_images")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images are allowed", s.maxImageCount))
	}

	owner, err := s.owners.FindByID(ctx, input.Actor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner")
	}
	if !input.Actor.Role.IsElevated() && owner.TotalVehicles >= s.maxPerOwner {
		s.metrics.IncSubmission("rejected_quota")
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded,
			fmt.Sprintf("you already have %d active listings; the limit is %d", owner.TotalVehicles, s.maxPerOwner))
	}

	folder := storageFolder(input.Make, input.Model, input.Year)
	writtenKeys := make([]string, 0, len(input.Images))
	imageURLs := make([]string, 0, len(input.Images))

	for i, upload := range input.Images {
		normalized, err := s.processor.Normalize(upload.Data)
		if err != nil {
			s.compensate(ctx, writtenKeys)
			if errors.Is(err, imaging.ErrUnsupportedFormat) {
				s.metrics.IncSubmission("rejected_unsupported_media")
				return nil, pkgerrors.Wrap(pkgerrors.CodeUnsupportedMedia, err,
					fmt.Sprintf("image %d (%s) is not a supported image format", i+1, upload.FileName))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "normalize image")
		}

		key := folder + "/" + s.newKeyID()
		url, err := s.storage.Put(ctx, key, bytes.NewReader(normalized), imaging.OutputContentType)
		if err != nil {
			s.compensate(ctx, writtenKeys)
			s.metrics.IncSubmission("rejected_storage")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
		}
		writtenKeys = append(writtenKeys, key)
		imageURLs = append(imageURLs, url)
	}

	now := s.now()
	draft := &Draft{
		Attributes: Attributes{
			Make:               input.Make,
			Model:              input.Model,
			Variant:            input.Variant,
			Year:               input.Year,
			Price:              input.Price,
			FuelType:           input.FuelType,
			Transmission:       input.Transmission,
			EngineDisplacement: input.EngineDisplacement,
			EngineType:         input.EngineType,
			Odometer:           input.Odometer,
			Ownership:          input.Ownership,
			State:              input.State,
			Location:           input.Location,
			Description:        input.Description,
			Images:             imageURLs,
			ListedBy:           input.Actor.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	draft.Normalize()

	inserted, err := s.drafts.Insert(ctx, draft)
	if err != nil {
		s.compensate(ctx, writtenKeys)
		s.metrics.IncSubmission("rejected_storage")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert draft")
	}

	// Counter bump is best effort: the draft is already accepted, so a
	// failure here is logged and the quota drifts until a moderation or
	// delete path corrects it.
	if err := s.owners.SetTotalVehicles(ctx, owner.ID, owner.TotalVehicles+1); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, inserted.ID.Hex()), "increment owner listing counter", err)
	}

	s.metrics.IncSubmission("accepted")
	return inserted, nil
}

// compensate deletes the given storage keys, logging failures without
// surfacing them so the primary error is never masked.
func (s *service) compensate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	s.metrics.IncCompensatingDeletes(len(keys))

	var errs error
	failed := 0
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
			failed++
		}
	}
	if errs != nil {
		s.metrics.IncOrphanedObjects(failed)
		s.logg.Error(ctx, "compensating image cleanup left orphaned objects", errs)
	}
}

func storageFolder(makeName, modelName string, year int) string {
	return fmt.Sprintf("vehicles/%s-%s-%d", slug(makeName), slug(modelName), year)
}

func slug(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
