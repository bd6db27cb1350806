package listings

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/coolmotors/coolmotors-backend/internal/users"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
	"github.com/coolmotors/coolmotors-backend/pkg/metrics"
)

type draftStore interface {
	Insert(ctx context.Context, draft *Draft) (*Draft, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Draft, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*Draft, error)
	FindOldest(ctx context.Context) (*Draft, error)
	FindNextAfter(ctx context.Context, createdAt time.Time, id primitive.ObjectID) (*Draft, error)
}

type vehicleStore interface {
	Insert(ctx context.Context, vehicle *Vehicle) (*Vehicle, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Vehicle, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*Vehicle, error)
	SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error
	FindExpired(ctx context.Context, now time.Time, limit int64) ([]Vehicle, error)
}

type soldStore interface {
	Insert(ctx context.Context, sold *SoldVehicle) (*SoldVehicle, error)
}

type ownerStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
	SetTotalVehicles(ctx context.Context, id primitive.ObjectID, total int) error
	IncrementTotalVehicles(ctx context.Context, id primitive.ObjectID, delta int) error
	AddListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error
	RemoveListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error
}

type likeStore interface {
	DeleteByVehicle(ctx context.Context, vehicleID primitive.ObjectID) (int64, error)
}

type objectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(objectURL string) string
}

type imageProcessor interface {
	Normalize(data []byte) ([]byte, error)
}

// Service exposes the listing lifecycle: submission, moderation, publication,
// and cleanup.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*Draft, error)
	Approve(ctx context.Context, id primitive.ObjectID) (*Vehicle, error)
	Disapprove(ctx context.Context, id primitive.ObjectID) error
	OldestPending(ctx context.Context) (*Draft, error)
	NextPendingAfter(ctx context.Context, id primitive.ObjectID) (*Draft, error)
	GetVehicle(ctx context.Context, id primitive.ObjectID) (*Vehicle, error)
	SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID, opts DeleteOptions) error
	MarkSold(ctx context.Context, actor Actor, id primitive.ObjectID) (*SoldVehicle, error)
	DeleteExpired(ctx context.Context, now time.Time, limit int64) (int, error)
}

// ServiceParams collects the dependencies required to build the listings service.
type ServiceParams struct {
	Drafts        draftStore
	Vehicles      vehicleStore
	Sold          soldStore
	Owners        ownerStore
	Likes         likeStore
	Storage       objectStorage
	Processor     imageProcessor
	Metrics       *metrics.ListingMetrics
	Logger        *logger.Logger
	MaxPerOwner   int
	ListingTTL    time.Duration
	MaxImageCount int
}

type service struct {
	drafts        draftStore
	vehicles      vehicleStore
	sold          soldStore
	owners        ownerStore
	likes         likeStore
	storage       objectStorage
	processor     imageProcessor
	metrics       *metrics.ListingMetrics
	logg          *logger.Logger
	maxPerOwner   int
	listingTTL    time.Duration
	maxImageCount int

	now      func() time.Time
	newKeyID func() string
}

// NewService builds a listings service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Drafts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft repo is required")
	}
	if params.Vehicles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle repo is required")
	}
	if params.Sold == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sold repo is required")
	}
	if params.Owners == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner repo is required")
	}
	if params.Likes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "like repo is required")
	}
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object storage is required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image processor is required")
	}
	if params.Metrics == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing metrics are required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.MaxPerOwner <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max listings per owner must be positive")
	}
	if params.ListingTTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing ttl must be positive")
	}
	maxImages := params.MaxImageCount
	if maxImages <= 0 {
		maxImages = defaultMaxImageCount
	}
	return &service{
		drafts:        params.Drafts,
		vehicles:      params.Vehicles,
		sold:          params.Sold,
		owners:        params.Owners,
		likes:         params.Likes,
		storage:       params.Storage,
		processor:     params.Processor,
		metrics:       params.Metrics,
		logg:          params.Logger,
		maxPerOwner:   params.MaxPerOwner,
		listingTTL:    params.ListingTTL,
		maxImageCount: maxImages,
		now:           func() time.Time { return time.Now().UTC() },
		newKeyID:      rand.Text,
	}, nil
}
