package listings

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coolmotors/coolmotors-backend/internal/imaging"
	"github.com/coolmotors/coolmotors-backend/internal/users"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
	"github.com/coolmotors/coolmotors-backend/pkg/metrics"
)

type stubDrafts struct {
	byID      map[primitive.ObjectID]*Draft
	inserted  []*Draft
	deleted   []primitive.ObjectID
	insertErr error
	deleteErr error
	oldest    *Draft
	next      *Draft
	nextAfter time.Time
}

func newStubDrafts() *stubDrafts {
	return &stubDrafts{byID: map[primitive.ObjectID]*Draft{}}
}

func (s *stubDrafts) Insert(ctx context.Context, draft *Draft) (*Draft, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	s.inserted = append(s.inserted, draft)
	s.byID[draft.ID] = draft
	return draft, nil
}

func (s *stubDrafts) FindByID(ctx context.Context, id primitive.ObjectID) (*Draft, error) {
	draft, ok := s.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return draft, nil
}

func (s *stubDrafts) Delete(ctx context.Context, id primitive.ObjectID) (*Draft, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	draft, ok := s.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return draft, nil
}

func (s *stubDrafts) FindOldest(ctx context.Context) (*Draft, error) {
	if s.oldest == nil {
		return nil, mongo.ErrNoDocuments
	}
	return s.oldest, nil
}

func (s *stubDrafts) FindNextAfter(ctx context.Context, createdAt time.Time, id primitive.ObjectID) (*Draft, error) {
	s.nextAfter = createdAt
	if s.next == nil {
		return nil, mongo.ErrNoDocuments
	}
	return s.next, nil
}

type stubVehicles struct {
	byID      map[primitive.ObjectID]*Vehicle
	inserted  []*Vehicle
	deleted   []primitive.ObjectID
	featured  map[primitive.ObjectID]bool
	expired   []Vehicle
	insertErr error
	deleteErr error
}

func newStubVehicles() *stubVehicles {
	return &stubVehicles{byID: map[primitive.ObjectID]*Vehicle{}, featured: map[primitive.ObjectID]bool{}}
}

func (s *stubVehicles) Insert(ctx context.Context, vehicle *Vehicle) (*Vehicle, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	s.inserted = append(s.inserted, vehicle)
	s.byID[vehicle.ID] = vehicle
	return vehicle, nil
}

func (s *stubVehicles) FindByID(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	vehicle, ok := s.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return vehicle, nil
}

func (s *stubVehicles) Delete(ctx context.Context, id primitive.ObjectID) (*Vehicle, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	vehicle, ok := s.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return vehicle, nil
}

func (s *stubVehicles) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error {
	if _, ok := s.byID[id]; !ok {
		return mongo.ErrNoDocuments
	}
	s.featured[id] = featured
	return nil
}

func (s *stubVehicles) FindExpired(ctx context.Context, now time.Time, limit int64) ([]Vehicle, error) {
	return s.expired, nil
}

type stubSold struct {
	inserted  []*SoldVehicle
	insertErr error
}

func (s *stubSold) Insert(ctx context.Context, sold *SoldVehicle) (*SoldVehicle, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if sold.ID.IsZero() {
		sold.ID = primitive.NewObjectID()
	}
	s.inserted = append(s.inserted, sold)
	return sold, nil
}

type stubOwners struct {
	owner      *users.User
	findErr    error
	setTotals  []int
	setErr     error
	increments []int
	pushed     []primitive.ObjectID
	pulled     []primitive.ObjectID
}

func (s *stubOwners) FindByID(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.owner, nil
}

func (s *stubOwners) SetTotalVehicles(ctx context.Context, id primitive.ObjectID, total int) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.setTotals = append(s.setTotals, total)
	return nil
}

func (s *stubOwners) IncrementTotalVehicles(ctx context.Context, id primitive.ObjectID, delta int) error {
	s.increments = append(s.increments, delta)
	return nil
}

func (s *stubOwners) AddListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error {
	s.pushed = append(s.pushed, vehicleID)
	return nil
}

func (s *stubOwners) RemoveListedVehicle(ctx context.Context, userID, vehicleID primitive.ObjectID) error {
	s.pulled = append(s.pulled, vehicleID)
	return nil
}

type stubLikes struct {
	cascaded []primitive.ObjectID
}

func (s *stubLikes) DeleteByVehicle(ctx context.Context, vehicleID primitive.ObjectID) (int64, error) {
	s.cascaded = append(s.cascaded, vehicleID)
	return 1, nil
}

const stubBaseURL = "https://images-cool-motors.s3.eu-north-1.amazonaws.com/"

type stubStorage struct {
	puts      []string
	deletes   []string
	failPutAt int // 1-based index of the Put call that fails, 0 = never
	deleteErr error
}

func (s *stubStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if s.failPutAt > 0 && len(s.puts)+1 == s.failPutAt {
		return "", fmt.Errorf("upstream unavailable")
	}
	s.puts = append(s.puts, key)
	return stubBaseURL + key, nil
}

func (s *stubStorage) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *stubStorage) KeyFromURL(objectURL string) string {
	return strings.TrimPrefix(objectURL, stubBaseURL)
}

var badImage = []byte("not an image")

type stubProcessor struct{}

func (stubProcessor) Normalize(data []byte) ([]byte, error) {
	if string(data) == string(badImage) {
		return nil, imaging.ErrUnsupportedFormat
	}
	return data, nil
}

type fixture struct {
	drafts   *stubDrafts
	vehicles *stubVehicles
	sold     *stubSold
	owners   *stubOwners
	likes    *stubLikes
	storage  *stubStorage
	svc      Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		drafts:   newStubDrafts(),
		vehicles: newStubVehicles(),
		sold:     &stubSold{},
		owners:   &stubOwners{owner: &users.User{ID: primitive.NewObjectID(), Role: enums.UserRoleUser}},
		likes:    &stubLikes{},
		storage:  &stubStorage{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	svc, err := NewService(ServiceParams{
		Drafts:      f.drafts,
		Vehicles:    f.vehicles,
		Sold:        f.sold,
		Owners:      f.owners,
		Likes:       f.likes,
		Storage:     f.storage,
		Processor:   stubProcessor{},
		Metrics:     metrics.NewListingMetrics(prometheus.NewRegistry()),
		Logger:      logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		MaxPerOwner: 10,
		ListingTTL:  60 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc

	impl := svc.(*service)
	impl.now = func() time.Time { return f.now }
	seq := 0
	impl.newKeyID = func() string {
		seq++
		return fmt.Sprintf("key-%d", seq)
	}
	return f
}

func validSubmitInput(actor Actor, images ...ImageUpload) SubmitInput {
	return SubmitInput{
		Actor:        actor,
		Make:         "  honda",
		Model:        "civic",
		Year:         2018,
		Price:        650000,
		FuelType:     enums.FuelTypePetrol,
		Transmission: enums.TransmissionManual,
		Odometer:     42000,
		Ownership:    1,
		State:        enums.Region("Karnataka"),
		Location:     "bengaluru",
		Description:  "well kept single owner car",
		Images:       images,
	}
}

func TestSubmitStoresImagesAndDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	actor := Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser}
	input := validSubmitInput(actor,
		ImageUpload{FileName: "front.jpg", Data: []byte("img-1")},
		ImageUpload{FileName: "rear.jpg", Data: []byte("img-2")},
	)

	draft, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if len(f.storage.puts) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(f.storage.puts))
	}
	for _, key := range f.storage.puts {
		if !strings.HasPrefix(key, "vehicles/honda-civic-2018/") {
			t.Fatalf("unexpected object key %s", key)
		}
	}
	if len(draft.Images) != 2 {
		t.Fatalf("expected 2 image urls, got %d", len(draft.Images))
	}
	if draft.Images[0] != stubBaseURL+f.storage.puts[0] {
		t.Fatalf("image order not preserved: %v", draft.Images)
	}
	if draft.Make != "Honda" || draft.Model != "Civic" || draft.Location != "Bengaluru" {
		t.Fatalf("attributes not normalized: %+v", draft.Attributes)
	}
	if draft.Description != "Well kept single owner car" {
		t.Fatalf("description not normalized: %q", draft.Description)
	}
	if draft.ListedBy != actor.ID {
		t.Fatalf("draft not attributed to submitter")
	}
	if !draft.CreatedAt.Equal(f.now) {
		t.Fatalf("unexpected createdAt %v", draft.CreatedAt)
	}
	if len(f.owners.setTotals) != 1 || f.owners.setTotals[0] != 1 {
		t.Fatalf("expected counter written to 1, got %v", f.owners.setTotals)
	}
	if len(f.storage.deletes) != 0 {
		t.Fatalf("unexpected compensating deletes %v", f.storage.deletes)
	}
}

func TestSubmitRequiresImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser}))
	if pkgerrors.As(err).Code() != pkgerrors.CodeMissingImages {
		t.Fatalf("expected NO_IMAGES, got %v", err)
	}
	if len(f.storage.puts) != 0 || len(f.drafts.inserted) != 0 || len(f.owners.setTotals) != 0 {
		t.Fatal("expected zero side effects")
	}
}

func TestSubmitQuotaExceeded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.owners.owner.TotalVehicles = 10
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser},
		ImageUpload{FileName: "a.jpg", Data: []byte("img")})

	_, err := f.svc.Submit(context.Background(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeQuotaExceeded {
		t.Fatalf("expected QUOTA_EXCEEDED, got %v", err)
	}
	if len(f.storage.puts) != 0 || len(f.drafts.inserted) != 0 {
		t.Fatal("expected zero side effects on quota rejection")
	}
}

func TestSubmitQuotaSkippedForAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.owners.owner.TotalVehicles = 50
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleAdmin},
		ImageUpload{FileName: "a.jpg", Data: []byte("img")})

	if _, err := f.svc.Submit(context.Background(), input); err != nil {
		t.Fatalf("admin submission should bypass quota: %v", err)
	}
}

func TestSubmitUnsupportedImageCompensates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser},
		ImageUpload{FileName: "ok.jpg", Data: []byte("img-1")},
		ImageUpload{FileName: "resume.pdf", Data: badImage},
	)

	_, err := f.svc.Submit(context.Background(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnsupportedMedia {
		t.Fatalf("expected UNSUPPORTED_MEDIA, got %v", err)
	}
	if len(f.storage.deletes) != 1 || f.storage.deletes[0] != f.storage.puts[0] {
		t.Fatalf("expected the stored object compensated, got %v", f.storage.deletes)
	}
	if len(f.drafts.inserted) != 0 {
		t.Fatal("draft must not be created on rejection")
	}
}

func TestSubmitUploadFailureCompensates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.storage.failPutAt = 3
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser},
		ImageUpload{FileName: "1.jpg", Data: []byte("img-1")},
		ImageUpload{FileName: "2.jpg", Data: []byte("img-2")},
		ImageUpload{FileName: "3.jpg", Data: []byte("img-3")},
	)

	_, err := f.svc.Submit(context.Background(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if len(f.storage.deletes) != 2 {
		t.Fatalf("expected both stored objects compensated, got %v", f.storage.deletes)
	}
	if len(f.drafts.inserted) != 0 {
		t.Fatal("draft must not be created after upload failure")
	}
}

func TestSubmitDraftInsertFailureCompensates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.drafts.insertErr = fmt.Errorf("write concern failed")
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser},
		ImageUpload{FileName: "1.jpg", Data: []byte("img-1")},
		ImageUpload{FileName: "2.jpg", Data: []byte("img-2")},
	)

	_, err := f.svc.Submit(context.Background(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if len(f.storage.deletes) != 2 {
		t.Fatalf("expected all stored objects compensated, got %v", f.storage.deletes)
	}
	if len(f.owners.setTotals) != 0 {
		t.Fatal("counter must not move when the draft insert fails")
	}
}

func TestSubmitCounterFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.owners.setErr = fmt.Errorf("owner write failed")
	input := validSubmitInput(Actor{ID: f.owners.owner.ID, Role: enums.UserRoleUser},
		ImageUpload{FileName: "1.jpg", Data: []byte("img-1")})

	draft, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("counter failure must not fail the submission: %v", err)
	}
	if draft == nil || len(f.drafts.inserted) != 1 {
		t.Fatal("draft should have been created")
	}
}

func seedDraft(f *fixture, createdAt time.Time) *Draft {
	draft := &Draft{
		ID: primitive.NewObjectID(),
		Attributes: Attributes{
			Make:     "Honda",
			Model:    "Civic",
			Year:     2018,
			Images:   []string{stubBaseURL + "vehicles/honda-civic-2018/key-a", stubBaseURL + "vehicles/honda-civic-2018/key-b"},
			ListedBy: f.owners.owner.ID,
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	f.drafts.byID[draft.ID] = draft
	return draft
}

func TestApprovePublishesDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	submitted := f.now.Add(-48 * time.Hour)
	draft := seedDraft(f, submitted)

	vehicle, err := f.svc.Approve(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	if vehicle.ID == draft.ID {
		t.Fatal("published vehicle must get a fresh id")
	}
	if vehicle.Make != draft.Make || len(vehicle.Images) != 2 {
		t.Fatalf("attributes not copied: %+v", vehicle.Attributes)
	}
	if !vehicle.CreatedAt.Equal(f.now) {
		t.Fatalf("expected fresh createdAt, got %v", vehicle.CreatedAt)
	}
	if !vehicle.ExpiresAt.Equal(f.now.Add(60 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiresAt %v", vehicle.ExpiresAt)
	}
	if vehicle.NumberOfLikes != 0 || vehicle.IsFeatured {
		t.Fatalf("publication flags not reset: %+v", vehicle)
	}
	if len(f.owners.pushed) != 1 || f.owners.pushed[0] != vehicle.ID {
		t.Fatalf("vehicle id not pushed onto owner, got %v", f.owners.pushed)
	}
	if _, ok := f.drafts.byID[draft.ID]; ok {
		t.Fatal("draft should be removed after approval")
	}
	if len(f.storage.deletes) != 0 {
		t.Fatalf("approval must never delete images, got %v", f.storage.deletes)
	}
}

func TestApproveMissingDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), primitive.NewObjectID())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestApprovePublishFailureKeepsDraftAndImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	draft := seedDraft(f, f.now.Add(-time.Hour))
	f.vehicles.insertErr = fmt.Errorf("insert failed")

	_, err := f.svc.Approve(context.Background(), draft.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if _, ok := f.drafts.byID[draft.ID]; !ok {
		t.Fatal("draft must survive a failed publication")
	}
	if len(f.storage.deletes) != 0 {
		t.Fatal("images must survive a failed publication")
	}
}

func TestDisapproveDeletesDraftAndImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	draft := seedDraft(f, f.now.Add(-time.Hour))

	if err := f.svc.Disapprove(context.Background(), draft.ID); err != nil {
		t.Fatalf("Disapprove returned error: %v", err)
	}
	if _, ok := f.drafts.byID[draft.ID]; ok {
		t.Fatal("draft should be removed")
	}
	if len(f.storage.deletes) != 2 {
		t.Fatalf("expected both images deleted, got %v", f.storage.deletes)
	}
	if len(f.owners.increments) != 1 || f.owners.increments[0] != -1 {
		t.Fatalf("expected counter decrement, got %v", f.owners.increments)
	}
}

func TestDisapproveMissingDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.svc.Disapprove(context.Background(), primitive.NewObjectID())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestOldestPendingEmptyQueue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	draft, err := f.svc.OldestPending(context.Background())
	if err != nil {
		t.Fatalf("OldestPending returned error: %v", err)
	}
	if draft != nil {
		t.Fatalf("expected nil draft for an empty queue, got %+v", draft)
	}
}

func TestNextPendingAfter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	current := seedDraft(f, f.now.Add(-2*time.Hour))
	f.drafts.next = seedDraft(f, f.now.Add(-time.Hour))

	next, err := f.svc.NextPendingAfter(context.Background(), current.ID)
	if err != nil {
		t.Fatalf("NextPendingAfter returned error: %v", err)
	}
	if next.ID != f.drafts.next.ID {
		t.Fatalf("unexpected next draft %v", next.ID)
	}
	if !f.drafts.nextAfter.Equal(current.CreatedAt) {
		t.Fatalf("query anchored at %v, want %v", f.drafts.nextAfter, current.CreatedAt)
	}
}

func TestNextPendingAfterEndOfQueue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	current := seedDraft(f, f.now.Add(-time.Hour))

	_, err := f.svc.NextPendingAfter(context.Background(), current.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND at end of queue, got %v", err)
	}
}

func seedVehicle(f *fixture, owner primitive.ObjectID) *Vehicle {
	vehicle := &Vehicle{
		ID: primitive.NewObjectID(),
		Attributes: Attributes{
			Make:     "Mazda",
			Model:    "RX-7",
			Year:     1999,
			Images:   []string{stubBaseURL + "vehicles/mazda-rx-7-1999/key-a"},
			ListedBy: owner,
		},
		ExpiresAt: f.now.Add(30 * 24 * time.Hour),
		CreatedAt: f.now.Add(-30 * 24 * time.Hour),
		UpdatedAt: f.now.Add(-30 * 24 * time.Hour),
	}
	f.vehicles.byID[vehicle.ID] = vehicle
	return vehicle
}

func TestDeleteByOwnerRunsCleanup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.owners.owner.ID
	vehicle := seedVehicle(f, owner)

	err := f.svc.Delete(context.Background(), Actor{ID: owner, Role: enums.UserRoleUser}, vehicle.ID, DeleteOptions{})
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(f.storage.deletes) != 1 {
		t.Fatalf("expected image deleted, got %v", f.storage.deletes)
	}
	if len(f.owners.pulled) != 1 || f.owners.pulled[0] != vehicle.ID {
		t.Fatalf("vehicle not pulled from owner, got %v", f.owners.pulled)
	}
	if len(f.owners.increments) != 1 || f.owners.increments[0] != -1 {
		t.Fatalf("expected counter decrement, got %v", f.owners.increments)
	}
	if len(f.likes.cascaded) != 1 || f.likes.cascaded[0] != vehicle.ID {
		t.Fatalf("likes not cascaded, got %v", f.likes.cascaded)
	}
}

func TestDeleteSkipImagesKeepsObjects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.owners.owner.ID
	vehicle := seedVehicle(f, owner)

	err := f.svc.Delete(context.Background(), Actor{ID: owner, Role: enums.UserRoleUser}, vehicle.ID, DeleteOptions{SkipImages: true})
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(f.storage.deletes) != 0 {
		t.Fatalf("images should be kept, got deletes %v", f.storage.deletes)
	}
	if len(f.owners.pulled) != 1 || len(f.owners.increments) != 1 {
		t.Fatal("owner bookkeeping must run even when images are kept")
	}
}

func TestDeleteForbiddenForStranger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	vehicle := seedVehicle(f, f.owners.owner.ID)

	err := f.svc.Delete(context.Background(), Actor{ID: primitive.NewObjectID(), Role: enums.UserRoleUser}, vehicle.ID, DeleteOptions{})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if _, ok := f.vehicles.byID[vehicle.ID]; !ok {
		t.Fatal("vehicle must survive a forbidden delete")
	}
}

func TestDeleteAllowedForAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	vehicle := seedVehicle(f, f.owners.owner.ID)

	err := f.svc.Delete(context.Background(), Actor{ID: primitive.NewObjectID(), Role: enums.UserRoleAdmin}, vehicle.ID, DeleteOptions{})
	if err != nil {
		t.Fatalf("admin delete should be allowed: %v", err)
	}
}

func TestMarkSoldArchivesAndKeepsImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.owners.owner.ID
	vehicle := seedVehicle(f, owner)

	sold, err := f.svc.MarkSold(context.Background(), Actor{ID: owner, Role: enums.UserRoleUser}, vehicle.ID)
	if err != nil {
		t.Fatalf("MarkSold returned error: %v", err)
	}
	if sold.Make != vehicle.Make || len(sold.Images) != 1 {
		t.Fatalf("attributes not copied to sold record: %+v", sold.Attributes)
	}
	if !sold.SoldAt.Equal(f.now) {
		t.Fatalf("unexpected soldAt %v", sold.SoldAt)
	}
	if _, ok := f.vehicles.byID[vehicle.ID]; ok {
		t.Fatal("published vehicle should be removed")
	}
	if len(f.storage.deletes) != 0 {
		t.Fatalf("sold archive keeps the images, got deletes %v", f.storage.deletes)
	}
	if len(f.owners.increments) != 1 || f.owners.increments[0] != -1 {
		t.Fatalf("expected counter decrement, got %v", f.owners.increments)
	}
}

func TestMarkSoldForbiddenForNonOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	vehicle := seedVehicle(f, f.owners.owner.ID)

	_, err := f.svc.MarkSold(context.Background(), Actor{ID: primitive.NewObjectID(), Role: enums.UserRoleAdmin}, vehicle.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if len(f.sold.inserted) != 0 {
		t.Fatal("no sold record should be created")
	}
}

func TestDeleteExpiredSweepsListings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.owners.owner.ID
	first := seedVehicle(f, owner)
	second := seedVehicle(f, owner)
	f.vehicles.expired = []Vehicle{*first, *second}

	removed, err := f.svc.DeleteExpired(context.Background(), f.now, 100)
	if err != nil {
		t.Fatalf("DeleteExpired returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if len(f.storage.deletes) != 2 {
		t.Fatalf("expected expired images deleted, got %v", f.storage.deletes)
	}
	if len(f.likes.cascaded) != 2 {
		t.Fatalf("expected like cascade per listing, got %v", f.likes.cascaded)
	}
}

func TestGetVehicleNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.GetVehicle(context.Background(), primitive.NewObjectID())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSetFeatured(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	vehicle := seedVehicle(f, f.owners.owner.ID)

	if err := f.svc.SetFeatured(context.Background(), vehicle.ID, true); err != nil {
		t.Fatalf("SetFeatured returned error: %v", err)
	}
	if !f.vehicles.featured[vehicle.ID] {
		t.Fatal("feature flag not set")
	}

	err := f.svc.SetFeatured(context.Background(), primitive.NewObjectID(), true)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDefaultObjectKeyIDs(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{
		Drafts:      newStubDrafts(),
		Vehicles:    newStubVehicles(),
		Sold:        &stubSold{},
		Owners:      &stubOwners{owner: &users.User{ID: primitive.NewObjectID(), Role: enums.UserRoleUser}},
		Likes:       &stubLikes{},
		Storage:     &stubStorage{},
		Processor:   stubProcessor{},
		Metrics:     metrics.NewListingMetrics(prometheus.NewRegistry()),
		Logger:      logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		MaxPerOwner: 10,
		ListingTTL:  60 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// 26 base32 characters carry 130 bits of entropy.
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		key := svc.(*service).newKeyID()
		if len(key) < 26 {
			t.Fatalf("object key id %q shorter than 26 chars", key)
		}
		if seen[key] {
			t.Fatalf("object key id %q repeated", key)
		}
		seen[key] = true
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewService(ServiceParams{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
