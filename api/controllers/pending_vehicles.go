package controllers

import (
	"net/http"

	"github.com/coolmotors/coolmotors-backend/api/responses"
	"github.com/coolmotors/coolmotors-backend/api/validators"
	"github.com/coolmotors/coolmotors-backend/internal/listings"
	"github.com/coolmotors/coolmotors-backend/pkg/config"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
)

// SubmitListing handles the multipart submission that opens the pipeline.
func SubmitListing(svc listings.Service, mediaCfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := validators.ParseListingForm(w, r, mediaCfg.MaxUploadBytes())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Actor = actor

		draft, err := svc.Submit(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, draft)
	}
}

// ApprovePendingVehicle publishes a moderated draft.
func ApprovePendingVehicle(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := objectIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle, err := svc.Approve(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, vehicle)
	}
}

// DisapprovePendingVehicle rejects a draft and discards its images.
func DisapprovePendingVehicle(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := objectIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Disapprove(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "listing disapproved and removed from the pending queue"})
	}
}

// OldestPendingVehicle returns the head of the moderation queue, null when empty.
func OldestPendingVehicle(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := svc.OldestPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if draft == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

// NextPendingVehicle walks the moderation queue in submission order.
func NextPendingVehicle(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := objectIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.NextPendingAfter(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, draft)
	}
}
