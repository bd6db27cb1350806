package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/coolmotors/coolmotors-backend/api/middleware"
	"github.com/coolmotors/coolmotors-backend/internal/listings"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
)

func actorFromContext(r *http.Request) (listings.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return listings.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return listings.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return listings.Actor{
		ID:   id,
		Role: enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id")
	}
	return id, nil
}
