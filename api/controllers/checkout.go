package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/haggleport/haggleport-backend/api/middleware"
	"github.com/haggleport/haggleport-backend/api/responses"
	"github.com/haggleport/haggleport-backend/api/validators"
	checkoutsvc "github.com/haggleport/haggleport-backend/internal/checkout"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// Checkout opens an escrow payment session for one listing.
func Checkout(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Create(r.Context(), buyerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid subject")
	}
	return id, nil
}
