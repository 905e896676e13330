package controllers

import (
	"net/http"

	"github.com/haggleport/haggleport-backend/api/responses"
	ordersvc "github.com/haggleport/haggleport-backend/internal/orders"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// ListOrders returns the caller's order history, newest first.
func ListOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListForBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orders)
	}
}
