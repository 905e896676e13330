package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/haggleport/haggleport-backend/api/responses"
	"github.com/haggleport/haggleport-backend/api/validators"
	onboardingsvc "github.com/haggleport/haggleport-backend/internal/onboarding"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// SellerOnboarding applies one KYC submission for the authenticated seller.
func SellerOnboarding(svc *onboardingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload onboardingsvc.OnboardingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Onboard(r.Context(), sellerID, clientIP(r), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
