package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

const birthDateLayout = "2006-01-02"

type accountAPI interface {
	Create(ctx context.Context, params *stripe.AccountCreateParams) (*stripe.Account, error)
	Update(ctx context.Context, id string, params *stripe.AccountUpdateParams) (*stripe.Account, error)
}

type fileAPI interface {
	Retrieve(ctx context.Context, id string, params *stripe.FileRetrieveParams) (*stripe.File, error)
}

// ServiceParams wires the connected-account onboarding service.
type ServiceParams struct {
	Repo     Repository
	Accounts accountAPI
	Files    fileAPI
	Logger   *logger.Logger
}

// Service creates and updates the seller's custom connected account. The
// account is created once; later submissions forward only the fields they
// carry, so sellers can complete KYC in as many steps as they like.
type Service struct {
	repo     Repository
	accounts accountAPI
	files    fileAPI
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "onboarding repo required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts client required")
	}
	if params.Files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "files client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:     params.Repo,
		accounts: params.Accounts,
		files:    params.Files,
		logg:     params.Logger,
	}, nil
}

// Onboard applies one KYC submission for the seller. clientIP feeds the ToS
// acceptance record, which account creation always carries because the
// provider keeps payouts locked without one.
func (s *Service) Onboard(ctx context.Context, sellerID uuid.UUID, clientIP string, req OnboardingRequest) (*OnboardingResponse, error) {
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	if req.IdentityDocumentID != nil {
		if err := s.validateFile(ctx, *req.IdentityDocumentID); err != nil {
			return nil, err
		}
	}

	profile, err := s.repo.Find(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}

	var acct *stripe.Account
	created := false
	if profile.StripeAccountID == nil || *profile.StripeAccountID == "" {
		created = true
		acct, err = s.accounts.Create(ctx, s.createParams(req, birthDate, clientIP))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create connected account")
		}
		profile.StripeAccountID = &acct.ID
	} else {
		acct, err = s.accounts.Update(ctx, *profile.StripeAccountID, s.updateParams(req, birthDate, clientIP))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "update connected account")
		}
	}

	applyProfileFields(profile, req, birthDate)
	profile.ChargesEnabled = acct.ChargesEnabled
	profile.PayoutsEnabled = acct.PayoutsEnabled
	if (created || req.AcceptTOS) && profile.TOSAcceptedAt == nil {
		now := time.Now().UTC()
		profile.TOSAcceptedAt = &now
	}
	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist seller profile")
	}

	s.logg.Info(s.logg.WithUserID(ctx, sellerID.String()), "seller onboarding submission applied")
	return &OnboardingResponse{
		StripeAccountID: *profile.StripeAccountID,
		ChargesEnabled:  profile.ChargesEnabled,
		PayoutsEnabled:  profile.PayoutsEnabled,
		TOSAccepted:     profile.TOSAcceptedAt != nil,
	}, nil
}

// validateFile checks the document reference against the Files API before it
// is attached to the account. A bad reference is the caller's mistake, not a
// provider outage.
func (s *Service) validateFile(ctx context.Context, fileID string) error {
	if !strings.HasPrefix(fileID, "file_") {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid file reference")
	}
	if _, err := s.files.Retrieve(ctx, fileID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file reference")
	}
	return nil
}

func (s *Service) createParams(req OnboardingRequest, birthDate *time.Time, clientIP string) *stripe.AccountCreateParams {
	params := &stripe.AccountCreateParams{
		Type:         stripe.String(string(stripe.AccountTypeCustom)),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Email:        req.Email,
		Country:      req.Country,
		Capabilities: &stripe.AccountCreateCapabilitiesParams{
			CardPayments: &stripe.AccountCreateCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCreateCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		Individual: individualParams(req, birthDate),
		// The provider keeps payouts locked until a ToS record exists, so
		// creation always sends one even when the submission omits it.
		TOSAcceptance: &stripe.AccountCreateTOSAcceptanceParams{
			Date: stripe.Int64(time.Now().UTC().Unix()),
			IP:   stripe.String(clientIP),
		},
	}
	if req.BankAccountToken != nil {
		params.ExternalAccount = &stripe.AccountExternalAccountParams{Token: req.BankAccountToken}
	}
	return params
}

func (s *Service) updateParams(req OnboardingRequest, birthDate *time.Time, clientIP string) *stripe.AccountUpdateParams {
	params := &stripe.AccountUpdateParams{
		Email:      req.Email,
		Individual: individualParams(req, birthDate),
	}
	if req.BankAccountToken != nil {
		params.ExternalAccount = &stripe.AccountExternalAccountParams{Token: req.BankAccountToken}
	}
	if req.AcceptTOS {
		params.TOSAcceptance = &stripe.AccountUpdateTOSAcceptanceParams{
			Date: stripe.Int64(time.Now().UTC().Unix()),
			IP:   stripe.String(clientIP),
		}
	}
	return params
}

func individualParams(req OnboardingRequest, birthDate *time.Time) *stripe.PersonParams {
	individual := &stripe.PersonParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if birthDate != nil {
		individual.DOB = &stripe.PersonDOBParams{
			Day:   stripe.Int64(int64(birthDate.Day())),
			Month: stripe.Int64(int64(birthDate.Month())),
			Year:  stripe.Int64(int64(birthDate.Year())),
		}
	}
	if req.AddressLine1 != nil || req.City != nil || req.PostalCode != nil || req.Country != nil {
		individual.Address = &stripe.AddressParams{
			Line1:      req.AddressLine1,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		}
	}
	if req.IdentityDocumentID != nil {
		individual.Verification = &stripe.PersonVerificationParams{
			Document: &stripe.PersonVerificationDocumentParams{
				Front: req.IdentityDocumentID,
			},
		}
	}
	return individual
}

func applyProfileFields(profile *models.SellerAccount, req OnboardingRequest, birthDate *time.Time) {
	if req.FirstName != nil {
		profile.FirstName = req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = req.LastName
	}
	if req.Email != nil {
		profile.Email = req.Email
	}
	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if birthDate != nil {
		profile.BirthDate = birthDate
	}
	if req.AddressLine1 != nil {
		profile.AddressLine1 = req.AddressLine1
	}
	if req.City != nil {
		profile.City = req.City
	}
	if req.PostalCode != nil {
		profile.PostalCode = req.PostalCode
	}
	if req.Country != nil {
		profile.Country = req.Country
	}
}

func parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(birthDateLayout, *raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("birth_date must be %s", birthDateLayout))
	}
	return &parsed, nil
}
