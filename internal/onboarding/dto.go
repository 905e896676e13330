package onboarding

// OnboardingRequest carries a seller's KYC submission. Every field is
// optional: sellers submit in parts and each submission forwards only what it
// sets.
type OnboardingRequest struct {
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string `json:"phone,omitempty"`
	BirthDate          *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AddressLine1       *string `json:"address_line1,omitempty"`
	City               *string `json:"city,omitempty"`
	PostalCode         *string `json:"postal_code,omitempty"`
	Country            *string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	BankAccountToken   *string `json:"bank_account_token,omitempty"`
	IdentityDocumentID *string `json:"identity_document_id,omitempty"`
	AcceptTOS          bool    `json:"accept_tos,omitempty"`
}

// OnboardingResponse reports the connected account state after a submission.
type OnboardingResponse struct {
	StripeAccountID string `json:"stripe_account_id"`
	ChargesEnabled  bool   `json:"charges_enabled"`
	PayoutsEnabled  bool   `json:"payouts_enabled"`
	TOSAccepted     bool   `json:"tos_accepted"`
}
