package onboarding

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
)

// Repository persists the seller's payout profile.
type Repository interface {
	Find(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error)
	Save(ctx context.Context, account *models.SellerAccount) error
	SyncCapabilities(ctx context.Context, stripeAccountID string, chargesEnabled, payoutsEnabled bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Find returns the seller's payout profile or a fresh zero-value row when the
// seller never onboarded.
func (r *repository) Find(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SellerAccount{SellerID: sellerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Save(ctx context.Context, account *models.SellerAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// SyncCapabilities mirrors the provider's charge/payout switches onto the
// profile. Driven by account.updated webhooks.
func (r *repository) SyncCapabilities(ctx context.Context, stripeAccountID string, chargesEnabled, payoutsEnabled bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SellerAccount{}).
		Where("stripe_account_id = ?", stripeAccountID).
		Updates(map[string]any{
			"charges_enabled": chargesEnabled,
			"payouts_enabled": payoutsEnabled,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
