package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
)

// Repository is the read surface the checkout service needs before it talks
// to the payment provider.
type Repository interface {
	FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindSellerAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindSellerAccount(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error) {
	var account models.SellerAccount
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
