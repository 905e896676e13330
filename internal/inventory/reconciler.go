package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
)

// Reconciler adjusts listing stock after a capture. Listings with a nil stock
// column are untracked and never change.
type Reconciler struct {
	db *gorm.DB
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Decrement subtracts qty from the listing stock. The guard keeps stock from
// going negative: if the remaining stock is lower than qty, or the listing is
// untracked, nothing changes and Decrement reports false. Callers pass the
// surrounding transaction so the decrement commits with the capture.
func (r *Reconciler) Decrement(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", listingID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
