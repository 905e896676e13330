package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/enums"
)

// Repository is the single write surface over the orders table. State and
// protest columns move only through the conditional updates below; nothing
// else in the codebase touches them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	// TransitionState updates the row only when its persisted state is one of
	// from; it reports whether a row was changed. A zero rows-affected result
	// is a no-op, not an error, so duplicated and out-of-order deliveries
	// converge instead of failing.
	TransitionState(ctx context.Context, id uuid.UUID, from []enums.OrderState, updates map[string]any) (bool, error)
	FileProtest(ctx context.Context, id uuid.UUID) (bool, error)
	ResolveProtest(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkStockReconciled flips the reconcile flag exactly once per order.
	MarkStockReconciled(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) TransitionState(ctx context.Context, id uuid.UUID, from []enums.OrderState, updates map[string]any) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("source states required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FileProtest(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND state = ? AND protest_status IS NULL", id, enums.OrderStateCaptured).
		Update("protest_status", enums.ProtestStatusFiled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ResolveProtest(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND protest_status = ?", id, enums.ProtestStatusFiled).
		Update("protest_status", enums.ProtestStatusResolved)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkStockReconciled(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND state = ? AND stock_reconciled = false", id, enums.OrderStateCaptured).
		Update("stock_reconciled", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
