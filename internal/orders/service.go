package orders

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// ServiceParams wires the order query service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service exposes buyer-facing order reads. Writes go through the state
// machine only.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// ListForBuyer returns the caller's orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]OrderResponse, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toOrderResponses(rows), nil
}
