package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/google/uuid"
)

// LedgerService applies manual stock corrections.
type LedgerService struct {
	deps Dependencies
}

func NewLedgerService(deps Dependencies) *LedgerService {
	return &LedgerService{deps: deps.withDefaults()}
}

// AdjustStock moves stock of one product by delta in its own unit of work.
// ref identifies the correction; retrying with the same ref is a no-op that
// fails with ErrDuplicateMovement. An empty ref gets a fresh one.
func (s *LedgerService) AdjustStock(ctx context.Context, productID, delta int, ref string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: delta must not be zero", entity.ErrValidation)
	}
	if delta > entity.MaxLineQuantity || delta < -entity.MaxLineQuantity {
		return 0, fmt.Errorf("%w: delta must be within %d of zero", entity.ErrValidation, entity.MaxLineQuantity)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = uuid.NewString()
	}
	reason := entity.AdjustmentReason(ref)

	var stock int
	err := runTx(ctx, s.deps.Store, s.deps.Retry, func(tx repository.Tx) error {
		var err error
		stock, err = tx.AdjustStock(ctx, productID, delta, reason)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error adjusting stock of product %d by %d", productID, delta)
		return 0, err
	}

	logger.Info().Msgf("Stock of product %d adjusted by %d to %d (%s)", productID, delta, stock, reason)
	s.deps.invalidateStock(ctx, []int{productID})
	s.deps.publish(ctx, entity.Event{
		Type:        entity.EventStockAdjusted,
		AggregateID: int64(productID),
		ProductIDs:  []int{productID},
		OccurredAt:  time.Now().UTC(),
		Payload: map[string]any{
			"delta":  delta,
			"stock":  stock,
			"reason": reason,
		},
	})
	return stock, nil
}

// Movements lists the audit trail of a product, oldest first.
func (s *LedgerService) Movements(ctx context.Context, productID int) ([]*entity.StockMovement, error) {
	if _, err := s.deps.Store.GetProductByID(ctx, productID); err != nil {
		return nil, classify(err)
	}
	movements, err := s.deps.Store.ListMovements(ctx, productID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing movements of product %d", productID)
		return nil, classify(err)
	}
	return movements, nil
}
