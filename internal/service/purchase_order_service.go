package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/google/uuid"
)

// PurchaseOrderService records supplier orders and books received stock.
type PurchaseOrderService struct {
	deps Dependencies
	now  func() time.Time
}

func NewPurchaseOrderService(deps Dependencies) *PurchaseOrderService {
	return &PurchaseOrderService{deps: deps.withDefaults(), now: time.Now}
}

type CreatePurchaseOrderInput struct {
	SupplierID          int
	OrderID             *int64
	Lines               []entity.PurchaseOrderLine
	DateCommande        *time.Time
	DateLivraisonPrevue *time.Time
	IdempotencyKey      string
}

func (in CreatePurchaseOrderInput) validate() error {
	if in.SupplierID <= 0 {
		return fmt.Errorf("%w: fournisseur is required", entity.ErrValidation)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: articles must not be empty", entity.ErrValidation)
	}
	for i, l := range in.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("%w: article %d: quantite must be at least 1", entity.ErrValidation, i+1)
		}
		if l.Quantity > entity.MaxLineQuantity {
			return fmt.Errorf("%w: article %d: quantite must not exceed %d", entity.ErrValidation, i+1, entity.MaxLineQuantity)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: article %d: prix_unitaire must not be negative", entity.ErrValidation, i+1)
		}
		if l.ProductID == nil && strings.TrimSpace(l.Designation) == "" && strings.TrimSpace(l.Reference) == "" {
			return fmt.Errorf("%w: article %d needs a product, reference or designation", entity.ErrValidation, i+1)
		}
	}
	if _, err := (&entity.PurchaseOrder{Lines: in.Lines}).ReceiptQuantities(); err != nil {
		return err
	}
	if in.DateCommande != nil && in.DateLivraisonPrevue != nil && in.DateLivraisonPrevue.Before(*in.DateCommande) {
		return fmt.Errorf("%w: date_livraison_prevue is before date_commande", entity.ErrValidation)
	}
	return nil
}

// Create stores a new purchase order in en_attente. Stock is untouched until
// the order is confirmed.
func (s *PurchaseOrderService) Create(ctx context.Context, in CreatePurchaseOrderInput) (*entity.PurchaseOrder, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	if existing, err := s.deps.Store.GetPurchaseOrderByIdempotencyKey(ctx, key); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, false, classify(err)
	}

	claimed, err := s.deps.Keys.Claim(ctx, idempotency.ScopePurchaseOrder, key)
	if err != nil {
		logger.Warn().Err(err).Msgf("Error claiming idempotent key %s, relying on database", key)
		claimed = true
	}
	if !claimed {
		if existing, err := s.deps.Store.GetPurchaseOrderByIdempotencyKey(ctx, key); err == nil {
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", entity.ErrRequestInFlight, key)
	}

	po, err := s.create(ctx, in, key)
	if err != nil {
		if errors.Is(err, entity.ErrDuplicateKey) {
			if existing, rerr := s.deps.Store.GetPurchaseOrderByIdempotencyKey(ctx, key); rerr == nil {
				return existing, true, nil
			}
		}
		s.deps.releaseKey(ctx, idempotency.ScopePurchaseOrder, key)
		logger.Error().Err(err).Msgf("Error creating purchase order for supplier %d", in.SupplierID)
		return nil, false, err
	}
	s.deps.completeKey(ctx, idempotency.ScopePurchaseOrder, key, po.ID)

	s.deps.publish(ctx, entity.Event{Type: entity.EventPurchaseOrderCreated, AggregateID: po.ID, Payload: po})
	logger.Info().Msgf("Purchase order %s created for supplier %d, total TTC %s", po.InvoiceNumber, po.SupplierID, po.TotalTTC)
	return po, false, nil
}

func (s *PurchaseOrderService) create(ctx context.Context, in CreatePurchaseOrderInput, key string) (*entity.PurchaseOrder, error) {
	var created *entity.PurchaseOrder
	err := runTx(ctx, s.deps.Store, s.deps.Retry, func(tx repository.Tx) error {
		if _, err := tx.GetSupplierByID(ctx, in.SupplierID); err != nil {
			return err
		}
		if in.OrderID != nil {
			if _, err := tx.GetOrderByID(ctx, *in.OrderID); err != nil {
				return err
			}
		}

		lines := make([]entity.PurchaseOrderLine, len(in.Lines))
		copy(lines, in.Lines)
		for i := range lines {
			if lines[i].ProductID == nil {
				continue
			}
			p, err := tx.GetProductByID(ctx, *lines[i].ProductID)
			if err != nil {
				return err
			}
			if lines[i].Reference == "" {
				lines[i].Reference = p.Reference
			}
			if lines[i].Designation == "" {
				lines[i].Designation = p.Name
			}
		}
		ht, ttc := s.deps.Pricing.PurchaseTotals(lines)

		now := s.now().UTC()
		ordered := now
		if in.DateCommande != nil {
			ordered = in.DateCommande.UTC()
		}
		po := &entity.PurchaseOrder{
			SupplierID:          in.SupplierID,
			OrderID:             in.OrderID,
			Lines:               lines,
			Status:              entity.PurchaseOrderPending,
			TotalHT:             ht,
			TotalTTC:            ttc,
			DateCommande:        ordered,
			DateLivraisonPrevue: in.DateLivraisonPrevue,
			InvoiceNumber:       documentNumber("BC", now),
			IdempotencyKey:      key,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.CreatePurchaseOrder(ctx, po); err != nil {
			return err
		}
		created = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Confirm marks goods as received and books every product-linked line into
// stock in the same unit of work. supplierID, when set, reassigns the order.
func (s *PurchaseOrderService) Confirm(ctx context.Context, id int64, supplierID *int) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.ActionConfirmReceipt, func(ctx context.Context, tx repository.Tx, po *entity.PurchaseOrder) error {
		if supplierID != nil {
			if _, err := tx.GetSupplierByID(ctx, *supplierID); err != nil {
				return err
			}
			po.SupplierID = *supplierID
		}
		received, err := po.ReceiptQuantities()
		if err != nil {
			return err
		}
		for _, pid := range sortedIDs(received) {
			if _, err := tx.AdjustStock(ctx, pid, received[pid], entity.ReceiptReason(po.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PurchaseOrderService) Cancel(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.ActionCancelPurchase, nil)
}

func (s *PurchaseOrderService) Deliver(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.ActionDeliverPurchase, nil)
}

// Apply dispatches a target statut to the matching action.
func (s *PurchaseOrderService) Apply(ctx context.Context, id int64, to entity.PurchaseOrderStatus, supplierID *int) (*entity.PurchaseOrder, error) {
	switch to {
	case entity.PurchaseOrderConfirmed:
		return s.Confirm(ctx, id, supplierID)
	case entity.PurchaseOrderCancelled:
		return s.Cancel(ctx, id)
	case entity.PurchaseOrderDelivered:
		return s.Deliver(ctx, id)
	}
	return nil, fmt.Errorf("%w: cannot move a purchase order to %s", entity.ErrInvalidTransition, to)
}

func (s *PurchaseOrderService) transition(
	ctx context.Context,
	id int64,
	action entity.PurchaseOrderAction,
	apply func(ctx context.Context, tx repository.Tx, po *entity.PurchaseOrder) error,
) (*entity.PurchaseOrder, error) {
	var updated *entity.PurchaseOrder
	err := runTx(ctx, s.deps.Store, s.deps.Retry, func(tx repository.Tx) error {
		po, err := tx.GetPurchaseOrderByID(ctx, id)
		if err != nil {
			return err
		}
		from := po.Status
		to, err := entity.PurchaseOrderTransitions.Next(from, action)
		if err != nil {
			return fmt.Errorf("purchase order %d: %w", id, err)
		}
		po.Status = to
		if apply != nil {
			if err := apply(ctx, tx, po); err != nil {
				return err
			}
		}
		if err := tx.SavePurchaseOrderStatus(ctx, po, from); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error applying %s to purchase order %d", action, id)
		return nil, err
	}

	event := entity.Event{Type: purchaseOrderEventType(action), AggregateID: updated.ID, Payload: updated}
	if action == entity.ActionConfirmReceipt {
		received, _ := updated.ReceiptQuantities()
		event.ProductIDs = sortedIDs(received)
		s.deps.invalidateStock(ctx, event.ProductIDs)
	}
	s.deps.publish(ctx, event)

	logger.Info().Msgf("Purchase order %d is now %s", updated.ID, updated.Status)
	return updated, nil
}

func purchaseOrderEventType(action entity.PurchaseOrderAction) entity.EventType {
	switch action {
	case entity.ActionConfirmReceipt:
		return entity.EventPurchaseOrderConfirmed
	case entity.ActionDeliverPurchase:
		return entity.EventPurchaseOrderDelivered
	}
	return entity.EventPurchaseOrderCancelled
}

func (s *PurchaseOrderService) Get(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	po, err := s.deps.Store.GetPurchaseOrderByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return po, nil
}

// List returns matching purchase orders, most recent date_commande first.
func (s *PurchaseOrderService) List(ctx context.Context, filter entity.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	pos, err := s.deps.Store.ListPurchaseOrders(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing purchase orders")
		return nil, classify(err)
	}
	return pos, nil
}
