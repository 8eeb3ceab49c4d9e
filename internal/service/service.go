package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/cart"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/events"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/pricing"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Dependencies are shared by every service.
type Dependencies struct {
	Store      repository.Store
	Carts      cart.Store
	Keys       idempotency.Store
	Publisher  events.Publisher
	StockCache StockCache
	Pricing    *pricing.Calculator
	Retry      retry.Config
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.StockCache == nil {
		d.StockCache = NopStockCache{}
	}
	if d.Pricing == nil {
		d.Pricing = pricing.NewCalculator(0)
	}
	if d.Retry.MaxAttempts == 0 {
		d.Retry = retry.DefaultConfig()
	}
	return d
}

// known are the errors callers can act on. Anything else leaving a service
// is reported as a transport failure.
var known = []error{
	entity.ErrEmptyCart,
	entity.ErrInsufficientStock,
	entity.ErrInvalidTransition,
	entity.ErrStaleWrite,
	entity.ErrTransportFailure,
	entity.ErrValidation,
	entity.ErrNotFound,
	entity.ErrProductInactive,
	entity.ErrDuplicateMovement,
	entity.ErrDuplicateKey,
	entity.ErrRequestInFlight,
	entity.ErrForbidden,
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", entity.ErrTransportFailure, err)
}

// runTx runs fn in a unit of work and re-runs the whole unit when it lost a
// race on a product row. Other errors end the attempt immediately.
func runTx(ctx context.Context, store repository.Store, policy retry.Config, fn func(tx repository.Tx) error) error {
	result := retry.DoWithCallback(ctx, policy, func() error {
		err := store.WithinTx(ctx, fn)
		if err == nil || errors.Is(err, entity.ErrStaleWrite) {
			return err
		}
		return retry.Permanent(err)
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).Msgf("Unit of work lost a race, retry %d in %s", attempt, nextDelay)
	})
	return classify(retry.Unwrap(result.Err))
}

// sortedIDs returns the keys of a product -> quantity map in ascending order.
func sortedIDs(quantities map[int]int) []int {
	ids := make([]int, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// documentNumber builds human-legible numbers like CMD-20260119-3F2A9C1B.
func documentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), suffix)
}

// cleanupTimeout bounds bookkeeping done after the request context may have
// ended: releasing or completing idempotency keys and after-commit effects.
const cleanupTimeout = 5 * time.Second

// detached keeps the values of ctx but not its cancellation or deadline.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// releaseKey frees a claimed key so the caller can retry with it.
func (d Dependencies) releaseKey(ctx context.Context, scope, key string) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := d.Keys.Release(ctx, scope, key); err != nil {
		logger.Warn().Err(err).Msgf("Error releasing idempotent key %s", key)
	}
}

func (d Dependencies) completeKey(ctx context.Context, scope, key string, resourceID int64) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := d.Keys.Complete(ctx, scope, key, resourceID); err != nil {
		logger.Warn().Err(err).Msgf("Error completing idempotent key %s", key)
	}
}

func (d Dependencies) publish(ctx context.Context, event entity.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	// The unit of work already committed; a lost event must not fail the request.
	if err := d.Publisher.Publish(ctx, event); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for %d", event.Type, event.AggregateID)
	}
}

func (d Dependencies) invalidateStock(ctx context.Context, productIDs []int) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := d.StockCache.Delete(ctx, productIDs...); err != nil {
		logger.Warn().Err(err).Msgf("Error invalidating cached stock for products %v", productIDs)
	}
}
