// Package cart keeps per-user shopping carts. Carts never touch stock.
package cart

import (
	"context"
	"os"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cart").Logger()

// Store is the CartStore contract shared by the remote, local and synced stores.
type Store interface {
	Get(ctx context.Context, userID int) (*entity.Cart, error)
	// AddItem increases the quantity of productID by quantity.
	AddItem(ctx context.Context, userID, productID, quantity int) error
	// SetItem replaces the quantity of productID.
	SetItem(ctx context.Context, userID, productID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int) error
	Clear(ctx context.Context, userID int) error
}
