package entity

import (
	"fmt"
	"sort"
)

// MaxLineQuantity caps the quantity of one product on a single order line,
// before and after repeated lines are merged.
const MaxLineQuantity = 100000

type CartItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

func (i CartItem) Validate() error {
	if i.ProductID <= 0 {
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if i.Quantity > MaxLineQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, MaxLineQuantity)
	}
	return nil
}

type Cart struct {
	UserID int        `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// NewCart builds a cart from a product -> quantity map, sorted by product.
func NewCart(userID int, quantities map[int]int) *Cart {
	c := &Cart{UserID: userID, Items: make([]CartItem, 0, len(quantities))}
	for pid, qty := range quantities {
		c.Items = append(c.Items, CartItem{ProductID: pid, Quantity: qty})
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ProductID < c.Items[j].ProductID })
	return c
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// MergeItems folds repeated products into one line each, sorted by product id.
// Every item and every merged line must stay within MaxLineQuantity.
func MergeItems(items []CartItem) ([]CartItem, error) {
	q := make(map[int]int, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if err := addQuantity(q, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}
	return NewCart(0, q).Items, nil
}

// addQuantity adds qty to q[productID]. Both operands are already bounded by
// MaxLineQuantity, so the sum cannot overflow.
func addQuantity(q map[int]int, productID, qty int) error {
	if q[productID]+qty > MaxLineQuantity {
		return fmt.Errorf("%w: product %d: merged quantity exceeds %d", ErrValidation, productID, MaxLineQuantity)
	}
	q[productID] += qty
	return nil
}
