package cart

import (
	"context"
	"sync"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

// LocalStore is an in-process cart cache.
type LocalStore struct {
	mu    sync.Mutex
	carts map[int]map[int]int
}

func NewLocalStore() *LocalStore {
	return &LocalStore{carts: make(map[int]map[int]int)}
}

func (s *LocalStore) Get(ctx context.Context, userID int) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.NewCart(userID, s.carts[userID]), nil
}

func (s *LocalStore) AddItem(ctx context.Context, userID, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(userID)[productID] += quantity
	return nil
}

func (s *LocalStore) SetItem(ctx context.Context, userID, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(userID)[productID] = quantity
	return nil
}

func (s *LocalStore) RemoveItem(ctx context.Context, userID, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts[userID], productID)
	return nil
}

func (s *LocalStore) Clear(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

// Replace overwrites the cached cart of a user with c.
func (s *LocalStore) Replace(c *entity.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IsEmpty() {
		delete(s.carts, c.UserID)
		return
	}
	items := make(map[int]int, len(c.Items))
	for _, it := range c.Items {
		items[it.ProductID] = it.Quantity
	}
	s.carts[c.UserID] = items
}

func (s *LocalStore) cart(userID int) map[int]int {
	c, ok := s.carts[userID]
	if !ok {
		c = make(map[int]int)
		s.carts[userID] = c
	}
	return c
}
