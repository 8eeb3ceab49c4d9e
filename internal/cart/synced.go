package cart

import (
	"context"
	"sync"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

// SyncedStore serves carts from the remote store and falls back to the local
// cache only while the remote call fails. Once the remote answers again its
// content replaces whatever was changed locally in the meantime.
type SyncedStore struct {
	remote Store
	local  *LocalStore

	mu    sync.Mutex
	dirty map[int]int // user -> local edits made while remote was unreachable
}

func NewSyncedStore(remote Store, local *LocalStore) *SyncedStore {
	return &SyncedStore{remote: remote, local: local, dirty: make(map[int]int)}
}

func (s *SyncedStore) Get(ctx context.Context, userID int) (*entity.Cart, error) {
	c, err := s.remote.Get(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msgf("Remote cart unavailable for user %d, serving local copy", userID)
		return s.local.Get(ctx, userID)
	}
	s.adopt(c)
	return c, nil
}

func (s *SyncedStore) AddItem(ctx context.Context, userID, productID, quantity int) error {
	if err := (entity.CartItem{ProductID: productID, Quantity: quantity}).Validate(); err != nil {
		return err
	}
	return s.write(ctx, userID, func(st Store) error {
		return st.AddItem(ctx, userID, productID, quantity)
	})
}

func (s *SyncedStore) SetItem(ctx context.Context, userID, productID, quantity int) error {
	if err := (entity.CartItem{ProductID: productID, Quantity: quantity}).Validate(); err != nil {
		return err
	}
	return s.write(ctx, userID, func(st Store) error {
		return st.SetItem(ctx, userID, productID, quantity)
	})
}

func (s *SyncedStore) RemoveItem(ctx context.Context, userID, productID int) error {
	return s.write(ctx, userID, func(st Store) error {
		return st.RemoveItem(ctx, userID, productID)
	})
}

func (s *SyncedStore) Clear(ctx context.Context, userID int) error {
	return s.write(ctx, userID, func(st Store) error {
		return st.Clear(ctx, userID)
	})
}

// write applies op remotely and mirrors the remote result locally. When the
// remote fails, op is applied to the local cache only.
func (s *SyncedStore) write(ctx context.Context, userID int, op func(Store) error) error {
	if err := op(s.remote); err != nil {
		logger.Warn().Err(err).Msgf("Remote cart write failed for user %d, keeping change locally", userID)
		s.mu.Lock()
		s.dirty[userID]++
		s.mu.Unlock()
		return op(s.local)
	}

	c, err := s.remote.Get(ctx, userID)
	if err != nil {
		// The write landed remotely. Keep the local copy in step.
		return op(s.local)
	}
	s.adopt(c)
	return nil
}

// adopt makes the remote snapshot the local truth.
func (s *SyncedStore) adopt(c *entity.Cart) {
	s.mu.Lock()
	dropped := s.dirty[c.UserID]
	delete(s.dirty, c.UserID)
	s.mu.Unlock()

	if dropped > 0 {
		logger.Warn().Msgf("Discarding %d offline cart edits for user %d in favour of remote cart", dropped, c.UserID)
	}
	s.local.Replace(c)
}
