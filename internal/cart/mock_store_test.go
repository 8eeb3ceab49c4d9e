package cart

import (
	"context"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, userID int) (*entity.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*entity.Cart)
	return c, args.Error(1)
}

func (m *MockStore) AddItem(ctx context.Context, userID, productID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockStore) SetItem(ctx context.Context, userID, productID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockStore) RemoveItem(ctx context.Context, userID, productID int) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockStore) Clear(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}
