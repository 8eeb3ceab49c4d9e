package service

import (
	"context"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event entity.Event) error {
	return m.Called(ctx, event).Error(0)
}

// eventOfType matches a published event by type.
func eventOfType(t entity.EventType) interface{} {
	return mock.MatchedBy(func(e entity.Event) bool { return e.Type == t })
}
