package ports

import (
	"context"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error
	PublishWalletTopup(ctx context.Context, txn *domain.Transaction) error
	PublishRefundRequested(ctx context.Context, ticketID, userID string) error
	PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRefundRequests(ctx context.Context, handler func(ctx context.Context, ticketID, userID string) error) error
	SubscribeBusPositions(ctx context.Context, handler func(ctx context.Context, pos *domain.BusPosition) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// AuthProvider resolves a bearer credential to a user ID. Returns
// domain.ErrUnauthenticated for unknown tokens.
type AuthProvider interface {
	UserIDForToken(ctx context.Context, token string) (string, error)
}

// PaymentGateway charges an external payment instrument during a topup.
// The production implementation is simulated; a failure leaves the topup
// transaction rolled back and the balance unchanged.
type PaymentGateway interface {
	Charge(ctx context.Context, method domain.PaymentMethod, amount domain.Money, reference string) error
}
