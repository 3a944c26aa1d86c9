package ports

import (
	"context"
	"time"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// RouteRepository persists bus routes.
type RouteRepository interface {
	Create(ctx context.Context, route *domain.Route) error
	Update(ctx context.Context, route *domain.Route) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	List(ctx context.Context) ([]domain.Route, error)
	Search(ctx context.Context, query string) ([]domain.Route, error)
}

// ScheduleRepository persists timetabled departures.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id string) error
	ListByDayType(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error)
	ListByRoute(ctx context.Context, routeID string) ([]domain.Schedule, error)
}

// WalletRepository is the read side of wallet persistence. Balance mutation
// happens exclusively through PaymentUnitOfWork.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	Create(ctx context.Context, wallet *domain.Wallet) error
	RecentTransactions(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error)
}

// TicketRepository is the read side of ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error)
}

// PaymentUnitOfWork runs fn inside one atomic unit. Every write fn performs
// through the PaymentTx either commits as a whole or is rolled back as a
// whole; returning an error from fn triggers the rollback.
type PaymentUnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx PaymentTx) error) error
}

// PaymentTx exposes the payment writes available inside a unit of work.
// WalletForUpdate takes a row lock, serializing concurrent credits and debits
// against the same wallet for the remainder of the unit.
type PaymentTx interface {
	WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)
	CreditWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error)
	DebitWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error)
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	SetTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error
	TransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	SetTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) error
}
