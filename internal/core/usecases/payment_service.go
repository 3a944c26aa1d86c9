package usecases

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
)

// Topup bounds, matching the external gateway's accepted range.
const (
	MinTopup = domain.Money(1000)   // R10.00
	MaxTopup = domain.Money(100000) // R1000.00
)

// conflictRetries bounds regeneration attempts on reference/QR collisions.
const conflictRetries = 3

const defaultCurrency = "ZAR"

// PaymentService orchestrates wallet topups, ticket purchases, and refunds.
// Every money-moving path runs inside a single unit of work: the pending
// transaction row, the balance change, and the ticket row commit together or
// not at all.
type PaymentService struct {
	routes    ports.RouteRepository
	wallets   ports.WalletRepository
	tickets   ports.TicketRepository
	uow       ports.PaymentUnitOfWork
	gateway   ports.PaymentGateway
	publisher ports.EventPublisher // optional
}

// NewPaymentService creates a new PaymentService. publisher may be nil.
func NewPaymentService(
	routes ports.RouteRepository,
	wallets ports.WalletRepository,
	tickets ports.TicketRepository,
	uow ports.PaymentUnitOfWork,
	gateway ports.PaymentGateway,
	publisher ports.EventPublisher,
) *PaymentService {
	return &PaymentService{
		routes:    routes,
		wallets:   wallets,
		tickets:   tickets,
		uow:       uow,
		gateway:   gateway,
		publisher: publisher,
	}
}

// GetWallet returns the user's wallet and the last 10 transactions, creating
// a zero-balance ZAR wallet on first access.
func (s *PaymentService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, []domain.Transaction, error) {
	wallet, err := s.ensureWallet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	txns, err := s.wallets.RecentTransactions(ctx, wallet.ID, 10)
	if err != nil {
		return nil, nil, fmt.Errorf("recent transactions: %w", err)
	}
	return wallet, txns, nil
}

// TopUpWallet charges the external payment method and credits the wallet.
// The pending transaction, the gateway charge, and the credit form one unit:
// a gateway failure rolls the whole unit back with the balance unchanged.
func (s *PaymentService) TopUpWallet(ctx context.Context, userID string, amount domain.Money, method domain.PaymentMethod, metadata map[string]any) (domain.Money, *domain.Transaction, error) {
	if amount < MinTopup || amount > MaxTopup {
		return 0, nil, fmt.Errorf("%w: topup must be between %s and %s", domain.ErrInvalidAmount, MinTopup, MaxTopup)
	}
	if !domain.ValidPaymentMethod(method) {
		return 0, nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, method)
	}

	if _, err := s.ensureWallet(ctx, userID); err != nil {
		return 0, nil, err
	}

	var newBalance domain.Money
	var txn *domain.Transaction
	err := s.withConflictRetry(ctx, func() error {
		return s.uow.WithinTx(ctx, func(tx ports.PaymentTx) error {
			locked, err := tx.WalletForUpdate(ctx, userID)
			if err != nil {
				return fmt.Errorf("lock wallet: %w", err)
			}

			txn = &domain.Transaction{
				ID:            uuid.NewString(),
				UserID:        userID,
				WalletID:      locked.ID,
				Type:          domain.TransactionTopup,
				Amount:        amount,
				Status:        domain.TransactionPending,
				Reference:     generateReference("TOP"),
				PaymentMethod: method,
				Metadata:      metadata,
			}
			if err := tx.CreateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}

			if err := s.gateway.Charge(ctx, method, amount, txn.Reference); err != nil {
				return fmt.Errorf("payment gateway: %w", err)
			}

			newBalance, err = tx.CreditWallet(ctx, locked.ID, amount)
			if err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}

			if err := tx.SetTransactionStatus(ctx, txn.ID, domain.TransactionCompleted); err != nil {
				return fmt.Errorf("complete transaction: %w", err)
			}
			txn.Status = domain.TransactionCompleted
			return nil
		})
	})
	if err != nil {
		return 0, nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishWalletTopup(ctx, txn)
	}
	return newBalance, txn, nil
}

// PurchaseTicket debits the route fare from the user's wallet and issues an
// active ticket valid for 4 hours from departure. Affordability is rejected
// before any write; everything after the pending transaction row either
// commits as one unit or rolls back as one unit.
func (s *PaymentService) PurchaseTicket(ctx context.Context, userID, routeID string, departureTime time.Time) (*domain.Ticket, domain.Money, error) {
	if !departureTime.After(time.Now()) {
		return nil, 0, fmt.Errorf("%w: departure time must be in the future", domain.ErrValidation)
	}

	route, err := s.routes.GetByID(ctx, routeID)
	if err != nil {
		return nil, 0, fmt.Errorf("route %s: %w", routeID, err)
	}
	// Transactions require a positive amount, so a fare-free route has
	// nothing to purchase.
	if route.Fare <= 0 {
		return nil, 0, fmt.Errorf("%w: route %s has no purchasable fare", domain.ErrValidation, route.RouteNumber)
	}

	if _, err := s.ensureWallet(ctx, userID); err != nil {
		return nil, 0, err
	}

	var ticket *domain.Ticket
	var newBalance domain.Money
	err = s.withConflictRetry(ctx, func() error {
		return s.uow.WithinTx(ctx, func(tx ports.PaymentTx) error {
			wallet, err := tx.WalletForUpdate(ctx, userID)
			if err != nil {
				return fmt.Errorf("lock wallet: %w", err)
			}
			if !wallet.CanAfford(route.Fare) {
				return domain.ErrInsufficientBalance
			}

			txn := &domain.Transaction{
				ID:        uuid.NewString(),
				UserID:    userID,
				WalletID:  wallet.ID,
				Type:      domain.TransactionPurchase,
				Amount:    route.Fare,
				Status:    domain.TransactionPending,
				Reference: generateReference("TIX"),
				Metadata: map[string]any{
					"route_number":   route.RouteNumber,
					"departure_time": departureTime.Format(time.RFC3339),
				},
			}
			if err := tx.CreateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}

			newBalance, err = tx.DebitWallet(ctx, wallet.ID, route.Fare)
			if err != nil {
				return fmt.Errorf("debit wallet: %w", err)
			}

			ticket = &domain.Ticket{
				ID:            uuid.NewString(),
				UserID:        userID,
				RouteID:       route.ID,
				RouteName:     route.Name,
				RouteNumber:   route.RouteNumber,
				TransactionID: txn.ID,
				ValidFrom:     departureTime,
				ValidUntil:    departureTime.Add(domain.TicketValidity),
				Status:        domain.TicketActive,
				QRCode:        generateQRCode(),
				Metadata: map[string]any{
					"purchase_price": route.Fare.String(),
					"route_name":     route.Name,
				},
			}
			if err := tx.CreateTicket(ctx, ticket); err != nil {
				return fmt.Errorf("create ticket: %w", err)
			}

			if err := tx.SetTransactionStatus(ctx, txn.ID, domain.TransactionCompleted); err != nil {
				return fmt.Errorf("complete transaction: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	if s.publisher != nil {
		_ = s.publisher.PublishTicketIssued(ctx, ticket)
	}
	return ticket, newBalance, nil
}

// RefundTicket cancels an active ticket and credits the purchase amount back
// to the owner's wallet, marking the original transaction refunded. The
// cancellation, the credit, and the refund transaction commit as one unit.
func (s *PaymentService) RefundTicket(ctx context.Context, userID, ticketID string) (domain.Money, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return 0, fmt.Errorf("ticket %s: %w", ticketID, err)
	}
	if ticket.UserID != userID {
		return 0, fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
	}

	var newBalance domain.Money
	err = s.withConflictRetry(ctx, func() error {
		return s.uow.WithinTx(ctx, func(tx ports.PaymentTx) error {
			purchase, err := tx.TransactionByID(ctx, ticket.TransactionID)
			if err != nil {
				return fmt.Errorf("purchase transaction: %w", err)
			}

			// Fails if the ticket is no longer active, so a refund can
			// only happen once.
			if err := tx.SetTicketStatus(ctx, ticket.ID, domain.TicketActive, domain.TicketCancelled); err != nil {
				return fmt.Errorf("cancel ticket: %w", err)
			}

			wallet, err := tx.WalletForUpdate(ctx, userID)
			if err != nil {
				return fmt.Errorf("lock wallet: %w", err)
			}

			refund := &domain.Transaction{
				ID:        uuid.NewString(),
				UserID:    userID,
				WalletID:  wallet.ID,
				Type:      domain.TransactionRefund,
				Amount:    purchase.Amount,
				Status:    domain.TransactionPending,
				Reference: generateReference("RFD"),
				Metadata: map[string]any{
					"ticket_id":          ticket.ID,
					"original_reference": purchase.Reference,
				},
			}
			if err := tx.CreateTransaction(ctx, refund); err != nil {
				return fmt.Errorf("create refund transaction: %w", err)
			}

			newBalance, err = tx.CreditWallet(ctx, wallet.ID, purchase.Amount)
			if err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}

			if err := tx.SetTransactionStatus(ctx, refund.ID, domain.TransactionCompleted); err != nil {
				return fmt.Errorf("complete refund: %w", err)
			}
			if err := tx.SetTransactionStatus(ctx, purchase.ID, domain.TransactionRefunded); err != nil {
				return fmt.Errorf("mark purchase refunded: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ActiveTickets returns the user's active, unexpired tickets.
func (s *PaymentService) ActiveTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ActiveByUser(ctx, userID, time.Now())
}

func (s *PaymentService) ensureWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	wallet = &domain.Wallet{
		ID:       uuid.NewString(),
		UserID:   userID,
		Balance:  0,
		Currency: defaultCurrency,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		// Lost a create race with a concurrent request for the same user.
		if errors.Is(err, domain.ErrConflict) {
			return s.wallets.GetByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

// withConflictRetry reruns fn when a generated reference or QR code collides
// with an existing row. Each rerun regenerates inside fn.
func (s *PaymentService) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// generateReference produces a transaction reference like "TOP17370321544821".
// Uniqueness is ultimately enforced by the database constraint.
func generateReference(prefix string) string {
	return fmt.Sprintf("%s%d%04d", prefix, time.Now().Unix(), randInt(10000))
}

const qrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateQRCode returns a 32-character random token.
func generateQRCode() string {
	b := make([]byte, 32)
	for i := range b {
		b[i] = qrAlphabet[randInt(len(qrAlphabet))]
	}
	return string(b)
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return int(v.Int64())
}
