package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
)

// PaymentUOW implements ports.PaymentUnitOfWork on a pgx transaction.
// WalletForUpdate takes a SELECT ... FOR UPDATE row lock, so concurrent units
// of work against the same wallet serialize at the database.
type PaymentUOW struct {
	db *DB
}

func NewPaymentUOW(db *DB) *PaymentUOW { return &PaymentUOW{db: db} }

func (u *PaymentUOW) WithinTx(ctx context.Context, fn func(tx ports.PaymentTx) error) error {
	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&paymentTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

type paymentTx struct {
	tx pgx.Tx
}

func (p *paymentTx) WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	var balanceCents int64
	err := p.tx.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at
		FROM wallets WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&w.ID, &w.UserID, &balanceCents, &w.Currency, &w.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	w.Balance = domain.Money(balanceCents)
	return &w, nil
}

func (p *paymentTx) CreditWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error) {
	var balanceCents int64
	err := p.tx.QueryRow(ctx, `
		UPDATE wallets SET balance_cents = balance_cents + $2
		WHERE id = $1
		RETURNING balance_cents
	`, walletID, int64(amount)).Scan(&balanceCents)
	if err != nil {
		return 0, mapError(err)
	}
	return domain.Money(balanceCents), nil
}

// DebitWallet decrements the balance only when it covers the amount. No row
// updated means the balance was insufficient; the non-negative balance
// invariant holds even without the row lock.
func (p *paymentTx) DebitWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error) {
	var balanceCents int64
	err := p.tx.QueryRow(ctx, `
		UPDATE wallets SET balance_cents = balance_cents - $2
		WHERE id = $1 AND balance_cents >= $2
		RETURNING balance_cents
	`, walletID, int64(amount)).Scan(&balanceCents)
	if err != nil {
		if mapError(err) == domain.ErrNotFound {
			return 0, domain.ErrInsufficientBalance
		}
		return 0, mapError(err)
	}
	return domain.Money(balanceCents), nil
}

func (p *paymentTx) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, wallet_id, type, amount_cents, status, reference, payment_method, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`, txn.ID, txn.UserID, txn.WalletID, txn.Type, int64(txn.Amount),
		txn.Status, txn.Reference, string(txn.PaymentMethod), txn.Metadata)
	return mapError(err)
}

func (p *paymentTx) SetTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	tag, err := p.tx.Exec(ctx, `
		UPDATE transactions SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *paymentTx) TransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountCents int64
	err := p.tx.QueryRow(ctx, `
		SELECT id, user_id, wallet_id, type, amount_cents, status, reference,
		       COALESCE(payment_method, ''), metadata, created_at
		FROM transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.WalletID, &t.Type, &amountCents,
		&t.Status, &t.Reference, &t.PaymentMethod, &t.Metadata, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	t.Amount = domain.Money(amountCents)
	return &t, nil
}

func (p *paymentTx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO tickets (id, user_id, route_id, transaction_id, valid_from, valid_until, status, qr_code, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ticket.ID, ticket.UserID, ticket.RouteID, ticket.TransactionID,
		ticket.ValidFrom, ticket.ValidUntil, ticket.Status, ticket.QRCode, ticket.Metadata)
	return mapError(err)
}

// SetTicketStatus transitions a ticket only from the expected current status.
// Two concurrent refunds race here and exactly one wins.
func (p *paymentTx) SetTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) error {
	tag, err := p.tx.Exec(ctx, `
		UPDATE tickets SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}
