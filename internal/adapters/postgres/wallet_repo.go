package postgres

import (
	"context"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// WalletRepo implements the read side of ports.WalletRepository. Balance
// mutation goes through PaymentUOW only.
type WalletRepo struct {
	db *DB
}

func NewWalletRepo(db *DB) *WalletRepo { return &WalletRepo{db: db} }

func (r *WalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	var balanceCents int64
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at
		FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &balanceCents, &w.Currency, &w.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	w.Balance = domain.Money(balanceCents)
	return &w, nil
}

func (r *WalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance_cents, currency)
		VALUES ($1, $2, $3, $4)
	`, wallet.ID, wallet.UserID, int64(wallet.Balance), wallet.Currency)
	return mapError(err)
}

func (r *WalletRepo) RecentTransactions(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, wallet_id, type, amount_cents, status, reference,
		       COALESCE(payment_method, ''), metadata, created_at
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, walletID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var amountCents int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.WalletID, &t.Type, &amountCents,
			&t.Status, &t.Reference, &t.PaymentMethod, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = domain.Money(amountCents)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
