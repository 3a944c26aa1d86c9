package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

// RefundActivities holds the activity implementations for the refund workflow.
type RefundActivities struct {
	Tickets   ports.TicketRepository
	UOW       ports.PaymentUnitOfWork
	Publisher ports.EventPublisher
}

// LookupTicket verifies the ticket exists and belongs to the user, returning
// the purchase transaction ID.
func (a *RefundActivities) LookupTicket(ctx context.Context, ticketID, userID string) (string, error) {
	ticket, err := a.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("ticket %s: %w", ticketID, err)
	}
	if ticket.UserID != userID {
		return "", fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
	}
	return ticket.TransactionID, nil
}

// CancelTicket transitions the ticket from active to cancelled. Fails when
// the ticket is in any other state, so a refund runs at most once.
func (a *RefundActivities) CancelTicket(ctx context.Context, ticketID string) error {
	return a.UOW.WithinTx(ctx, func(tx ports.PaymentTx) error {
		return tx.SetTicketStatus(ctx, ticketID, domain.TicketActive, domain.TicketCancelled)
	})
}

// ReactivateTicket flips a cancelled ticket back to active. Saga compensation
// for a credit failure after the cancellation already committed.
func (a *RefundActivities) ReactivateTicket(ctx context.Context, ticketID string) error {
	return a.UOW.WithinTx(ctx, func(tx ports.PaymentTx) error {
		return tx.SetTicketStatus(ctx, ticketID, domain.TicketCancelled, domain.TicketActive)
	})
}

// CreditRefund credits the purchase amount back to the wallet and marks the
// original transaction refunded, all in one unit of work.
func (a *RefundActivities) CreditRefund(ctx context.Context, userID, purchaseTxnID string) (float64, error) {
	var balance domain.Money
	err := a.UOW.WithinTx(ctx, func(tx ports.PaymentTx) error {
		purchase, err := tx.TransactionByID(ctx, purchaseTxnID)
		if err != nil {
			return fmt.Errorf("purchase transaction: %w", err)
		}
		if purchase.Status == domain.TransactionRefunded {
			return fmt.Errorf("transaction %s: %w", purchaseTxnID, domain.ErrConflict)
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
			Reference: fmt.Sprintf("RFD%d%s", time.Now().Unix(), purchase.ID[:4]),
			Metadata: map[string]any{
				"original_reference": purchase.Reference,
			},
		}
		if err := tx.CreateTransaction(ctx, refund); err != nil {
			return fmt.Errorf("create refund transaction: %w", err)
		}

		balance, err = tx.CreditWallet(ctx, wallet.ID, purchase.Amount)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}

		if err := tx.SetTransactionStatus(ctx, refund.ID, domain.TransactionCompleted); err != nil {
			return fmt.Errorf("complete refund: %w", err)
		}
		return tx.SetTransactionStatus(ctx, purchase.ID, domain.TransactionRefunded)
	})
	if err != nil {
		return 0, err
	}
	return balance.Float64(), nil
}

// NotifyRefund records the completed refund for downstream consumers.
func (a *RefundActivities) NotifyRefund(ctx context.Context, ticketID, userID string, balance float64) error {
	metrics.RefundsProcessed.WithLabelValues("completed").Inc()
	slog.Info("refund completed",
		"ticket_id", ticketID, "user_id", userID, "balance", balance)
	return nil
}
