package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RefundInput is the input for the refund workflow.
type RefundInput struct {
	TicketID string
	UserID   string
}

// RefundWorkflow orchestrates a ticket refund: cancel the ticket, credit the
// wallet, and notify. If the credit fails after the cancellation committed,
// the ticket is reactivated (saga compensation).
func RefundWorkflow(ctx workflow.Context, input RefundInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting refund workflow", "ticketID", input.TicketID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Verify ownership and resolve the purchase transaction
	var purchaseTxnID string
	err := workflow.ExecuteActivity(ctx, "LookupTicket", input.TicketID, input.UserID).Get(ctx, &purchaseTxnID)
	if err != nil {
		return err
	}

	// Step 2: Cancel the ticket (fails if not active, so refunds run once)
	err = workflow.ExecuteActivity(ctx, "CancelTicket", input.TicketID).Get(ctx, nil)
	if err != nil {
		return err
	}

	// Step 3: Credit the wallet
	var balance float64
	err = workflow.ExecuteActivity(ctx, "CreditRefund", input.UserID, purchaseTxnID).Get(ctx, &balance)
	if err != nil {
		logger.Warn("credit failed, reactivating ticket", "error", err)
		// Compensate: undo the cancellation
		_ = workflow.ExecuteActivity(ctx, "ReactivateTicket", input.TicketID).Get(ctx, nil)
		return err
	}

	// Step 4: Notify (best effort, money already moved)
	_ = workflow.ExecuteActivity(ctx, "NotifyRefund", input.TicketID, input.UserID, balance).Get(ctx, nil)

	logger.Info("Refund completed", "ticketID", input.TicketID, "balance", balance)
	return nil
}
