package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

// GetWalletHandler returns the caller's wallet with recent transactions.
func GetWalletHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)

		wallet, txns, err := deps.Payments.GetWallet(c.Context(), userID)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(fiber.Map{
			"wallet":              wallet,
			"recent_transactions": txns,
		})
	}
}

type topupRequest struct {
	Amount        float64        `json:"amount" validate:"required,gt=0"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=credit_card instant_eft debit_card"`
	Metadata      map[string]any `json:"metadata"`
}

// TopUpWalletHandler credits the caller's wallet via the payment gateway.
func TopUpWalletHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)

		var req topupRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := validate.Struct(&req); err != nil {
			return errValidation(c, err.Error())
		}

		balance, txn, err := deps.Payments.TopUpWallet(c.Context(), userID,
			domain.MoneyFromFloat(req.Amount), domain.PaymentMethod(req.PaymentMethod), req.Metadata)
		if err != nil {
			metrics.Topups.WithLabelValues(req.PaymentMethod, "failed").Inc()
			return domainError(c, deps.Debug, err)
		}
		metrics.Topups.WithLabelValues(req.PaymentMethod, "completed").Inc()
		return c.JSON(fiber.Map{
			"balance":     balance,
			"transaction": txn,
		})
	}
}

type purchaseRequest struct {
	RouteID       string    `json:"route_id" validate:"required,uuid4"`
	DepartureTime time.Time `json:"departure_time" validate:"required"`
}

// PurchaseTicketHandler debits the fare and issues a ticket.
func PurchaseTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)

		var req purchaseRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := validate.Struct(&req); err != nil {
			return errValidation(c, err.Error())
		}

		ticket, balance, err := deps.Payments.PurchaseTicket(c.Context(), userID, req.RouteID, req.DepartureTime)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		metrics.TicketsIssued.WithLabelValues(ticket.RouteNumber).Inc()
		return c.Status(201).JSON(fiber.Map{
			"ticket":  ticket,
			"balance": balance,
		})
	}
}

// ActiveTicketsHandler lists the caller's active, unexpired tickets.
func ActiveTicketsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)

		tickets, err := deps.Payments.ActiveTickets(c.Context(), userID)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(fiber.Map{
			"tickets": tickets,
			"count":   len(tickets),
		})
	}
}

// RefundTicketHandler cancels a ticket and credits the fare back. When the
// broker is available the refund is queued and processed asynchronously;
// otherwise it runs inline.
func RefundTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		ticketID := c.Params("id")
		if ticketID == "" {
			return errBadRequest(c, "ticket id is required")
		}

		if deps.Publisher != nil {
			if err := deps.Publisher.PublishRefundRequested(c.Context(), ticketID, userID); err == nil {
				metrics.RefundsProcessed.WithLabelValues("queued").Inc()
				return c.Status(202).JSON(fiber.Map{
					"status":    "refund_queued",
					"ticket_id": ticketID,
				})
			}
		}

		balance, err := deps.Payments.RefundTicket(c.Context(), userID, ticketID)
		if err != nil {
			metrics.RefundsProcessed.WithLabelValues("failed").Inc()
			return domainError(c, deps.Debug, err)
		}
		metrics.RefundsProcessed.WithLabelValues("completed").Inc()
		return c.JSON(fiber.Map{
			"status":    "refunded",
			"ticket_id": ticketID,
			"balance":   balance,
		})
	}
}
