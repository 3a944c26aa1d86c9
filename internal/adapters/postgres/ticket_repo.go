package postgres

import (
	"context"
	"time"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// TicketRepo implements the read side of ports.TicketRepository.
type TicketRepo struct {
	db *DB
}

func NewTicketRepo(db *DB) *TicketRepo { return &TicketRepo{db: db} }

func (r *TicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	err := r.db.Pool.QueryRow(ctx, `
		SELECT t.id, t.user_id, t.route_id, t.transaction_id, t.valid_from, t.valid_until,
		       t.status, t.qr_code, t.metadata, r.name, r.route_number, t.created_at
		FROM tickets t
		JOIN bus_routes r ON r.id = t.route_id
		WHERE t.id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.RouteID, &t.TransactionID, &t.ValidFrom, &t.ValidUntil,
		&t.Status, &t.QRCode, &t.Metadata, &t.RouteName, &t.RouteNumber, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *TicketRepo) ActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.id, t.user_id, t.route_id, t.transaction_id, t.valid_from, t.valid_until,
		       t.status, t.qr_code, t.metadata, r.name, r.route_number, t.created_at
		FROM tickets t
		JOIN bus_routes r ON r.id = t.route_id
		WHERE t.user_id = $1 AND t.status = 'active' AND t.valid_until > $2
		ORDER BY t.valid_from
	`, userID, now)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.RouteID, &t.TransactionID, &t.ValidFrom, &t.ValidUntil,
			&t.Status, &t.QRCode, &t.Metadata, &t.RouteName, &t.RouteNumber, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
