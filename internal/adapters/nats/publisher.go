package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "TICKETS",
			Subjects:  []string{"transit.tickets.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "WALLET",
			Subjects:  []string{"transit.wallet.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "BUS_POSITIONS",
			Subjects:  []string{"transit.positions.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.tickets.issued."+ticket.RouteID, data)
	return err
}

func (p *Publisher) PublishWalletTopup(ctx context.Context, txn *domain.Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.wallet.topup."+txn.WalletID, data)
	return err
}

func (p *Publisher) PublishRefundRequested(ctx context.Context, ticketID, userID string) error {
	data, err := json.Marshal(refundRequest{TicketID: ticketID, UserID: userID})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.tickets.refund."+ticketID, data)
	return err
}

func (p *Publisher) PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("transit.positions."+pos.BusNumber, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
