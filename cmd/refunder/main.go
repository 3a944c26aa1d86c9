package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/karabomaleka/tshwanebus/internal/adapters/nats"
	"github.com/karabomaleka/tshwanebus/internal/adapters/postgres"
	"github.com/karabomaleka/tshwanebus/internal/pkg/config"
	"github.com/karabomaleka/tshwanebus/internal/pkg/logging"
	"github.com/karabomaleka/tshwanebus/internal/workflows"
)

// The refunder consumes queued refund requests from NATS and runs each one
// through the Temporal refund workflow.
func main() {
	cfg, err := config.Load("tshwanebus-refunder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("tshwanebus-refunder", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.RefundWorkflow)
	w.RegisterActivity(&workflows.RefundActivities{
		Tickets: postgres.NewTicketRepo(db),
		UOW:     postgres.NewPaymentUOW(db),
	})

	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Fatalf("worker: %v", err)
		}
	}()

	// Bridge NATS refund requests into workflow executions
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeRefundRequests(ctx, func(ctx context.Context, ticketID, userID string) error {
		opts := client.StartWorkflowOptions{
			ID:        "refund-" + ticketID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}
		_, err := c.ExecuteWorkflow(ctx, opts, workflows.RefundWorkflow, workflows.RefundInput{
			TicketID: ticketID,
			UserID:   userID,
		})
		if err != nil {
			slog.Error("start refund workflow", "ticket_id", ticketID, "error", err)
			return err
		}
		slog.Info("refund workflow started", "ticket_id", ticketID)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe refunds: %v", err)
	}

	slog.Info("refunder started", "task_queue", cfg.Temporal.TaskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("refunder stopped")
}
