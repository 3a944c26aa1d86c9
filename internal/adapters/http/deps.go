package http

import (
	"github.com/nats-io/nats.go"

	"github.com/karabomaleka/tshwanebus/internal/adapters/postgres"
	"github.com/karabomaleka/tshwanebus/internal/adapters/valkey"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
	"github.com/karabomaleka/tshwanebus/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes    *usecases.RouteService
	Planner   *usecases.PlannerService
	Schedules *usecases.ScheduleService
	Payments  *usecases.PaymentService
	Auth      ports.AuthProvider
	Publisher ports.EventPublisher
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Debug     bool
}
