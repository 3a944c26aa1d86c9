package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	natsadapter "github.com/karabomaleka/tshwanebus/internal/adapters/nats"
	"github.com/karabomaleka/tshwanebus/internal/adapters/postgres"
	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/usecases"
	"github.com/karabomaleka/tshwanebus/internal/pkg/config"
	"github.com/karabomaleka/tshwanebus/internal/pkg/logging"
)

// Seeds the Tshwane route network and its timetables. Safe to rerun: routes
// that already exist are skipped.
func main() {
	publishPositions := flag.Bool("positions", false, "publish a demo position per route after seeding")
	flag.Parse()

	cfg, err := config.Load("tshwanebus-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("tshwanebus-seed", cfg.Logging.Level, "text")

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	routeRepo := postgres.NewRouteRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	routeSvc := usecases.NewRouteService(routeRepo, nil)
	scheduleSvc := usecases.NewScheduleService(scheduleRepo, routeRepo)

	existing, err := routeSvc.List(ctx)
	if err != nil {
		log.Fatalf("list routes: %v", err)
	}
	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.RouteNumber] = true
	}

	stop := func(name string, lat, lng float64) domain.Stop {
		return domain.Stop{
			Name:        name,
			Coordinates: domain.Coordinate{Latitude: lat, Longitude: lng},
		}
	}

	pretoriaStation := stop("Pretoria Station", -25.7544, 28.1917)
	churchSquare := stop("Church Square", -25.7459, 28.1879)
	hatfield := stop("Hatfield", -25.7487, 28.2396)
	menlynMall := stop("Menlyn Mall", -25.7827, 28.2767)
	centurionMall := stop("Centurion Mall", -25.8614, 28.1891)
	soshanguve := stop("Soshanguve", -25.5276, 28.0982)
	mamelodi := stop("Mamelodi", -25.7271, 28.3659)

	routes := []domain.Route{
		{
			RouteNumber:       "A1",
			Name:              "Pretoria Central - Hatfield",
			Description:       "Main route connecting CBD to Hatfield",
			Stops:             []domain.Stop{pretoriaStation, churchSquare, hatfield},
			Fare:              domain.MoneyFromFloat(18.50),
			EstimatedDuration: 25,
		},
		{
			RouteNumber:       "B2",
			Name:              "Pretoria - Centurion Express",
			Description:       "Express service to Centurion",
			Stops:             []domain.Stop{pretoriaStation, centurionMall},
			Fare:              domain.MoneyFromFloat(25.00),
			IsExpress:         true,
			EstimatedDuration: 30,
		},
		{
			RouteNumber:       "C3",
			Name:              "Hatfield - Menlyn",
			Description:       "Eastern route via main shopping areas",
			Stops:             []domain.Stop{hatfield, menlynMall},
			Fare:              domain.MoneyFromFloat(15.00),
			EstimatedDuration: 20,
		},
		{
			RouteNumber:       "D4",
			Name:              "Pretoria - Soshanguve",
			Description:       "Northern suburbs connector",
			Stops:             []domain.Stop{pretoriaStation, soshanguve},
			Fare:              domain.MoneyFromFloat(22.50),
			EstimatedDuration: 45,
		},
		{
			RouteNumber:       "E5",
			Name:              "CBD - Mamelodi Express",
			Description:       "Eastern townships express service",
			Stops:             []domain.Stop{pretoriaStation, mamelodi},
			Fare:              domain.MoneyFromFloat(20.00),
			IsExpress:         true,
			EstimatedDuration: 35,
		},
	}

	weekdayTimes := []string{"06:00", "07:00", "08:00", "09:00", "12:00", "16:00", "17:00", "18:00"}
	weekendTimes := []string{"08:00", "10:00", "12:00", "14:00", "16:00", "18:00"}

	for i := range routes {
		route := &routes[i]
		if present[route.RouteNumber] {
			slog.Info("route exists, skipping", "route", route.RouteNumber)
			continue
		}
		if err := routeSvc.Create(ctx, route); err != nil {
			log.Fatalf("create route %s: %v", route.RouteNumber, err)
		}

		capacity := 60
		if route.IsExpress {
			capacity = 45
		}

		for idx, t := range weekdayTimes {
			schedule := &domain.Schedule{
				RouteID:       route.ID,
				DepartureTime: t,
				DayType:       domain.DayWeekday,
				BusNumber:     fmt.Sprintf("%s%02d", route.RouteNumber, idx+1),
				Capacity:      capacity,
			}
			if err := scheduleSvc.Create(ctx, schedule); err != nil {
				log.Fatalf("create schedule %s %s: %v", route.RouteNumber, t, err)
			}
		}
		for idx, t := range weekendTimes {
			for _, day := range []domain.DayType{domain.DaySaturday, domain.DaySunday} {
				schedule := &domain.Schedule{
					RouteID:       route.ID,
					DepartureTime: t,
					DayType:       day,
					BusNumber:     fmt.Sprintf("%sW%02d", route.RouteNumber, idx+1),
					Capacity:      capacity,
				}
				if err := scheduleSvc.Create(ctx, schedule); err != nil {
					log.Fatalf("create schedule %s %s %s: %v", route.RouteNumber, day, t, err)
				}
			}
		}

		slog.Info("seeded route", "route", route.RouteNumber, "stops", len(route.Stops))
	}

	slog.Info("seeding complete", "routes", len(routes))

	if *publishPositions {
		publishDemoPositions(ctx, cfg.NATS.URL, routes)
	}
}

// publishDemoPositions places each route's first bus at its first stop so a
// fresh environment has something on the live map.
func publishDemoPositions(ctx context.Context, natsURL string, routes []domain.Route) {
	pub, err := natsadapter.NewPublisher(natsURL)
	if err != nil {
		slog.Warn("nats unavailable, skipping demo positions", "error", err)
		return
	}
	defer pub.Close()

	for i := range routes {
		route := &routes[i]
		pos := &domain.BusPosition{
			Time:        time.Now().UTC(),
			BusNumber:   route.RouteNumber + "01",
			RouteNumber: route.RouteNumber,
			Location:    route.Stops[0].Coordinates,
			NextStop:    route.Stops[1].Name,
		}
		if err := pub.PublishBusPosition(ctx, pos); err != nil {
			slog.Warn("publish demo position", "route", route.RouteNumber, "error", err)
		}
	}
	slog.Info("published demo positions", "count", len(routes))
}
