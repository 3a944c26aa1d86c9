package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
	"github.com/karabomaleka/tshwanebus/internal/pkg/geospatial"
)

// DefaultRadiusKm is applied when the caller does not specify a search radius.
const DefaultRadiusKm = 2.0

// Fare model constants for planning estimates. Ticket purchase charges the
// route's stored fare, not this estimate.
const (
	baseFare         = 10.00
	farePerKm        = 1.50
	expressSurcharge = 5.00
	averageSpeedKmh  = 30.0
)

// PlannerService scores routes against an origin/destination pair.
type PlannerService struct {
	routes ports.RouteRepository
	cache  ports.CacheService
}

// NewPlannerService creates a new PlannerService.
func NewPlannerService(routes ports.RouteRepository, cache ports.CacheService) *PlannerService {
	return &PlannerService{routes: routes, cache: cache}
}

// NearbyStop is a stop within a radius of a query point, annotated with the
// route that serves it.
type NearbyStop struct {
	Stop        domain.Stop `json:"stop"`
	RouteNumber string      `json:"route_number"`
	RouteID     string      `json:"route_id"`
	DistanceKm  float64     `json:"distance_km"`
}

// FindRoutes returns every route with at least one stop within radiusKm of
// the origin and one within radiusKm of the destination, scored by total
// travel distance and sorted ascending. The matched stops are not required
// to be distinct or ordered along the route; that looseness is intentional
// and changing it would change observable rankings.
func (s *PlannerService) FindRoutes(ctx context.Context, origin, destination domain.Coordinate, radiusKm float64) ([]domain.PlannedRoute, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	cacheKey := fmt.Sprintf("plan:%.4f:%.4f:%.4f:%.4f:%.1f",
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude, radiusKm)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var planned []domain.PlannedRoute
			if err := json.Unmarshal(data, &planned); err == nil {
				return planned, nil
			}
		}
	}

	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	var planned []domain.PlannedRoute
	for i := range routes {
		route := &routes[i]
		if len(route.Stops) == 0 {
			return nil, fmt.Errorf("route %s has no stops", route.ID)
		}
		if len(nearbyStops(route.Stops, origin, radiusKm)) == 0 ||
			len(nearbyStops(route.Stops, destination, radiusKm)) == 0 {
			continue
		}
		planned = append(planned, scoreRoute(route, origin, destination))
	}

	// Stable keeps input order for equal distances.
	sort.SliceStable(planned, func(i, j int) bool {
		return planned[i].TotalDistanceKm < planned[j].TotalDistanceKm
	})

	if s.cache != nil {
		if data, err := json.Marshal(planned); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return planned, nil
}

// NearbyStops returns stops from all routes within radiusKm of center,
// sorted ascending by distance.
func (s *PlannerService) NearbyStops(ctx context.Context, center domain.Coordinate, radiusKm float64) ([]NearbyStop, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	var found []NearbyStop
	for i := range routes {
		route := &routes[i]
		for _, stop := range route.Stops {
			d := distance(center, stop.Coordinates)
			if d <= radiusKm {
				found = append(found, NearbyStop{
					Stop:        stop,
					RouteNumber: route.RouteNumber,
					RouteID:     route.ID,
					DistanceKm:  round2(d),
				})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].DistanceKm < found[j].DistanceKm
	})
	return found, nil
}

// nearbyStops returns every stop within radiusKm of center.
func nearbyStops(stops []domain.Stop, center domain.Coordinate, radiusKm float64) []domain.Stop {
	var near []domain.Stop
	for _, stop := range stops {
		if distance(center, stop.Coordinates) <= radiusKm {
			near = append(near, stop)
		}
	}
	return near
}

// scoreRoute walks the full stop chain from origin to destination and derives
// the planning estimates.
func scoreRoute(route *domain.Route, origin, destination domain.Coordinate) domain.PlannedRoute {
	total := totalRouteDistance(route.Stops, origin, destination)

	return domain.PlannedRoute{
		RouteID:           route.ID,
		RouteNumber:       route.RouteNumber,
		Name:              route.Name,
		IsExpress:         route.IsExpress,
		TotalDistanceKm:   round2(total),
		EstimatedDuration: estimatedMinutes(total),
		Fare:              planningFare(route.IsExpress, total),
		Stops:             route.Stops,
	}
}

// totalRouteDistance is origin to the first stop, then every consecutive stop
// pair, then the last stop to the destination. The full chain is always
// walked regardless of which stops matched the radius filter.
func totalRouteDistance(stops []domain.Stop, origin, destination domain.Coordinate) float64 {
	total := distance(origin, stops[0].Coordinates)
	for i := 0; i < len(stops)-1; i++ {
		total += distance(stops[i].Coordinates, stops[i+1].Coordinates)
	}
	total += distance(stops[len(stops)-1].Coordinates, destination)
	return total
}

// estimatedMinutes assumes a 30 km/h average speed.
func estimatedMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / averageSpeedKmh * 60))
}

// planningFare is base + per-km + express surcharge, rounded to cents.
func planningFare(isExpress bool, distanceKm float64) domain.Money {
	fare := baseFare + distanceKm*farePerKm
	if isExpress {
		fare += expressSurcharge
	}
	return domain.MoneyFromFloat(fare)
}

func distance(a, b domain.Coordinate) float64 {
	return geospatial.Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
