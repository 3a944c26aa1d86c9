package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
)

// RouteService handles route reads and administrative CRUD.
type RouteService struct {
	routes ports.RouteRepository
	cache  ports.CacheService
}

// NewRouteService creates a new RouteService.
func NewRouteService(routes ports.RouteRepository, cache ports.CacheService) *RouteService {
	return &RouteService{routes: routes, cache: cache}
}

const routeListCacheKey = "routes:all"

// List returns all routes, cached briefly since route data rarely changes.
func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, routeListCacheKey); err == nil {
			var routes []domain.Route
			if err := json.Unmarshal(data, &routes); err == nil {
				return routes, nil
			}
		}
	}

	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(routes); err == nil {
			_ = s.cache.Set(ctx, routeListCacheKey, data, 300)
		}
	}
	return routes, nil
}

// GetByID returns a single route.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// Search matches routes by number or name.
func (s *RouteService) Search(ctx context.Context, query string) ([]domain.Route, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrValidation)
	}
	return s.routes.Search(ctx, query)
}

// Create validates and stores a new route.
func (s *RouteService) Create(ctx context.Context, route *domain.Route) error {
	if err := validateRoute(route); err != nil {
		return err
	}
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Update validates and replaces an existing route.
func (s *RouteService) Update(ctx context.Context, route *domain.Route) error {
	if err := validateRoute(route); err != nil {
		return err
	}
	if err := s.routes.Update(ctx, route); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Delete removes a route.
func (s *RouteService) Delete(ctx context.Context, id string) error {
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *RouteService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, routeListCacheKey)
	}
}

func validateRoute(route *domain.Route) error {
	if route.RouteNumber == "" || route.Name == "" {
		return fmt.Errorf("%w: route number and name are required", domain.ErrValidation)
	}
	if len(route.Stops) < 2 {
		return fmt.Errorf("%w: a route needs at least 2 stops", domain.ErrValidation)
	}
	for _, stop := range route.Stops {
		if stop.Name == "" || !stop.Coordinates.Valid() {
			return fmt.Errorf("%w: stop %q has invalid coordinates", domain.ErrValidation, stop.Name)
		}
	}
	if route.Fare < 0 {
		return fmt.Errorf("%w: fare must not be negative", domain.ErrInvalidAmount)
	}
	if route.EstimatedDuration < 1 {
		return fmt.Errorf("%w: estimated duration must be at least 1 minute", domain.ErrValidation)
	}
	return nil
}
