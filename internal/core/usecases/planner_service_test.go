package usecases_test

import (
	"context"
	"testing"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/usecases"
)

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	listFn    func(ctx context.Context) ([]domain.Route, error)
	getByIDFn func(ctx context.Context, id string) (*domain.Route, error)
	searchFn  func(ctx context.Context, query string) ([]domain.Route, error)
	createFn  func(ctx context.Context, r *domain.Route) error
}

func (m *mockRouteRepo) Create(ctx context.Context, r *domain.Route) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}
func (m *mockRouteRepo) Update(ctx context.Context, r *domain.Route) error { return nil }
func (m *mockRouteRepo) Delete(ctx context.Context, id string) error       { return nil }

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRouteRepo) Search(ctx context.Context, query string) ([]domain.Route, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

// --- Fixtures (Tshwane stops) ---

var (
	pretoriaStation = domain.Stop{Name: "Pretoria Station", Coordinates: domain.Coordinate{Latitude: -25.7544, Longitude: 28.1917}}
	churchSquare    = domain.Stop{Name: "Church Square", Coordinates: domain.Coordinate{Latitude: -25.7459, Longitude: 28.1879}}
	hatfield        = domain.Stop{Name: "Hatfield", Coordinates: domain.Coordinate{Latitude: -25.7487, Longitude: 28.2396}}
	menlynMall      = domain.Stop{Name: "Menlyn Mall", Coordinates: domain.Coordinate{Latitude: -25.7827, Longitude: 28.2767}}
	soshanguve      = domain.Stop{Name: "Soshanguve", Coordinates: domain.Coordinate{Latitude: -25.5276, Longitude: 28.0982}}
)

func testRoutes() []domain.Route {
	return []domain.Route{
		{
			ID:          "r-a1",
			RouteNumber: "A1",
			Name:        "Pretoria Central - Hatfield",
			Stops:       []domain.Stop{pretoriaStation, churchSquare, hatfield},
			Fare:        domain.MoneyFromFloat(18.50),
		},
		{
			ID:          "r-c3",
			RouteNumber: "C3",
			Name:        "Hatfield - Menlyn",
			Stops:       []domain.Stop{hatfield, menlynMall},
			Fare:        domain.MoneyFromFloat(15.00),
		},
		{
			ID:          "r-d4",
			RouteNumber: "D4",
			Name:        "Pretoria - Soshanguve",
			Stops:       []domain.Stop{pretoriaStation, soshanguve},
			Fare:        domain.MoneyFromFloat(22.50),
			IsExpress:   true,
		},
	}
}

var (
	nearStation  = domain.Coordinate{Latitude: -25.7544, Longitude: 28.1917}
	nearHatfield = domain.Coordinate{Latitude: -25.7487, Longitude: 28.2396}
)

// --- Tests ---

func TestPlannerService_FindRoutes_MatchesBothEnds(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	planned, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only A1 serves both Pretoria Station and Hatfield within 2 km.
	if len(planned) != 1 {
		t.Fatalf("expected 1 route, got %d", len(planned))
	}
	if planned[0].RouteNumber != "A1" {
		t.Errorf("expected A1, got %s", planned[0].RouteNumber)
	}
}

func TestPlannerService_FindRoutes_FareFormula(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	planned, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planned) == 0 {
		t.Fatal("expected at least one route")
	}

	got := planned[0]
	// TotalDistanceKm is rounded for display while the fare is computed from
	// the raw distance, so the reconstruction can be off by a cent.
	want := domain.MoneyFromFloat(10.00 + got.TotalDistanceKm*1.50)
	if diff := got.Fare - want; diff < -1 || diff > 1 {
		t.Errorf("fare = %s, want %s (distance %.2f km)", got.Fare, want, got.TotalDistanceKm)
	}
	if got.TotalDistanceKm <= 0 {
		t.Errorf("total distance must be positive, got %.2f", got.TotalDistanceKm)
	}
}

func TestPlannerService_FindRoutes_ExpressSurcharge(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	// Station to Soshanguve; only express D4 connects them within 2 km.
	dest := domain.Coordinate{Latitude: -25.5276, Longitude: 28.0982}
	planned, err := svc.FindRoutes(context.Background(), nearStation, dest, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var express *domain.PlannedRoute
	for i := range planned {
		if planned[i].RouteNumber == "D4" {
			express = &planned[i]
		}
	}
	if express == nil {
		t.Fatal("expected express route D4 in results")
	}
	want := domain.MoneyFromFloat(10.00 + express.TotalDistanceKm*1.50 + 5.00)
	if diff := express.Fare - want; diff < -1 || diff > 1 {
		t.Errorf("express fare = %s, want %s", express.Fare, want)
	}
	base := domain.MoneyFromFloat(10.00 + express.TotalDistanceKm*1.50)
	if express.Fare-base < 400 {
		t.Errorf("express fare %s carries no surcharge over base %s", express.Fare, base)
	}
}

func TestPlannerService_FindRoutes_SortedByDistance(t *testing.T) {
	// A wide radius makes several routes qualify.
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	planned, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planned) < 2 {
		t.Fatalf("expected several routes with a 10 km radius, got %d", len(planned))
	}
	for i := 1; i < len(planned); i++ {
		if planned[i].TotalDistanceKm < planned[i-1].TotalDistanceKm {
			t.Errorf("results not sorted: %.2f before %.2f",
				planned[i-1].TotalDistanceKm, planned[i].TotalDistanceKm)
		}
	}
}

func TestPlannerService_FindRoutes_NoMatch(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	// Johannesburg CBD is nowhere near any Tshwane stop.
	origin := domain.Coordinate{Latitude: -26.2041, Longitude: 28.0473}
	planned, err := svc.FindRoutes(context.Background(), origin, nearHatfield, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planned) != 0 {
		t.Errorf("expected no routes, got %d", len(planned))
	}
}

func TestPlannerService_FindRoutes_DefaultRadius(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	withDefault, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	explicit, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, usecases.DefaultRadiusKm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(withDefault) != len(explicit) {
		t.Errorf("default radius differs from explicit 2 km: %d vs %d routes",
			len(withDefault), len(explicit))
	}
}

func TestPlannerService_FindRoutes_InvalidCoordinates(t *testing.T) {
	svc := usecases.NewPlannerService(&mockRouteRepo{}, nil)

	bad := domain.Coordinate{Latitude: -95, Longitude: 28.19}
	if _, err := svc.FindRoutes(context.Background(), bad, nearHatfield, 2); err == nil {
		t.Error("expected error for out-of-range latitude")
	}
}

func TestPlannerService_FindRoutes_MalformedRoute(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return []domain.Route{{ID: "broken", RouteNumber: "X0", Stops: nil}}, nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	if _, err := svc.FindRoutes(context.Background(), nearStation, nearHatfield, 2); err == nil {
		t.Error("expected error for a route with no stops")
	}
}

func TestPlannerService_NearbyStops(t *testing.T) {
	repo := &mockRouteRepo{listFn: func(ctx context.Context) ([]domain.Route, error) {
		return testRoutes(), nil
	}}
	svc := usecases.NewPlannerService(repo, nil)

	stops, err := svc.NearbyStops(context.Background(), nearStation, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) == 0 {
		t.Fatal("expected stops near Pretoria Station")
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].DistanceKm < stops[i-1].DistanceKm {
			t.Errorf("nearby stops not sorted by distance")
		}
	}
	if stops[0].Stop.Name != "Pretoria Station" {
		t.Errorf("expected Pretoria Station closest, got %s", stops[0].Stop.Name)
	}
}
