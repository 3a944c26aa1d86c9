package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository. Stops are stored as a JSONB
// array preserving traversal order.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const routeColumns = `id, route_number, name, COALESCE(description, ''), stops, fare_cents, is_express, estimated_duration, created_at`

func (r *RouteRepo) Create(ctx context.Context, route *domain.Route) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO bus_routes (id, route_number, name, description, stops, fare_cents, is_express, estimated_duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, route.ID, route.RouteNumber, route.Name, route.Description,
		stops, int64(route.Fare), route.IsExpress, route.EstimatedDuration)
	return mapError(err)
}

func (r *RouteRepo) Update(ctx context.Context, route *domain.Route) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE bus_routes
		SET route_number = $2, name = $3, description = $4, stops = $5,
		    fare_cents = $6, is_express = $7, estimated_duration = $8
		WHERE id = $1
	`, route.ID, route.RouteNumber, route.Name, route.Description,
		stops, int64(route.Fare), route.IsExpress, route.EstimatedDuration)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RouteRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM bus_routes WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+routeColumns+` FROM bus_routes WHERE id = $1
	`, id)
	return scanRoute(row)
}

func (r *RouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+routeColumns+` FROM bus_routes ORDER BY route_number
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *rt)
	}
	return routes, rows.Err()
}

func (r *RouteRepo) Search(ctx context.Context, query string) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+routeColumns+` FROM bus_routes
		WHERE route_number ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY route_number
	`, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *rt)
	}
	return routes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var rt domain.Route
	var stops []byte
	var fareCents int64
	if err := row.Scan(&rt.ID, &rt.RouteNumber, &rt.Name, &rt.Description,
		&stops, &fareCents, &rt.IsExpress, &rt.EstimatedDuration, &rt.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	if err := json.Unmarshal(stops, &rt.Stops); err != nil {
		return nil, fmt.Errorf("unmarshal stops: %w", err)
	}
	rt.Fare = domain.Money(fareCents)
	return &rt, nil
}
