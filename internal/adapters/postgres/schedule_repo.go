package postgres

import (
	"context"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// ScheduleRepo implements ports.ScheduleRepository.
type ScheduleRepo struct {
	db *DB
}

func NewScheduleRepo(db *DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func (r *ScheduleRepo) Create(ctx context.Context, schedule *domain.Schedule) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO bus_schedules (id, route_id, departure_time, day_type, is_active, bus_number, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, schedule.ID, schedule.RouteID, schedule.DepartureTime, schedule.DayType,
		true, schedule.BusNumber, schedule.Capacity)
	return mapError(err)
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM bus_schedules WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) ListByDayType(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, route_id, departure_time, day_type, is_active, COALESCE(bus_number, ''), capacity, created_at
		FROM bus_schedules
		WHERE day_type = $1 AND is_active
		  AND ($2 = '' OR route_id = $2::uuid)
		ORDER BY departure_time
	`, dayType, routeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (r *ScheduleRepo) ListByRoute(ctx context.Context, routeID string) ([]domain.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, route_id, departure_time, day_type, is_active, COALESCE(bus_number, ''), capacity, created_at
		FROM bus_schedules
		WHERE route_id = $1
		ORDER BY day_type, departure_time
	`, routeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ID, &s.RouteID, &s.DepartureTime, &s.DayType,
			&s.IsActive, &s.BusNumber, &s.Capacity, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
