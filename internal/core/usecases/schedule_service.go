package usecases

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
)

var departureTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ScheduleService handles timetable reads and administrative CRUD.
type ScheduleService struct {
	schedules ports.ScheduleRepository
	routes    ports.RouteRepository
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(schedules ports.ScheduleRepository, routes ports.RouteRepository) *ScheduleService {
	return &ScheduleService{schedules: schedules, routes: routes}
}

// ListForDay returns active schedules for a day type, optionally filtered by
// route. An empty dayType selects today's timetable.
func (s *ScheduleService) ListForDay(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error) {
	if dayType == "" {
		dayType = domain.DayTypeFor(time.Now())
	}
	switch dayType {
	case domain.DayWeekday, domain.DaySaturday, domain.DaySunday:
	default:
		return nil, fmt.Errorf("%w: unknown day type %q", domain.ErrValidation, dayType)
	}
	return s.schedules.ListByDayType(ctx, routeID, dayType)
}

// ListByRoute returns all schedules on a route across day types.
func (s *ScheduleService) ListByRoute(ctx context.Context, routeID string) ([]domain.Schedule, error) {
	if _, err := s.routes.GetByID(ctx, routeID); err != nil {
		return nil, fmt.Errorf("route %s: %w", routeID, err)
	}
	return s.schedules.ListByRoute(ctx, routeID)
}

// Create validates and stores a new schedule.
func (s *ScheduleService) Create(ctx context.Context, schedule *domain.Schedule) error {
	if !departureTimeRe.MatchString(schedule.DepartureTime) {
		return fmt.Errorf("%w: departure time must be HH:MM", domain.ErrValidation)
	}
	switch schedule.DayType {
	case domain.DayWeekday, domain.DaySaturday, domain.DaySunday:
	default:
		return fmt.Errorf("%w: unknown day type %q", domain.ErrValidation, schedule.DayType)
	}
	if schedule.Capacity <= 0 {
		schedule.Capacity = 60
	}
	if _, err := s.routes.GetByID(ctx, schedule.RouteID); err != nil {
		return fmt.Errorf("route %s: %w", schedule.RouteID, err)
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	return s.schedules.Create(ctx, schedule)
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	return s.schedules.Delete(ctx, id)
}
