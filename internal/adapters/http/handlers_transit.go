package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

var validate = validator.New()

// ListRoutesHandler returns all routes with offset pagination.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.Context())
		if err != nil {
			return domainError(c, deps.Debug, err)
		}

		pg := NewPagination(c.QueryInt("offset", 0), c.QueryInt("limit", defaultPageSize), len(routes))
		start, end := pg.Bounds()

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: routes[start:end], Pagination: pg})
	}
}

// GetRouteHandler returns a route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "route not found")
		}
		return c.JSON(route)
	}
}

// SearchRoutesHandler matches routes by number or name.
func SearchRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		routes, err := deps.Routes.Search(c.Context(), query)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(routes)
	}
}

// PlanRouteHandler scores routes between an origin and a destination.
// GET /v1/routes/plan?from_lat=-25.7544&from_lng=28.1917&to_lat=-25.7487&to_lng=28.2396&radius=2
func PlanRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := domain.Coordinate{
			Latitude:  c.QueryFloat("from_lat", 0),
			Longitude: c.QueryFloat("from_lng", 0),
		}
		destination := domain.Coordinate{
			Latitude:  c.QueryFloat("to_lat", 0),
			Longitude: c.QueryFloat("to_lng", 0),
		}
		args := c.Context().QueryArgs()
		for _, param := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
			if !args.Has(param) {
				return errBadRequest(c, "from_lat, from_lng, to_lat and to_lng are required")
			}
		}
		radius := c.QueryFloat("radius", 0)
		if c.Context().QueryArgs().Has("radius") && (radius <= 0.1 || radius > 10) {
			return errBadRequest(c, "radius must be between 0.1 and 10 km")
		}

		metrics.PlanRequests.Inc()
		start := time.Now()
		plans, err := deps.Planner.FindRoutes(c.Context(), origin, destination, radius)
		metrics.PlanDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return domainError(c, deps.Debug, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"routes": plans,
			"count":  len(plans),
		})
	}
}

// NearbyStopsHandler returns stops within a radius of a point, nearest first.
func NearbyStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !c.Context().QueryArgs().Has("lat") || !c.Context().QueryArgs().Has("lng") {
			return errBadRequest(c, "lat and lng are required")
		}
		center := domain.Coordinate{
			Latitude:  c.QueryFloat("lat", 0),
			Longitude: c.QueryFloat("lng", 0),
		}
		radius := c.QueryFloat("radius", 1.0)
		if radius <= 0 || radius > 50 {
			return errBadRequest(c, "radius must be between 0 and 50 km")
		}

		stops, err := deps.Planner.NearbyStops(c.Context(), center, radius)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(stops)
	}
}

// ListSchedulesHandler returns the timetable for a day type.
// GET /v1/bus-schedules?route_id=<uuid>&day_type=weekday
func ListSchedulesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routeID := c.Query("route_id")
		dayType := domain.DayType(c.Query("day_type"))

		schedules, err := deps.Schedules.ListForDay(c.Context(), routeID, dayType)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(schedules)
	}
}

// RouteSchedulesHandler returns all schedules on a route across day types.
func RouteSchedulesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		schedules, err := deps.Schedules.ListByRoute(c.Context(), id)
		if err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(schedules)
	}
}

type stopRequest struct {
	Name      string  `json:"name" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type routeRequest struct {
	RouteNumber       string        `json:"route_number" validate:"required,max=10"`
	Name              string        `json:"name" validate:"required,max=200"`
	Description       string        `json:"description" validate:"max=1000"`
	Stops             []stopRequest `json:"stops" validate:"required,min=2,dive"`
	Fare              float64       `json:"fare" validate:"gte=0"`
	IsExpress         bool          `json:"is_express"`
	EstimatedDuration int           `json:"estimated_duration" validate:"required,min=1"`
}

func (r *routeRequest) toDomain() *domain.Route {
	stops := make([]domain.Stop, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, domain.Stop{
			Name: s.Name,
			Coordinates: domain.Coordinate{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
			},
		})
	}
	return &domain.Route{
		RouteNumber:       r.RouteNumber,
		Name:              r.Name,
		Description:       r.Description,
		Stops:             stops,
		Fare:              domain.MoneyFromFloat(r.Fare),
		IsExpress:         r.IsExpress,
		EstimatedDuration: r.EstimatedDuration,
	}
}

// CreateRouteHandler creates a route (admin).
func CreateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := validate.Struct(&req); err != nil {
			return errValidation(c, err.Error())
		}

		route := req.toDomain()
		if err := deps.Routes.Create(c.Context(), route); err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.Status(201).JSON(route)
	}
}

// UpdateRouteHandler replaces a route (admin).
func UpdateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := validate.Struct(&req); err != nil {
			return errValidation(c, err.Error())
		}

		route := req.toDomain()
		route.ID = id
		if err := deps.Routes.Update(c.Context(), route); err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.JSON(route)
	}
}

// DeleteRouteHandler removes a route (admin).
func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		if err := deps.Routes.Delete(c.Context(), id); err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.SendStatus(204)
	}
}

type scheduleRequest struct {
	RouteID       string `json:"route_id" validate:"required,uuid4"`
	DepartureTime string `json:"departure_time" validate:"required"`
	DayType       string `json:"day_type" validate:"required,oneof=weekday saturday sunday"`
	BusNumber     string `json:"bus_number" validate:"max=20"`
	Capacity      int    `json:"capacity" validate:"gte=0,lte=200"`
}

// CreateScheduleHandler adds a timetabled departure (admin).
func CreateScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req scheduleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := validate.Struct(&req); err != nil {
			return errValidation(c, err.Error())
		}

		schedule := &domain.Schedule{
			RouteID:       req.RouteID,
			DepartureTime: req.DepartureTime,
			DayType:       domain.DayType(req.DayType),
			BusNumber:     req.BusNumber,
			Capacity:      req.Capacity,
		}
		if err := deps.Schedules.Create(c.Context(), schedule); err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.Status(201).JSON(schedule)
	}
}

// DeleteScheduleHandler removes a timetabled departure (admin).
func DeleteScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "schedule id is required")
		}
		if err := deps.Schedules.Delete(c.Context(), id); err != nil {
			return domainError(c, deps.Debug, err)
		}
		return c.SendStatus(204)
	}
}
