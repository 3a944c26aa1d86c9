package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: coordinateType},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"route_number":       &graphql.Field{Type: graphql.String},
			"name":               &graphql.Field{Type: graphql.String},
			"description":        &graphql.Field{Type: graphql.String},
			"stops":              &graphql.Field{Type: graphql.NewList(stopType)},
			"fare":               &graphql.Field{Type: graphql.Float},
			"is_express":         &graphql.Field{Type: graphql.Boolean},
			"estimated_duration": &graphql.Field{Type: graphql.Int},
		},
	})

	plannedRouteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlannedRoute",
		Fields: graphql.Fields{
			"route_id":           &graphql.Field{Type: graphql.String},
			"route_number":       &graphql.Field{Type: graphql.String},
			"name":               &graphql.Field{Type: graphql.String},
			"is_express":         &graphql.Field{Type: graphql.Boolean},
			"total_distance_km":  &graphql.Field{Type: graphql.Float},
			"estimated_duration": &graphql.Field{Type: graphql.Int},
			"fare":               &graphql.Field{Type: graphql.Float},
			"stops":              &graphql.Field{Type: graphql.NewList(stopType)},
		},
	})

	nearbyStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyStop",
		Fields: graphql.Fields{
			"name":         &graphql.Field{Type: graphql.String},
			"coordinates":  &graphql.Field{Type: coordinateType},
			"route_number": &graphql.Field{Type: graphql.String},
			"distance_km":  &graphql.Field{Type: graphql.Float},
		},
	})

	scheduleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Schedule",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"route_id":       &graphql.Field{Type: graphql.String},
			"departure_time": &graphql.Field{Type: graphql.String},
			"day_type":       &graphql.Field{Type: graphql.String},
			"bus_number":     &graphql.Field{Type: graphql.String},
			"capacity":       &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List all bus routes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.List(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Routes.GetByID(p.Context, id)
				},
			},
			"searchRoutes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Search routes by number or name",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					return deps.Routes.Search(p.Context, q)
				},
			},
			"planRoute": &graphql.Field{
				Type:        graphql.NewList(plannedRouteType),
				Description: "Score routes between an origin and a destination",
				Args: graphql.FieldConfigArgument{
					"from_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"from_lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lng":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.Coordinate{
						Latitude:  p.Args["from_lat"].(float64),
						Longitude: p.Args["from_lng"].(float64),
					}
					destination := domain.Coordinate{
						Latitude:  p.Args["to_lat"].(float64),
						Longitude: p.Args["to_lng"].(float64),
					}
					radius := p.Args["radius"].(float64)
					return deps.Planner.FindRoutes(p.Context, origin, destination, radius)
				},
			},
			"nearbyStops": &graphql.Field{
				Type:        graphql.NewList(nearbyStopType),
				Description: "Find stops near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.Coordinate{
						Latitude:  p.Args["lat"].(float64),
						Longitude: p.Args["lng"].(float64),
					}
					radius := p.Args["radius"].(float64)
					return deps.Planner.NearbyStops(p.Context, center, radius)
				},
			},
			"schedules": &graphql.Field{
				Type:        graphql.NewList(scheduleType),
				Description: "Timetable for a day type, optionally filtered by route",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"day_type": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					routeID := p.Args["route_id"].(string)
					dayType := domain.DayType(p.Args["day_type"].(string))
					return deps.Schedules.ListForDay(p.Context, routeID, dayType)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
