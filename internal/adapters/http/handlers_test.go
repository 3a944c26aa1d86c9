package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	handler "github.com/karabomaleka/tshwanebus/internal/adapters/http"
	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
	"github.com/karabomaleka/tshwanebus/internal/core/usecases"
	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

// ---- Mock repositories ----

type mockRouteRepo struct {
	createFn  func(ctx context.Context, route *domain.Route) error
	getByIDFn func(ctx context.Context, id string) (*domain.Route, error)
	listFn    func(ctx context.Context) ([]domain.Route, error)
	searchFn  func(ctx context.Context, query string) ([]domain.Route, error)
}

func (m *mockRouteRepo) Create(ctx context.Context, route *domain.Route) error {
	if m.createFn != nil {
		return m.createFn(ctx, route)
	}
	return nil
}
func (m *mockRouteRepo) Update(ctx context.Context, route *domain.Route) error { return nil }
func (m *mockRouteRepo) Delete(ctx context.Context, id string) error           { return nil }
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

type mockScheduleRepo struct {
	listByDayTypeFn func(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error)
	listByRouteFn   func(ctx context.Context, routeID string) ([]domain.Schedule, error)
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *domain.Schedule) error { return nil }
func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error                 { return nil }
func (m *mockScheduleRepo) ListByDayType(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error) {
	if m.listByDayTypeFn != nil {
		return m.listByDayTypeFn(ctx, routeID, dayType)
	}
	return nil, nil
}
func (m *mockScheduleRepo) ListByRoute(ctx context.Context, routeID string) ([]domain.Schedule, error) {
	if m.listByRouteFn != nil {
		return m.listByRouteFn(ctx, routeID)
	}
	return nil, nil
}

type mockWalletRepo struct {
	getByUserIDFn func(ctx context.Context, userID string) (*domain.Wallet, error)
}

func (m *mockWalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}
	return &domain.Wallet{ID: "w1", UserID: userID, Balance: domain.MoneyFromFloat(100), Currency: "ZAR"}, nil
}
func (m *mockWalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error { return nil }
func (m *mockWalletRepo) RecentTransactions(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	return nil, nil
}

type mockTicketRepo struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Ticket, error)
	activeByUserFn func(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockTicketRepo) ActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
	if m.activeByUserFn != nil {
		return m.activeByUserFn(ctx, userID, now)
	}
	return nil, nil
}

// mockTx backs mockUOW with a fixed wallet balance. Writes succeed unless a
// function field overrides them.
type mockTx struct {
	balance   domain.Money
	debitFn   func(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error)
	txnByIDFn func(ctx context.Context, id string) (*domain.Transaction, error)
}

func (m *mockTx) WalletForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return &domain.Wallet{ID: "w1", UserID: userID, Balance: m.balance, Currency: "ZAR"}, nil
}
func (m *mockTx) CreditWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error) {
	m.balance += amount
	return m.balance, nil
}
func (m *mockTx) DebitWallet(ctx context.Context, walletID string, amount domain.Money) (domain.Money, error) {
	if m.debitFn != nil {
		return m.debitFn(ctx, walletID, amount)
	}
	if m.balance < amount {
		return 0, domain.ErrInsufficientBalance
	}
	m.balance -= amount
	return m.balance, nil
}
func (m *mockTx) CreateTransaction(ctx context.Context, txn *domain.Transaction) error { return nil }
func (m *mockTx) SetTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	return nil
}
func (m *mockTx) TransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.txnByIDFn != nil {
		return m.txnByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockTx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error { return nil }
func (m *mockTx) SetTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) error {
	return nil
}

type mockUOW struct {
	tx ports.PaymentTx
}

func (m *mockUOW) WithinTx(ctx context.Context, fn func(tx ports.PaymentTx) error) error {
	return fn(m.tx)
}

type mockGateway struct {
	chargeFn func(ctx context.Context, method domain.PaymentMethod, amount domain.Money, reference string) error
}

func (m *mockGateway) Charge(ctx context.Context, method domain.PaymentMethod, amount domain.Money, reference string) error {
	if m.chargeFn != nil {
		return m.chargeFn(ctx, method, amount, reference)
	}
	return nil
}

type mockAuth struct{}

func (m *mockAuth) UserIDForToken(ctx context.Context, token string) (string, error) {
	if token == "test-token" {
		return "user-1", nil
	}
	return "", domain.ErrUnauthenticated
}

type mockPublisher struct {
	refundFn func(ctx context.Context, ticketID, userID string) error
}

func (m *mockPublisher) PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error {
	return nil
}
func (m *mockPublisher) PublishWalletTopup(ctx context.Context, txn *domain.Transaction) error {
	return nil
}
func (m *mockPublisher) PublishRefundRequested(ctx context.Context, ticketID, userID string) error {
	if m.refundFn != nil {
		return m.refundFn(ctx, ticketID, userID)
	}
	return nil
}
func (m *mockPublisher) PublishBusPosition(ctx context.Context, pos *domain.BusPosition) error {
	return nil
}

// ---- Test helpers ----

const tshwaneRouteID = "8d2f64f7-56a1-4a83-9a1e-1f5a0e3d9b42"

func tshwaneRoute() domain.Route {
	return domain.Route{
		ID:          tshwaneRouteID,
		RouteNumber: "A1",
		Name:        "Pretoria CBD - Hatfield",
		Stops: []domain.Stop{
			{Name: "Pretoria Station", Coordinates: domain.Coordinate{Latitude: -25.7544, Longitude: 28.1917}},
			{Name: "Church Square", Coordinates: domain.Coordinate{Latitude: -25.7459, Longitude: 28.1879}},
			{Name: "Hatfield", Coordinates: domain.Coordinate{Latitude: -25.7487, Longitude: 28.2396}},
		},
		Fare:              domain.MoneyFromFloat(18.50),
		EstimatedDuration: 25,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	routes := &mockRouteRepo{}
	d := &handler.Dependencies{
		Routes:    usecases.NewRouteService(routes, nil),
		Planner:   usecases.NewPlannerService(routes, nil),
		Schedules: usecases.NewScheduleService(&mockScheduleRepo{}, routes),
		Payments: usecases.NewPaymentService(routes, &mockWalletRepo{}, &mockTicketRepo{},
			&mockUOW{tx: &mockTx{balance: domain.MoneyFromFloat(100)}}, &mockGateway{}, nil),
		Auth: &mockAuth{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---- Route handler tests ----

func TestListRoutes_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{tshwaneRoute(), {ID: "r2", RouteNumber: "B2", Name: "CBD - Menlyn Express"}}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Route `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 routes, got %d", len(result.Data))
	}
}

func TestListRoutes_Pagination(t *testing.T) {
	routes := make([]domain.Route, 5)
	for i := range routes {
		routes[i] = domain.Route{ID: fmt.Sprintf("r%d", i), RouteNumber: fmt.Sprintf("A%d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) { return routes, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Route `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 routes in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestGetRoute_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/routes/unknown", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found error, got %s", apiErr.Code)
	}
}

func TestSearchRoutes_MissingQuery(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/routes/search", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchRoutes_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRouteRepo{
			searchFn: func(ctx context.Context, query string) ([]domain.Route, error) {
				if !strings.EqualFold(query, "hatfield") {
					t.Errorf("unexpected query %q", query)
				}
				return []domain.Route{tshwaneRoute()}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes/search?q=hatfield", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var routes []domain.Route
	json.NewDecoder(resp.Body).Decode(&routes)
	if len(routes) != 1 {
		t.Errorf("expected 1 route, got %d", len(routes))
	}
}

// ---- Planner handler tests ----

func TestPlanRoute_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Planner = usecases.NewPlannerService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{tshwaneRoute()}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	// Origin near Pretoria Station, destination near Hatfield.
	req := httptest.NewRequest("GET",
		"/v1/routes/plan?from_lat=-25.7540&from_lng=28.1920&to_lat=-25.7490&to_lng=28.2390", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Routes []domain.PlannedRoute `json:"routes"`
		Count  int                   `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 planned route, got %d", result.Count)
	}
	if result.Routes[0].RouteNumber != "A1" {
		t.Errorf("expected route A1, got %s", result.Routes[0].RouteNumber)
	}
	if result.Routes[0].TotalDistanceKm <= 0 {
		t.Errorf("expected positive distance, got %f", result.Routes[0].TotalDistanceKm)
	}
}

func TestPlanRoute_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	// Every coordinate parameter is required; a missing longitude must not
	// silently plan against longitude 0.
	urls := []string{
		"/v1/routes/plan?from_lat=-25.75",
		"/v1/routes/plan?from_lat=-25.75&to_lat=-25.74&to_lng=28.23",
		"/v1/routes/plan?from_lat=-25.75&from_lng=28.19&to_lat=-25.74",
	}
	for _, url := range urls {
		req := httptest.NewRequest("GET", url, nil)
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", url, resp.StatusCode)
		}
	}
}

func TestPlanRoute_CountsRequests(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Planner = usecases.NewPlannerService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{tshwaneRoute()}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	before := testutil.ToFloat64(metrics.PlanRequests)
	req := httptest.NewRequest("GET",
		"/v1/routes/plan?from_lat=-25.7540&from_lng=28.1920&to_lat=-25.7490&to_lng=28.2390", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := testutil.ToFloat64(metrics.PlanRequests) - before; got != 1 {
		t.Errorf("plan request counter delta = %v, want 1", got)
	}
}

func TestPlanRoute_InvalidCoordinates(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET",
		"/v1/routes/plan?from_lat=120&from_lng=28.19&to_lat=-25.74&to_lng=28.23", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestNearbyStops_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Planner = usecases.NewPlannerService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{tshwaneRoute()}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/bus-stops/nearby?lat=-25.7544&lng=28.1917&radius=1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stops []usecases.NearbyStop
	json.NewDecoder(resp.Body).Decode(&stops)
	if len(stops) == 0 {
		t.Fatal("expected at least one nearby stop")
	}
	if stops[0].Stop.Name != "Pretoria Station" {
		t.Errorf("expected nearest stop Pretoria Station, got %s", stops[0].Stop.Name)
	}
}

func TestNearbyStops_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/bus-stops/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyStops_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/bus-stops/nearby?lat=-25.75&lng=28.19&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Schedule handler tests ----

func TestListSchedules_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Schedules = usecases.NewScheduleService(&mockScheduleRepo{
			listByDayTypeFn: func(ctx context.Context, routeID string, dayType domain.DayType) ([]domain.Schedule, error) {
				if dayType != domain.DaySaturday {
					t.Errorf("expected saturday, got %s", dayType)
				}
				return []domain.Schedule{
					{ID: "s1", RouteID: tshwaneRouteID, DepartureTime: "08:00", DayType: domain.DaySaturday},
				}, nil
			},
		}, &mockRouteRepo{})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/bus-schedules?day_type=saturday", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var schedules []domain.Schedule
	json.NewDecoder(resp.Body).Decode(&schedules)
	if len(schedules) != 1 {
		t.Errorf("expected 1 schedule, got %d", len(schedules))
	}
}

func TestListSchedules_BadDayType(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/bus-schedules?day_type=holiday", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

// ---- Wallet handler tests ----

func TestGetWallet_RequiresAuth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/wallet", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "unauthorized" {
		t.Errorf("expected unauthorized error, got %s", apiErr.Code)
	}
}

func TestGetWallet_RejectsBadToken(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestGetWallet_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Wallet domain.Wallet `json:"wallet"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Wallet.UserID != "user-1" {
		t.Errorf("expected wallet for user-1, got %s", result.Wallet.UserID)
	}
	if result.Wallet.Balance != domain.MoneyFromFloat(100) {
		t.Errorf("expected balance 100.00, got %s", result.Wallet.Balance)
	}
}

func TestTopUpWallet_Success(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"amount": 50, "payment_method": "credit_card"}`
	req := httptest.NewRequest("POST", "/v1/wallet/topup", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Balance     domain.Money       `json:"balance"`
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Balance != domain.MoneyFromFloat(150) {
		t.Errorf("expected balance 150.00, got %s", result.Balance)
	}
	if result.Transaction.Status != domain.TransactionCompleted {
		t.Errorf("expected completed transaction, got %s", result.Transaction.Status)
	}
	if !strings.HasPrefix(result.Transaction.Reference, "TOP") {
		t.Errorf("expected TOP reference, got %s", result.Transaction.Reference)
	}
}

func TestTopUpWallet_BelowMinimum(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"amount": 5, "payment_method": "credit_card"}`
	req := httptest.NewRequest("POST", "/v1/wallet/topup", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestTopUpWallet_UnknownMethod(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"amount": 50, "payment_method": "cheque"}`
	req := httptest.NewRequest("POST", "/v1/wallet/topup", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

// ---- Ticket handler tests ----

func TestPurchaseTicket_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		routes := &mockRouteRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
				r := tshwaneRoute()
				return &r, nil
			},
		}
		d.Payments = usecases.NewPaymentService(routes, &mockWalletRepo{}, &mockTicketRepo{},
			&mockUOW{tx: &mockTx{balance: domain.MoneyFromFloat(100)}}, &mockGateway{}, nil)
	})
	app := setupApp(deps)

	departure := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := fmt.Sprintf(`{"route_id": %q, "departure_time": %q}`, tshwaneRouteID, departure)
	req := httptest.NewRequest("POST", "/v1/tickets/purchase", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Ticket  domain.Ticket `json:"ticket"`
		Balance domain.Money  `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Ticket.Status != domain.TicketActive {
		t.Errorf("expected active ticket, got %s", result.Ticket.Status)
	}
	if len(result.Ticket.QRCode) != 32 {
		t.Errorf("expected 32-char QR code, got %d chars", len(result.Ticket.QRCode))
	}
	if result.Balance != domain.MoneyFromFloat(81.50) {
		t.Errorf("expected balance 81.50, got %s", result.Balance)
	}
}

func TestPurchaseTicket_CountsIssuedTickets(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		routes := &mockRouteRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
				r := tshwaneRoute()
				return &r, nil
			},
		}
		d.Payments = usecases.NewPaymentService(routes, &mockWalletRepo{}, &mockTicketRepo{},
			&mockUOW{tx: &mockTx{balance: domain.MoneyFromFloat(100)}}, &mockGateway{}, nil)
	})
	app := setupApp(deps)

	before := testutil.ToFloat64(metrics.TicketsIssued.WithLabelValues("A1"))

	departure := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := fmt.Sprintf(`{"route_id": %q, "departure_time": %q}`, tshwaneRouteID, departure)
	req := httptest.NewRequest("POST", "/v1/tickets/purchase", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Ticket domain.Ticket `json:"ticket"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Ticket.RouteNumber != "A1" {
		t.Errorf("expected issued ticket to carry route number A1, got %q", result.Ticket.RouteNumber)
	}
	if got := testutil.ToFloat64(metrics.TicketsIssued.WithLabelValues("A1")) - before; got != 1 {
		t.Errorf("issued ticket counter delta = %v, want 1", got)
	}
}

func TestPurchaseTicket_InsufficientBalance(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		routes := &mockRouteRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
				r := tshwaneRoute()
				return &r, nil
			},
		}
		d.Payments = usecases.NewPaymentService(routes, &mockWalletRepo{}, &mockTicketRepo{},
			&mockUOW{tx: &mockTx{balance: domain.MoneyFromFloat(5)}}, &mockGateway{}, nil)
	})
	app := setupApp(deps)

	before := testutil.ToFloat64(metrics.InsufficientBalance)

	departure := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := fmt.Sprintf(`{"route_id": %q, "departure_time": %q}`, tshwaneRouteID, departure)
	req := httptest.NewRequest("POST", "/v1/tickets/purchase", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 402 {
		t.Fatalf("expected 402, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "insufficient_balance" {
		t.Errorf("expected insufficient_balance error, got %s", apiErr.Code)
	}
	if got := testutil.ToFloat64(metrics.InsufficientBalance) - before; got != 1 {
		t.Errorf("insufficient balance counter delta = %v, want 1", got)
	}
}

func TestPurchaseTicket_MissingRouteID(t *testing.T) {
	app := setupApp(makeDeps())

	departure := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := fmt.Sprintf(`{"departure_time": %q}`, departure)
	req := httptest.NewRequest("POST", "/v1/tickets/purchase", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestActiveTickets_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		tickets := &mockTicketRepo{
			activeByUserFn: func(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
				return []domain.Ticket{
					{ID: "t1", UserID: userID, Status: domain.TicketActive, RouteNumber: "A1"},
				}, nil
			},
		}
		d.Payments = usecases.NewPaymentService(&mockRouteRepo{}, &mockWalletRepo{}, tickets,
			&mockUOW{tx: &mockTx{}}, &mockGateway{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tickets/active", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Tickets []domain.Ticket `json:"tickets"`
		Count   int             `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Errorf("expected 1 ticket, got %d", result.Count)
	}
}

func TestRefundTicket_Queued(t *testing.T) {
	var published bool
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Publisher = &mockPublisher{
			refundFn: func(ctx context.Context, ticketID, userID string) error {
				published = true
				if ticketID != "t1" || userID != "user-1" {
					t.Errorf("unexpected refund request %s/%s", ticketID, userID)
				}
				return nil
			},
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/tickets/t1/refund", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if !published {
		t.Error("expected refund request to be published")
	}

	var result struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Status != "refund_queued" {
		t.Errorf("expected refund_queued, got %s", result.Status)
	}
}

func TestRefundTicket_Inline(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		tickets := &mockTicketRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
				return &domain.Ticket{
					ID: id, UserID: "user-1", TransactionID: "txn-1",
					Status: domain.TicketActive,
				}, nil
			},
		}
		tx := &mockTx{
			balance: domain.MoneyFromFloat(81.50),
			txnByIDFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
				return &domain.Transaction{
					ID: id, Type: domain.TransactionPurchase,
					Amount: domain.MoneyFromFloat(18.50), Status: domain.TransactionCompleted,
					Reference: "TIX17370321544821",
				}, nil
			},
		}
		d.Payments = usecases.NewPaymentService(&mockRouteRepo{}, &mockWalletRepo{}, tickets,
			&mockUOW{tx: tx}, &mockGateway{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/tickets/t1/refund", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Status  string       `json:"status"`
		Balance domain.Money `json:"balance"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Status != "refunded" {
		t.Errorf("expected refunded, got %s", result.Status)
	}
	if result.Balance != domain.MoneyFromFloat(100) {
		t.Errorf("expected balance 100.00, got %s", result.Balance)
	}
}

// ---- Admin handler tests ----

func TestCreateRoute_Success(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{
		"route_number": "F6",
		"name": "CBD - Wonderboom",
		"stops": [
			{"name": "Church Square", "latitude": -25.7459, "longitude": 28.1879},
			{"name": "Wonderboom", "latitude": -25.6552, "longitude": 28.2041}
		],
		"fare": 16.00,
		"estimated_duration": 35
	}`
	req := httptest.NewRequest("POST", "/v1/admin/routes", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var route domain.Route
	json.NewDecoder(resp.Body).Decode(&route)
	if route.ID == "" {
		t.Error("expected route ID to be assigned")
	}
	if route.Fare != domain.MoneyFromFloat(16) {
		t.Errorf("expected fare 16.00, got %s", route.Fare)
	}
}

func TestCreateRoute_SingleStop(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{
		"route_number": "F6",
		"name": "CBD - Wonderboom",
		"stops": [{"name": "Church Square", "latitude": -25.7459, "longitude": 28.1879}],
		"fare": 16.00,
		"estimated_duration": 35
	}`
	req := httptest.NewRequest("POST", "/v1/admin/routes", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateRoute_RequiresAuth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/admin/routes", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_Routes(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRouteRepo{
			listFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{tshwaneRoute()}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	body := `{"query": "{ routes { route_number name } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Routes []struct {
				RouteNumber string `json:"route_number"`
			} `json:"routes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data.Routes) != 1 || result.Data.Routes[0].RouteNumber != "A1" {
		t.Errorf("unexpected graphql result: %+v", result.Data.Routes)
	}
}
