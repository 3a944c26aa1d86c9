package domain

import (
	"time"
)

// Stop is a named halt on a route. Order within Route.Stops is the physical
// traversal order of the route.
type Stop struct {
	Name        string     `json:"name"`
	Coordinates Coordinate `json:"coordinates"`
}

// Route represents a bus route with its ordered stop sequence.
type Route struct {
	ID                string    `json:"id"`
	RouteNumber       string    `json:"route_number"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Stops             []Stop    `json:"stops"`
	Fare              Money     `json:"fare"`
	IsExpress         bool      `json:"is_express"`
	EstimatedDuration int       `json:"estimated_duration"` // minutes
	CreatedAt         time.Time `json:"created_at"`
}

// PlannedRoute is a route scored against an origin/destination pair.
// Derived per request, never persisted.
type PlannedRoute struct {
	RouteID           string  `json:"route_id"`
	RouteNumber       string  `json:"route_number"`
	Name              string  `json:"name"`
	IsExpress         bool    `json:"is_express"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	EstimatedDuration int     `json:"estimated_duration"` // minutes
	Fare              Money   `json:"fare"`
	Stops             []Stop  `json:"stops"`
}

// DayType selects which timetable a schedule belongs to.
type DayType string

const (
	DayWeekday  DayType = "weekday"
	DaySaturday DayType = "saturday"
	DaySunday   DayType = "sunday"
)

// DayTypeFor returns the timetable day type for a given date.
func DayTypeFor(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday:
		return DaySaturday
	case time.Sunday:
		return DaySunday
	default:
		return DayWeekday
	}
}

// Schedule is a timetabled departure on a route.
type Schedule struct {
	ID            string    `json:"id"`
	RouteID       string    `json:"route_id"`
	DepartureTime string    `json:"departure_time"` // "HH:MM"
	DayType       DayType   `json:"day_type"`
	IsActive      bool      `json:"is_active"`
	BusNumber     string    `json:"bus_number,omitempty"`
	Capacity      int       `json:"capacity"`
	CreatedAt     time.Time `json:"created_at"`
}

// Wallet holds a user's non-negative stored balance. Mutated only through
// credit/debit inside a payment unit of work.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   Money     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// CanAfford reports whether the balance covers the given amount.
func (w *Wallet) CanAfford(amount Money) bool {
	return w.Balance >= amount
}

// TransactionType classifies a wallet transaction.
type TransactionType string

const (
	TransactionTopup    TransactionType = "topup"
	TransactionPurchase TransactionType = "ticket_purchase"
	TransactionRefund   TransactionType = "refund"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// PaymentMethod is the external payment instrument used for a topup.
type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodInstantEFT PaymentMethod = "instant_eft"
	MethodDebitCard  PaymentMethod = "debit_card"
)

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCreditCard, MethodInstantEFT, MethodDebitCard:
		return true
	}
	return false
}

// Transaction is an append-only audit record of a wallet movement. A row is
// created pending before any side effect and flipped to completed only once
// the side effect has durably committed.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	WalletID      string            `json:"wallet_id"`
	Type          TransactionType   `json:"type"`
	Amount        Money             `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Reference     string            `json:"reference"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

// TicketValidity is the window a ticket stays usable after its departure time.
const TicketValidity = 4 * time.Hour

// Ticket is an issued fare product, created atomically with its purchase
// transaction.
type Ticket struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	RouteID       string         `json:"route_id"`
	TransactionID string         `json:"transaction_id"`
	ValidFrom     time.Time      `json:"valid_from"`
	ValidUntil    time.Time      `json:"valid_until"`
	Status        TicketStatus   `json:"status"`
	QRCode        string         `json:"qr_code"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	RouteName     string         `json:"route_name,omitempty"`
	RouteNumber   string         `json:"route_number,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// IsValid reports whether the ticket is usable at the given time.
func (t *Ticket) IsValid(now time.Time) bool {
	return t.Status == TicketActive &&
		!now.Before(t.ValidFrom) && !now.After(t.ValidUntil)
}

// BusPosition is a real-time bus location reading relayed to clients.
// The core never fabricates these; they arrive from an external feed.
type BusPosition struct {
	Time        time.Time  `json:"time"`
	BusNumber   string     `json:"bus_number"`
	RouteNumber string     `json:"route_number"`
	Location    Coordinate `json:"location"`
	Heading     float64    `json:"heading"`
	SpeedKmh    float64    `json:"speed_kmh"`
	NextStop    string     `json:"next_stop,omitempty"`
}
