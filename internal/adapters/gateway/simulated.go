package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
)

// ErrDeclined is returned when the simulated processor refuses a charge.
var ErrDeclined = errors.New("charge declined")

// Simulated implements ports.PaymentGateway without an external processor.
// Every charge succeeds; references starting with a configured deny prefix
// fail, which exercises the rollback path in staging.
type Simulated struct {
	DenyPrefix string
}

func NewSimulated() *Simulated { return &Simulated{} }

func (g *Simulated) Charge(ctx context.Context, method domain.PaymentMethod, amount domain.Money, reference string) error {
	if g.DenyPrefix != "" && strings.HasPrefix(reference, g.DenyPrefix) {
		return ErrDeclined
	}
	slog.Debug("simulated charge approved",
		"method", string(method), "amount", amount.String(), "reference", reference)
	return nil
}
