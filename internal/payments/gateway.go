// Package payments simulates external payment gateways (CMI card rails and
// PayPal). A successful attempt invokes the engine's settlement operation
// exactly once; the engine's idempotency makes gateway retries harmless.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

// Method identifies a simulated settlement rail.
type Method string

const (
	MethodCMI    Method = "CMI"
	MethodPayPal Method = "PAYPAL"
)

// Result is the outcome of one settlement attempt.
type Result struct {
	Success bool
	Message string
}

// Settler is the single mutating entry point the gateway calls on success.
// Satisfied by the lifecycle engine.
type Settler interface {
	RecordPayment(ctx context.Context, groupID, userID, method string) error
}

// Gateway simulates external settlement with per-method success rates.
type Gateway struct {
	settler Settler
	rnd     func() float64
}

// NewGateway creates a gateway over the given settler.
func NewGateway(settler Settler) *Gateway {
	return &Gateway{settler: settler, rnd: rand.Float64}
}

// NewGatewayWithRand creates a gateway with an injected randomness source,
// so tests can force success or failure.
func NewGatewayWithRand(settler Settler, rnd func() float64) *Gateway {
	return &Gateway{settler: settler, rnd: rnd}
}

// successRate returns the simulated acceptance probability per rail.
func successRate(method Method) (float64, error) {
	switch method {
	case MethodCMI:
		return 0.8, nil
	case MethodPayPal:
		return 0.9, nil
	default:
		return 0, fmt.Errorf("unknown payment method %q", method)
	}
}

// AttemptSettlement simulates one gateway transaction. On success it calls
// the settler exactly once; on simulated decline it returns a failed Result
// with no settlement call.
func (g *Gateway) AttemptSettlement(ctx context.Context, groupID, userID string, method Method) (Result, error) {
	rate, err := successRate(method)
	if err != nil {
		return Result{}, err
	}

	slog.Info("Settlement attempt", "group_id", groupID, "user_id", userID, "method", method)

	if g.rnd() >= rate {
		slog.Info("Settlement declined", "group_id", groupID, "user_id", userID, "method", method)
		return Result{Success: false, Message: fmt.Sprintf("%s transaction declined", method)}, nil
	}

	if err := g.settler.RecordPayment(ctx, groupID, userID, string(method)); err != nil {
		return Result{}, fmt.Errorf("settlement succeeded but recording failed: %w", err)
	}

	return Result{Success: true, Message: fmt.Sprintf("%s payment accepted", method)}, nil
}
