package payments

import (
	"context"
	"errors"
	"testing"
)

// recordingSettler counts settlement calls and can simulate engine failures.
type recordingSettler struct {
	calls []string
	err   error
}

func (r *recordingSettler) RecordPayment(_ context.Context, groupID, userID, method string) error {
	r.calls = append(r.calls, groupID+"/"+userID+"/"+method)
	return r.err
}

func TestAttemptSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("success settles exactly once", func(t *testing.T) {
		settler := &recordingSettler{}
		gateway := NewGatewayWithRand(settler, func() float64 { return 0.0 })

		result, err := gateway.AttemptSettlement(ctx, "g1", "u1", MethodCMI)
		if err != nil {
			t.Fatalf("AttemptSettlement failed: %v", err)
		}
		if !result.Success {
			t.Errorf("result = %+v, want success", result)
		}
		if len(settler.calls) != 1 {
			t.Fatalf("settler calls = %d, want 1", len(settler.calls))
		}
		if settler.calls[0] != "g1/u1/CMI" {
			t.Errorf("settler call = %s, want g1/u1/CMI", settler.calls[0])
		}
	})

	t.Run("decline never touches the engine", func(t *testing.T) {
		settler := &recordingSettler{}
		gateway := NewGatewayWithRand(settler, func() float64 { return 0.99 })

		result, err := gateway.AttemptSettlement(ctx, "g1", "u1", MethodPayPal)
		if err != nil {
			t.Fatalf("AttemptSettlement failed: %v", err)
		}
		if result.Success {
			t.Error("expected decline")
		}
		if len(settler.calls) != 0 {
			t.Errorf("settler calls = %d, want 0", len(settler.calls))
		}
	})

	t.Run("threshold respects per-rail rates", func(t *testing.T) {
		// 0.85 declines CMI (rate 0.8) but passes PayPal (rate 0.9).
		settler := &recordingSettler{}
		gateway := NewGatewayWithRand(settler, func() float64 { return 0.85 })

		cmi, err := gateway.AttemptSettlement(ctx, "g1", "u1", MethodCMI)
		if err != nil {
			t.Fatalf("CMI attempt failed: %v", err)
		}
		paypal, err := gateway.AttemptSettlement(ctx, "g1", "u2", MethodPayPal)
		if err != nil {
			t.Fatalf("PayPal attempt failed: %v", err)
		}
		if cmi.Success || !paypal.Success {
			t.Errorf("cmi=%v paypal=%v, want decline then success", cmi.Success, paypal.Success)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		gateway := NewGatewayWithRand(&recordingSettler{}, func() float64 { return 0.0 })
		if _, err := gateway.AttemptSettlement(ctx, "g1", "u1", "CASH"); err == nil {
			t.Error("expected error for unknown method")
		}
	})

	t.Run("engine failure surfaces", func(t *testing.T) {
		settler := &recordingSettler{err: errors.New("boom")}
		gateway := NewGatewayWithRand(settler, func() float64 { return 0.0 })

		if _, err := gateway.AttemptSettlement(ctx, "g1", "u1", MethodCMI); err == nil {
			t.Error("expected recording error to surface")
		}
	})
}
