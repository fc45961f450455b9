package models

import (
	"errors"
	"testing"

	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
)

func TestSignedDelta(t *testing.T) {
	five := decimal.NewFromInt(5)
	negFive := decimal.NewFromInt(-5)

	got, err := signedDelta(MovementKindInbound, five)
	if err != nil || !got.Equal(five) {
		t.Fatalf("inbound: got %s, %v", got, err)
	}

	got, err = signedDelta(MovementKindOutbound, five)
	if err != nil || !got.Equal(negFive) {
		t.Fatalf("outbound: got %s, %v", got, err)
	}

	// Adjustments keep the caller's sign.
	got, err = signedDelta(MovementKindAdjustment, negFive)
	if err != nil || !got.Equal(negFive) {
		t.Fatalf("negative adjustment: got %s, %v", got, err)
	}
	got, err = signedDelta(MovementKindAdjustment, five)
	if err != nil || !got.Equal(five) {
		t.Fatalf("positive adjustment: got %s, %v", got, err)
	}
}

func TestSignedDeltaRejectsBadMagnitudes(t *testing.T) {
	cases := []struct {
		kind MovementKind
		qty  decimal.Decimal
	}{
		{MovementKindInbound, decimal.Zero},
		{MovementKindInbound, decimal.NewFromInt(-1)},
		{MovementKindOutbound, decimal.Zero},
		{MovementKindOutbound, decimal.NewFromInt(-1)},
		{MovementKindAdjustment, decimal.Zero},
		{MovementKind("Bogus"), decimal.NewFromInt(1)},
	}
	for _, c := range cases {
		if _, err := signedDelta(c.kind, c.qty); !errors.Is(err, utils.ErrInvalidArgument) {
			t.Errorf("signedDelta(%s, %s): expected ErrInvalidArgument, got %v", c.kind, c.qty, err)
		}
	}
}

func TestParseMovementKindIsCaseSensitive(t *testing.T) {
	if _, err := ParseMovementKind("inbound"); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for lowercase kind, got %v", err)
	}
	kind, err := ParseMovementKind("Inbound")
	if err != nil || kind != MovementKindInbound {
		t.Fatalf("ParseMovementKind: got %s, %v", kind, err)
	}
}

func TestStockStatusThreshold(t *testing.T) {
	item := SupplyItem{
		Stock:    decimal.NewFromInt(3),
		MinStock: decimal.NewFromInt(3),
	}
	// At the threshold the item is still OK; only below it is LOW.
	if item.StockStatus() != StockStatusOK {
		t.Fatalf("stock == min_stock should be OK")
	}
	item.Stock = decimal.NewFromInt(2)
	if item.StockStatus() != StockStatusLow {
		t.Fatalf("stock < min_stock should be LOW")
	}
}
