package pool

import (
	"math/big"
	"testing"

	"lendbridge/core/events"
)

type captureEmitter struct {
	types []string
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.types = append(c.types, evt.EventType())
}

func TestPoolOperationsEmitEvents(t *testing.T) {
	engine, _, _, _, bridge := newTestEngine()
	capture := &captureEmitter{}
	engine.SetEmitter(capture)

	lender := makeAddress(0x10)
	borrower := makeAddress(0x20)

	if err := engine.DepositLenderAssets(lender, big.NewInt(100)); err != nil {
		t.Fatalf("deposit lender: %v", err)
	}
	if err := engine.DepositCollateral(borrower, big.NewInt(120)); err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}
	if err := engine.LockLenderPosition(bridge, lender); err != nil {
		t.Fatalf("lock lender: %v", err)
	}
	if err := engine.LockBorrowerPosition(bridge, borrower); err != nil {
		t.Fatalf("lock borrower: %v", err)
	}
	if err := engine.ExecuteBorrow(bridge, borrower, lender, big.NewInt(50)); err != nil {
		t.Fatalf("execute borrow: %v", err)
	}
	if err := engine.UnlockLenderPosition(bridge, lender); err != nil {
		t.Fatalf("unlock lender: %v", err)
	}

	want := []string{
		events.TypePoolLenderDeposited,
		events.TypePoolCollateralDeposited,
		events.TypePoolPositionLocked,
		events.TypePoolPositionLocked,
		events.TypePoolBorrowExecuted,
		events.TypePoolPositionUnlocked,
	}
	if len(capture.types) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), capture.types)
	}
	for i, wantType := range want {
		if capture.types[i] != wantType {
			t.Fatalf("event %d: expected %s, got %s", i, wantType, capture.types[i])
		}
	}
}

func TestFailedOperationEmitsNothing(t *testing.T) {
	engine, _, _, _, _ := newTestEngine()
	capture := &captureEmitter{}
	engine.SetEmitter(capture)

	stranger := makeAddress(0x99)
	if err := engine.LockLenderPosition(stranger, makeAddress(0x10)); err == nil {
		t.Fatalf("expected rejection for stranger")
	}
	if len(capture.types) != 0 {
		t.Fatalf("rejected lock emitted events: %v", capture.types)
	}
}
