package token

import (
	"errors"
	"math/big"
	"testing"
)

func newTestWrappedLedger() (*WrappedLedger, *mockLedgerState) {
	ledger := NewWrappedLedger()
	state := newMockLedgerState()
	ledger.SetState(state)
	return ledger, state
}

func TestWrappedMintAndTransfer(t *testing.T) {
	ledger, _ := newTestWrappedLedger()
	lender := makeAddress(0x10)
	borrower := makeAddress(0x20)

	if err := ledger.Mint(lender, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(lender, borrower, big.NewInt(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	lenderBal, _ := ledger.BalanceOf(lender)
	borrowerBal, _ := ledger.BalanceOf(borrower)
	if lenderBal.Cmp(big.NewInt(40)) != 0 || borrowerBal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected balances: lender=%s borrower=%s", lenderBal, borrowerBal)
	}
}

func TestWrappedTransferInsufficientBalance(t *testing.T) {
	ledger, _ := newTestWrappedLedger()
	lender := makeAddress(0x10)

	if err := ledger.Mint(lender, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer(lender, makeAddress(0x20), big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestWrappedBalanceIndependentOfToken(t *testing.T) {
	custodial, state, _ := newTestLedger()
	wrapped := NewWrappedLedger()
	wrapped.SetState(state)
	holder := makeAddress(0x10)

	if err := custodial.Mint(holder, big.NewInt(500)); err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if err := wrapped.Mint(holder, big.NewInt(30)); err != nil {
		t.Fatalf("mint wrapped: %v", err)
	}

	tokenBal, _ := custodial.BalanceOf(holder)
	wrappedBal, _ := wrapped.BalanceOf(holder)
	if tokenBal.Cmp(big.NewInt(500)) != 0 || wrappedBal.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("balances bled across ledgers: token=%s wrapped=%s", tokenBal, wrappedBal)
	}
}
