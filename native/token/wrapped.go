package token

import (
	"math/big"

	"lendbridge/core/types"
	"lendbridge/crypto"
)

// WrappedLedger accounts the wrapped representation of counterpart-chain
// custody. Unlike the custodial ledger there is no allowance surface: minting
// is gated upstream by proof verification and transfers only run at
// settlement.
type WrappedLedger struct {
	state ledgerState
}

// NewWrappedLedger constructs an unwired wrapped-asset ledger.
func NewWrappedLedger() *WrappedLedger {
	return &WrappedLedger{}
}

// SetState wires the ledger to the external persistence layer.
func (l *WrappedLedger) SetState(state ledgerState) { l.state = state }

func (l *WrappedLedger) loadAccount(addr crypto.Address) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Ensure(), nil
}

// BalanceOf returns the wrapped balance of the address.
func (l *WrappedLedger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	acc, err := l.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceWrapped), nil
}

// Mint credits wrapped balance to the address.
func (l *WrappedLedger) Mint(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	acc.BalanceWrapped = new(big.Int).Add(acc.BalanceWrapped, amount)
	return l.state.PutAccount(to, acc)
}

// Transfer moves wrapped balance between accounts.
func (l *WrappedLedger) Transfer(from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceWrapped.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.loadAccount(to)
	if err != nil {
		return err
	}

	fromAcc.BalanceWrapped = new(big.Int).Sub(fromAcc.BalanceWrapped, amount)
	toAcc.BalanceWrapped = new(big.Int).Add(toAcc.BalanceWrapped, amount)

	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}
