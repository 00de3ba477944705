package events

import (
	"math/big"

	"lendbridge/core/types"
	"lendbridge/crypto"
)

const (
	// TypePoolLenderDeposited is emitted when a lender funds their custodial position.
	TypePoolLenderDeposited = "pool.lender_deposited"
	// TypePoolCollateralDeposited is emitted when a borrower pledges collateral.
	TypePoolCollateralDeposited = "pool.collateral_deposited"
	// TypePoolPositionLocked is emitted when the bridge locks a position.
	TypePoolPositionLocked = "pool.position_locked"
	// TypePoolPositionUnlocked is emitted when the bridge releases a lock.
	TypePoolPositionUnlocked = "pool.position_unlocked"
	// TypePoolBorrowExecuted is emitted when matched funds move to a borrower.
	TypePoolBorrowExecuted = "pool.borrow_executed"
	// TypePoolLiquidationExecuted is emitted when collateral is seized for a lender.
	TypePoolLiquidationExecuted = "pool.liquidation_executed"
	// TypePoolCollateralWithdrawn is emitted when excess collateral returns to a borrower.
	TypePoolCollateralWithdrawn = "pool.collateral_withdrawn"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addressString(b [20]byte) string {
	if b == ([20]byte{}) {
		return ""
	}
	return crypto.NewAddress(crypto.LendPrefix, b[:]).String()
}

type PoolLenderDeposited struct {
	Lender [20]byte
	Amount *big.Int
}

func (PoolLenderDeposited) EventType() string { return TypePoolLenderDeposited }

func (e PoolLenderDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLenderDeposited,
		Attributes: map[string]string{
			"lender": addressString(e.Lender),
			"amount": amountString(e.Amount),
		},
	}
}

type PoolCollateralDeposited struct {
	Borrower [20]byte
	Amount   *big.Int
}

func (PoolCollateralDeposited) EventType() string { return TypePoolCollateralDeposited }

func (e PoolCollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypePoolCollateralDeposited,
		Attributes: map[string]string{
			"borrower": addressString(e.Borrower),
			"amount":   amountString(e.Amount),
		},
	}
}

type PoolPositionLocked struct {
	Account [20]byte
	Side    string
}

func (PoolPositionLocked) EventType() string { return TypePoolPositionLocked }

func (e PoolPositionLocked) Event() *types.Event {
	return &types.Event{
		Type: TypePoolPositionLocked,
		Attributes: map[string]string{
			"account": addressString(e.Account),
			"side":    e.Side,
		},
	}
}

type PoolPositionUnlocked struct {
	Account [20]byte
	Side    string
}

func (PoolPositionUnlocked) EventType() string { return TypePoolPositionUnlocked }

func (e PoolPositionUnlocked) Event() *types.Event {
	return &types.Event{
		Type: TypePoolPositionUnlocked,
		Attributes: map[string]string{
			"account": addressString(e.Account),
			"side":    e.Side,
		},
	}
}

type PoolBorrowExecuted struct {
	Borrower [20]byte
	Lender   [20]byte
	Amount   *big.Int
}

func (PoolBorrowExecuted) EventType() string { return TypePoolBorrowExecuted }

func (e PoolBorrowExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypePoolBorrowExecuted,
		Attributes: map[string]string{
			"borrower": addressString(e.Borrower),
			"lender":   addressString(e.Lender),
			"amount":   amountString(e.Amount),
		},
	}
}

type PoolLiquidationExecuted struct {
	Borrower [20]byte
	Lender   [20]byte
	Amount   *big.Int
}

func (PoolLiquidationExecuted) EventType() string { return TypePoolLiquidationExecuted }

func (e PoolLiquidationExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLiquidationExecuted,
		Attributes: map[string]string{
			"borrower": addressString(e.Borrower),
			"lender":   addressString(e.Lender),
			"amount":   amountString(e.Amount),
		},
	}
}

type PoolCollateralWithdrawn struct {
	Borrower [20]byte
	Amount   *big.Int
}

func (PoolCollateralWithdrawn) EventType() string { return TypePoolCollateralWithdrawn }

func (e PoolCollateralWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypePoolCollateralWithdrawn,
		Attributes: map[string]string{
			"borrower": addressString(e.Borrower),
			"amount":   amountString(e.Amount),
		},
	}
}
