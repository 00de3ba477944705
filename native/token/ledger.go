package token

import (
	"errors"
	"math/big"

	"lendbridge/core/types"
	"lendbridge/crypto"
)

var (
	ErrNilState              = errors.New("token ledger: state not configured")
	ErrInvalidAmount         = errors.New("token ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
)

type ledgerState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	GetAllowance(owner, spender crypto.Address) (*big.Int, error)
	PutAllowance(owner, spender crypto.Address, amount *big.Int) error
}

// Ledger implements transferFrom/transfer semantics over the account state:
// a caller-authorized pull into a custodian account and a custodian-authorized
// push out of it. It backs the custodial pool's fungible-token collaborator.
type Ledger struct {
	state     ledgerState
	custodian crypto.Address
}

// NewLedger constructs a ledger whose Transfer operations are authorized by
// the custodian account.
func NewLedger(custodian crypto.Address) *Ledger {
	return &Ledger{custodian: custodian}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// Custodian returns the account holding custody balances.
func (l *Ledger) Custodian() crypto.Address {
	return l.custodian
}

func (l *Ledger) loadAccount(addr crypto.Address) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Ensure(), nil
}

// BalanceOf returns the token balance of the address.
func (l *Ledger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	acc, err := l.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceToken), nil
}

// Mint credits freshly issued tokens to the address. Used by genesis funding
// and tests; a deployed node mints only through governance tooling.
func (l *Ledger) Mint(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.BalanceToken = new(big.Int).Add(acc.BalanceToken, amount)
	return l.state.PutAccount(addr, acc)
}

// Approve authorizes the spender to pull up to amount from the owner.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.state.PutAllowance(owner, spender, new(big.Int).Set(amount))
}

// Allowance returns the remaining pull authorization from owner to spender.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	allowance, err := l.state.GetAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

// TransferFrom pulls amount from the owner into custody, consuming the
// custodian's allowance.
func (l *Ledger) TransferFrom(from crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.Allowance(from, l.custodian)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	fromAcc, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceToken.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	custodyAcc, err := l.loadAccount(l.custodian)
	if err != nil {
		return err
	}

	fromAcc.BalanceToken = new(big.Int).Sub(fromAcc.BalanceToken, amount)
	custodyAcc.BalanceToken = new(big.Int).Add(custodyAcc.BalanceToken, amount)

	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.state.PutAccount(l.custodian, custodyAcc); err != nil {
		return err
	}
	return l.state.PutAllowance(from, l.custodian, new(big.Int).Sub(allowance, amount))
}

// Transfer pushes amount out of custody to the recipient.
func (l *Ledger) Transfer(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	custodyAcc, err := l.loadAccount(l.custodian)
	if err != nil {
		return err
	}
	if custodyAcc.BalanceToken.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.loadAccount(to)
	if err != nil {
		return err
	}

	custodyAcc.BalanceToken = new(big.Int).Sub(custodyAcc.BalanceToken, amount)
	toAcc.BalanceToken = new(big.Int).Add(toAcc.BalanceToken, amount)

	if err := l.state.PutAccount(l.custodian, custodyAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}
