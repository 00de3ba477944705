package pool

import (
	"errors"
	"fmt"
	"math/big"

	"lendbridge/core/events"
	"lendbridge/core/types"
	"lendbridge/crypto"
	nativecommon "lendbridge/native/common"
)

var (
	ErrNilState               = errors.New("pool engine: state not configured")
	ErrNilToken               = errors.New("pool engine: token not configured")
	ErrUnauthorized           = errors.New("pool engine: caller not authorized")
	ErrInvalidInput           = errors.New("pool engine: invalid input")
	ErrPositionLocked         = errors.New("pool engine: position locked")
	ErrAlreadyLocked          = errors.New("pool engine: position already locked")
	ErrNotLocked              = errors.New("pool engine: position not locked")
	ErrEmptyPosition          = errors.New("pool engine: position empty")
	ErrInsufficientFunds      = errors.New("pool engine: insufficient lender funds")
	ErrInsufficientCollateral = errors.New("pool engine: insufficient collateral")
	ErrTransferFailed         = errors.New("pool engine: token transfer failed")
)

const moduleName = "pool"

// Token is the fungible-token collaborator used to move custody balances.
// TransferFrom performs a caller-authorized pull into custody; Transfer pushes
// custody funds out.
type Token interface {
	TransferFrom(from crypto.Address, amount *big.Int) error
	Transfer(to crypto.Address, amount *big.Int) error
}

type engineState interface {
	GetLenderPosition(addr crypto.Address) (*LenderPosition, error)
	PutLenderPosition(addr crypto.Address, position *LenderPosition) error
	GetBorrowerPosition(addr crypto.Address) (*BorrowerPosition, error)
	PutBorrowerPosition(addr crypto.Address, position *BorrowerPosition) error
}

type poolEvent struct {
	evt *types.Event
}

func (e poolEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e poolEvent) Event() *types.Event { return e.evt }

// Engine custodies lender funds and borrower collateral on the primary chain.
// Privileged lock/borrow/liquidation operations are gated to the single
// configured bridge principal; the owner may replace that principal.
type Engine struct {
	state   engineState
	token   Token
	owner   crypto.Address
	bridge  crypto.Address
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine constructs a pool engine owned by the given principal.
func NewEngine(owner crypto.Address) *Engine {
	return &Engine{
		owner:   owner,
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetToken configures the fungible-token collaborator.
func (e *Engine) SetToken(token Token) {
	if e == nil {
		return
	}
	e.token = token
}

// SetPauses installs the module pause table consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Bridge returns the currently authorized bridge principal.
func (e *Engine) Bridge() crypto.Address {
	return e.bridge
}

// SetBridge replaces the authorized bridge principal. Owner-only; a single
// principal, replace not append.
func (e *Engine) SetBridge(caller, bridge crypto.Address) error {
	if e == nil {
		return ErrNilState
	}
	if !caller.Equal(e.owner) {
		return ErrUnauthorized
	}
	if bridge.IsZero() {
		return ErrInvalidInput
	}
	e.bridge = bridge
	return nil
}

// ConfigureBridge installs the bridge principal at construction time, before
// the engine starts serving calls.
func (e *Engine) ConfigureBridge(bridge crypto.Address) {
	if e == nil {
		return
	}
	e.bridge = bridge
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(poolEvent{evt: evt})
}

func (e *Engine) requireBridge(caller crypto.Address) error {
	if e.bridge.IsZero() || !caller.Equal(e.bridge) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.token == nil {
		return ErrNilToken
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func addr20(a crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], a.Bytes())
	return out
}

func (e *Engine) lenderPosition(addr crypto.Address) (*LenderPosition, error) {
	position, err := e.state.GetLenderPosition(addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &LenderPosition{}
	}
	if position.Amount == nil {
		position.Amount = big.NewInt(0)
	}
	return position, nil
}

func (e *Engine) borrowerPosition(addr crypto.Address) (*BorrowerPosition, error) {
	position, err := e.state.GetBorrowerPosition(addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &BorrowerPosition{}
	}
	if position.Collateral == nil {
		position.Collateral = big.NewInt(0)
	}
	if position.Borrowed == nil {
		position.Borrowed = big.NewInt(0)
	}
	return position, nil
}

// DepositLenderAssets pulls amount from the caller into custody and credits
// their lender position. Fails while the position is locked; a failed token
// pull aborts with no state change.
func (e *Engine) DepositLenderAssets(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	position, err := e.lenderPosition(caller)
	if err != nil {
		return err
	}
	if position.Locked {
		return ErrPositionLocked
	}
	if err := e.token.TransferFrom(caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	position.Amount = new(big.Int).Add(position.Amount, amount)
	if err := e.state.PutLenderPosition(caller, position); err != nil {
		return err
	}
	e.emit(events.PoolLenderDeposited{Lender: addr20(caller), Amount: amount}.Event())
	return nil
}

// DepositCollateral pulls amount from the caller into custody and credits
// their borrower collateral.
func (e *Engine) DepositCollateral(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	position, err := e.borrowerPosition(caller)
	if err != nil {
		return err
	}
	if position.Locked {
		return ErrPositionLocked
	}
	if err := e.token.TransferFrom(caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	position.Collateral = new(big.Int).Add(position.Collateral, amount)
	if err := e.state.PutBorrowerPosition(caller, position); err != nil {
		return err
	}
	e.emit(events.PoolCollateralDeposited{Borrower: addr20(caller), Amount: amount}.Event())
	return nil
}

// LockLenderPosition freezes a funded lender position ahead of a match.
// Bridge-only.
func (e *Engine) LockLenderPosition(caller, lender crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	position, err := e.lenderPosition(lender)
	if err != nil {
		return err
	}
	if position.Locked {
		return ErrAlreadyLocked
	}
	if position.Amount.Sign() == 0 {
		return ErrEmptyPosition
	}
	position.Locked = true
	if err := e.state.PutLenderPosition(lender, position); err != nil {
		return err
	}
	e.emit(events.PoolPositionLocked{Account: addr20(lender), Side: "lender"}.Event())
	return nil
}

// LockBorrowerPosition freezes a collateralized borrower position ahead of a
// match. Bridge-only.
func (e *Engine) LockBorrowerPosition(caller, borrower crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	position, err := e.borrowerPosition(borrower)
	if err != nil {
		return err
	}
	if position.Locked {
		return ErrAlreadyLocked
	}
	if position.Collateral.Sign() == 0 {
		return ErrEmptyPosition
	}
	position.Locked = true
	if err := e.state.PutBorrowerPosition(borrower, position); err != nil {
		return err
	}
	e.emit(events.PoolPositionLocked{Account: addr20(borrower), Side: "borrower"}.Event())
	return nil
}

// UnlockLenderPosition releases a lock once the bridge has settled or
// abandoned the match, so deposits can resume. Bridge-only.
func (e *Engine) UnlockLenderPosition(caller, lender crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	position, err := e.lenderPosition(lender)
	if err != nil {
		return err
	}
	if !position.Locked {
		return ErrNotLocked
	}
	position.Locked = false
	if err := e.state.PutLenderPosition(lender, position); err != nil {
		return err
	}
	e.emit(events.PoolPositionUnlocked{Account: addr20(lender), Side: "lender"}.Event())
	return nil
}

// UnlockBorrowerPosition releases a borrower lock. Bridge-only.
func (e *Engine) UnlockBorrowerPosition(caller, borrower crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	position, err := e.borrowerPosition(borrower)
	if err != nil {
		return err
	}
	if !position.Locked {
		return ErrNotLocked
	}
	position.Locked = false
	if err := e.state.PutBorrowerPosition(borrower, position); err != nil {
		return err
	}
	e.emit(events.PoolPositionUnlocked{Account: addr20(borrower), Side: "borrower"}.Event())
	return nil
}

// ExecuteBorrow moves matched funds from the lender's custodied balance to the
// borrower. Both positions must be locked. Bridge-only.
func (e *Engine) ExecuteBorrow(caller, borrower, lender crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	lenderPos, err := e.lenderPosition(lender)
	if err != nil {
		return err
	}
	borrowerPos, err := e.borrowerPosition(borrower)
	if err != nil {
		return err
	}
	if !lenderPos.Locked || !borrowerPos.Locked {
		return ErrNotLocked
	}
	if lenderPos.Amount.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if err := e.token.Transfer(borrower, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	lenderPos.Amount = new(big.Int).Sub(lenderPos.Amount, amount)
	borrowerPos.Borrowed = new(big.Int).Add(borrowerPos.Borrowed, amount)
	if err := e.state.PutLenderPosition(lender, lenderPos); err != nil {
		return err
	}
	if err := e.state.PutBorrowerPosition(borrower, borrowerPos); err != nil {
		return err
	}
	e.emit(events.PoolBorrowExecuted{Borrower: addr20(borrower), Lender: addr20(lender), Amount: amount}.Event())
	return nil
}

// ExecuteLiquidation seizes amount of the borrower's collateral for the
// lender after the bridge reports a ratio breach. Bridge-only.
func (e *Engine) ExecuteLiquidation(caller, borrower, lender crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	borrowerPos, err := e.borrowerPosition(borrower)
	if err != nil {
		return err
	}
	if !borrowerPos.Locked {
		return ErrNotLocked
	}
	if borrowerPos.Collateral.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	if err := e.token.Transfer(lender, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	borrowerPos.Collateral = new(big.Int).Sub(borrowerPos.Collateral, amount)
	if err := e.state.PutBorrowerPosition(borrower, borrowerPos); err != nil {
		return err
	}
	e.emit(events.PoolLiquidationExecuted{Borrower: addr20(borrower), Lender: addr20(lender), Amount: amount}.Event())
	return nil
}

// WithdrawExcessCollateral returns surplus collateral to the borrower.
// Bridge-only.
func (e *Engine) WithdrawExcessCollateral(caller, borrower crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireBridge(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	borrowerPos, err := e.borrowerPosition(borrower)
	if err != nil {
		return err
	}
	if !borrowerPos.Locked {
		return ErrNotLocked
	}
	if borrowerPos.Collateral.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	if err := e.token.Transfer(borrower, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	borrowerPos.Collateral = new(big.Int).Sub(borrowerPos.Collateral, amount)
	if err := e.state.PutBorrowerPosition(borrower, borrowerPos); err != nil {
		return err
	}
	e.emit(events.PoolCollateralWithdrawn{Borrower: addr20(borrower), Amount: amount}.Event())
	return nil
}

// LenderPositionOf returns a copy of the lender's stored position.
func (e *Engine) LenderPositionOf(addr crypto.Address) (*LenderPosition, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.lenderPosition(addr)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

// BorrowerPositionOf returns a copy of the borrower's stored position.
func (e *Engine) BorrowerPositionOf(addr crypto.Address) (*BorrowerPosition, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.borrowerPosition(addr)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}
