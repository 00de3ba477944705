package bridge

import (
	"errors"
	"math/big"

	"github.com/google/uuid"

	"lendbridge/core/events"
	"lendbridge/core/types"
	"lendbridge/crypto"
	nativecommon "lendbridge/native/common"
)

var (
	ErrNilState            = errors.New("bridge engine: state not configured")
	ErrNilVerifier         = errors.New("bridge engine: proof verifier not configured")
	ErrNilWrappedToken     = errors.New("bridge engine: wrapped token not configured")
	ErrUnauthorized        = errors.New("bridge engine: caller not authorized")
	ErrInvalidInput        = errors.New("bridge engine: invalid input")
	ErrAlreadyExists       = errors.New("bridge engine: active entry already exists")
	ErrNoActiveOffer       = errors.New("bridge engine: no active lender offer")
	ErrNoActiveRequest     = errors.New("bridge engine: no active borrower request")
	ErrAlreadyVerified     = errors.New("bridge engine: proof already verified")
	ErrAmountMismatch      = errors.New("bridge engine: proof amount mismatch")
	ErrInvalidState        = errors.New("bridge engine: offer or request not matchable")
	ErrNoOverlap           = errors.New("bridge engine: vtl ranges do not overlap")
	ErrInsufficientBalance = errors.New("bridge engine: lender wrapped balance below request")
)

const moduleName = "bridge"

// ThresholdSource selects how the liquidation trigger threshold is resolved
// when the oracle reports a new collateral ratio.
type ThresholdSource int

const (
	// ThresholdPositionLower compares against the position's own declared
	// minimum acceptable ratio. This is the behaviour of record: each party
	// negotiates its own band.
	ThresholdPositionLower ThresholdSource = iota
	// ThresholdGlobal compares every position against one protocol-wide
	// constant.
	ThresholdGlobal
)

// WrappedToken accounts the wrapped representation of assets custodied on the
// counterpart chain. Mint credits a freshly attested balance; Transfer moves
// wrapped value between accounts at settlement.
type WrappedToken interface {
	Mint(to crypto.Address, amount *big.Int) error
	Transfer(from, to crypto.Address, amount *big.Int) error
}

type engineState interface {
	GetLenderOffer(addr crypto.Address) (*LenderOffer, error)
	PutLenderOffer(addr crypto.Address, offer *LenderOffer) error
	GetBorrowerRequest(addr crypto.Address) (*BorrowerRequest, error)
	PutBorrowerRequest(addr crypto.Address, request *BorrowerRequest) error
	GetLiquidity(addr crypto.Address) (*big.Int, error)
	PutLiquidity(addr crypto.Address, amount *big.Int) error
}

type bridgeEvent struct {
	evt *types.Event
}

func (e bridgeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bridgeEvent) Event() *types.Event { return e.evt }

// Engine owns the VTL-range matching algorithm and the liquidation trigger.
// Offers and requests follow Created -> Verified -> matched* ->
// Exhausted|Liquidated; no transition runs backwards, and a new entry may only
// be created once the previous one is inactive.
type Engine struct {
	state           engineState
	verifier        ProofVerifier
	wrapped         WrappedToken
	oracle          crypto.Address
	thresholdSource ThresholdSource
	globalThreshold uint64
	emitter         events.Emitter
	pauses          nativecommon.PauseView
	matchIDFn       func() string
}

// NewEngine constructs a bridge engine. The oracle principal is the only
// caller allowed to report collateral ratios.
func NewEngine(oracle crypto.Address) *Engine {
	return &Engine{
		oracle:    oracle,
		verifier:  StubVerifier{},
		emitter:   events.NoopEmitter{},
		matchIDFn: uuid.NewString,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetVerifier installs the proof verifier capability. Passing nil restores the
// stub.
func (e *Engine) SetVerifier(verifier ProofVerifier) {
	if e == nil {
		return
	}
	if verifier == nil {
		e.verifier = StubVerifier{}
		return
	}
	e.verifier = verifier
}

// SetWrappedToken configures the wrapped-asset collaborator.
func (e *Engine) SetWrappedToken(wrapped WrappedToken) {
	if e == nil {
		return
	}
	e.wrapped = wrapped
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

// SetLiquidationThreshold selects the threshold source used by ratio updates.
// The global constant is only consulted for ThresholdGlobal.
func (e *Engine) SetLiquidationThreshold(source ThresholdSource, global uint64) {
	if e == nil {
		return
	}
	e.thresholdSource = source
	e.globalThreshold = global
}

// SetMatchIDFunc overrides the settlement identifier source. Primarily
// intended for tests.
func (e *Engine) SetMatchIDFunc(fn func() string) {
	if e == nil {
		return
	}
	if fn == nil {
		e.matchIDFn = uuid.NewString
		return
	}
	e.matchIDFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(bridgeEvent{evt: evt})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.wrapped == nil {
		return ErrNilWrappedToken
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func addr20(a crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], a.Bytes())
	return out
}

// CreateLenderOffer registers a standing offer for the caller. One active
// offer per identity; re-creation is allowed only once the previous offer has
// been deactivated.
func (e *Engine) CreateLenderOffer(caller crypto.Address, amount *big.Int, lowerVTL, upperVTL uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	vtl := VTLRange{Lower: lowerVTL, Upper: upperVTL}
	if amount == nil || amount.Sign() <= 0 || !vtl.Valid() {
		return ErrInvalidInput
	}
	existing, err := e.state.GetLenderOffer(caller)
	if err != nil {
		return err
	}
	if existing != nil && existing.Active {
		return ErrAlreadyExists
	}
	offer := &LenderOffer{
		Amount:         new(big.Int).Set(amount),
		VTL:            vtl,
		Active:         true,
		ProofVerified:  false,
		WrappedBalance: big.NewInt(0),
	}
	if err := e.state.PutLenderOffer(caller, offer); err != nil {
		return err
	}
	e.emit(events.BridgeOfferCreated{
		Lender:   addr20(caller),
		Amount:   amount,
		LowerVTL: lowerVTL,
		UpperVTL: upperVTL,
	}.Event())
	return nil
}

// CreateBorrowerRequest registers a standing request for the caller,
// symmetric to offer creation.
func (e *Engine) CreateBorrowerRequest(caller crypto.Address, collateral, requested *big.Int, lowerVTL, upperVTL uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	vtl := VTLRange{Lower: lowerVTL, Upper: upperVTL}
	if collateral == nil || collateral.Sign() <= 0 || requested == nil || requested.Sign() <= 0 || !vtl.Valid() {
		return ErrInvalidInput
	}
	existing, err := e.state.GetBorrowerRequest(caller)
	if err != nil {
		return err
	}
	if existing != nil && existing.Active {
		return ErrAlreadyExists
	}
	request := &BorrowerRequest{
		Collateral:        new(big.Int).Set(collateral),
		Requested:         new(big.Int).Set(requested),
		VTL:               vtl,
		Active:            true,
		ProofVerified:     false,
		WrappedCollateral: big.NewInt(0),
	}
	if err := e.state.PutBorrowerRequest(caller, request); err != nil {
		return err
	}
	e.emit(events.BridgeRequestCreated{
		Borrower:   addr20(caller),
		Collateral: collateral,
		Requested:  requested,
		LowerVTL:   lowerVTL,
		UpperVTL:   upperVTL,
	}.Event())
	return nil
}

// VerifyProof attests counterpart-chain custody for the account's offer or
// request. The declared amount must match exactly, verification happens once,
// and the wrapped balance is credited only on success.
func (e *Engine) VerifyProof(account crypto.Address, isLender bool, amount *big.Int, proof []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.verifier == nil {
		return ErrNilVerifier
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	if isLender {
		offer, err := e.state.GetLenderOffer(account)
		if err != nil {
			return err
		}
		if offer == nil || !offer.Active {
			return ErrNoActiveOffer
		}
		if offer.ProofVerified {
			return ErrAlreadyVerified
		}
		if offer.Amount == nil || offer.Amount.Cmp(amount) != 0 {
			return ErrAmountMismatch
		}
		if err := e.verifier.Verify(account, true, amount, proof); err != nil {
			return err
		}
		if err := e.wrapped.Mint(account, amount); err != nil {
			return err
		}
		offer.ProofVerified = true
		offer.WrappedBalance = new(big.Int).Set(amount)
		if err := e.state.PutLenderOffer(account, offer); err != nil {
			return err
		}
	} else {
		request, err := e.state.GetBorrowerRequest(account)
		if err != nil {
			return err
		}
		if request == nil || !request.Active {
			return ErrNoActiveRequest
		}
		if request.ProofVerified {
			return ErrAlreadyVerified
		}
		if request.Collateral == nil || request.Collateral.Cmp(amount) != 0 {
			return ErrAmountMismatch
		}
		if err := e.verifier.Verify(account, false, amount, proof); err != nil {
			return err
		}
		if err := e.wrapped.Mint(account, amount); err != nil {
			return err
		}
		request.ProofVerified = true
		request.WrappedCollateral = new(big.Int).Set(amount)
		if err := e.state.PutBorrowerRequest(account, request); err != nil {
			return err
		}
	}
	e.emit(events.BridgeProofVerified{Account: addr20(account), IsLender: isLender, Amount: amount}.Event())
	e.emit(events.BridgeWrappedMinted{Account: addr20(account), Amount: amount}.Event())
	return nil
}

// FindMatch settles an offer/request pair. Both sides must be active and
// verified, the VTL bands must intersect, and the lender's wrapped balance
// must cover the borrower's entire current request; partial fills below the
// request size are rejected rather than split across lenders in one call.
func (e *Engine) FindMatch(lender, borrower crypto.Address) (string, *big.Int, error) {
	if err := e.ready(); err != nil {
		return "", nil, err
	}
	offer, err := e.state.GetLenderOffer(lender)
	if err != nil {
		return "", nil, err
	}
	request, err := e.state.GetBorrowerRequest(borrower)
	if err != nil {
		return "", nil, err
	}
	if offer == nil || !offer.Active || !offer.ProofVerified {
		return "", nil, ErrInvalidState
	}
	if request == nil || !request.Active || !request.ProofVerified {
		return "", nil, ErrInvalidState
	}
	if !offer.VTL.Overlaps(request.VTL) {
		return "", nil, ErrNoOverlap
	}

	matched := new(big.Int).Set(offer.WrappedBalance)
	if request.Requested.Cmp(matched) < 0 {
		matched = new(big.Int).Set(request.Requested)
	}
	if offer.WrappedBalance.Cmp(request.Requested) < 0 {
		return "", nil, ErrInsufficientBalance
	}

	if err := e.wrapped.Transfer(lender, borrower, matched); err != nil {
		return "", nil, err
	}

	offer.WrappedBalance = new(big.Int).Sub(offer.WrappedBalance, matched)
	offer.Amount = new(big.Int).Sub(offer.Amount, matched)
	if offer.Amount.Sign() <= 0 {
		offer.Active = false
	}
	request.Requested = new(big.Int).Sub(request.Requested, matched)
	if request.Requested.Sign() == 0 {
		request.Active = false
	}

	liquidity, err := e.state.GetLiquidity(lender)
	if err != nil {
		return "", nil, err
	}
	if liquidity == nil {
		liquidity = big.NewInt(0)
	}
	liquidity = new(big.Int).Add(liquidity, matched)

	if err := e.state.PutLenderOffer(lender, offer); err != nil {
		return "", nil, err
	}
	if err := e.state.PutBorrowerRequest(borrower, request); err != nil {
		return "", nil, err
	}
	if err := e.state.PutLiquidity(lender, liquidity); err != nil {
		return "", nil, err
	}

	matchID := e.matchIDFn()
	e.emit(events.BridgeMatchSettled{
		MatchID:  matchID,
		Lender:   addr20(lender),
		Borrower: addr20(borrower),
		Amount:   matched,
	}.Event())
	return matchID, matched, nil
}

// UpdateCollateralRatio records an oracle-reported ratio for the borrower and
// deactivates the request when the ratio breaches the resolved liquidation
// threshold. Oracle-principal-only.
func (e *Engine) UpdateCollateralRatio(caller, borrower crypto.Address, ratio uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.oracle.IsZero() || !caller.Equal(e.oracle) {
		return ErrUnauthorized
	}
	request, err := e.state.GetBorrowerRequest(borrower)
	if err != nil {
		return err
	}
	if request == nil || !request.Active {
		return ErrNoActiveRequest
	}

	e.emit(events.BridgeRatioUpdated{Borrower: addr20(borrower), Ratio: ratio}.Event())

	threshold := request.VTL.Lower
	if e.thresholdSource == ThresholdGlobal {
		threshold = e.globalThreshold
	}
	if ratio >= threshold {
		return nil
	}

	request.Active = false
	if err := e.state.PutBorrowerRequest(borrower, request); err != nil {
		return err
	}
	e.emit(events.BridgeRequestLiquidated{
		Borrower:  addr20(borrower),
		Ratio:     ratio,
		Threshold: threshold,
	}.Event())
	return nil
}

// LenderOfferOf returns a copy of the stored offer, or nil when none exists.
func (e *Engine) LenderOfferOf(addr crypto.Address) (*LenderOffer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	offer, err := e.state.GetLenderOffer(addr)
	if err != nil {
		return nil, err
	}
	return offer.Clone(), nil
}

// BorrowerRequestOf returns a copy of the stored request, or nil when none
// exists.
func (e *Engine) BorrowerRequestOf(addr crypto.Address) (*BorrowerRequest, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	request, err := e.state.GetBorrowerRequest(addr)
	if err != nil {
		return nil, err
	}
	return request.Clone(), nil
}

// LiquidityOf returns the accumulated matched volume for the lender.
func (e *Engine) LiquidityOf(addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	liquidity, err := e.state.GetLiquidity(addr)
	if err != nil {
		return nil, err
	}
	if liquidity == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(liquidity), nil
}
