package oracle

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"lendbridge/core/events"
	"lendbridge/core/types"
	"lendbridge/crypto"
	nativecommon "lendbridge/native/common"
)

var (
	ErrNilState      = errors.New("oracle engine: state not configured")
	ErrUnauthorized  = errors.New("oracle engine: caller is not the owner")
	ErrInvalidInput  = errors.New("oracle engine: invalid input")
	ErrTooSoon       = errors.New("oracle engine: update interval not elapsed")
	ErrPriceInactive = errors.New("oracle engine: price inactive or stale")
)

// MinUpdateInterval is the default gate between two accepted updates for the
// same asset, and doubles as the staleness window on reads.
const MinUpdateInterval = 3600 * time.Second

const moduleName = "oracle"

var priceScale = big.NewInt(1_000_000_000_000_000_000)

type engineState interface {
	GetAssetPrice(asset string) (*AssetPrice, error)
	PutAssetPrice(asset string, price *AssetPrice) error
}

type oracleEvent struct {
	evt *types.Event
}

func (e oracleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e oracleEvent) Event() *types.Event { return e.evt }

// Engine is the authoritative, staleness-aware price and ratio source. Writes
// are restricted to the configured owner principal; reads re-evaluate the
// freshness window on every call.
type Engine struct {
	state    engineState
	owner    crypto.Address
	interval time.Duration
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs an oracle engine bound to the owner principal allowed
// to publish prices.
func NewEngine(owner crypto.Address) *Engine {
	return &Engine{
		owner:    owner,
		interval: MinUpdateInterval,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses installs the module pause table consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetUpdateInterval overrides the minimum update interval. Non-positive
// durations reset the default.
func (e *Engine) SetUpdateInterval(interval time.Duration) {
	if e == nil {
		return
	}
	if interval <= 0 {
		interval = MinUpdateInterval
	}
	e.interval = interval
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

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(oracleEvent{evt: evt})
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// UpdateAssetPrice records a new price for the asset. Only the owner may
// publish, the price must be positive, and an active asset may not be updated
// again until the interval has elapsed.
func (e *Engine) UpdateAssetPrice(caller crypto.Address, asset string, price *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !caller.Equal(e.owner) {
		return ErrUnauthorized
	}
	symbol := normalizeAsset(asset)
	if symbol == "" || price == nil || price.Sign() <= 0 {
		return ErrInvalidInput
	}

	record, err := e.state.GetAssetPrice(symbol)
	if err != nil {
		return err
	}
	if record == nil {
		record = &AssetPrice{}
	}
	now := e.now()
	if record.Active && now < record.LastUpdate+int64(e.interval/time.Second) {
		return ErrTooSoon
	}

	record.Price = new(big.Int).Set(price)
	record.LastUpdate = now
	record.Active = true
	if err := e.state.PutAssetPrice(symbol, record); err != nil {
		return err
	}

	e.emit(events.OraclePriceUpdated{Asset: symbol, Price: price, Timestamp: now}.Event())
	return nil
}

// LatestPrice returns the stored price when the record is active and fresh.
func (e *Engine) LatestPrice(asset string) (*big.Int, error) {
	record, err := e.activePrice(asset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(record.Price), nil
}

// IsPriceActive reports whether the asset has a fresh, active price. The
// staleness window is enforced here as well, so a record older than the
// update interval reads as inactive.
func (e *Engine) IsPriceActive(asset string) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	record, err := e.state.GetAssetPrice(normalizeAsset(asset))
	if err != nil {
		return false, err
	}
	if record == nil || !record.Active || record.Price == nil {
		return false, nil
	}
	return e.now() <= record.LastUpdate+int64(e.interval/time.Second), nil
}

// CollateralRatio computes collateralValue*100/borrowedValue in percentage
// points (200 = 2.0x), truncating toward zero. Both prices must be active.
func (e *Engine) CollateralRatio(collateralAsset, borrowedAsset string, collateralAmount, borrowedAmount *big.Int) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if borrowedAmount == nil || borrowedAmount.Sign() == 0 {
		return 0, ErrInvalidInput
	}
	if collateralAmount == nil || collateralAmount.Sign() < 0 || borrowedAmount.Sign() < 0 {
		return 0, ErrInvalidInput
	}

	collateralPrice, err := e.activePrice(collateralAsset)
	if err != nil {
		return 0, err
	}
	borrowedPrice, err := e.activePrice(borrowedAsset)
	if err != nil {
		return 0, err
	}

	collateralValue := new(big.Int).Mul(collateralAmount, collateralPrice.Price)
	collateralValue.Quo(collateralValue, priceScale)
	borrowedValue := new(big.Int).Mul(borrowedAmount, borrowedPrice.Price)
	borrowedValue.Quo(borrowedValue, priceScale)
	if borrowedValue.Sign() == 0 {
		return 0, ErrInvalidInput
	}

	ratio := new(big.Int).Mul(collateralValue, big.NewInt(100))
	ratio.Quo(ratio, borrowedValue)
	if !ratio.IsUint64() {
		return 0, ErrInvalidInput
	}
	return ratio.Uint64(), nil
}

func (e *Engine) activePrice(asset string) (*AssetPrice, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.state.GetAssetPrice(normalizeAsset(asset))
	if err != nil {
		return nil, err
	}
	if record == nil || !record.Active || record.Price == nil || record.Price.Sign() <= 0 {
		return nil, ErrPriceInactive
	}
	if e.now() > record.LastUpdate+int64(e.interval/time.Second) {
		return nil, ErrPriceInactive
	}
	return record, nil
}
