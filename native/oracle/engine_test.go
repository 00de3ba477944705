package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"lendbridge/crypto"
)

type mockEngineState struct {
	prices map[string]*AssetPrice
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{prices: make(map[string]*AssetPrice)}
}

func (m *mockEngineState) GetAssetPrice(asset string) (*AssetPrice, error) {
	return m.prices[asset].Clone(), nil
}

func (m *mockEngineState) PutAssetPrice(asset string, price *AssetPrice) error {
	m.prices[asset] = price.Clone()
	return nil
}

func makeAddress(prefix crypto.AddressPrefix, fill byte) crypto.Address {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(prefix, raw)
}

func newTestEngine(now *int64) (*Engine, *mockEngineState, crypto.Address) {
	owner := makeAddress(crypto.LendPrefix, 0x01)
	engine := NewEngine(owner)
	state := newMockEngineState()
	engine.SetState(state)
	if now != nil {
		engine.SetNowFunc(func() int64 { return *now })
	}
	return engine, state, owner
}

func scaled(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000_000_000_000_000))
}

func TestUpdateAssetPriceRoundTrip(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "dot", scaled(100)); err != nil {
		t.Fatalf("update: %v", err)
	}
	price, err := engine.LatestPrice("DOT")
	if err != nil {
		t.Fatalf("latest price: %v", err)
	}
	if price.Cmp(scaled(100)) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}
	active, err := engine.IsPriceActive("dot")
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if !active {
		t.Fatalf("expected price to be active")
	}
}

func TestUpdateAssetPriceAuthorization(t *testing.T) {
	now := int64(10_000)
	engine, _, _ := newTestEngine(&now)
	stranger := makeAddress(crypto.LendPrefix, 0x02)

	if err := engine.UpdateAssetPrice(stranger, "DOT", scaled(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUpdateAssetPriceRejectsZero(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", big.NewInt(0)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := engine.UpdateAssetPrice(owner, "", scaled(1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty asset, got %v", err)
	}
}

func TestUpdateAssetPriceRateLimit(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(100)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	now += 100
	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(101)); !errors.Is(err, ErrTooSoon) {
		t.Fatalf("expected ErrTooSoon, got %v", err)
	}
	// Exactly the interval later the update is accepted again.
	now = 10_000 + int64(MinUpdateInterval/time.Second)
	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(102)); err != nil {
		t.Fatalf("update after interval: %v", err)
	}
	price, err := engine.LatestPrice("DOT")
	if err != nil {
		t.Fatalf("latest price: %v", err)
	}
	if price.Cmp(scaled(102)) != 0 {
		t.Fatalf("unexpected price after refresh: %s", price)
	}
}

func TestStalePriceReadsInactive(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(100)); err != nil {
		t.Fatalf("update: %v", err)
	}
	now = 10_000 + int64(MinUpdateInterval/time.Second) + 1
	if _, err := engine.LatestPrice("DOT"); !errors.Is(err, ErrPriceInactive) {
		t.Fatalf("expected ErrPriceInactive, got %v", err)
	}
	active, err := engine.IsPriceActive("DOT")
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Fatalf("expected stale price to read inactive")
	}
}

func TestCollateralRatio(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(100)); err != nil {
		t.Fatalf("update collateral price: %v", err)
	}
	if err := engine.UpdateAssetPrice(owner, "USDT", scaled(1)); err != nil {
		t.Fatalf("update borrowed price: %v", err)
	}

	// 1 DOT at 100 against 50 USDT at 1 is exactly 2.0x.
	ratio, err := engine.CollateralRatio("DOT", "USDT", scaled(1), scaled(50))
	if err != nil {
		t.Fatalf("collateral ratio: %v", err)
	}
	if ratio != 200 {
		t.Fatalf("unexpected ratio: %d", ratio)
	}
}

func TestCollateralRatioZeroBorrow(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(100)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := engine.CollateralRatio("DOT", "USDT", scaled(1), big.NewInt(0)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCollateralRatioInactivePrice(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(100)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := engine.CollateralRatio("DOT", "USDT", scaled(1), scaled(50)); !errors.Is(err, ErrPriceInactive) {
		t.Fatalf("expected ErrPriceInactive, got %v", err)
	}
}

func TestCollateralRatioTruncates(t *testing.T) {
	now := int64(10_000)
	engine, _, owner := newTestEngine(&now)

	if err := engine.UpdateAssetPrice(owner, "DOT", scaled(10)); err != nil {
		t.Fatalf("update collateral price: %v", err)
	}
	if err := engine.UpdateAssetPrice(owner, "USDT", scaled(3)); err != nil {
		t.Fatalf("update borrowed price: %v", err)
	}
	// 10*100/9 = 111.11 truncated to 111.
	ratio, err := engine.CollateralRatio("DOT", "USDT", scaled(1), scaled(3))
	if err != nil {
		t.Fatalf("collateral ratio: %v", err)
	}
	if ratio != 111 {
		t.Fatalf("unexpected ratio: %d", ratio)
	}
}
