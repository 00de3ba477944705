package monitord

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"lendbridge/core/events"
	"lendbridge/core/types"
	"lendbridge/crypto"
	"lendbridge/native/bridge"
	"lendbridge/native/oracle"
	"lendbridge/observability"
)

// Position describes one tracked borrower exposure. Amounts are base units of
// the named assets.
type Position struct {
	Borrower         crypto.Address
	CollateralAsset  string
	BorrowedAsset    string
	CollateralAmount *big.Int
	BorrowedAmount   *big.Int
}

func (p Position) clone() Position {
	clone := p
	if p.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	}
	if p.BorrowedAmount != nil {
		clone.BorrowedAmount = new(big.Int).Set(p.BorrowedAmount)
	}
	return clone
}

// Monitor periodically recomputes collateral ratios from oracle prices and
// reports them to the bridge as the oracle principal, driving the liquidation
// trigger.
type Monitor struct {
	oracle    *oracle.Engine
	bridge    *bridge.Engine
	principal crypto.Address
	interval  time.Duration
	logger    *slog.Logger

	mu              sync.Mutex
	tracked         map[string]Position
	collateralAsset string
	borrowedAsset   string
}

// New constructs a monitor reporting as the given oracle principal.
func New(oracleEngine *oracle.Engine, bridgeEngine *bridge.Engine, principal crypto.Address, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		oracle:    oracleEngine,
		bridge:    bridgeEngine,
		principal: principal,
		interval:  interval,
		logger:    logger,
		tracked:   make(map[string]Position),
	}
}

// SetAssetPair configures the asset pair assumed for exposures registered via
// bridge events. Positions added through Track keep their own pair.
func (m *Monitor) SetAssetPair(collateral, borrowed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collateralAsset = strings.ToUpper(strings.TrimSpace(collateral))
	m.borrowedAsset = strings.ToUpper(strings.TrimSpace(borrowed))
}

// Emit implements events.Emitter: borrower requests entering the bridge are
// tracked automatically, and liquidated ones drop out. Events carrying no
// stored record, or arriving before SetAssetPair, are ignored.
func (m *Monitor) Emit(evt events.Event) {
	record, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	entry := record.Event()
	if entry == nil {
		return
	}
	switch entry.Type {
	case events.TypeBridgeRequestCreated:
		m.mu.Lock()
		collateralAsset, borrowedAsset := m.collateralAsset, m.borrowedAsset
		m.mu.Unlock()
		if collateralAsset == "" || borrowedAsset == "" {
			return
		}
		borrower, err := crypto.DecodeAddress(entry.Attributes["borrower"])
		if err != nil {
			m.logger.Warn("request event carries invalid borrower",
				"borrower", entry.Attributes["borrower"],
				"error", err,
			)
			return
		}
		collateral, okC := new(big.Int).SetString(entry.Attributes["collateral"], 10)
		requested, okR := new(big.Int).SetString(entry.Attributes["requested"], 10)
		if !okC || !okR {
			m.logger.Warn("request event carries invalid amounts",
				"borrower", borrower.String(),
			)
			return
		}
		m.Track(Position{
			Borrower:         borrower,
			CollateralAsset:  collateralAsset,
			BorrowedAsset:    borrowedAsset,
			CollateralAmount: collateral,
			BorrowedAmount:   requested,
		})
	case events.TypeBridgeRequestLiquidated:
		borrower, err := crypto.DecodeAddress(entry.Attributes["borrower"])
		if err != nil {
			return
		}
		m.Untrack(borrower)
	}
}

// Track registers a borrower exposure for ratio sweeps. Re-tracking the same
// borrower replaces the previous entry.
func (m *Monitor) Track(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[string(pos.Borrower.Bytes())] = pos.clone()
}

// Untrack removes the borrower from future sweeps.
func (m *Monitor) Untrack(borrower crypto.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracked, string(borrower.Bytes()))
}

// Tracked returns the number of borrowers currently under watch.
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

// Run sweeps on the configured interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep runs one ratio pass over every tracked borrower and returns the
// number of successful reports.
func (m *Monitor) Sweep() int {
	m.mu.Lock()
	positions := make([]Position, 0, len(m.tracked))
	for _, pos := range m.tracked {
		positions = append(positions, pos.clone())
	}
	m.mu.Unlock()

	reported := 0
	for _, pos := range positions {
		ratio, err := m.oracle.CollateralRatio(pos.CollateralAsset, pos.BorrowedAsset, pos.CollateralAmount, pos.BorrowedAmount)
		if err != nil {
			m.logger.Warn("collateral ratio unavailable",
				"borrower", pos.Borrower.String(),
				"error", err,
			)
			continue
		}
		if err := m.bridge.UpdateCollateralRatio(m.principal, pos.Borrower, ratio); err != nil {
			if errors.Is(err, bridge.ErrNoActiveRequest) {
				// The request settled or liquidated; stop watching it.
				m.Untrack(pos.Borrower)
				continue
			}
			m.logger.Warn("ratio report rejected",
				"borrower", pos.Borrower.String(),
				"ratio", ratio,
				"error", err,
			)
			continue
		}
		reported++
		request, err := m.bridge.BorrowerRequestOf(pos.Borrower)
		if err == nil && request != nil && !request.Active {
			observability.Lending().RecordLiquidation()
			m.logger.Info("borrower request liquidated",
				"borrower", pos.Borrower.String(),
				"ratio", ratio,
			)
			m.Untrack(pos.Borrower)
		}
	}
	return reported
}
