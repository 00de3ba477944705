package oracle

import "math/big"

// AssetPrice captures the stored price record for a single asset symbol.
// Prices are fixed-point values at 18-decimal scale to match on-chain
// precision.
type AssetPrice struct {
	// Price is the last accepted price, 1e18 scale.
	Price *big.Int
	// LastUpdate records the unix timestamp of the last accepted update.
	LastUpdate int64
	// Active flips true after the first successful update and never resets.
	Active bool
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (p *AssetPrice) Clone() *AssetPrice {
	if p == nil {
		return nil
	}
	clone := &AssetPrice{LastUpdate: p.LastUpdate, Active: p.Active}
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	}
	return clone
}
