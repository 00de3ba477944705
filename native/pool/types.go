package pool

import "math/big"

// LenderPosition tracks the custodied deposit of one lender. Locking is a
// one-way gate per matching round; only the bridge principal may lock or
// unlock.
type LenderPosition struct {
	Amount *big.Int
	Locked bool
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (p *LenderPosition) Clone() *LenderPosition {
	if p == nil {
		return nil
	}
	clone := &LenderPosition{Locked: p.Locked}
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return clone
}

// BorrowerPosition tracks the pledged collateral and outstanding borrow of
// one borrower.
type BorrowerPosition struct {
	Collateral *big.Int
	Borrowed   *big.Int
	Locked     bool
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (p *BorrowerPosition) Clone() *BorrowerPosition {
	if p == nil {
		return nil
	}
	clone := &BorrowerPosition{Locked: p.Locked}
	if p.Collateral != nil {
		clone.Collateral = new(big.Int).Set(p.Collateral)
	}
	if p.Borrowed != nil {
		clone.Borrowed = new(big.Int).Set(p.Borrowed)
	}
	return clone
}
