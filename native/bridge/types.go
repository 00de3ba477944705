package bridge

import "math/big"

// VTLRange is the [Lower, Upper] band of acceptable collateralization ratio a
// party will accept, expressed in percentage points (140 = 1.40x). Matching
// requires the lender and borrower bands to intersect.
type VTLRange struct {
	Lower uint64
	Upper uint64
}

// Valid reports whether the range is well-formed.
func (r VTLRange) Valid() bool {
	return r.Lower < r.Upper
}

// Overlaps reports whether two ranges intersect, bounds inclusive. The check
// is order-independent.
func (r VTLRange) Overlaps(other VTLRange) bool {
	return r.Lower <= other.Upper && other.Lower <= r.Upper
}

// LenderOffer records one lender's standing offer. WrappedBalance is credited
// only after cross-chain custody has been attested via proof verification.
type LenderOffer struct {
	Amount         *big.Int
	VTL            VTLRange
	Active         bool
	ProofVerified  bool
	WrappedBalance *big.Int
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (o *LenderOffer) Clone() *LenderOffer {
	if o == nil {
		return nil
	}
	clone := &LenderOffer{VTL: o.VTL, Active: o.Active, ProofVerified: o.ProofVerified}
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	}
	if o.WrappedBalance != nil {
		clone.WrappedBalance = new(big.Int).Set(o.WrappedBalance)
	}
	return clone
}

// BorrowerRequest records one borrower's standing request. The request is
// deactivated by exhaustion or by a reported ratio breaching its own lower
// bound.
type BorrowerRequest struct {
	Collateral        *big.Int
	Requested         *big.Int
	VTL               VTLRange
	Active            bool
	ProofVerified     bool
	WrappedCollateral *big.Int
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (r *BorrowerRequest) Clone() *BorrowerRequest {
	if r == nil {
		return nil
	}
	clone := &BorrowerRequest{VTL: r.VTL, Active: r.Active, ProofVerified: r.ProofVerified}
	if r.Collateral != nil {
		clone.Collateral = new(big.Int).Set(r.Collateral)
	}
	if r.Requested != nil {
		clone.Requested = new(big.Int).Set(r.Requested)
	}
	if r.WrappedCollateral != nil {
		clone.WrappedCollateral = new(big.Int).Set(r.WrappedCollateral)
	}
	return clone
}
