package events

import (
	"math/big"
	"strconv"
	"strings"

	"lendbridge/core/types"
	"lendbridge/crypto"
)

const (
	// TypeBridgeOfferCreated is emitted when a lender registers an offer.
	TypeBridgeOfferCreated = "bridge.offer_created"
	// TypeBridgeRequestCreated is emitted when a borrower registers a request.
	TypeBridgeRequestCreated = "bridge.request_created"
	// TypeBridgeProofVerified is emitted when cross-chain custody is attested.
	TypeBridgeProofVerified = "bridge.proof_verified"
	// TypeBridgeWrappedMinted is emitted when the wrapped balance is credited
	// following proof verification.
	TypeBridgeWrappedMinted = "bridge.wrapped_minted"
	// TypeBridgeMatchSettled is emitted when an offer/request pair settles.
	TypeBridgeMatchSettled = "bridge.match_settled"
	// TypeBridgeRatioUpdated is emitted on every oracle ratio report.
	TypeBridgeRatioUpdated = "bridge.ratio_updated"
	// TypeBridgeRequestLiquidated is emitted when a ratio breach deactivates a
	// borrower request.
	TypeBridgeRequestLiquidated = "bridge.request_liquidated"
)

func wrappedAddressString(b [20]byte) string {
	if b == ([20]byte{}) {
		return ""
	}
	return crypto.NewAddress(crypto.WrappedPrefix, b[:]).String()
}

type BridgeOfferCreated struct {
	Lender   [20]byte
	Amount   *big.Int
	LowerVTL uint64
	UpperVTL uint64
}

func (BridgeOfferCreated) EventType() string { return TypeBridgeOfferCreated }

func (e BridgeOfferCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeOfferCreated,
		Attributes: map[string]string{
			"lender":   wrappedAddressString(e.Lender),
			"amount":   amountString(e.Amount),
			"lowerVtl": strconv.FormatUint(e.LowerVTL, 10),
			"upperVtl": strconv.FormatUint(e.UpperVTL, 10),
		},
	}
}

type BridgeRequestCreated struct {
	Borrower   [20]byte
	Collateral *big.Int
	Requested  *big.Int
	LowerVTL   uint64
	UpperVTL   uint64
}

func (BridgeRequestCreated) EventType() string { return TypeBridgeRequestCreated }

func (e BridgeRequestCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeRequestCreated,
		Attributes: map[string]string{
			"borrower":   wrappedAddressString(e.Borrower),
			"collateral": amountString(e.Collateral),
			"requested":  amountString(e.Requested),
			"lowerVtl":   strconv.FormatUint(e.LowerVTL, 10),
			"upperVtl":   strconv.FormatUint(e.UpperVTL, 10),
		},
	}
}

type BridgeProofVerified struct {
	Account  [20]byte
	IsLender bool
	Amount   *big.Int
}

func (BridgeProofVerified) EventType() string { return TypeBridgeProofVerified }

func (e BridgeProofVerified) Event() *types.Event {
	side := "borrower"
	if e.IsLender {
		side = "lender"
	}
	return &types.Event{
		Type: TypeBridgeProofVerified,
		Attributes: map[string]string{
			"account": wrappedAddressString(e.Account),
			"side":    side,
			"amount":  amountString(e.Amount),
		},
	}
}

type BridgeWrappedMinted struct {
	Account [20]byte
	Amount  *big.Int
}

func (BridgeWrappedMinted) EventType() string { return TypeBridgeWrappedMinted }

func (e BridgeWrappedMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeWrappedMinted,
		Attributes: map[string]string{
			"account": wrappedAddressString(e.Account),
			"amount":  amountString(e.Amount),
		},
	}
}

type BridgeMatchSettled struct {
	MatchID  string
	Lender   [20]byte
	Borrower [20]byte
	Amount   *big.Int
}

func (BridgeMatchSettled) EventType() string { return TypeBridgeMatchSettled }

func (e BridgeMatchSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeMatchSettled,
		Attributes: map[string]string{
			"matchId":  strings.TrimSpace(e.MatchID),
			"lender":   wrappedAddressString(e.Lender),
			"borrower": wrappedAddressString(e.Borrower),
			"amount":   amountString(e.Amount),
		},
	}
}

type BridgeRatioUpdated struct {
	Borrower [20]byte
	Ratio    uint64
}

func (BridgeRatioUpdated) EventType() string { return TypeBridgeRatioUpdated }

func (e BridgeRatioUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeRatioUpdated,
		Attributes: map[string]string{
			"borrower": wrappedAddressString(e.Borrower),
			"ratio":    strconv.FormatUint(e.Ratio, 10),
		},
	}
}

type BridgeRequestLiquidated struct {
	Borrower  [20]byte
	Ratio     uint64
	Threshold uint64
}

func (BridgeRequestLiquidated) EventType() string { return TypeBridgeRequestLiquidated }

func (e BridgeRequestLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeBridgeRequestLiquidated,
		Attributes: map[string]string{
			"borrower":  wrappedAddressString(e.Borrower),
			"ratio":     strconv.FormatUint(e.Ratio, 10),
			"threshold": strconv.FormatUint(e.Threshold, 10),
		},
	}
}
