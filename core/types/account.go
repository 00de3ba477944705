package types

import "math/big"

// Account records the fungible balances held by an address. BalanceToken is
// the custodial-chain lending token; BalanceWrapped mirrors the wrapped asset
// accounted on the bridge chain.
type Account struct {
	Nonce          uint64   `json:"nonce"`
	BalanceToken   *big.Int `json:"balanceToken"`
	BalanceWrapped *big.Int `json:"balanceWrapped"`
}

// Ensure normalises nil balances to zero so arithmetic never dereferences a
// nil big.Int.
func (a *Account) Ensure() *Account {
	if a == nil {
		return &Account{BalanceToken: big.NewInt(0), BalanceWrapped: big.NewInt(0)}
	}
	if a.BalanceToken == nil {
		a.BalanceToken = big.NewInt(0)
	}
	if a.BalanceWrapped == nil {
		a.BalanceWrapped = big.NewInt(0)
	}
	return a
}
