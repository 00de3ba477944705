package token

import (
	"errors"
	"math/big"
	"testing"

	"lendbridge/core/types"
	"lendbridge/crypto"
)

type mockLedgerState struct {
	accounts   map[string]*types.Account
	allowances map[string]*big.Int
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{
		accounts:   make(map[string]*types.Account),
		allowances: make(map[string]*big.Int),
	}
}

func (m *mockLedgerState) key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockLedgerState) allowanceKey(owner, spender crypto.Address) string {
	return string(owner.Bytes()) + "/" + string(spender.Bytes())
}

func (m *mockLedgerState) GetAccount(addr crypto.Address) (*types.Account, error) {
	acc := m.accounts[m.key(addr)]
	if acc == nil {
		return nil, nil
	}
	clone := *acc
	clone.BalanceToken = new(big.Int).Set(acc.BalanceToken)
	clone.BalanceWrapped = new(big.Int).Set(acc.BalanceWrapped)
	return &clone, nil
}

func (m *mockLedgerState) PutAccount(addr crypto.Address, account *types.Account) error {
	clone := *account
	m.accounts[m.key(addr)] = &clone
	return nil
}

func (m *mockLedgerState) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	v := m.allowances[m.allowanceKey(owner, spender)]
	if v == nil {
		return nil, nil
	}
	return new(big.Int).Set(v), nil
}

func (m *mockLedgerState) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	m.allowances[m.allowanceKey(owner, spender)] = new(big.Int).Set(amount)
	return nil
}

func makeAddress(fill byte) crypto.Address {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(crypto.LendPrefix, raw)
}

func newTestLedger() (*Ledger, *mockLedgerState, crypto.Address) {
	custodian := makeAddress(0xcc)
	ledger := NewLedger(custodian)
	state := newMockLedgerState()
	ledger.SetState(state)
	return ledger, state, custodian
}

func TestMintAndBalance(t *testing.T) {
	ledger, _, _ := newTestLedger()
	holder := makeAddress(0x10)

	if err := ledger.Mint(holder, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Mint(holder, big.NewInt(250)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf(holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected balance: %s", balance)
	}
	// Unknown accounts read as zero.
	other, err := ledger.BalanceOf(makeAddress(0x99))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if other.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", other)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger, _, custodian := newTestLedger()
	holder := makeAddress(0x10)

	if err := ledger.Mint(holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(holder, big.NewInt(60)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve(holder, custodian, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(holder, big.NewInt(60)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}

	holderBal, _ := ledger.BalanceOf(holder)
	custodyBal, _ := ledger.BalanceOf(custodian)
	if holderBal.Cmp(big.NewInt(40)) != 0 || custodyBal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected balances: holder=%s custody=%s", holderBal, custodyBal)
	}
	remaining, _ := ledger.Allowance(holder, custodian)
	if remaining.Sign() != 0 {
		t.Fatalf("allowance not consumed: %s", remaining)
	}
	if err := ledger.TransferFrom(holder, big.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance after consumption, got %v", err)
	}
}

func TestTransferFromInsufficientBalance(t *testing.T) {
	ledger, state, custodian := newTestLedger()
	holder := makeAddress(0x10)

	if err := ledger.Mint(holder, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(holder, custodian, big.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(holder, big.NewInt(50)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// The failed pull leaves the allowance untouched.
	remaining := state.allowances[state.allowanceKey(holder, custodian)]
	if remaining.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("allowance mutated on failed pull: %s", remaining)
	}
}

func TestTransferPushesFromCustody(t *testing.T) {
	ledger, _, custodian := newTestLedger()
	recipient := makeAddress(0x20)

	if err := ledger.Transfer(recipient, big.NewInt(30)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance from empty custody, got %v", err)
	}
	if err := ledger.Mint(custodian, big.NewInt(70)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(recipient, big.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	custodyBal, _ := ledger.BalanceOf(custodian)
	recipientBal, _ := ledger.BalanceOf(recipient)
	if custodyBal.Cmp(big.NewInt(40)) != 0 || recipientBal.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected balances: custody=%s recipient=%s", custodyBal, recipientBal)
	}
}

func TestNilStateRejected(t *testing.T) {
	ledger := NewLedger(makeAddress(0xcc))
	if _, err := ledger.BalanceOf(makeAddress(0x10)); !errors.Is(err, ErrNilState) {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
	if err := ledger.Approve(makeAddress(0x10), makeAddress(0x11), big.NewInt(1)); !errors.Is(err, ErrNilState) {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
}
