package lendstate

import (
	"errors"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"lendbridge/core/types"
	"lendbridge/crypto"
	"lendbridge/native/bridge"
	"lendbridge/native/oracle"
	"lendbridge/native/pool"
	"lendbridge/storage"
)

// ErrNilDatabase is returned when a store is constructed without a backend.
var ErrNilDatabase = errors.New("lendstate: database not configured")

// Store persists every lending-module record in the underlying key-value
// store. It satisfies the state interfaces of the token ledger and the oracle,
// pool and bridge engines, so one store instance backs the whole node.
type Store struct {
	db storage.Database
}

// NewStore constructs a store bound to the provided database.
func NewStore(db storage.Database) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	return &Store{db: db}, nil
}

// kvGet decodes the record at key into out. The boolean reports whether the
// key existed; absence is not an error.
func (s *Store) kvGet(key []byte, out interface{}) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNilDatabase
	}
	ok, err := s.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) kvPut(key []byte, value interface{}) error {
	if s == nil || s.db == nil {
		return ErrNilDatabase
	}
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw)
}

// --- Token ledger state ---

type storedAccount struct {
	Nonce          uint64
	BalanceToken   *big.Int
	BalanceWrapped *big.Int
}

// GetAccount returns the stored account, or nil when none exists.
func (s *Store) GetAccount(addr crypto.Address) (*types.Account, error) {
	var rec storedAccount
	ok, err := s.kvGet(addressKey(accountPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	acc := &types.Account{
		Nonce:          rec.Nonce,
		BalanceToken:   rec.BalanceToken,
		BalanceWrapped: rec.BalanceWrapped,
	}
	return acc.Ensure(), nil
}

// PutAccount persists the account record.
func (s *Store) PutAccount(addr crypto.Address, account *types.Account) error {
	if account == nil {
		return errors.New("lendstate: nil account")
	}
	account = account.Ensure()
	return s.kvPut(addressKey(accountPrefix, addr), &storedAccount{
		Nonce:          account.Nonce,
		BalanceToken:   account.BalanceToken,
		BalanceWrapped: account.BalanceWrapped,
	})
}

// GetAllowance returns the remaining pull authorization, or nil when none was
// ever granted.
func (s *Store) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	var amount big.Int
	ok, err := s.kvGet(allowanceKey(owner, spender), &amount)
	if err != nil || !ok {
		return nil, err
	}
	return &amount, nil
}

// PutAllowance persists the pull authorization from owner to spender.
func (s *Store) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return s.kvPut(allowanceKey(owner, spender), amount)
}

// --- Oracle state ---

type storedAssetPrice struct {
	Price      *big.Int
	LastUpdate uint64
	Active     bool
}

// GetAssetPrice returns the stored price record, or nil when the asset was
// never priced.
func (s *Store) GetAssetPrice(asset string) (*oracle.AssetPrice, error) {
	var rec storedAssetPrice
	ok, err := s.kvGet(priceKey(asset), &rec)
	if err != nil || !ok {
		return nil, err
	}
	if rec.LastUpdate > math.MaxInt64 {
		return nil, errors.New("lendstate: price timestamp out of range")
	}
	price := rec.Price
	if price == nil {
		price = big.NewInt(0)
	}
	return &oracle.AssetPrice{
		Price:      price,
		LastUpdate: int64(rec.LastUpdate),
		Active:     rec.Active,
	}, nil
}

// PutAssetPrice persists the price record for the asset.
func (s *Store) PutAssetPrice(asset string, price *oracle.AssetPrice) error {
	if price == nil {
		return errors.New("lendstate: nil asset price")
	}
	if price.LastUpdate < 0 {
		return errors.New("lendstate: negative price timestamp")
	}
	return s.kvPut(priceKey(asset), &storedAssetPrice{
		Price:      price.Price,
		LastUpdate: uint64(price.LastUpdate),
		Active:     price.Active,
	})
}

// --- Pool state ---

type storedLenderPosition struct {
	Amount *big.Int
	Locked bool
}

type storedBorrowerPosition struct {
	Collateral *big.Int
	Borrowed   *big.Int
	Locked     bool
}

// GetLenderPosition returns the stored position, or nil when none exists.
func (s *Store) GetLenderPosition(addr crypto.Address) (*pool.LenderPosition, error) {
	var rec storedLenderPosition
	ok, err := s.kvGet(addressKey(lenderPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	amount := rec.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return &pool.LenderPosition{Amount: amount, Locked: rec.Locked}, nil
}

// PutLenderPosition persists the lender position.
func (s *Store) PutLenderPosition(addr crypto.Address, position *pool.LenderPosition) error {
	if position == nil {
		return errors.New("lendstate: nil lender position")
	}
	return s.kvPut(addressKey(lenderPrefix, addr), &storedLenderPosition{
		Amount: position.Amount,
		Locked: position.Locked,
	})
}

// GetBorrowerPosition returns the stored position, or nil when none exists.
func (s *Store) GetBorrowerPosition(addr crypto.Address) (*pool.BorrowerPosition, error) {
	var rec storedBorrowerPosition
	ok, err := s.kvGet(addressKey(borrowerPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	collateral := rec.Collateral
	if collateral == nil {
		collateral = big.NewInt(0)
	}
	borrowed := rec.Borrowed
	if borrowed == nil {
		borrowed = big.NewInt(0)
	}
	return &pool.BorrowerPosition{Collateral: collateral, Borrowed: borrowed, Locked: rec.Locked}, nil
}

// PutBorrowerPosition persists the borrower position.
func (s *Store) PutBorrowerPosition(addr crypto.Address, position *pool.BorrowerPosition) error {
	if position == nil {
		return errors.New("lendstate: nil borrower position")
	}
	return s.kvPut(addressKey(borrowerPrefix, addr), &storedBorrowerPosition{
		Collateral: position.Collateral,
		Borrowed:   position.Borrowed,
		Locked:     position.Locked,
	})
}

// --- Bridge state ---

type storedLenderOffer struct {
	Amount         *big.Int
	LowerVTL       uint64
	UpperVTL       uint64
	Active         bool
	ProofVerified  bool
	WrappedBalance *big.Int
}

type storedBorrowerRequest struct {
	Collateral        *big.Int
	Requested         *big.Int
	LowerVTL          uint64
	UpperVTL          uint64
	Active            bool
	ProofVerified     bool
	WrappedCollateral *big.Int
}

// GetLenderOffer returns the stored offer, or nil when none exists.
func (s *Store) GetLenderOffer(addr crypto.Address) (*bridge.LenderOffer, error) {
	var rec storedLenderOffer
	ok, err := s.kvGet(addressKey(offerPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	amount := rec.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	wrapped := rec.WrappedBalance
	if wrapped == nil {
		wrapped = big.NewInt(0)
	}
	return &bridge.LenderOffer{
		Amount:         amount,
		VTL:            bridge.VTLRange{Lower: rec.LowerVTL, Upper: rec.UpperVTL},
		Active:         rec.Active,
		ProofVerified:  rec.ProofVerified,
		WrappedBalance: wrapped,
	}, nil
}

// PutLenderOffer persists the lender offer.
func (s *Store) PutLenderOffer(addr crypto.Address, offer *bridge.LenderOffer) error {
	if offer == nil {
		return errors.New("lendstate: nil lender offer")
	}
	return s.kvPut(addressKey(offerPrefix, addr), &storedLenderOffer{
		Amount:         offer.Amount,
		LowerVTL:       offer.VTL.Lower,
		UpperVTL:       offer.VTL.Upper,
		Active:         offer.Active,
		ProofVerified:  offer.ProofVerified,
		WrappedBalance: offer.WrappedBalance,
	})
}

// GetBorrowerRequest returns the stored request, or nil when none exists.
func (s *Store) GetBorrowerRequest(addr crypto.Address) (*bridge.BorrowerRequest, error) {
	var rec storedBorrowerRequest
	ok, err := s.kvGet(addressKey(requestPrefix, addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	collateral := rec.Collateral
	if collateral == nil {
		collateral = big.NewInt(0)
	}
	requested := rec.Requested
	if requested == nil {
		requested = big.NewInt(0)
	}
	wrapped := rec.WrappedCollateral
	if wrapped == nil {
		wrapped = big.NewInt(0)
	}
	return &bridge.BorrowerRequest{
		Collateral:        collateral,
		Requested:         requested,
		VTL:               bridge.VTLRange{Lower: rec.LowerVTL, Upper: rec.UpperVTL},
		Active:            rec.Active,
		ProofVerified:     rec.ProofVerified,
		WrappedCollateral: wrapped,
	}, nil
}

// PutBorrowerRequest persists the borrower request.
func (s *Store) PutBorrowerRequest(addr crypto.Address, request *bridge.BorrowerRequest) error {
	if request == nil {
		return errors.New("lendstate: nil borrower request")
	}
	return s.kvPut(addressKey(requestPrefix, addr), &storedBorrowerRequest{
		Collateral:        request.Collateral,
		Requested:         request.Requested,
		LowerVTL:          request.VTL.Lower,
		UpperVTL:          request.VTL.Upper,
		Active:            request.Active,
		ProofVerified:     request.ProofVerified,
		WrappedCollateral: request.WrappedCollateral,
	})
}

// GetLiquidity returns the accumulated matched volume for the lender, or nil
// when no match ever settled.
func (s *Store) GetLiquidity(addr crypto.Address) (*big.Int, error) {
	var amount big.Int
	ok, err := s.kvGet(addressKey(liquidityPrefix, addr), &amount)
	if err != nil || !ok {
		return nil, err
	}
	return &amount, nil
}

// PutLiquidity persists the accumulated matched volume for the lender.
func (s *Store) PutLiquidity(addr crypto.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return s.kvPut(addressKey(liquidityPrefix, addr), amount)
}
