package routes

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"lendbridge/core/events"
	"lendbridge/crypto"
	"lendbridge/native/bridge"
	"lendbridge/native/oracle"
	"lendbridge/native/pool"
	"lendbridge/native/token"
	"lendbridge/state/lendstate"
	"lendbridge/storage"
)

type testNode struct {
	handler http.Handler
	owner   crypto.Address
	oracle  crypto.Address
	bridge  crypto.Address
	ledger  *token.Ledger
	wrapped *token.WrappedLedger
}

func makeAddress(fill byte) crypto.Address {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(crypto.LendPrefix, raw)
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	store, err := lendstate.NewStore(storage.NewMemDB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	owner := makeAddress(0x01)
	oraclePrincipal := makeAddress(0x02)
	bridgePrincipal := makeAddress(0x03)
	custodian := makeAddress(0xcc)

	ledger := token.NewLedger(custodian)
	ledger.SetState(store)
	wrapped := token.NewWrappedLedger()
	wrapped.SetState(store)

	oracleEngine := oracle.NewEngine(owner)
	oracleEngine.SetState(store)

	poolEngine := pool.NewEngine(owner)
	poolEngine.SetState(store)
	poolEngine.SetToken(ledger)
	poolEngine.ConfigureBridge(bridgePrincipal)

	bridgeEngine := bridge.NewEngine(oraclePrincipal)
	bridgeEngine.SetState(store)
	bridgeEngine.SetWrappedToken(wrapped)

	eventLog := events.NewLog(nil, 64)
	oracleEngine.SetEmitter(eventLog)
	poolEngine.SetEmitter(eventLog)
	bridgeEngine.SetEmitter(eventLog)

	handler := New(Config{
		Oracle: oracleEngine,
		Pool:   poolEngine,
		Bridge: bridgeEngine,
		Ledger: ledger,
		Events: eventLog,
	})
	return &testNode{
		handler: handler,
		owner:   owner,
		oracle:  oraclePrincipal,
		bridge:  bridgePrincipal,
		ledger:  ledger,
		wrapped: wrapped,
	}
}

func (n *testNode) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	n.handler.ServeHTTP(res, req)
	return res
}

func (n *testNode) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	res := httptest.NewRecorder()
	n.handler.ServeHTTP(res, req)
	return res
}

func TestOraclePriceRoutes(t *testing.T) {
	node := newTestNode(t)
	stranger := makeAddress(0x99)

	res := node.post(t, "/v1/oracle/prices", map[string]string{
		"caller": stranger.String(),
		"asset":  "ETH",
		"price":  "2000000000000000000000",
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d: %s", res.Code, res.Body.String())
	}

	res = node.post(t, "/v1/oracle/prices", map[string]string{
		"caller": node.owner.String(),
		"asset":  "ETH",
		"price":  "2000000000000000000000",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", res.Code, res.Body.String())
	}

	res = node.get(t, "/v1/oracle/prices/ETH")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 reading price, got %d", res.Code)
	}
	var priceResp struct {
		Asset  string `json:"asset"`
		Price  string `json:"price"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &priceResp); err != nil {
		t.Fatalf("decode price response: %v", err)
	}
	if priceResp.Price != "2000000000000000000000" || !priceResp.Active {
		t.Fatalf("unexpected price response: %+v", priceResp)
	}

	// A second update inside the interval is throttled.
	res = node.post(t, "/v1/oracle/prices", map[string]string{
		"caller": node.owner.String(),
		"asset":  "ETH",
		"price":  "2100000000000000000000",
	})
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside update interval, got %d", res.Code)
	}
}

func TestPoolDepositRoutes(t *testing.T) {
	node := newTestNode(t)
	lender := makeAddress(0x10)

	if err := node.ledger.Mint(lender, mustAmount(t, "1000")); err != nil {
		t.Fatalf("fund lender: %v", err)
	}

	// No allowance yet.
	res := node.post(t, "/v1/pool/lender/deposits", map[string]string{
		"caller": lender.String(),
		"amount": "400",
	})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 without allowance, got %d: %s", res.Code, res.Body.String())
	}

	res = node.post(t, "/v1/token/approve", map[string]string{
		"owner":  lender.String(),
		"amount": "400",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("approve failed: %d", res.Code)
	}

	res = node.post(t, "/v1/pool/lender/deposits", map[string]string{
		"caller": lender.String(),
		"amount": "400",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("deposit failed: %d: %s", res.Code, res.Body.String())
	}

	res = node.get(t, "/v1/pool/lender/"+lender.String())
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 reading position, got %d", res.Code)
	}
	var position struct {
		Amount string `json:"amount"`
		Locked bool   `json:"locked"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &position); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if position.Amount != "400" || position.Locked {
		t.Fatalf("unexpected position: %+v", position)
	}

	res = node.get(t, "/v1/token/balances/"+lender.String())
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 reading balance, got %d", res.Code)
	}
	var balance struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != "600" {
		t.Fatalf("unexpected balance after deposit: %s", balance.Balance)
	}
}

func TestBridgeMatchRoutes(t *testing.T) {
	node := newTestNode(t)
	lender := makeAddress(0x10)
	borrower := makeAddress(0x20)
	proof := base64.StdEncoding.EncodeToString([]byte("attestation"))

	res := node.post(t, "/v1/bridge/offers", map[string]interface{}{
		"caller":   lender.String(),
		"amount":   "100",
		"lowerVtl": 130,
		"upperVtl": 160,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create offer failed: %d: %s", res.Code, res.Body.String())
	}
	res = node.post(t, "/v1/bridge/requests", map[string]interface{}{
		"caller":     borrower.String(),
		"collateral": "120",
		"requested":  "100",
		"lowerVtl":   140,
		"upperVtl":   180,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create request failed: %d: %s", res.Code, res.Body.String())
	}

	// Matching before verification conflicts.
	res = node.post(t, "/v1/bridge/matches", map[string]string{
		"lender":   lender.String(),
		"borrower": borrower.String(),
	})
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 before verification, got %d", res.Code)
	}

	res = node.post(t, "/v1/bridge/proofs", map[string]interface{}{
		"account":  lender.String(),
		"isLender": true,
		"amount":   "100",
		"proof":    proof,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("verify lender proof failed: %d: %s", res.Code, res.Body.String())
	}
	res = node.post(t, "/v1/bridge/proofs", map[string]interface{}{
		"account":  borrower.String(),
		"isLender": false,
		"amount":   "120",
		"proof":    proof,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("verify borrower proof failed: %d: %s", res.Code, res.Body.String())
	}

	res = node.post(t, "/v1/bridge/matches", map[string]string{
		"lender":   lender.String(),
		"borrower": borrower.String(),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("match failed: %d: %s", res.Code, res.Body.String())
	}
	var match struct {
		MatchID string `json:"matchId"`
		Matched string `json:"matched"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if match.Matched != "100" || match.MatchID == "" {
		t.Fatalf("unexpected match response: %+v", match)
	}

	res = node.get(t, "/v1/bridge/liquidity/"+lender.String())
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 reading liquidity, got %d", res.Code)
	}

	// Liquidation trigger is oracle-principal-only.
	res = node.post(t, "/v1/bridge/ratio", map[string]interface{}{
		"caller":   lender.String(),
		"borrower": borrower.String(),
		"ratio":    120,
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-oracle caller, got %d", res.Code)
	}
}

func TestPoolSetBridgeRoute(t *testing.T) {
	node := newTestNode(t)
	stranger := makeAddress(0x99)
	replacement := makeAddress(0x44)

	res := node.post(t, "/v1/pool/bridge", map[string]string{
		"caller": stranger.String(),
		"bridge": replacement.String(),
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d: %s", res.Code, res.Body.String())
	}

	res = node.post(t, "/v1/pool/bridge", map[string]string{
		"caller": node.owner.String(),
		"bridge": replacement.String(),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", res.Code, res.Body.String())
	}

	res = node.post(t, "/v1/pool/bridge", map[string]string{
		"caller": node.owner.String(),
		"bridge": "not-an-address",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed bridge, got %d", res.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	node := newTestNode(t)

	res := node.get(t, "/v1/events")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from events, got %d", res.Code)
	}
	var before []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(before) != 0 {
		t.Fatalf("expected empty event log, got %d entries", len(before))
	}

	res = node.post(t, "/v1/oracle/prices", map[string]string{
		"caller": node.owner.String(),
		"asset":  "ETH",
		"price":  "2000000000000000000000",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("price update failed: %d: %s", res.Code, res.Body.String())
	}

	res = node.get(t, "/v1/events")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from events, got %d", res.Code)
	}
	var after []struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(after) != 1 || after[0].Type != events.TypeOraclePriceUpdated {
		t.Fatalf("unexpected event log: %+v", after)
	}
	if after[0].Attributes["asset"] != "ETH" {
		t.Fatalf("unexpected event attributes: %+v", after[0].Attributes)
	}
}

func TestHealthz(t *testing.T) {
	node := newTestNode(t)
	res := node.get(t, "/healthz")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", res.Code)
	}
}

func mustAmount(t *testing.T, v string) *big.Int {
	t.Helper()
	amount, err := parseAmount(v)
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	return amount
}
