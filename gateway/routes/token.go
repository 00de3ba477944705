package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendbridge/native/token"
)

type tokenRoutes struct {
	ledger *token.Ledger
}

func (tr *tokenRoutes) mount(r chi.Router) {
	r.Post("/approve", tr.approve)
	r.Get("/balances/{address}", tr.balance)
	r.Get("/allowances/{owner}", tr.allowance)
}

type approveRequest struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

// approve grants the pool custodian a pull allowance from the owner. The
// custodian is fixed at construction, so the spender is implicit.
func (tr *tokenRoutes) approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := tr.ledger.Approve(owner, tr.ledger.Custodian(), amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (tr *tokenRoutes) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	balance, err := tr.ledger.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": amountString(balance)})
}

func (tr *tokenRoutes) allowance(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	allowance, err := tr.ledger.Allowance(owner, tr.ledger.Custodian())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"allowance": amountString(allowance)})
}
