package routes

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendbridge/crypto"
	"lendbridge/native/pool"
	"lendbridge/observability"
)

var errInvalidSide = errors.New("side must be \"lender\" or \"borrower\"")

type poolRoutes struct {
	engine *pool.Engine
}

func (pr *poolRoutes) mount(r chi.Router) {
	r.Post("/lender/deposits", pr.depositLender)
	r.Post("/borrower/collateral", pr.depositCollateral)
	r.Post("/lock", pr.lock)
	r.Post("/unlock", pr.unlock)
	r.Post("/borrow", pr.executeBorrow)
	r.Post("/liquidate", pr.executeLiquidation)
	r.Post("/collateral/withdraw", pr.withdrawCollateral)
	r.Post("/bridge", pr.setBridge)
	r.Get("/lender/{address}", pr.lenderPosition)
	r.Get("/borrower/{address}", pr.borrowerPosition)
}

type depositRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (pr *poolRoutes) deposit(w http.ResponseWriter, r *http.Request, apply func(crypto.Address, *depositRequest) error) {
	var req depositRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := apply(caller, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (pr *poolRoutes) depositLender(w http.ResponseWriter, r *http.Request) {
	pr.deposit(w, r, func(caller crypto.Address, req *depositRequest) error {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return err
		}
		return pr.engine.DepositLenderAssets(caller, amount)
	})
}

func (pr *poolRoutes) depositCollateral(w http.ResponseWriter, r *http.Request) {
	pr.deposit(w, r, func(caller crypto.Address, req *depositRequest) error {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return err
		}
		return pr.engine.DepositCollateral(caller, amount)
	})
}

type lockRequest struct {
	Caller  string `json:"caller"`
	Side    string `json:"side"`
	Account string `json:"account"`
}

func (pr *poolRoutes) applyLock(w http.ResponseWriter, r *http.Request, unlock bool) {
	var req lockRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	switch req.Side {
	case "lender":
		if unlock {
			err = pr.engine.UnlockLenderPosition(caller, account)
		} else {
			err = pr.engine.LockLenderPosition(caller, account)
		}
	case "borrower":
		if unlock {
			err = pr.engine.UnlockBorrowerPosition(caller, account)
		} else {
			err = pr.engine.LockBorrowerPosition(caller, account)
		}
	default:
		writeBadRequest(w, errInvalidSide)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	observability.Lending().PositionLocked(req.Side, !unlock)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (pr *poolRoutes) lock(w http.ResponseWriter, r *http.Request) {
	pr.applyLock(w, r, false)
}

func (pr *poolRoutes) unlock(w http.ResponseWriter, r *http.Request) {
	pr.applyLock(w, r, true)
}

type setBridgeRequest struct {
	Caller string `json:"caller"`
	Bridge string `json:"bridge"`
}

func (pr *poolRoutes) setBridge(w http.ResponseWriter, r *http.Request) {
	var req setBridgeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	bridgeAddr, err := parseAddress(req.Bridge)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := pr.engine.SetBridge(caller, bridgeAddr); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type settlementRequest struct {
	Caller   string `json:"caller"`
	Borrower string `json:"borrower"`
	Lender   string `json:"lender"`
	Amount   string `json:"amount"`
}

func parseSettlement(req *settlementRequest) (caller, borrower, lender crypto.Address, amount *big.Int, err error) {
	if caller, err = parseAddress(req.Caller); err != nil {
		return
	}
	if borrower, err = parseAddress(req.Borrower); err != nil {
		return
	}
	if lender, err = parseAddress(req.Lender); err != nil {
		return
	}
	amount, err = parseAmount(req.Amount)
	return
}

func (pr *poolRoutes) executeBorrow(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, borrower, lender, amount, err := parseSettlement(&req)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := pr.engine.ExecuteBorrow(caller, borrower, lender, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (pr *poolRoutes) executeLiquidation(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, borrower, lender, amount, err := parseSettlement(&req)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := pr.engine.ExecuteLiquidation(caller, borrower, lender, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type withdrawRequest struct {
	Caller   string `json:"caller"`
	Borrower string `json:"borrower"`
	Amount   string `json:"amount"`
}

func (pr *poolRoutes) withdrawCollateral(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := pr.engine.WithdrawExcessCollateral(caller, borrower, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (pr *poolRoutes) lenderPosition(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	position, err := pr.engine.LenderPositionOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if position == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no lender position"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount": amountString(position.Amount),
		"locked": position.Locked,
	})
}

func (pr *poolRoutes) borrowerPosition(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	position, err := pr.engine.BorrowerPositionOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if position == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no borrower position"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collateral": amountString(position.Collateral),
		"borrowed":   amountString(position.Borrowed),
		"locked":     position.Locked,
	})
}
