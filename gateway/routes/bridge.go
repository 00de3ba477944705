package routes

import (
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendbridge/native/bridge"
	"lendbridge/observability"
)

type bridgeRoutes struct {
	engine *bridge.Engine
}

func (br *bridgeRoutes) mount(r chi.Router) {
	r.Post("/offers", br.createOffer)
	r.Post("/requests", br.createRequest)
	r.Post("/proofs", br.verifyProof)
	r.Post("/matches", br.findMatch)
	r.Post("/ratio", br.updateRatio)
	r.Get("/offers/{address}", br.offer)
	r.Get("/requests/{address}", br.request)
	r.Get("/liquidity/{address}", br.liquidity)
}

type createOfferRequest struct {
	Caller   string `json:"caller"`
	Amount   string `json:"amount"`
	LowerVTL uint64 `json:"lowerVtl"`
	UpperVTL uint64 `json:"upperVtl"`
}

func (br *bridgeRoutes) createOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := br.engine.CreateLenderOffer(caller, amount, req.LowerVTL, req.UpperVTL); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

type createRequestRequest struct {
	Caller     string `json:"caller"`
	Collateral string `json:"collateral"`
	Requested  string `json:"requested"`
	LowerVTL   uint64 `json:"lowerVtl"`
	UpperVTL   uint64 `json:"upperVtl"`
}

func (br *bridgeRoutes) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	collateral, err := parseAmount(req.Collateral)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	requested, err := parseAmount(req.Requested)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := br.engine.CreateBorrowerRequest(caller, collateral, requested, req.LowerVTL, req.UpperVTL); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

type verifyProofRequest struct {
	Account  string `json:"account"`
	IsLender bool   `json:"isLender"`
	Amount   string `json:"amount"`
	Proof    string `json:"proof"`
}

func (br *bridgeRoutes) verifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyProofRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := br.engine.VerifyProof(account, req.IsLender, amount, proof); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type findMatchRequest struct {
	Lender   string `json:"lender"`
	Borrower string `json:"borrower"`
}

func (br *bridgeRoutes) findMatch(w http.ResponseWriter, r *http.Request) {
	var req findMatchRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	lender, err := parseAddress(req.Lender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	matchID, matched, err := br.engine.FindMatch(lender, borrower)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	volume, _ := new(big.Float).SetInt(matched).Float64()
	observability.Lending().RecordMatch(volume)
	writeJSON(w, http.StatusOK, map[string]string{
		"matchId": matchID,
		"matched": amountString(matched),
	})
}

type updateRatioRequest struct {
	Caller   string `json:"caller"`
	Borrower string `json:"borrower"`
	Ratio    uint64 `json:"ratio"`
}

func (br *bridgeRoutes) updateRatio(w http.ResponseWriter, r *http.Request) {
	var req updateRatioRequest
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
	if err := br.engine.UpdateCollateralRatio(caller, borrower, req.Ratio); err != nil {
		writeEngineError(w, err)
		return
	}
	request, err := br.engine.BorrowerRequestOf(borrower)
	if err == nil && request != nil && !request.Active {
		observability.Lending().RecordLiquidation()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (br *bridgeRoutes) offer(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	offer, err := br.engine.LenderOfferOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if offer == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no lender offer"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount":         amountString(offer.Amount),
		"lowerVtl":       offer.VTL.Lower,
		"upperVtl":       offer.VTL.Upper,
		"active":         offer.Active,
		"proofVerified":  offer.ProofVerified,
		"wrappedBalance": amountString(offer.WrappedBalance),
	})
}

func (br *bridgeRoutes) request(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	request, err := br.engine.BorrowerRequestOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if request == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no borrower request"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collateral":        amountString(request.Collateral),
		"requested":         amountString(request.Requested),
		"lowerVtl":          request.VTL.Lower,
		"upperVtl":          request.VTL.Upper,
		"active":            request.Active,
		"proofVerified":     request.ProofVerified,
		"wrappedCollateral": amountString(request.WrappedCollateral),
	})
}

func (br *bridgeRoutes) liquidity(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	liquidity, err := br.engine.LiquidityOf(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"liquidity": amountString(liquidity)})
}
