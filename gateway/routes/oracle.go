package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lendbridge/native/oracle"
	"lendbridge/observability"
)

type oracleRoutes struct {
	engine *oracle.Engine
}

func (or *oracleRoutes) mount(r chi.Router) {
	r.Post("/prices", or.updatePrice)
	r.Get("/prices/{asset}", or.latestPrice)
	r.Post("/ratio", or.collateralRatio)
}

type updatePriceRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Price  string `json:"price"`
}

func (or *oracleRoutes) updatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := or.engine.UpdateAssetPrice(caller, req.Asset, price); err != nil {
		writeEngineError(w, err)
		return
	}
	observability.Lending().RecordPriceUpdate(req.Asset)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (or *oracleRoutes) latestPrice(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	price, err := or.engine.LatestPrice(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	active, err := or.engine.IsPriceActive(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset":  asset,
		"price":  amountString(price),
		"active": active,
	})
}

type collateralRatioRequest struct {
	CollateralAsset  string `json:"collateralAsset"`
	BorrowedAsset    string `json:"borrowedAsset"`
	CollateralAmount string `json:"collateralAmount"`
	BorrowedAmount   string `json:"borrowedAmount"`
}

func (or *oracleRoutes) collateralRatio(w http.ResponseWriter, r *http.Request) {
	var req collateralRatioRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	collateral, err := parseAmount(req.CollateralAmount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	borrowed, err := parseAmount(req.BorrowedAmount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	ratio, err := or.engine.CollateralRatio(req.CollateralAsset, req.BorrowedAsset, collateral, borrowed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"ratio": ratio})
}
