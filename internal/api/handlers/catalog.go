package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/watchlist"
	"github.com/wonny/valuescreener/pkg/logger"
)

// CatalogGateway is the read-only part of the screening service
type CatalogGateway interface {
	FetchIndices(ctx context.Context) ([]string, error)
	FetchDCFValuation(ctx context.Context, ticker string) (*contracts.DCFValuation, error)
	FetchFinancials(ctx context.Context, ticker string) (*contracts.FinancialStatements, error)
}

// IndexDomainSetter receives the allowed index list
type IndexDomainSetter interface {
	SetIndexDomain(indices []string)
}

// CatalogHandler serves indices, DCF valuations and financial statements
type CatalogHandler struct {
	gw     CatalogGateway
	domain IndexDomainSetter
	logger *logger.Logger
}

// NewCatalogHandler creates a new catalog handler; domain may be nil
func NewCatalogHandler(gw CatalogGateway, domain IndexDomainSetter, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{gw: gw, domain: domain, logger: log}
}

// GetIndices lists screenable indices and refreshes the criteria domain
// GET /api/indices
func (h *CatalogHandler) GetIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := h.gw.FetchIndices(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch indices")
		respondErr(w, err)
		return
	}

	if h.domain != nil && len(indices) > 0 {
		h.domain.SetIndexDomain(indices)
	}

	respondData(w, http.StatusOK, contracts.IndicesResponse{Indices: indices})
}

// DCFView adds per-scenario upside to the valuation
type DCFView struct {
	*contracts.DCFValuation
	Scenario1Upside *float64 `json:"scenario1_upside"`
	Scenario2Upside *float64 `json:"scenario2_upside"`
}

// GetDCF returns the two-scenario valuation of a ticker
// GET /api/dcf/{ticker}
func (h *CatalogHandler) GetDCF(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(mux.Vars(r)["ticker"])
	if err := watchlist.ValidateTicker(ticker); err != nil {
		respondErr(w, err)
		return
	}

	dcf, err := h.gw.FetchDCFValuation(r.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Warn("DCF valuation failed")
		respondErr(w, err)
		return
	}

	respondData(w, http.StatusOK, DCFView{
		DCFValuation:    dcf,
		Scenario1Upside: dcf.Upside(dcf.Scenario1),
		Scenario2Upside: dcf.Upside(dcf.Scenario2),
	})
}

// GetFinancials returns the financial statements of a ticker
// GET /api/financials/{ticker}
func (h *CatalogHandler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(mux.Vars(r)["ticker"])
	if err := watchlist.ValidateTicker(ticker); err != nil {
		respondErr(w, err)
		return
	}

	statements, err := h.gw.FetchFinancials(r.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Warn("Financial statements unavailable")
		respondErr(w, err)
		return
	}

	respondData(w, http.StatusOK, statements)
}
