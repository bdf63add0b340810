package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/pkg/errs"
	"github.com/wonny/valuescreener/pkg/httputil"
	"github.com/wonny/valuescreener/pkg/logger"
)

// Gateway is the screening service contract consumed by the session
// controller and the side-stores.
type Gateway interface {
	FetchIndices(ctx context.Context) ([]string, error)
	RunScreening(ctx context.Context, req contracts.ScreeningRequest) ([]contracts.StockResult, error)
	FetchDCFValuation(ctx context.Context, ticker string) (*contracts.DCFValuation, error)
	FetchFinancials(ctx context.Context, ticker string) (*contracts.FinancialStatements, error)
	FetchScreeningHistory(ctx context.Context) ([]contracts.HistoryRecord, error)
	FetchScreeningDetails(ctx context.Context, id int64) (*contracts.HistoryRecord, error)
	DeleteScreening(ctx context.Context, id int64) error
	GetWatchlist(ctx context.Context) ([]contracts.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, ticker string, notes *string) (string, error)
	RemoveFromWatchlist(ctx context.Context, id int64) error
}

// Client handles communication with the screening service.
// One method per remote operation, one HTTP request per call, payloads
// returned as decoded.
// ⭐ SSOT: 스크리닝 서비스 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

var _ Gateway = (*Client)(nil)

// NewClient creates a screening service client.
// baseURL may carry a path prefix (e.g. https://host/api).
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("gateway"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the normalized service URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchIndices lists the indices available for screening
// GET /indices
func (c *Client) FetchIndices(ctx context.Context) ([]string, error) {
	var out contracts.IndicesResponse
	if err := c.get(ctx, opIndices, "/indices", &out); err != nil {
		return nil, err
	}
	return out.Indices, nil
}

// RunScreening submits a criteria snapshot
// POST /screening
func (c *Client) RunScreening(ctx context.Context, req contracts.ScreeningRequest) ([]contracts.StockResult, error) {
	var out contracts.ScreeningResponse
	if err := c.send(ctx, opScreening, http.MethodPost, "/screening", req, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []contracts.StockResult{}
	}

	c.logger.WithFields(map[string]interface{}{
		"index":   req.IndexName,
		"results": len(out.Results),
	}).Debug("Screening response received")

	return out.Results, nil
}

// FetchDCFValuation fetches the two-scenario DCF for a ticker
// GET /dcf-valuation/{ticker}
func (c *Client) FetchDCFValuation(ctx context.Context, ticker string) (*contracts.DCFValuation, error) {
	var out contracts.DCFValuation
	if err := c.get(ctx, dcfOp(ticker), "/dcf-valuation/"+url.PathEscape(ticker), &out); err != nil {
		return nil, err
	}
	if out.Ticker == "" {
		out.Ticker = ticker
	}
	return &out, nil
}

// FetchFinancials fetches the income statement, balance sheet and cash flow
// GET /financials/{ticker}
func (c *Client) FetchFinancials(ctx context.Context, ticker string) (*contracts.FinancialStatements, error) {
	var out contracts.FinancialStatements
	if err := c.get(ctx, financialsOp(ticker), "/financials/"+url.PathEscape(ticker), &out); err != nil {
		return nil, err
	}
	if out.Ticker == "" {
		out.Ticker = ticker
	}
	return &out, nil
}

// FetchScreeningHistory lists past screenings (without results)
// GET /screening/history
func (c *Client) FetchScreeningHistory(ctx context.Context) ([]contracts.HistoryRecord, error) {
	var out contracts.HistoryResponse
	if err := c.get(ctx, opHistory, "/screening/history", &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// FetchScreeningDetails fetches one past screening with its results
// GET /screening/history/{id}
func (c *Client) FetchScreeningDetails(ctx context.Context, id int64) (*contracts.HistoryRecord, error) {
	var out contracts.HistoryRecord
	if err := c.get(ctx, opHistoryDetail, "/screening/history/"+idPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteScreening deletes one past screening
// DELETE /screening/history/{id}
func (c *Client) DeleteScreening(ctx context.Context, id int64) error {
	return c.send(ctx, opHistoryDelete, http.MethodDelete, "/screening/history/"+idPath(id), nil, nil)
}

// GetWatchlist lists watched tickers
// GET /watchlist
func (c *Client) GetWatchlist(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	var out []contracts.WatchlistEntry
	if err := c.get(ctx, opWatchlist, "/watchlist", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []contracts.WatchlistEntry{}
	}
	return out, nil
}

// AddToWatchlist adds a ticker and returns the server message
// POST /watchlist
func (c *Client) AddToWatchlist(ctx context.Context, ticker string, notes *string) (string, error) {
	var out contracts.MessageResponse
	body := contracts.AddToWatchlistRequest{Ticker: ticker, Notes: notes}
	if err := c.send(ctx, opWatchlistAdd, http.MethodPost, "/watchlist", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// RemoveFromWatchlist removes a watchlist entry
// DELETE /watchlist/{id}
func (c *Client) RemoveFromWatchlist(ctx context.Context, id int64) error {
	return c.send(ctx, opWatchlistRemove, http.MethodDelete, "/watchlist/"+idPath(id), nil, nil)
}

func (c *Client) get(ctx context.Context, op operation, path string, dest interface{}) error {
	return c.send(ctx, op, http.MethodGet, path, nil, dest)
}

// send issues exactly one request and maps failures to *APIError
func (c *Client) send(ctx context.Context, op operation, method, path string, body, dest interface{}) error {
	target := c.baseURL + path

	var (
		resp *http.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.httpClient.Get(ctx, target)
	case http.MethodPost:
		resp, err = c.httpClient.PostJSON(ctx, target, body)
	case http.MethodDelete:
		resp, err = c.httpClient.Delete(ctx, target)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return &APIError{Op: op.name, Detail: op.fallback, Cause: err}
	}

	if !httputil.IsSuccess(resp.StatusCode) {
		apiErr := decodeAPIError(op, resp)
		c.logger.WithFields(map[string]interface{}{
			"op":          op.name,
			"status_code": apiErr.StatusCode,
			"detail":      apiErr.Detail,
		}).Warn("Screening service returned an error")
		return apiErr
	}

	if err := httputil.DecodeJSON(resp, dest); err != nil {
		return &APIError{Op: op.name, StatusCode: resp.StatusCode, Detail: op.fallback, Cause: err}
	}
	return nil
}

// decodeAPIError reads {detail: string} from a non-2xx body
func decodeAPIError(op operation, resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{Op: op.name, StatusCode: resp.StatusCode, Detail: op.fallback}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	// FastAPI 검증 오류는 detail이 배열로 옴 → 문자열일 때만 그대로 사용
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		apiErr.Detail = detail
		apiErr.ServerDetail = true
	}
	return apiErr
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}

// APIError is a failed remote operation.
// StatusCode is 0 when the request never completed.
type APIError struct {
	Op           string
	StatusCode   int
	Detail       string // user-facing message
	ServerDetail bool   // Detail came from the server verbatim
	Cause        error
}

// Error returns the user-facing message unchanged
func (e *APIError) Error() string {
	return e.Detail
}

// Unwrap exposes the transport cause
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Kind classifies every gateway failure as a network error
func (e *APIError) Kind() errs.Kind {
	return errs.KindNetwork
}
