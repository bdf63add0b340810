package contracts

// ScreeningRequest is the wire form of a criteria snapshot
// POST /screening body
type ScreeningRequest struct {
	IndexName string  `json:"index_name"`
	PEMax     float64 `json:"pe_max"`
	PBMax     float64 `json:"pb_max"`
	DEMax     float64 `json:"de_max"`
	ROEMin    float64 `json:"roe_min"`
}

// ScreeningResponse is the success payload of POST /screening
type ScreeningResponse struct {
	Results []StockResult `json:"results"`
}

// IndicesResponse is the success payload of GET /indices
type IndicesResponse struct {
	Indices []string `json:"indices"`
}

// StockResult is one qualifying security as returned by the backend.
// Field order is the CSV column order.
// ⭐ SSOT: 종목 결과 레코드는 이 구조체만 사용 (클라이언트에서 수정 금지)
type StockResult struct {
	Symbol         string   `json:"symbol"`
	CompanyName    string   `json:"company_name"`
	Currency       string   `json:"currency"`
	CurrentPrice   float64  `json:"current_price"`
	MarketCap      float64  `json:"market_cap"`
	PERatio        *float64 `json:"pe_ratio"`
	PBRatio        *float64 `json:"pb_ratio"`
	DebtToEquity   *float64 `json:"debt_to_equity"`
	ROE            *float64 `json:"roe"`
	DividendYield  *float64 `json:"dividend_yield"`
	EPS            *float64 `json:"eps"`
	BVPS           *float64 `json:"bvps"`
	Score          float64  `json:"score"`
	IntrinsicValue *float64 `json:"intrinsic_value"`
}

// IsUndervalued reports intrinsic_value > current_price
func (s StockResult) IsUndervalued() bool {
	return s.IntrinsicValue != nil && *s.IntrinsicValue > s.CurrentPrice
}

// MarginOfSafety returns (intrinsic - price) / price, nil when unknown
func (s StockResult) MarginOfSafety() *float64 {
	if s.IntrinsicValue == nil || s.CurrentPrice == 0 {
		return nil
	}
	m := (*s.IntrinsicValue - s.CurrentPrice) / s.CurrentPrice
	return &m
}

// Float is a convenience for building optional ratio fields
func Float(v float64) *float64 {
	return &v
}
