package contracts

// DCFValuation is the two-scenario valuation computed by the backend
type DCFValuation struct {
	Ticker       string       `json:"ticker,omitempty"`
	CurrentPrice float64      `json:"current_price"`
	BaseData     DCFBaseData  `json:"base_data"`
	Scenario1    DCFScenario  `json:"scenario1"` // prospective
	Scenario2    DCFScenario  `json:"scenario2"` // historical CAGR
}

// DCFBaseData holds the inputs of the valuation
type DCFBaseData struct {
	LatestYear        int     `json:"latest_year"`
	BaseFCF           float64 `json:"base_fcf"`
	TotalDebt         float64 `json:"total_debt"`
	Cash              float64 `json:"cash"`
	SharesOutstanding float64 `json:"shares_outstanding,omitempty"`
}

// DCFScenario is one named valuation scenario
type DCFScenario struct {
	Assumptions    DCFAssumptions `json:"assumptions"`
	IntrinsicValue float64        `json:"intrinsic_value"`
}

// DCFAssumptions are the growth rates of a scenario (decimal form)
type DCFAssumptions struct {
	FCFGrowth  float64 `json:"fcf_growth"`
	PerpGrowth float64 `json:"perp_growth"`
}

// Upside returns the scenario's margin of safety against the current price
func (d DCFValuation) Upside(s DCFScenario) *float64 {
	if d.CurrentPrice == 0 {
		return nil
	}
	u := (s.IntrinsicValue - d.CurrentPrice) / d.CurrentPrice
	return &u
}
