package xsmom

import "time"

// BacktestRequest asks the server to run one backtest. Omitted fields take
// the server's configured defaults.
type BacktestRequest struct {
	Tickers      []string `json:"tickers,omitempty"`
	Start        string   `json:"start,omitempty"`
	End          string   `json:"end,omitempty"`
	Signal       string   `json:"signal,omitempty"`
	CostBps      *float64 `json:"cost_bps,omitempty"`
	Q            *float64 `json:"q,omitempty"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
}

// Point is one dated value of a series.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Run is a completed backtest as returned by the API.
type Run struct {
	ID        string    `json:"id"`
	Signal    string    `json:"signal"`
	Tickers   []string  `json:"tickers"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	CostBps   float64   `json:"cost_bps"`
	Q         float64   `json:"q"`
	CreatedAt time.Time `json:"created_at"`

	AnnualizedReturn float64 `json:"ann_return"`
	AnnualizedVol    float64 `json:"ann_vol"`
	Sharpe           float64 `json:"sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Rebalances       int     `json:"rebalances"`
	TotalTurnover    float64 `json:"total_turnover"`

	// Returns is the daily strategy return series; run listings leave it
	// empty.
	Returns []Point `json:"returns,omitempty"`
}

// RunList is the response of the run listing endpoint.
type RunList struct {
	Runs []Run `json:"runs"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Float returns a pointer to v, for the optional request fields.
func Float(v float64) *float64 { return &v }
