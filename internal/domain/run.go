package domain

import "time"

// Run is the persisted record of one backtest invocation.
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

	// Returns is the daily strategy return series. It is omitted from run
	// listings.
	Returns Series `json:"-"`
}
