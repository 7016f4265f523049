// Package models holds the payload shapes returned by the token tracker
// backend. The dashboard only reads them; it owns none of this data.
package models

// TokenRecord is one tracked token's market metrics, as returned by
// /tokens/top-gainers, /tokens/new and /token/{address}.
// Numeric fields decode JSON null as zero.
type TokenRecord struct {
	Date           string   `json:"date,omitempty"`
	TokenSymbol    string   `json:"token_symbol"`
	TokenName      string   `json:"token_name"`
	TokenAddress   string   `json:"token_address"`
	PairAddress    string   `json:"pair_address,omitempty"`
	PriceUSD       float64  `json:"price_usd"`
	Volume24h      float64  `json:"volume_24h"`
	PriceChange24h float64  `json:"price_change_24h"`
	LiquidityUSD   float64  `json:"liquidity_usd"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
	Txns24h        float64  `json:"txns_24h,omitempty"`
	CreatedAt      *float64 `json:"created_at,omitempty"` // unix epoch milliseconds
}

// TrendingTokenRecord is a token that appeared in the top set on several
// days of the analysed window.
type TrendingTokenRecord struct {
	TokenSymbol    string  `json:"token_symbol"`
	TokenAddress   string  `json:"token_address"`
	DaysInTop      float64 `json:"days_in_top"`
	AvgVolume24h   float64 `json:"avg_volume_24h"`
	AvgPriceChange float64 `json:"avg_price_change"`
}

// TopGainersResponse is the body of GET /tokens/top-gainers.
type TopGainersResponse struct {
	Date       string        `json:"date,omitempty"`
	Count      int           `json:"count,omitempty"`
	TopGainers []TokenRecord `json:"top_gainers"`
}

// NewTokensResponse is the body of GET /tokens/new.
type NewTokensResponse struct {
	Date      string        `json:"date,omitempty"`
	Count     int           `json:"count,omitempty"`
	NewTokens []TokenRecord `json:"new_tokens"`
}

// TrendsResponse is the body of GET /trends.
type TrendsResponse struct {
	DaysAnalyzed   int                   `json:"days_analyzed,omitempty"`
	TrendingTokens []TrendingTokenRecord `json:"trending_tokens"`
}

// TokenDetail is the body of GET /token/{address}: every stored snapshot of
// one token, newest first.
type TokenDetail struct {
	TokenAddress string        `json:"token_address"`
	TokenName    string        `json:"token_name"`
	TokenSymbol  string        `json:"token_symbol"`
	HistoryCount int           `json:"history_count"`
	History      []TokenRecord `json:"history"`
}

// CollectionResult is the body of POST /collect.
type CollectionResult struct {
	Success bool `json:"success"`
}
