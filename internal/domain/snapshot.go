package domain

// Snapshot is the raw clearinghouseState payload of one address.
// Numeric fields stay strings, the exchange sends them that way.
type Snapshot struct {
	AssetPositions []AssetPosition `json:"assetPositions"`
	MarginSummary  *MarginSummary  `json:"marginSummary,omitempty"`
	Withdrawable   string          `json:"withdrawable,omitempty"`
	Time           int64           `json:"time,omitempty"`
}

// AssetPosition wraps a single raw position entry.
type AssetPosition struct {
	Type     string      `json:"type,omitempty"`
	Position RawPosition `json:"position"`
}

// RawPosition position fields as returned by the exchange.
type RawPosition struct {
	Coin           string         `json:"coin"`
	Szi            string         `json:"szi"`
	EntryPx        *string        `json:"entryPx"`
	Leverage       *RawLeverage   `json:"leverage,omitempty"`
	LiquidationPx  *string        `json:"liquidationPx"`
	PositionValue  string         `json:"positionValue"`
	UnrealizedPnl  string         `json:"unrealizedPnl"`
	ReturnOnEquity string         `json:"returnOnEquity,omitempty"`
	MarginUsed     string         `json:"marginUsed"`
	MaxLeverage    int            `json:"maxLeverage,omitempty"`
	CumFunding     *RawCumFunding `json:"cumFunding,omitempty"`
}

// RawLeverage leverage descriptor.
type RawLeverage struct {
	Type   string `json:"type"`
	Value  int    `json:"value"`
	RawUsd string `json:"rawUsd,omitempty"`
}

// RawCumFunding cumulative funding counters.
type RawCumFunding struct {
	AllTime     string `json:"allTime"`
	SinceOpen   string `json:"sinceOpen"`
	SinceChange string `json:"sinceChange"`
}

// MarginSummary account headline numbers.
type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}
