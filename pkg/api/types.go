package api

// Request/response types for REST endpoints and WebSocket messages.

// OrderView is an order as served to UIs: the stored record plus the
// transient flags only reconciliation-time state can answer.
type OrderView struct {
	Witness                string `json:"witness"`
	Owner                  string `json:"owner"`
	InputToken             string `json:"inputToken"`
	OutputToken            string `json:"outputToken"`
	InputAmount            string `json:"inputAmount"`
	MinReturn              string `json:"minReturn,omitempty"`
	NumTrades              int64  `json:"numTrades,omitempty"`
	Index                  int64  `json:"index,omitempty"`
	TradesLeft             int64  `json:"nTradesLeft,omitempty"`
	CycleID                string `json:"cycleId,omitempty"`
	Status                 string `json:"status"`
	Source                 string `json:"source"`
	SubmissionHash         string `json:"submissionHash,omitempty"`
	ExecutionHash          string `json:"executionHash,omitempty"`
	CancelledHash          string `json:"cancelledHash,omitempty"`
	SubmissionDate         int64  `json:"submissionDate,omitempty"`
	EstimatedExecutionDate int64  `json:"estExecutionDate,omitempty"`
	ExecutionDate          int64  `json:"executionDate,omitempty"`

	// Cancelling is true while a cancellation tx is in flight.
	Cancelling bool `json:"cancelling"`
	// Cancellable is true for the sub-order a cancel may target.
	Cancellable bool `json:"cancellable"`
}

// OrdersResponse is a full replace-not-patch snapshot.
type OrdersResponse struct {
	Owner   string      `json:"owner"`
	ChainID uint64      `json:"chainId"`
	Family  string      `json:"family"`
	TakenAt int64       `json:"takenAt"`
	Stale   bool        `json:"stale"`
	Orders  []OrderView `json:"orders"`
}

// QuoteRequest asks for the rate math on a prospective order. Amounts are
// decimal strings in smallest units.
type QuoteRequest struct {
	InputAmount    string `json:"inputAmount"`
	InputDecimals  uint8  `json:"inputDecimals"`
	OutputAmount   string `json:"outputAmount"`
	OutputDecimals uint8  `json:"outputDecimals"`
	// GasCostInInput is the execution gas cost quoted in input-token
	// units; empty when the caller has no quote.
	GasCostInInput string `json:"gasCostInInput,omitempty"`
	// MarketRate (18 decimals) enables the slippage warning.
	MarketRate string `json:"marketRate,omitempty"`
}

type QuoteResponse struct {
	Rate          string `json:"rate"`
	InverseRate   string `json:"inverseRate"`
	ExecutionRate string `json:"executionRate,omitempty"`
	RateDelta     string `json:"rateDelta,omitempty"`
	HighSlippage  bool   `json:"highSlippage"`
}

// PlaceDCARequest submits a split-order batch.
type PlaceDCARequest struct {
	InputToken      string `json:"inputToken"`
	OutputToken     string `json:"outputToken"`
	TotalInput      string `json:"totalInput"`
	NumTrades       int64  `json:"numTrades"`
	IntervalSeconds int64  `json:"intervalSeconds"`
}

type PlaceDCAResponse struct {
	TxHash string      `json:"txHash"`
	Orders []OrderView `json:"orders"`
}

// CancelRequest cancels one order. CycleID is required for DCA.
type CancelRequest struct {
	Family  string `json:"family"`
	Witness string `json:"witness"`
	CycleID string `json:"cycleId,omitempty"`
	// Limit order terms, needed to authorize the cancel.
	InputToken  string `json:"inputToken,omitempty"`
	OutputToken string `json:"outputToken,omitempty"`
	MinReturn   string `json:"minReturn,omitempty"`
}

type CancelResponse struct {
	TxHash string `json:"txHash"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WSSubscribeRequest subscribes to snapshot channels, e.g. "orders:dca".
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}

// WSSnapshot is a pushed reconciliation snapshot.
type WSSnapshot struct {
	Channel string         `json:"channel"`
	Data    OrdersResponse `json:"data"`
}
