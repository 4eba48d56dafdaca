// Package gas supplies the current gas price estimate used by the
// execution-rate math. A missing price is "unavailable" to consumers,
// never zero: a zero price would make every order look viable.
package gas

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// GenericOrderExecuteGasLimit is the gas a relayer spends executing one
// order, used to convert a gas price into an input-token cost.
var GenericOrderExecuteGasLimit = big.NewInt(400000)

var gwei = big.NewInt(1e9)

// Oracle polls a network's gas station endpoint. Mainnet stations price
// for inclusion "now"; AddBuffer pads by 5 gwei so an order priced at the
// estimate still lands.
type Oracle struct {
	endpoint  string
	addBuffer bool
	http      *http.Client
	log       *zap.SugaredLogger

	mu   sync.RWMutex
	last *big.Int
}

func NewOracle(endpoint string, addBuffer bool, log *zap.SugaredLogger) *Oracle {
	return &Oracle{endpoint: endpoint, addBuffer: addBuffer, http: &http.Client{}, log: log}
}

// stationResponse covers both shapes in the wild: {"fast": <gwei float>}
// and {"data": {"fast": <wei int>}}.
type stationResponse struct {
	Fast float64 `json:"fast"`
	Data struct {
		Fast int64 `json:"fast"`
	} `json:"data"`
}

// Refresh fetches the current fast-tier price. On failure the previous
// price is retained.
func (o *Oracle) Refresh(ctx context.Context) error {
	if o.endpoint == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	res, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("query gas station: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("gas station returned status %d", res.StatusCode)
	}

	var sr stationResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return fmt.Errorf("decode gas station response: %w", err)
	}

	price := parsePrice(sr)
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("gas station returned no usable price")
	}
	if o.addBuffer {
		price.Add(price, new(big.Int).Mul(big.NewInt(5), gwei))
	}

	o.mu.Lock()
	o.last = price
	o.mu.Unlock()
	o.log.Debugw("gas_price_updated", "wei", price.String())
	return nil
}

func parsePrice(sr stationResponse) *big.Int {
	if sr.Fast > 0 {
		// Gwei with fractional part; scale before truncating.
		milli := int64(sr.Fast * 1000)
		p := new(big.Int).Mul(big.NewInt(milli), gwei)
		return p.Div(p, big.NewInt(1000))
	}
	if sr.Data.Fast > 0 {
		return big.NewInt(sr.Data.Fast)
	}
	return nil
}

// Price returns the last known gas price, or false when none has been
// observed yet.
func (o *Oracle) Price() (*big.Int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return nil, false
	}
	return new(big.Int).Set(o.last), true
}

// RequiredGasCost converts the current price into the wei cost of one
// order execution.
func (o *Oracle) RequiredGasCost() (*big.Int, bool) {
	price, ok := o.Price()
	if !ok {
		return nil, false
	}
	return price.Mul(price, GenericOrderExecuteGasLimit), true
}
