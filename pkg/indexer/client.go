// Package indexer queries the remote indexing service for all orders
// associated with an account. The indexer is authoritative but eventually
// consistent; callers must treat a fetch as a whole-snapshot read.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pinefi/orderkeeper/pkg/order"
)

// Each order family has its own subgraph with its own record shape.
const limitOrdersQuery = `
query GetOrdersByOwner($owner: String) {
  orders(where: {owner: $owner}) {
    id
    owner
    witness
    inputToken
    outputToken
    inputAmount
    minReturn
    status
    createdTxHash
    executedTxHash
    cancelledTxHash
    createdAt
    updatedAt
  }
}`

const dcaOrdersQuery = `
query GetTradesByUser($owner: String) {
  trades(where: {user: $owner}) {
    id
    user
    witness
    status
    amount
    inToken
    outToken
    index
    numTrades
    submissionDate
    submissionHash
    estExecutionDate
    executionDate
    executionHash
    cycleWrapper { cycle { nTradesLeft } }
  }
}`

// Client fetches one order family from one network's indexer.
type Client struct {
	endpoint string
	family   order.Family
	chainID  uint64
	http     *http.Client
	log      *zap.SugaredLogger
}

func New(endpoint string, family order.Family, chainID uint64, log *zap.SugaredLogger) *Client {
	return &Client{
		endpoint: endpoint,
		family:   family,
		chainID:  chainID,
		http:     &http.Client{},
		log:      log,
	}
}

func (c *Client) Family() order.Family { return c.family }

type graphRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

// FetchAll returns every order the indexer knows for the owner, open and
// closed. Timeouts are the caller's job via ctx; any failure here is a
// transient I/O failure in the reconciliation taxonomy.
func (c *Client) FetchAll(ctx context.Context, owner common.Address) ([]order.Order, error) {
	query := limitOrdersQuery
	if c.family == order.FamilyDCA {
		query = dcaOrdersQuery
	}
	body, err := json.Marshal(graphRequest{
		Query:     query,
		Variables: map[string]string{"owner": strings.ToLower(owner.Hex())},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query indexer: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", res.StatusCode)
	}

	if c.family == order.FamilyDCA {
		return c.decodeDCA(res)
	}
	return c.decodeLimit(res)
}

type limitOrderRecord struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	Witness         string `json:"witness"`
	InputToken      string `json:"inputToken"`
	OutputToken     string `json:"outputToken"`
	InputAmount     string `json:"inputAmount"`
	MinReturn       string `json:"minReturn"`
	Status          string `json:"status"`
	CreatedTxHash   string `json:"createdTxHash"`
	ExecutedTxHash  string `json:"executedTxHash"`
	CancelledTxHash string `json:"cancelledTxHash"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func (c *Client) decodeLimit(res *http.Response) ([]order.Order, error) {
	var payload struct {
		Data struct {
			Orders []limitOrderRecord `json:"orders"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode indexer response: %w", err)
	}

	orders := make([]order.Order, 0, len(payload.Data.Orders))
	for _, rec := range payload.Data.Orders {
		status, err := order.ParseStatus(rec.Status)
		if err != nil {
			c.log.Warnw("skipping indexer record", "id", rec.ID, "err", err)
			continue
		}
		o := order.Order{
			Witness:        strings.ToLower(rec.Witness),
			Owner:          common.HexToAddress(rec.Owner),
			ChainID:        c.chainID,
			InputToken:     common.HexToAddress(rec.InputToken),
			OutputToken:    common.HexToAddress(rec.OutputToken),
			InputAmount:    parseAmount(rec.InputAmount),
			MinReturn:      parseAmount(rec.MinReturn),
			Status:         status,
			Source:         order.SourceRemote,
			SubmissionHash: strings.ToLower(rec.CreatedTxHash),
			ExecutionHash:  strings.ToLower(rec.ExecutedTxHash),
			CancelledHash:  strings.ToLower(rec.CancelledTxHash),
			SubmissionDate: parseUnix(rec.CreatedAt),
		}
		if status.Terminal() {
			o.ExecutionDate = parseUnix(rec.UpdatedAt)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

type dcaTradeRecord struct {
	ID               string `json:"id"`
	User             string `json:"user"`
	Witness          string `json:"witness"`
	Status           string `json:"status"`
	Amount           string `json:"amount"`
	InToken          string `json:"inToken"`
	OutToken         string `json:"outToken"`
	Index            string `json:"index"`
	NumTrades        string `json:"numTrades"`
	SubmissionDate   string `json:"submissionDate"`
	SubmissionHash   string `json:"submissionHash"`
	EstExecutionDate string `json:"estExecutionDate"`
	ExecutionDate    string `json:"executionDate"`
	ExecutionHash    string `json:"executionHash"`
	CycleWrapper     struct {
		Cycle struct {
			NTradesLeft string `json:"nTradesLeft"`
		} `json:"cycle"`
	} `json:"cycleWrapper"`
}

func (c *Client) decodeDCA(res *http.Response) ([]order.Order, error) {
	var payload struct {
		Data struct {
			Trades []dcaTradeRecord `json:"trades"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode indexer response: %w", err)
	}

	orders := make([]order.Order, 0, len(payload.Data.Trades))
	for _, rec := range payload.Data.Trades {
		status, err := order.ParseStatus(rec.Status)
		if err != nil {
			c.log.Warnw("skipping indexer record", "id", rec.ID, "err", err)
			continue
		}
		orders = append(orders, order.Order{
			Witness:                strings.ToLower(rec.Witness),
			Owner:                  common.HexToAddress(rec.User),
			ChainID:                c.chainID,
			InputToken:             common.HexToAddress(rec.InToken),
			OutputToken:            common.HexToAddress(rec.OutToken),
			InputAmount:            parseAmount(rec.Amount),
			NumTrades:              parseInt(rec.NumTrades),
			Index:                  parseInt(rec.Index),
			TradesLeft:             parseInt(rec.CycleWrapper.Cycle.NTradesLeft),
			CycleID:                cycleFromID(rec.ID),
			Status:                 status,
			Source:                 order.SourceRemote,
			SubmissionHash:         strings.ToLower(rec.SubmissionHash),
			ExecutionHash:          strings.ToLower(rec.ExecutionHash),
			SubmissionDate:         parseUnix(rec.SubmissionDate),
			EstimatedExecutionDate: parseUnix(rec.EstExecutionDate),
			ExecutionDate:          parseUnix(rec.ExecutionDate),
		})
	}
	return orders, nil
}

// cycleFromID extracts the on-chain cycle id from a trade record id of
// the form "<cycleId>:<tradeNumber>".
func cycleFromID(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[:i]
	}
	return ""
}

func parseAmount(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

func parseInt(s string) int64 {
	v := parseAmount(s)
	if v == nil {
		return 0
	}
	return v.Int64()
}

func parseUnix(s string) int64 { return parseInt(s) }
