package api

import (
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pinefi/orderkeeper/pkg/engine"
	"github.com/pinefi/orderkeeper/pkg/gas"
	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/pending"
	"github.com/pinefi/orderkeeper/pkg/planner"
	"github.com/pinefi/orderkeeper/pkg/ratemath"
	"github.com/pinefi/orderkeeper/pkg/submit"
)

// Server exposes the reconciled order views and the submission flows over
// REST, and pushes every snapshot over WebSocket.
type Server struct {
	engines map[order.Family]*engine.Engine
	submit  *submit.Service
	tracker *pending.Tracker
	oracle  *gas.Oracle
	owner   common.Address
	chainID uint64
	floor   *big.Int

	router *mux.Router
	hub    *Hub
}

func NewServer(engines map[order.Family]*engine.Engine, sub *submit.Service, tracker *pending.Tracker, oracle *gas.Oracle, owner common.Address, chainID uint64, floor *big.Int) *Server {
	s := &Server{
		engines: engines,
		submit:  sub,
		tracker: tracker,
		oracle:  oracle,
		owner:   owner,
		chainID: chainID,
		floor:   floor,
		router:  mux.NewRouter(),
		hub:     NewHub(),
	}
	s.setupRoutes()

	// Every reconciliation snapshot is pushed to "orders:<family>".
	for fam, eng := range engines {
		channel := "orders:" + fam.String()
		eng.Subscribe(func(snap engine.Snapshot) {
			s.hub.BroadcastToChannel(channel, WSSnapshot{
				Channel: channel,
				Data:    s.toResponse(snap, snap.Open),
			})
		})
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/accounts/{address}/orders/open", s.handleOpenOrders).Methods("GET")
	api.HandleFunc("/accounts/{address}/orders/history", s.handleOrderHistory).Methods("GET")

	api.HandleFunc("/orders/dca", s.handlePlaceDCA).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancel).Methods("POST")

	api.HandleFunc("/quote", s.handleQuote).Methods("POST")
	api.HandleFunc("/gas", s.handleGas).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) checkOwner(w http.ResponseWriter, r *http.Request) bool {
	addr := common.HexToAddress(mux.Vars(r)["address"])
	if addr != s.owner {
		writeError(w, http.StatusNotFound, "unknown account")
		return false
	}
	return true
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	if !s.checkOwner(w, r) {
		return
	}
	s.serveSnapshots(w, r, func(snap engine.Snapshot) []order.Order { return snap.Open })
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	if !s.checkOwner(w, r) {
		return
	}
	s.serveSnapshots(w, r, func(snap engine.Snapshot) []order.Order { return snap.History })
}

func (s *Server) serveSnapshots(w http.ResponseWriter, r *http.Request, pick func(engine.Snapshot) []order.Order) {
	famParam := r.URL.Query().Get("family")
	var out []OrdersResponse
	for fam, eng := range s.engines {
		if famParam != "" && famParam != fam.String() {
			continue
		}
		snap, ok := eng.Latest()
		if !ok {
			continue
		}
		out = append(out, s.toResponse(snap, pick(snap)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) toResponse(snap engine.Snapshot, orders []order.Order) OrdersResponse {
	cancelling := s.tracker.CancellingWitnesses(snap.Owner, snap.ChainID)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o, cancelling))
	}
	return OrdersResponse{
		Owner:   strings.ToLower(snap.Owner.Hex()),
		ChainID: snap.ChainID,
		Family:  snap.Family.String(),
		TakenAt: snap.TakenAt,
		Stale:   snap.Stale,
		Orders:  views,
	}
}

func toView(o order.Order, cancelling map[string]bool) OrderView {
	v := OrderView{
		Witness:                o.Witness,
		Owner:                  strings.ToLower(o.Owner.Hex()),
		InputToken:             strings.ToLower(o.InputToken.Hex()),
		OutputToken:            strings.ToLower(o.OutputToken.Hex()),
		NumTrades:              o.NumTrades,
		Index:                  o.Index,
		TradesLeft:             o.TradesLeft,
		CycleID:                o.CycleID,
		Status:                 o.Status.String(),
		Source:                 o.Source.String(),
		SubmissionHash:         o.SubmissionHash,
		ExecutionHash:          o.ExecutionHash,
		CancelledHash:          o.CancelledHash,
		SubmissionDate:         o.SubmissionDate,
		EstimatedExecutionDate: o.EstimatedExecutionDate,
		ExecutionDate:          o.ExecutionDate,
		Cancelling:             cancelling[o.Witness],
		Cancellable:            o.Open() && (o.NumTrades == 0 || o.NextExecutable()),
	}
	if o.InputAmount != nil {
		v.InputAmount = o.InputAmount.String()
	}
	if o.MinReturn != nil {
		v.MinReturn = o.MinReturn.String()
	}
	return v
}

func (s *Server) handlePlaceDCA(w http.ResponseWriter, r *http.Request) {
	var req PlaceDCARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	total, ok := new(big.Int).SetString(req.TotalInput, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid totalInput")
		return
	}

	// The floor is quoted in native units; only enforced directly for
	// native-input orders. Token-input floors need a market quote the
	// caller supplies through /quote.
	var floor *big.Int
	if common.HexToAddress(req.InputToken) == order.NativeToken {
		floor = s.floor
	}

	hash, orders, err := s.submit.PlaceDCA(r.Context(), planner.Request{
		Owner:           s.owner,
		ChainID:         s.chainID,
		InputToken:      common.HexToAddress(req.InputToken),
		OutputToken:     common.HexToAddress(req.OutputToken),
		TotalInput:      total,
		NumTrades:       req.NumTrades,
		IntervalSeconds: req.IntervalSeconds,
		PerNetworkFloor: floor,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// The local write is durable; reconcile eagerly so the next read
	// already includes the batch.
	if eng, ok := s.engines[order.FamilyDCA]; ok {
		eng.Trigger()
	}

	cancelling := s.tracker.CancellingWitnesses(s.owner, s.chainID)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o, cancelling))
	}
	writeJSON(w, http.StatusOK, PlaceDCAResponse{TxHash: hash, Orders: views})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var hash string
	var err error
	switch req.Family {
	case order.FamilyDCA.String():
		cycleID, ok := new(big.Int).SetString(req.CycleID, 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid cycleId")
			return
		}
		hash, err = s.submit.CancelDCA(r.Context(), s.owner, s.chainID, cycleID, req.Witness)
	case order.FamilyLimit.String():
		minReturn, ok := new(big.Int).SetString(req.MinReturn, 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid minReturn")
			return
		}
		hash, err = s.submit.CancelLimit(r.Context(), order.Order{
			Witness:     req.Witness,
			Owner:       s.owner,
			ChainID:     s.chainID,
			InputToken:  common.HexToAddress(req.InputToken),
			OutputToken: common.HexToAddress(req.OutputToken),
			MinReturn:   minReturn,
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown order family")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{TxHash: hash})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, _ := new(big.Int).SetString(req.InputAmount, 10)
	output, _ := new(big.Int).SetString(req.OutputAmount, 10)

	rate := ratemath.ExchangeRate(input, req.InputDecimals, output, req.OutputDecimals, false)
	res := QuoteResponse{
		Rate:        rate.String(),
		InverseRate: ratemath.FlipRate(rate).String(),
	}

	if req.GasCostInInput != "" {
		gasCost, _ := new(big.Int).SetString(req.GasCostInInput, 10)
		exec := ratemath.GasAdjustedExecutionRate(input, gasCost, req.InputDecimals, output, req.OutputDecimals)
		res.ExecutionRate = exec.String()
	}
	if req.MarketRate != "" {
		market, _ := new(big.Int).SetString(req.MarketRate, 10)
		if v, ok := rate.Value(); ok {
			if delta, ok := ratemath.PercentDelta(v, market); ok {
				res.RateDelta = delta.String()
				res.HighSlippage = ratemath.HighSlippage(delta)
			}
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGas(w http.ResponseWriter, r *http.Request) {
	price, ok := s.oracle.Price()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "gas price unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gasPriceWei": price.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
