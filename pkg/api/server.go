package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/launchpad/pkg/engine"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/state"
)

// Server handles REST API and WebSocket connections
type Server struct {
	engine      *engine.Engine
	router      *mux.Router
	hub         *Hub // WebSocket hub
	log         *zap.SugaredLogger
	corsOrigins []string
}

// NewServer creates a new API server wired to the instruction engine.
func NewServer(eng *engine.Engine, log *zap.SugaredLogger, corsOrigins []string) *Server {
	s := &Server{
		engine:      eng,
		router:      mux.NewRouter(),
		hub:         NewHub(log),
		log:         log,
		corsOrigins: corsOrigins,
	}

	eng.OnFill(s.broadcastFill)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Launchpad and custody endpoints
	api.HandleFunc("/launchpad", s.handleGetLaunchpad).Methods("GET")
	api.HandleFunc("/custodies/{mint}", s.handleGetCustody).Methods("GET")

	// Auction endpoints
	api.HandleFunc("/auctions/{name}", s.handleGetAuction).Methods("GET")
	api.HandleFunc("/auctions/{name}/price", s.handleGetAuctionPrice).Methods("GET")
	api.HandleFunc("/auctions/{name}/amount", s.handleGetAuctionAmount).Methods("GET")
	api.HandleFunc("/auctions/{name}/bids/{owner}", s.handleGetBid).Methods("GET")

	// Transaction submission
	api.HandleFunc("/transactions", s.handleSubmitTransaction).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetLaunchpad(w http.ResponseWriter, r *http.Request) {
	launchpad, err := s.engine.GetLaunchpadInfo()
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, LaunchpadInfo{
		Permissions:   launchpad.Permissions,
		Fees:          launchpad.Fees,
		CollectedFees: launchpad.CollectedFees,
	})
}

func (s *Server) handleGetCustody(w http.ResponseWriter, r *http.Request) {
	mint, err := solana.PublicKeyFromBase58(mux.Vars(r)["mint"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mint", err.Error())
		return
	}
	custody, err := s.engine.GetCustodyInfo(mint)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, CustodyInfo{
		Mint:          custody.Mint.String(),
		TokenAccount:  custody.TokenAccount.String(),
		Decimals:      custody.Decimals,
		OracleType:    uint8(custody.OracleType),
		OracleAccount: custody.OracleAccount.String(),
		CollectedFees: custody.CollectedFees,
	})
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := s.engine.GetAuctionInfo(mux.Vars(r)["name"])
	if err != nil {
		respondEngineError(w, err)
		return
	}

	model := "fixed"
	if auction.Pricing.PricingModel == state.PricingDynamicDutchAuction {
		model = "dynamic_dutch_auction"
	}
	respondJSON(w, AuctionInfo{
		Name:             auction.Common.Name,
		Owner:            auction.Owner.String(),
		Enabled:          auction.Enabled,
		Updatable:        auction.Updatable,
		FixedAmount:      auction.FixedAmount,
		StartTime:        auction.Common.StartTime,
		EndTime:          auction.Common.EndTime,
		PresaleStartTime: auction.Common.PresaleStartTime,
		PresaleEndTime:   auction.Common.PresaleEndTime,
		PricingModel:     model,
		StartPrice:       auction.Pricing.StartPrice,
		MaxPrice:         auction.Pricing.MaxPrice,
		MinPrice:         auction.Pricing.MinPrice,
		TickSize:         auction.Pricing.TickSize,
		UnitSize:         auction.Pricing.UnitSize,
		AmountPerLevel:   auction.Pricing.AmountPerLevel,
		NumTokens:        auction.NumTokens,
		Stats:            auction.Stats,
	})
}

func (s *Server) handleGetAuctionPrice(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}
	res, err := s.engine.Query(&engine.Transaction{
		Instructions: []engine.Instruction{{
			Name:   engine.OpGetAuctionPrice,
			Params: &engine.GetAuctionPriceParams{AuctionName: mux.Vars(r)["name"], Amount: amount},
		}},
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, map[string]uint64{"price": res.Value})
}

func (s *Server) handleGetAuctionAmount(w http.ResponseWriter, r *http.Request) {
	price, err := strconv.ParseUint(r.URL.Query().Get("price"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid price", err.Error())
		return
	}
	res, err := s.engine.Query(&engine.Transaction{
		Instructions: []engine.Instruction{{
			Name:   engine.OpGetAuctionAmount,
			Params: &engine.GetAuctionAmountParams{AuctionName: mux.Vars(r)["name"], Price: price},
		}},
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, map[string]uint64{"amount": res.Value})
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, err := solana.PublicKeyFromBase58(vars["owner"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner", err.Error())
		return
	}
	bid, err := s.engine.GetBidInfo(vars["name"], owner)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if bid.Bump == 0 {
		respondError(w, http.StatusNotFound, "bid not found", "")
		return
	}
	respondJSON(w, BidInfo{
		Owner:             bid.Owner.String(),
		Whitelisted:       bid.Whitelisted,
		SellerInitialized: bid.SellerInitialized,
		BidTime:           bid.BidTime,
		BidPrice:          bid.BidPrice,
		BidAmount:         bid.BidAmount,
		Filled:            bid.Filled,
		FillTime:          bid.FillTime,
		FillPrice:         bid.FillPrice,
		FillAmount:        bid.FillAmount,
	})
}

// submitRequest is the wire form of a transaction: instruction params arrive
// as raw JSON and are decoded by instruction name.
type submitRequest struct {
	Signer       string `json:"signer"`
	Instructions []struct {
		Name   string          `json:"name"`
		Params json.RawMessage `json:"params"`
	} `json:"instructions"`
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	signer, err := solana.PublicKeyFromBase58(req.Signer)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signer", err.Error())
		return
	}

	tx := &engine.Transaction{Signer: signer}
	for _, ix := range req.Instructions {
		params, err := decodeParams(ix.Name, ix.Params)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid instruction", ix.Name)
			return
		}
		tx.Instructions = append(tx.Instructions, engine.Instruction{Name: ix.Name, Params: params})
	}

	res, err := s.engine.Execute(tx)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.log.Infow("transaction_executed", "signer", req.Signer, "instructions", len(tx.Instructions))
	respondJSON(w, SubmitResponse{
		Status:         "executed",
		SignaturesLeft: res.SignaturesLeft,
		Value:          res.Value,
	})
}

// decodeParams maps an instruction name onto its typed params struct.
func decodeParams(name string, raw json.RawMessage) (interface{}, error) {
	var params interface{}
	switch name {
	case engine.OpInit:
		params = &engine.InitParams{}
	case engine.OpInitCustody:
		params = &engine.InitCustodyParams{}
	case engine.OpSetPermissions:
		params = &engine.SetPermissionsParams{}
	case engine.OpSetFees:
		params = &engine.SetFeesParams{}
	case engine.OpSetAdminSigners:
		params = &engine.SetAdminSignersParams{}
	case engine.OpSetOracleConfig:
		params = &engine.SetOracleConfigParams{}
	case engine.OpWithdrawFees:
		params = &engine.WithdrawFeesParams{}
	case engine.OpDeleteAuction:
		params = &engine.DeleteAuctionParams{}
	case engine.OpSetTestTime:
		params = &engine.SetTestTimeParams{}
	case engine.OpSetTestOraclePrice:
		params = &engine.SetTestOraclePriceParams{}
	case engine.OpInitAuction:
		params = &engine.InitAuctionParams{}
	case engine.OpUpdateAuction:
		params = &engine.UpdateAuctionParams{}
	case engine.OpEnableAuction:
		params = &engine.EnableAuctionParams{}
	case engine.OpDisableAuction:
		params = &engine.DisableAuctionParams{}
	case engine.OpAddTokens:
		params = &engine.AddTokensParams{}
	case engine.OpRemoveTokens:
		params = &engine.RemoveTokensParams{}
	case engine.OpWhitelistAdd:
		params = &engine.WhitelistAddParams{}
	case engine.OpWhitelistRemove:
		params = &engine.WhitelistRemoveParams{}
	case engine.OpWithdrawFunds:
		params = &engine.WithdrawFundsParams{}
	case engine.OpPlaceBid:
		params = &engine.PlaceBidParams{}
	case engine.OpCancelBid:
		params = &engine.CancelBidParams{}
	case engine.OpGetAuctionPrice:
		params = &engine.GetAuctionPriceParams{}
	case engine.OpGetAuctionAmount:
		params = &engine.GetAuctionAmountParams{}
	default:
		return nil, errcode.ErrInvalidAccountData
	}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, err
	}
	return params, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the engine)
// ==============================

// broadcastFill pushes a committed fill to subscribed WebSocket clients.
func (s *Server) broadcastFill(f engine.FillEvent) {
	update := FillUpdate{
		Type:        "fill",
		Auction:     f.Auction,
		Buyer:       f.Buyer.String(),
		Whitelisted: f.Whitelisted,
		FillAmount:  f.FillAmount,
		FillPrice:   f.FillPrice,
		FillTime:    f.FillTime,
		TokenMint:   f.TokenMint.String(),
	}
	s.hub.BroadcastToChannel("fills:"+f.Auction, update)
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errMsg,
		Message: message,
	})
}

// respondEngineError maps engine errors to their stable codes.
func respondEngineError(w http.ResponseWriter, err error) {
	var coded *errcode.Error
	if errors.As(err, &coded) {
		status := http.StatusUnprocessableEntity
		if coded == errcode.ErrAccountNotFound {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResponse{Error: coded.Msg, Code: coded.Code})
		return
	}
	respondError(w, http.StatusInternalServerError, "internal error", err.Error())
}
