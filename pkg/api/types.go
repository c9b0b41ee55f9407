package api

import "github.com/uhyunpark/launchpad/pkg/state"

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Request/Response Types
// ==============================

// LaunchpadInfo mirrors the launchpad singleton for clients.
type LaunchpadInfo struct {
	Permissions   state.Permissions   `json:"permissions"`
	Fees          state.Fees          `json:"fees"`
	CollectedFees state.CollectedFees `json:"collectedFees"`
}

// AuctionInfo is the client view of an auction record.
type AuctionInfo struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Enabled     bool   `json:"enabled"`
	Updatable   bool   `json:"updatable"`
	FixedAmount bool   `json:"fixedAmount"`

	StartTime        int64 `json:"startTime"`
	EndTime          int64 `json:"endTime"`
	PresaleStartTime int64 `json:"presaleStartTime"`
	PresaleEndTime   int64 `json:"presaleEndTime"`

	PricingModel   string `json:"pricingModel"`
	StartPrice     uint64 `json:"startPrice"`
	MaxPrice       uint64 `json:"maxPrice"`
	MinPrice       uint64 `json:"minPrice"`
	TickSize       uint64 `json:"tickSize"`
	UnitSize       uint64 `json:"unitSize"`
	AmountPerLevel uint64 `json:"amountPerLevel"`

	NumTokens uint8             `json:"numTokens"`
	Stats     state.AuctionStats `json:"stats"`
}

// BidInfo is the client view of a bid record.
type BidInfo struct {
	Owner             string `json:"owner"`
	Whitelisted       bool   `json:"whitelisted"`
	SellerInitialized bool   `json:"sellerInitialized"`
	BidTime           int64  `json:"bidTime"`
	BidPrice          uint64 `json:"bidPrice"`
	BidAmount         uint64 `json:"bidAmount"`
	Filled            uint64 `json:"filled"`
	FillTime          int64  `json:"fillTime"`
	FillPrice         uint64 `json:"fillPrice"`
	FillAmount        uint64 `json:"fillAmount"`
}

// CustodyInfo is the client view of a custody record.
type CustodyInfo struct {
	Mint          string `json:"mint"`
	TokenAccount  string `json:"tokenAccount"`
	Decimals      uint8  `json:"decimals"`
	OracleType    uint8  `json:"oracleType"`
	OracleAccount string `json:"oracleAccount"`
	CollectedFees uint64 `json:"collectedFees"`
}

// SubmitResponse reports the outcome of a submitted transaction.
type SubmitResponse struct {
	Status         string `json:"status"`
	SignaturesLeft uint8  `json:"signaturesLeft,omitempty"`
	Value          uint64 `json:"value,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest is the client subscription control message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// FillUpdate is broadcast on "fills:<auction>" channels.
type FillUpdate struct {
	Type        string `json:"type"`
	Auction     string `json:"auction"`
	Buyer       string `json:"buyer"`
	Whitelisted bool   `json:"whitelisted"`
	FillAmount  uint64 `json:"fillAmount"`
	FillPrice   uint64 `json:"fillPrice"`
	FillTime    int64  `json:"fillTime"`
	TokenMint   string `json:"tokenMint"`
}
