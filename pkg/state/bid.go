package state

import "github.com/gagliardetto/solana-go"

type BidType uint8

const (
	BidIoc BidType = iota
	BidFok
)

func (t BidType) Valid() bool { return t <= BidFok }

// BadBidType classifies a bid rejected for a recoverable state error; such
// bids pay the invalid-bid fee instead of failing when the fee is non-zero.
type BadBidType uint8

const (
	BadBidNone BadBidType = iota
	BadBidTooEarly
	BadBidFillLimit
)

// Bid is the per-(buyer, auction) order record. SellerInitialized marks
// records pre-created by the auction owner through the whitelist flow.
type Bid struct {
	Owner             solana.PublicKey
	Auction           solana.PublicKey
	Whitelisted       bool
	SellerInitialized bool

	BidTime   int64
	BidPrice  uint64
	BidAmount uint64
	BidType   BidType

	Filled     uint64
	FillTime   int64
	FillPrice  uint64
	FillAmount uint64

	Bump uint8
}
