package state

import "github.com/gagliardetto/solana-go"

// SellerBalance accumulates a seller's proceeds per payment custody.
type SellerBalance struct {
	Owner   solana.PublicKey
	Custody solana.PublicKey
	Balance uint64
	Bump    uint8
}
