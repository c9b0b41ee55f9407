package state

import (
	"github.com/gagliardetto/solana-go"
)

// ProgramID anchors every record derivation. Records live at addresses
// derived from labeled seeds so that each entity has exactly one canonical
// home per key tuple.
var ProgramID = solana.MustPublicKeyFromBase58("LPD1BCWvd499Rk7aG5zG8uieUTTqba1JaYkUpXjUN9q")

func derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(seeds, ProgramID)
}

func LaunchpadAddress() (solana.PublicKey, uint8, error) {
	return derive([]byte("launchpad"))
}

func MultisigAddress() (solana.PublicKey, uint8, error) {
	return derive([]byte("multisig"))
}

func TransferAuthorityAddress() (solana.PublicKey, uint8, error) {
	return derive([]byte("transfer_authority"))
}

func CustodyAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([]byte("custody"), mint.Bytes())
}

func CustodyTokenAccountAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([]byte("custody_token_account"), mint.Bytes())
}

func AuctionAddress(name string) (solana.PublicKey, uint8, error) {
	return derive([]byte("auction"), []byte(name))
}

func DispenserAddress(mint, auction solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([]byte("dispense"), mint.Bytes(), auction.Bytes())
}

func BidAddress(owner, auction solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([]byte("bid"), owner.Bytes(), auction.Bytes())
}

func SellerBalanceAddress(auctionOwner, paymentCustody solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([]byte("seller_balance"), auctionOwner.Bytes(), paymentCustody.Bytes())
}
