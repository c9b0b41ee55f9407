package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/engine"
	"github.com/uhyunpark/launchpad/pkg/state"
)

// bid-sign builds a place_bid transaction offline: it generates (or loads) a
// keypair, derives the buyer's canonical record addresses and prints the
// submission payload for POST /api/v1/transactions.
func main() {
	auctionName := flag.String("auction", "my_auction", "auction name")
	paymentMint := flag.String("payment-mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "payment mint (base58)")
	price := flag.Uint64("price", 1000, "bid price")
	amount := flag.Uint64("amount", 20, "bid amount")
	fok := flag.Bool("fok", false, "fill-or-kill instead of immediate-or-cancel")
	keyFile := flag.String("key", "", "solana keygen file (generates a fresh key when empty)")
	flag.Parse()

	var key solana.PrivateKey
	var err error
	if *keyFile != "" {
		key, err = solana.PrivateKeyFromSolanaKeygenFile(*keyFile)
	} else {
		fmt.Println("Generating new keypair...")
		key, err = solana.NewRandomPrivateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	buyer := key.PublicKey()
	fmt.Printf("Buyer: %s\n", buyer)

	mint, err := solana.PublicKeyFromBase58(*paymentMint)
	if err != nil {
		fmt.Printf("Error: invalid payment mint: %v\n", err)
		os.Exit(1)
	}

	auctionAddr, _, err := state.AuctionAddress(*auctionName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	bidAddr, _, _ := state.BidAddress(buyer, auctionAddr)
	fmt.Printf("Auction: %s\nBid record: %s\n\n", auctionAddr, bidAddr)

	bidType := state.BidIoc
	if *fok {
		bidType = state.BidFok
	}

	payload := map[string]interface{}{
		"signer": buyer.String(),
		"instructions": []map[string]interface{}{{
			"name": engine.OpPlaceBid,
			"params": engine.PlaceBidParams{
				AuctionName: *auctionName,
				PaymentMint: mint,
				Price:       *price,
				Amount:      *amount,
				BidType:     bidType,
			},
		}},
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Transaction payload:")
	fmt.Println(string(out))
	fmt.Println()
	fmt.Println("NOTE: fill in fundingAccount/receivingAccounts before submitting.")
}
