package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
)

// Read-only record accessors for the API layer.

func (e *Engine) GetLaunchpadInfo() (*state.Launchpad, error) {
	var out *state.Launchpad
	err := e.store.View(func(tx *store.Tx) error {
		l, err := e.loadLaunchpad(tx)
		out = l
		return err
	})
	return out, err
}

func (e *Engine) GetAuctionInfo(name string) (*state.Auction, error) {
	var out *state.Auction
	err := e.store.View(func(tx *store.Tx) error {
		a, _, err := e.loadAuction(tx, name)
		out = a
		return err
	})
	return out, err
}

func (e *Engine) GetBidInfo(auctionName string, owner solana.PublicKey) (*state.Bid, error) {
	var out *state.Bid
	err := e.store.View(func(tx *store.Tx) error {
		_, auctionAddr, err := e.loadAuction(tx, auctionName)
		if err != nil {
			return err
		}
		bid, _, _, err := e.loadBid(tx, owner, auctionAddr)
		if err != nil {
			return err
		}
		out = bid
		return nil
	})
	return out, err
}

func (e *Engine) GetSellerBalanceInfo(owner, mint solana.PublicKey) (*state.SellerBalance, error) {
	var out *state.SellerBalance
	err := e.store.View(func(tx *store.Tx) error {
		custodyAddr, _, err := state.CustodyAddress(mint)
		if err != nil {
			return err
		}
		balance, _, _, err := e.loadSellerBalance(tx, owner, custodyAddr)
		if err != nil {
			return err
		}
		out = balance
		return nil
	})
	return out, err
}

func (e *Engine) GetCustodyInfo(mint solana.PublicKey) (*state.Custody, error) {
	var out *state.Custody
	err := e.store.View(func(tx *store.Tx) error {
		c, _, err := e.loadCustodyByMint(tx, mint)
		out = c
		return err
	})
	return out, err
}
