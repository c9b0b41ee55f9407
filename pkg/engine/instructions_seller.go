package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/token"
)

type InitAuctionParams struct {
	Enabled     bool
	Updatable   bool
	FixedAmount bool

	Common  state.CommonParams
	Payment state.PaymentParams
	Pricing state.PricingParams

	DispensingMints []solana.PublicKey
	TokenRatios     []uint64
}

type UpdateAuctionParams struct {
	Common      state.CommonParams
	Payment     state.PaymentParams
	Pricing     state.PricingParams
	TokenRatios []uint64
}

type EnableAuctionParams struct {
	AuctionName string
}

type DisableAuctionParams struct {
	AuctionName string
}

type AddTokensParams struct {
	AuctionName    string
	Mint           solana.PublicKey
	Amount         uint64
	FundingAccount solana.PublicKey
}

type RemoveTokensParams struct {
	AuctionName      string
	Mint             solana.PublicKey
	Amount           uint64
	ReceivingAccount solana.PublicKey
}

type WhitelistAddParams struct {
	AuctionName string
	Addresses   []solana.PublicKey
}

type WhitelistRemoveParams struct {
	AuctionName string
	Addresses   []solana.PublicKey
}

type WithdrawFundsParams struct {
	Mint             solana.PublicKey
	Amount           uint64
	ReceivingAccount solana.PublicKey
}

// collectNativeFee moves a fixed native fee from the payer to the launchpad
// record address.
func (e *Engine) collectNativeFee(tx *store.Tx, payer solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	lpAddr, _, err := state.LaunchpadAddress()
	if err != nil {
		return err
	}
	return token.TransferLamports(tx, payer, lpAddr, amount)
}

func (e *Engine) initAuction(tx *store.Tx, signer solana.PublicKey, p *InitAuctionParams) error {
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return err
	}
	if !launchpad.Permissions.AllowNewAuctions {
		return errcode.ErrNewAuctionsNotAllowed
	}

	if len(p.DispensingMints) == 0 {
		return errcode.ErrNotEnoughAccountKeys
	}
	if len(p.DispensingMints) > state.MaxTokens {
		return errcode.ErrTooManyAccountKeys
	}
	if len(p.TokenRatios) != len(p.DispensingMints) {
		return errcode.ErrInvalidAuctionConfig
	}

	auctionAddr, bump, err := state.AuctionAddress(p.Common.Name)
	if err != nil {
		return err
	}
	if ok, err := tx.Has(store.RecordKey(auctionAddr)); err != nil {
		return err
	} else if ok {
		return errcode.ErrAccountAlreadyInitialized
	}

	// the pricing custody must be registered
	if _, err := e.loadCustodyByAddress(tx, p.Pricing.Custody); err != nil {
		return errcode.ErrInvalidPricingConfig
	}

	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return err
	}

	auction := &state.Auction{
		Owner:       signer,
		Enabled:     p.Enabled,
		Updatable:   p.Updatable,
		FixedAmount: p.FixedAmount,
		Common:      p.Common,
		Payment:     p.Payment,
		Pricing:     p.Pricing,
		NumTokens:   uint8(len(p.DispensingMints)),
		Bump:        bump,
	}
	auction.Stats.Reset()

	// one dispensing sub-account per offered mint; mints must be distinct
	for i, mint := range p.DispensingMints {
		for j := 0; j < i; j++ {
			if p.DispensingMints[j] == mint {
				return errcode.ErrInvalidDispenserAddress
			}
		}
		dispenserAddr, _, err := state.DispenserAddress(mint, auctionAddr)
		if err != nil {
			return err
		}
		if err := token.CreateAccount(tx, dispenserAddr, mint, authority); err != nil {
			return err
		}
		auction.Tokens[i] = state.AuctionToken{Ratio: p.TokenRatios[i], Account: dispenserAddr}
	}

	if e.cfg.TestMode {
		auction.CreationTime = 0
	} else {
		auction.CreationTime = e.clock.Now().Unix()
	}
	auction.UpdateTime = auction.CreationTime

	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	if !auction.Validate(curtime) {
		return errcode.ErrInvalidAuctionConfig
	}

	if err := e.collectNativeFee(tx, signer, launchpad.Fees.NewAuction); err != nil {
		return err
	}
	launchpad.CollectedFees.NewAuctionNative, err =
		checked.Add(launchpad.CollectedFees.NewAuctionNative, launchpad.Fees.NewAuction)
	if err != nil {
		return err
	}
	if err := e.saveLaunchpad(tx, launchpad); err != nil {
		return err
	}
	if err := e.saveAuction(tx, auctionAddr, auction); err != nil {
		return err
	}

	e.log.Infow("auction_initialized",
		"name", p.Common.Name, "owner", signer.String(),
		"tokens", auction.NumTokens, "model", auction.Pricing.PricingModel)
	return nil
}

// updateAuction replaces the auction parameters and resets the statistics.
func (e *Engine) updateAuction(tx *store.Tx, signer solana.PublicKey, p *UpdateAuctionParams) error {
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return err
	}
	if !launchpad.Permissions.AllowAuctionUpdates {
		return errcode.ErrAuctionUpdatesNotAllowed
	}

	auction, auctionAddr, err := e.loadAuction(tx, p.Common.Name)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	if !auction.Updatable {
		return errcode.ErrAuctionNotUpdatable
	}
	if len(p.TokenRatios) != int(auction.NumTokens) {
		return errcode.ErrInvalidAuctionConfig
	}

	auction.Common = p.Common
	auction.Payment = p.Payment
	auction.Pricing = p.Pricing
	auction.Stats.Reset()
	for i := range p.TokenRatios {
		auction.Tokens[i].Ratio = p.TokenRatios[i]
	}

	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	if !e.cfg.TestMode {
		auction.UpdateTime = curtime
	}
	if !auction.Validate(curtime) {
		return errcode.ErrInvalidAuctionConfig
	}

	if err := e.collectNativeFee(tx, signer, launchpad.Fees.AuctionUpdate); err != nil {
		return err
	}
	launchpad.CollectedFees.AuctionUpdateNative, err =
		checked.Add(launchpad.CollectedFees.AuctionUpdateNative, launchpad.Fees.AuctionUpdate)
	if err != nil {
		return err
	}
	if err := e.saveLaunchpad(tx, launchpad); err != nil {
		return err
	}
	return e.saveAuction(tx, auctionAddr, auction)
}

func (e *Engine) setAuctionEnabled(tx *store.Tx, signer solana.PublicKey, name string, enabled bool) error {
	auction, auctionAddr, err := e.loadAuction(tx, name)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	auction.Enabled = enabled
	return e.saveAuction(tx, auctionAddr, auction)
}

// dispenserFor resolves the auction's dispensing sub-account for a mint.
func (e *Engine) dispenserFor(tx *store.Tx, auction *state.Auction, auctionAddr, mint solana.PublicKey) (solana.PublicKey, error) {
	dispenserAddr, _, err := state.DispenserAddress(mint, auctionAddr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	for i := 0; i < int(auction.NumTokens); i++ {
		if auction.Tokens[i].Account == dispenserAddr {
			return dispenserAddr, nil
		}
	}
	return solana.PublicKey{}, errcode.ErrInvalidDispenserAddress
}

func (e *Engine) addTokens(tx *store.Tx, signer solana.PublicKey, p *AddTokensParams) error {
	if p.Amount == 0 {
		return errcode.ErrInvalidTokenAmount
	}
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return err
	}
	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	if auction.FixedAmount {
		return errcode.ErrAuctionWithFixedAmount
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	if auction.IsStarted(curtime, true) && !launchpad.Permissions.AllowAuctionRefills {
		return errcode.ErrAuctionRefillsNotAllowed
	}

	dispenserAddr, err := e.dispenserFor(tx, auction, auctionAddr, p.Mint)
	if err != nil {
		return err
	}
	funding, err := token.GetAccount(tx, p.FundingAccount)
	if err != nil {
		return err
	}
	if funding.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	if funding.Mint != p.Mint {
		return errcode.ErrInvalidAccountData
	}
	return token.Transfer(tx, p.FundingAccount, dispenserAddr, signer, p.Amount)
}

func (e *Engine) removeTokens(tx *store.Tx, signer solana.PublicKey, p *RemoveTokensParams) error {
	if p.Amount == 0 {
		return errcode.ErrInvalidTokenAmount
	}
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return err
	}
	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	if auction.FixedAmount {
		return errcode.ErrAuctionWithFixedAmount
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	active := auction.IsStarted(curtime, true) && !auction.IsEnded(curtime, true)
	if active && !launchpad.Permissions.AllowAuctionPullouts {
		return errcode.ErrAuctionPullOutsNotAllowed
	}

	dispenserAddr, err := e.dispenserFor(tx, auction, auctionAddr, p.Mint)
	if err != nil {
		return err
	}
	receiving, err := token.GetAccount(tx, p.ReceivingAccount)
	if err != nil {
		return err
	}
	if receiving.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	if receiving.Mint != p.Mint {
		return errcode.ErrInvalidAccountData
	}
	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return err
	}
	return token.Transfer(tx, dispenserAddr, p.ReceivingAccount, authority, p.Amount)
}

// whitelistAdd pre-creates bid records flagged seller_initialized for the
// given addresses, granting them the whitelist cohort.
func (e *Engine) whitelistAdd(tx *store.Tx, signer solana.PublicKey, p *WhitelistAddParams) error {
	if len(p.Addresses) == 0 {
		return errcode.ErrNotEnoughAccountKeys
	}
	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}

	for _, addr := range p.Addresses {
		bid, bidAddr, bump, err := e.loadBid(tx, addr, auctionAddr)
		if err != nil {
			return err
		}
		if bid.Bump == 0 {
			bid.Owner = addr
			bid.Auction = auctionAddr
			bid.SellerInitialized = true
			bid.Bump = bump
		} else if bid.Owner != addr || bid.Auction != auctionAddr {
			return errcode.ErrInvalidBidAddress
		}
		bid.Whitelisted = true
		if err := e.saveBid(tx, bidAddr, bid); err != nil {
			return err
		}
	}

	e.log.Infow("whitelist_added", "auction", p.AuctionName, "addresses", len(p.Addresses))
	return nil
}

// whitelistRemove revokes the whitelist cohort. Seller-initialized records
// of an ended auction are closed outright.
func (e *Engine) whitelistRemove(tx *store.Tx, signer solana.PublicKey, p *WhitelistRemoveParams) error {
	if len(p.Addresses) == 0 {
		return errcode.ErrNotEnoughAccountKeys
	}
	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return err
	}
	if auction.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	ended := auction.IsEnded(curtime, true)

	for _, addr := range p.Addresses {
		bid, bidAddr, _, err := e.loadBid(tx, addr, auctionAddr)
		if err != nil {
			return err
		}
		if bid.Bump == 0 {
			return errcode.ErrInvalidBidAddress
		}
		if bid.Owner != addr || bid.Auction != auctionAddr {
			return errcode.ErrInvalidBidAddress
		}
		if ended && bid.SellerInitialized {
			if err := tx.Delete(store.RecordKey(bidAddr)); err != nil {
				return err
			}
			continue
		}
		bid.Whitelisted = false
		if err := e.saveBid(tx, bidAddr, bid); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) withdrawFunds(tx *store.Tx, signer solana.PublicKey, p *WithdrawFundsParams) error {
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return err
	}
	if !launchpad.Permissions.AllowWithdrawals {
		return errcode.ErrWithdrawalsNotAllowed
	}
	if p.Amount == 0 {
		return errcode.ErrInvalidTokenAmount
	}

	custody, custodyAddr, err := e.loadCustodyByMint(tx, p.Mint)
	if err != nil {
		return err
	}
	balance, balanceAddr, _, err := e.loadSellerBalance(tx, signer, custodyAddr)
	if err != nil {
		return err
	}
	if balance.Bump == 0 || balance.Owner != signer {
		return errcode.ErrInvalidSellerBalanceAddress
	}
	if balance.Balance < p.Amount {
		return errcode.ErrInsufficientFunds
	}
	balance.Balance, err = checked.Sub(balance.Balance, p.Amount)
	if err != nil {
		return err
	}
	if err := e.saveSellerBalance(tx, balanceAddr, balance); err != nil {
		return err
	}

	receiving, err := token.GetAccount(tx, p.ReceivingAccount)
	if err != nil {
		return err
	}
	if receiving.Owner != signer {
		return errcode.ErrIllegalOwner
	}
	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return err
	}
	return token.Transfer(tx, custody.TokenAccount, p.ReceivingAccount, authority, p.Amount)
}
