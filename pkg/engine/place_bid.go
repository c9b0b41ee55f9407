package engine

import (
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/oracle"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/token"
)

type PlaceBidParams struct {
	AuctionName string
	PaymentMint solana.PublicKey
	// FundingAccount is the buyer's token account in the payment mint.
	FundingAccount solana.PublicKey
	// ReceivingAccounts are the buyer's token accounts for the dispensed
	// tokens, one per auction token, in auction config order.
	ReceivingAccounts []solana.PublicKey

	Price   uint64
	Amount  uint64
	BidType state.BidType
}

type CancelBidParams struct {
	AuctionName string
	BidOwner    solana.PublicKey
}

type GetAuctionPriceParams struct {
	AuctionName string
	Amount      uint64
}

type GetAuctionAmountParams struct {
	AuctionName string
	Price       uint64
}

// placeBid runs the fill state machine. It must be the only instruction in
// its transaction so the slot-hash draw cannot be composed with instructions
// that observe it and abort.
func (e *Engine) placeBid(tx *store.Tx, signer solana.PublicKey, p *PlaceBidParams, numInstructions int) (*FillEvent, error) {
	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return nil, err
	}
	if !launchpad.Permissions.AllowNewBids {
		return nil, errcode.ErrBidsNotAllowed
	}
	if numInstructions != 1 {
		return nil, errcode.ErrMustBeSingleInstruction
	}

	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return nil, err
	}
	if !auction.Enabled {
		return nil, errcode.ErrBidsNotAllowed
	}

	// load accounts
	if len(p.ReceivingAccounts) < int(auction.NumTokens) {
		return nil, errcode.ErrNotEnoughAccountKeys
	}
	if len(p.ReceivingAccounts) > int(auction.NumTokens) {
		return nil, errcode.ErrTooManyAccountKeys
	}
	dispensers := make([]*token.Account, auction.NumTokens)
	for i := 0; i < int(auction.NumTokens); i++ {
		dispensers[i], err = token.GetAccount(tx, auction.Tokens[i].Account)
		if err != nil {
			return nil, errcode.ErrInvalidDispenserAddress
		}
	}

	paymentCustody, paymentCustodyAddr, err := e.loadCustodyByMint(tx, p.PaymentMint)
	if err != nil {
		return nil, err
	}
	if !e.paymentAccepted(auction, paymentCustody.Mint) {
		return nil, errcode.ErrInvalidCustodyConfig
	}
	funding, err := token.GetAccount(tx, p.FundingAccount)
	if err != nil {
		return nil, err
	}
	if funding.Owner != signer {
		return nil, errcode.ErrIllegalOwner
	}
	if funding.Mint != paymentCustody.Mint {
		return nil, errcode.ErrInvalidAccountData
	}

	bid, bidAddr, bidBump, err := e.loadBid(tx, signer, auctionAddr)
	if err != nil {
		return nil, err
	}

	// validate inputs
	if p.Amount == 0 {
		return nil, errcode.ErrInvalidTokenAmount
	}
	orderLimit := auction.Common.OrderLimitRegAddress
	fillLimit := auction.Common.FillLimitRegAddress
	if bid.Whitelisted {
		orderLimit = auction.Common.OrderLimitWlAddress
		fillLimit = auction.Common.FillLimitWlAddress
	}
	if p.Amount > orderLimit {
		return nil, errcode.ErrBidAmountTooLarge
	}
	if p.Price < auction.Pricing.MinPrice {
		return nil, errcode.ErrBidPriceTooSmall
	}

	// check the auction is active for this bidder
	curtime, err := e.currentTime(auction)
	if err != nil {
		return nil, err
	}
	badBid := state.BadBidNone
	if !auction.IsStarted(curtime, bid.Whitelisted) {
		badBid = state.BadBidTooEarly
	}
	if auction.IsEnded(curtime, bid.Whitelisted) {
		return nil, errcode.ErrAuctionEnded
	}

	// cross-check receiving accounts against the dispensers
	for i := 0; i < int(auction.NumTokens); i++ {
		receiving, err := token.GetAccount(tx, p.ReceivingAccounts[i])
		if err != nil {
			return nil, err
		}
		if receiving.Owner != signer {
			return nil, errcode.ErrIllegalOwner
		}
		if receiving.Mint != dispensers[i].Mint {
			return nil, errcode.ErrInvalidDispenserAddress
		}
	}

	// pick the dispensing token
	tokenNum := 0
	if auction.NumTokens > 1 {
		tokenNum, err = e.randomTokenIndex(tx, int(auction.NumTokens))
		if err != nil {
			return nil, err
		}
	}

	// available inventory at the given price
	maxDispense, err := checked.Div(dispensers[tokenNum].Amount, auction.Pricing.UnitSize)
	if err != nil {
		return nil, err
	}
	avail, err := auction.GetAuctionAmount(p.Price, curtime)
	if err != nil {
		return nil, err
	}
	avail = min(avail, maxDispense)

	if avail == 0 || (p.BidType == state.BidFok && avail < p.Amount) {
		return nil, errcode.ErrInsufficientAmount
	}
	fillAmount := min(avail, p.Amount)

	fillPrice, err := auction.GetAuctionPrice(fillAmount, curtime)
	if err != nil {
		return nil, err
	}
	if p.Price < fillPrice {
		return nil, errcode.ErrPriceCalcError
	}

	// fill limit is checked against the pre-fill volume
	if fillLimit < bid.Filled {
		badBid = state.BadBidFillLimit
	}

	if badBid != state.BadBidNone {
		return nil, e.chargeBadBid(tx, signer, p, launchpad, paymentCustody, paymentCustodyAddr, funding, fillAmount, curtime, badBid)
	}

	// payment
	var paymentAmount uint64
	if fillPrice > 0 {
		paymentAmount, err = e.computePayment(tx, auction, paymentCustody, paymentCustodyAddr, fillPrice, fillAmount, curtime)
		if err != nil {
			return nil, err
		}
		feeAmount, err := launchpad.Fees.Trade.GetFeeAmount(paymentAmount)
		if err != nil {
			return nil, err
		}
		total, err := checked.Add(paymentAmount, feeAmount)
		if err != nil {
			return nil, err
		}
		if err := token.Transfer(tx, p.FundingAccount, paymentCustody.TokenAccount, signer, total); err != nil {
			return nil, err
		}
		paymentCustody.CollectedFees, err = checked.Add(paymentCustody.CollectedFees, feeAmount)
		if err != nil {
			return nil, err
		}
		if err := e.saveCustody(tx, paymentCustodyAddr, paymentCustody); err != nil {
			return nil, err
		}
		feeUsd, err := e.assetValueUsd(tx, paymentCustody, feeAmount, curtime)
		if err != nil {
			return nil, err
		}
		launchpad.CollectedFees.TradeUsd, err = checked.Add(launchpad.CollectedFees.TradeUsd, feeUsd)
		if err != nil {
			return nil, err
		}
		if err := e.saveLaunchpad(tx, launchpad); err != nil {
			return nil, err
		}
	}

	// update the bid record
	if bid.Bump == 0 {
		bid.Owner = signer
		bid.Auction = auctionAddr
		bid.Whitelisted = false
		bid.SellerInitialized = false
		bid.Bump = bidBump
	} else if bid.Owner != signer || bid.Auction != auctionAddr {
		return nil, errcode.ErrInvalidBidAddress
	}
	bid.BidTime = curtime
	bid.BidPrice = p.Price
	bid.BidAmount = p.Amount
	bid.BidType = p.BidType
	bid.Filled, err = checked.Add(bid.Filled, fillAmount)
	if err != nil {
		return nil, err
	}
	bid.FillTime = curtime
	bid.FillPrice = fillPrice
	bid.FillAmount = fillAmount
	if err := e.saveBid(tx, bidAddr, bid); err != nil {
		return nil, err
	}

	// update the seller's balance
	balance, balanceAddr, balanceBump, err := e.loadSellerBalance(tx, auction.Owner, paymentCustodyAddr)
	if err != nil {
		return nil, err
	}
	if balance.Bump == 0 {
		balance.Owner = auction.Owner
		balance.Custody = paymentCustodyAddr
		balance.Bump = balanceBump
	} else if balance.Owner != auction.Owner || balance.Custody != paymentCustodyAddr {
		return nil, errcode.ErrInvalidSellerBalanceAddress
	}
	balance.Balance, err = checked.Add(balance.Balance, paymentAmount)
	if err != nil {
		return nil, err
	}
	if err := e.saveSellerBalance(tx, balanceAddr, balance); err != nil {
		return nil, err
	}

	// update auction stats
	if auction.Stats.FirstTradeTime == 0 {
		auction.Stats.FirstTradeTime = curtime
		// unset ratios are filled in with the token's supplied amount
		for i := 0; i < int(auction.NumTokens); i++ {
			if auction.Tokens[i].Ratio == 0 {
				auction.Tokens[i].Ratio = dispensers[i].Amount
			}
		}
	}
	auction.Stats.LastTradeTime = curtime
	auction.Stats.LastAmount = fillAmount
	auction.Stats.LastPrice = fillPrice

	stats := auction.Stats.BidderStatsFor(bid.Whitelisted)
	stats.FillsVolume, err = checked.Add(stats.FillsVolume, fillAmount)
	if err != nil {
		return nil, err
	}
	weighted, err := checked.MulU128(checked.U128(fillAmount), checked.U128(fillPrice))
	if err != nil {
		return nil, err
	}
	sum, err := checked.AddU128(state.BigFromU128(stats.WeightedFillsSum), weighted)
	if err != nil {
		return nil, err
	}
	stats.WeightedFillsSum = state.U128FromBig(sum)
	if fillPrice < stats.MinFillPrice {
		stats.MinFillPrice = fillPrice
	}
	if fillPrice > stats.MaxFillPrice {
		stats.MaxFillPrice = fillPrice
	}
	if stats.NumTrades < math.MaxUint64 {
		stats.NumTrades++
	}
	if err := e.saveAuction(tx, auctionAddr, auction); err != nil {
		return nil, err
	}

	// dispense the tokens
	dispensed, err := checked.Mul(fillAmount, auction.Pricing.UnitSize)
	if err != nil {
		return nil, err
	}
	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return nil, err
	}
	if err := token.Transfer(tx, auction.Tokens[tokenNum].Account, p.ReceivingAccounts[tokenNum], authority, dispensed); err != nil {
		return nil, err
	}

	e.log.Infow("bid_filled",
		"auction", p.AuctionName, "buyer", signer.String(),
		"fill_amount", fillAmount, "fill_price", fillPrice,
		"payment", paymentAmount, "token", tokenNum)

	return &FillEvent{
		Auction:     p.AuctionName,
		Buyer:       signer,
		Whitelisted: bid.Whitelisted,
		FillAmount:  fillAmount,
		FillPrice:   fillPrice,
		FillTime:    curtime,
		TokenMint:   dispensers[tokenNum].Mint,
	}, nil
}

// paymentAccepted maps the payment mint onto the auction's accepted payment
// modes.
func (e *Engine) paymentAccepted(auction *state.Auction, mint solana.PublicKey) bool {
	switch mint {
	case e.cfg.NativeMint:
		return auction.Payment.AcceptSol
	case e.cfg.UsdcMint:
		return auction.Payment.AcceptUsdc
	default:
		return auction.Payment.AcceptOtherTokens
	}
}

// chargeBadBid converts a recoverable state error into a fee-paying no-op
// when the invalid-bid fee is configured. Only the penalty moves; bid,
// seller balance and auction stats stay untouched.
func (e *Engine) chargeBadBid(
	tx *store.Tx,
	signer solana.PublicKey,
	p *PlaceBidParams,
	launchpad *state.Launchpad,
	custody *state.Custody,
	custodyAddr solana.PublicKey,
	funding *token.Account,
	fillAmount uint64,
	curtime int64,
	badBid state.BadBidType,
) error {
	if launchpad.Fees.InvalidBid.IsZero() {
		if badBid == state.BadBidTooEarly {
			return errcode.ErrAuctionNotStarted
		}
		return errcode.ErrFillAmountLimit
	}

	penalty, err := launchpad.Fees.InvalidBid.GetFeeAmount(min(fillAmount, funding.Amount))
	if err != nil {
		return err
	}
	if err := token.Transfer(tx, p.FundingAccount, custody.TokenAccount, signer, penalty); err != nil {
		return err
	}
	custody.CollectedFees, err = checked.Add(custody.CollectedFees, penalty)
	if err != nil {
		return err
	}
	if err := e.saveCustody(tx, custodyAddr, custody); err != nil {
		return err
	}

	penaltyUsd, err := e.assetValueUsd(tx, custody, penalty, curtime)
	if err != nil {
		return err
	}
	launchpad.CollectedFees.InvalidBidUsd, err = checked.Add(launchpad.CollectedFees.InvalidBidUsd, penaltyUsd)
	if err != nil {
		return err
	}
	if err := e.saveLaunchpad(tx, launchpad); err != nil {
		return err
	}

	e.log.Infow("bad_bid_charged",
		"auction", p.AuctionName, "buyer", signer.String(),
		"reason", badBid, "penalty", penalty)
	return nil
}

// computePayment prices the fill in the payment currency. When payment and
// pricing custodies differ, the conversion routes through both oracles with
// ceil-rounding in the seller's favor.
func (e *Engine) computePayment(
	tx *store.Tx,
	auction *state.Auction,
	paymentCustody *state.Custody,
	paymentCustodyAddr solana.PublicKey,
	fillPrice, fillAmount uint64,
	curtime int64,
) (uint64, error) {
	if paymentCustodyAddr == auction.Pricing.Custody {
		return checked.Mul(fillPrice, fillAmount)
	}

	pricingCustody, err := e.loadCustodyByAddress(tx, auction.Pricing.Custody)
	if err != nil {
		return 0, err
	}
	pricingPrice, err := e.loadOraclePrice(tx, pricingCustody, curtime)
	if err != nil {
		return 0, err
	}
	paymentPrice, err := e.loadOraclePrice(tx, paymentCustody, curtime)
	if err != nil {
		return 0, err
	}
	tokenPairPrice, err := pricingPrice.CheckedDiv(paymentPrice)
	if err != nil {
		return 0, err
	}
	pricePerToken, err := checked.DecimalCeilMul(
		fillPrice, -int32(pricingCustody.Decimals),
		tokenPairPrice.Price, tokenPairPrice.Exponent,
		-int32(paymentCustody.Decimals),
	)
	if err != nil {
		return 0, err
	}
	return checked.Mul(pricePerToken, fillAmount)
}

func (e *Engine) loadOraclePrice(tx *store.Tx, custody *state.Custody, curtime int64) (oracle.OraclePrice, error) {
	data, ok, err := loadRecord(tx, custody.OracleAccount)
	if err != nil {
		return oracle.OraclePrice{}, err
	}
	if !ok {
		return oracle.OraclePrice{}, errcode.ErrInvalidOracleAccount
	}
	return oracle.NewFromOracle(
		custody.OracleType, data,
		custody.MaxOraclePriceError, custody.MaxOraclePriceAge, curtime,
	)
}

// assetValueUsd converts a fee amount into USD through the custody's oracle;
// custodies without an oracle contribute nothing to the USD totals.
func (e *Engine) assetValueUsd(tx *store.Tx, custody *state.Custody, amount uint64, curtime int64) (uint64, error) {
	if custody.OracleType == oracle.OracleNone || amount == 0 {
		return 0, nil
	}
	price, err := e.loadOraclePrice(tx, custody, curtime)
	if err != nil {
		return 0, err
	}
	return price.GetAssetValueUsd(amount, custody.Decimals)
}

// cancelBid closes a bid record once the auction has ended. Buyer-owned
// records are closed by the buyer, seller-initialized ones by the seller.
func (e *Engine) cancelBid(tx *store.Tx, signer solana.PublicKey, p *CancelBidParams) error {
	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return err
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return err
	}
	if !auction.IsEnded(curtime, true) {
		return errcode.ErrAuctionInProgress
	}

	bid, bidAddr, _, err := e.loadBid(tx, p.BidOwner, auctionAddr)
	if err != nil {
		return err
	}
	if bid.Bump == 0 {
		return errcode.ErrInvalidBidAddress
	}
	if (!bid.SellerInitialized && signer == bid.Owner) ||
		(bid.SellerInitialized && signer == auction.Owner) {
		return tx.Delete(store.RecordKey(bidAddr))
	}
	return errcode.ErrIllegalOwner
}

func (e *Engine) getAuctionPrice(tx *store.Tx, p *GetAuctionPriceParams) (uint64, error) {
	auction, _, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return 0, err
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return 0, err
	}
	return auction.GetAuctionPrice(p.Amount, curtime)
}

func (e *Engine) getAuctionAmount(tx *store.Tx, p *GetAuctionAmountParams) (uint64, error) {
	auction, _, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return 0, err
	}
	curtime, err := e.currentTime(auction)
	if err != nil {
		return 0, err
	}
	return auction.GetAuctionAmount(p.Price, curtime)
}
