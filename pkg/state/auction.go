package state

import (
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
)

// MaxTokens bounds the number of dispensable tokens per auction.
const MaxTokens = 4

type BidderStats struct {
	FillsVolume      uint64
	WeightedFillsSum bin.Uint128
	MinFillPrice     uint64
	MaxFillPrice     uint64
	NumTrades        uint64
}

type AuctionStats struct {
	FirstTradeTime int64
	LastTradeTime  int64
	LastAmount     uint64
	LastPrice      uint64
	WlBidders      BidderStats
	RegBidders     BidderStats
}

type CommonParams struct {
	Name        string
	Description string
	AboutSeller string
	SellerLink  string

	StartTime        int64
	EndTime          int64
	PresaleStartTime int64
	PresaleEndTime   int64

	FillLimitRegAddress  uint64
	FillLimitWlAddress   uint64
	OrderLimitRegAddress uint64
	OrderLimitWlAddress  uint64
}

type PaymentParams struct {
	AcceptSol         bool
	AcceptUsdc        bool
	AcceptOtherTokens bool
}

type PricingModel uint8

const (
	PricingFixed PricingModel = iota
	PricingDynamicDutchAuction
)

func (m PricingModel) Valid() bool { return m <= PricingDynamicDutchAuction }

type RepriceFunction uint8

const (
	RepriceLinear RepriceFunction = iota
	RepriceExponential
)

func (f RepriceFunction) Valid() bool { return f <= RepriceExponential }

type AmountFunction uint8

const (
	AmountFixed AmountFunction = iota
)

func (f AmountFunction) Valid() bool { return f == AmountFixed }

type PricingParams struct {
	Custody         solana.PublicKey
	PricingModel    PricingModel
	StartPrice      uint64
	MaxPrice        uint64
	MinPrice        uint64
	RepriceDelay    int64
	RepriceCoef     float64
	RepriceFunction RepriceFunction
	AmountFunction  AmountFunction
	AmountPerLevel  uint64
	TickSize        uint64
	UnitSize        uint64
}

// AuctionToken pairs a dispensing sub-account with its recorded ratio. A zero
// ratio is replaced by the token's dispenser balance on the first trade. The
// ratio is stored data only: place_bid picks the token as the slot-hash
// value modulo the number of tokens and does not weight the draw by ratio.
type AuctionToken struct {
	Ratio   uint64
	Account solana.PublicKey
}

type Auction struct {
	Owner solana.PublicKey

	Enabled     bool
	Updatable   bool
	FixedAmount bool

	Common  CommonParams
	Payment PaymentParams
	Pricing PricingParams
	Stats   AuctionStats

	Tokens    [MaxTokens]AuctionToken
	NumTokens uint8

	// time of creation, also used as current wall clock time under the
	// test-mode toggle
	CreationTime int64
	UpdateTime   int64
	Bump         uint8
}

func (p *CommonParams) Validate(curtime int64) bool {
	return p.FillLimitRegAddress >= p.OrderLimitRegAddress &&
		p.FillLimitWlAddress >= p.OrderLimitWlAddress &&
		((p.EndTime == 0 && p.StartTime == 0) ||
			(p.EndTime > p.StartTime && p.EndTime > curtime)) &&
		((p.PresaleEndTime == 0 && p.PresaleStartTime == 0) ||
			(p.PresaleEndTime > p.PresaleStartTime &&
				p.PresaleEndTime > curtime &&
				((p.EndTime == 0 && p.StartTime == 0) ||
					p.PresaleEndTime <= p.StartTime)))
}

func (p *PaymentParams) Validate() bool {
	return p.AcceptSol || p.AcceptUsdc || p.AcceptOtherTokens
}

func (p *PricingParams) Validate() bool {
	return ((p.PricingModel == PricingFixed &&
		p.MinPrice == p.StartPrice &&
		p.MaxPrice == p.StartPrice) ||
		(p.PricingModel != PricingFixed &&
			p.MaxPrice >= p.StartPrice &&
			p.MaxPrice >= p.MinPrice &&
			p.StartPrice >= p.MinPrice)) &&
		p.PricingModel.Valid() &&
		p.RepriceFunction.Valid() &&
		p.AmountFunction.Valid() &&
		p.RepriceDelay >= 0 &&
		(p.PricingModel == PricingFixed ||
			(p.AmountPerLevel > 0 && p.TickSize > 0)) &&
		p.UnitSize > 0
}

func (a *Auction) Validate(curtime int64) bool {
	return len(a.Common.Name) >= 6 &&
		a.Common.Validate(curtime) &&
		a.Payment.Validate() &&
		a.Pricing.Validate()
}

// IsStarted checks if the auction has started for the given cohort.
func (a *Auction) IsStarted(curtime int64, whitelisted bool) bool {
	startTime := a.GetStartTime(whitelisted)
	return startTime > 0 && curtime >= startTime
}

// IsEnded checks if the auction has ended for the given cohort.
func (a *Auction) IsEnded(curtime int64, whitelisted bool) bool {
	return curtime >= a.GetEndTime(whitelisted)
}

func (a *Auction) GetStartTime(whitelisted bool) int64 {
	if whitelisted && a.Common.PresaleStartTime > 0 {
		return a.Common.PresaleStartTime
	}
	return a.Common.StartTime
}

func (a *Auction) GetEndTime(whitelisted bool) int64 {
	if whitelisted && a.Common.PresaleEndTime > a.Common.EndTime {
		return a.Common.PresaleEndTime
	}
	return a.Common.EndTime
}

// GetAuctionAmount returns the maximum amount available at the given price.
func (a *Auction) GetAuctionAmount(price uint64, curtime int64) (uint64, error) {
	switch a.Pricing.PricingModel {
	case PricingFixed:
		return math.MaxUint64, nil
	case PricingDynamicDutchAuction:
		return a.getAuctionAmountDDA(price, curtime)
	default:
		return 0, errcode.ErrInvalidPricingConfig
	}
}

// GetAuctionPrice returns the price required to take the given amount.
func (a *Auction) GetAuctionPrice(amount uint64, curtime int64) (uint64, error) {
	switch a.Pricing.PricingModel {
	case PricingFixed:
		return a.Pricing.StartPrice, nil
	case PricingDynamicDutchAuction:
		return a.getAuctionPriceDDA(amount, curtime)
	default:
		return 0, errcode.ErrInvalidPricingConfig
	}
}

func (a *Auction) getAuctionAmountDDA(price uint64, curtime int64) (uint64, error) {
	// compute current best offer price
	bestOfferPrice, err := a.GetBestOfferPrice(curtime)
	if err != nil {
		return 0, err
	}

	// return early if user's price is not aggressive enough
	if price < bestOfferPrice {
		return 0, nil
	}

	// compute number of price levels
	diff, err := checked.Sub(price, bestOfferPrice)
	if err != nil {
		return 0, err
	}
	levels, err := checked.Div(diff, a.Pricing.TickSize)
	if err != nil {
		return 0, err
	}
	priceLevels, err := checked.Add(levels, 1)
	if err != nil {
		return 0, err
	}

	// compute available amount
	return a.getOfferSize(priceLevels)
}

func (a *Auction) getAuctionPriceDDA(amount uint64, curtime int64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}

	// compute current best offer price
	bestOfferPrice, err := a.GetBestOfferPrice(curtime)
	if err != nil {
		return 0, err
	}

	// get number of price levels required to take
	levels, err := checked.CeilDiv(amount, a.Pricing.AmountPerLevel)
	if err != nil {
		return 0, err
	}
	priceLevels, err := checked.Sub(levels, 1)
	if err != nil {
		return 0, err
	}

	// compute the auction price
	surcharge, err := checked.Mul(priceLevels, a.Pricing.TickSize)
	if err != nil {
		return 0, err
	}
	price, err := checked.Add(bestOfferPrice, surcharge)
	if err != nil {
		return 0, err
	}

	return min(price, a.Pricing.MaxPrice), nil
}

// GetBestOfferPrice returns the seller's current minimum accepted price per
// the configured decay curve. The curve is frozen inside the reprice delay
// window and after the (whitelist-inclusive) end time.
func (a *Auction) GetBestOfferPrice(curtime int64) (uint64, error) {
	var lastPrice uint64
	var lastTradeTime int64
	if a.Stats.LastTradeTime > 0 {
		lastPrice, lastTradeTime = a.Stats.LastPrice, a.Stats.LastTradeTime
	} else {
		startTime := a.Common.StartTime
		if a.Common.StartTime <= 0 || curtime < a.Common.StartTime {
			startTime = a.GetStartTime(true)
		}
		lastPrice, lastTradeTime = a.Pricing.StartPrice, startTime
	}
	lastTradeTime, err := checked.AddInt(lastTradeTime, a.Pricing.RepriceDelay)
	if err != nil {
		return 0, err
	}
	endTime := a.GetEndTime(true)
	if curtime <= lastTradeTime || curtime >= endTime {
		return lastPrice, nil
	}
	elapsed, err := checked.SubInt(curtime, lastTradeTime)
	if err != nil {
		return 0, err
	}
	window, err := checked.SubInt(endTime, lastTradeTime)
	if err != nil {
		return 0, err
	}
	step, err := checked.FloatDiv(float64(elapsed), float64(window))
	if err != nil {
		return 0, err
	}

	var scale float64
	switch a.Pricing.RepriceFunction {
	case RepriceExponential:
		steps, err := checked.FloatMul(step, 100)
		if err != nil {
			return 0, err
		}
		scale, err = checked.FloatMul(math.Exp(-a.Pricing.RepriceCoef*steps), 10000.0)
		if err != nil {
			return 0, err
		}
	case RepriceLinear:
		scale, err = checked.FloatMul(1.0-step, 10000.0)
		if err != nil {
			return 0, err
		}
	default:
		return 0, errcode.ErrInvalidPricingConfig
	}

	scaleInt, err := checked.U128FromFloat(scale)
	if err != nil {
		return 0, err
	}
	scaled, err := checked.MulU128(checked.U128(lastPrice), scaleInt)
	if err != nil {
		return 0, err
	}
	quot, err := checked.DivU128(scaled, checked.U128(10000))
	if err != nil {
		return 0, err
	}
	bestOfferPrice, err := checked.AsU64(quot)
	if err != nil {
		return 0, err
	}

	// round to tick size
	if bestOfferPrice%a.Pricing.TickSize != 0 {
		ticks, err := checked.CeilDiv(bestOfferPrice, a.Pricing.TickSize)
		if err != nil {
			return 0, err
		}
		bestOfferPrice, err = checked.Mul(ticks, a.Pricing.TickSize)
		if err != nil {
			return 0, err
		}
	}

	// check for min/max
	bestOfferPrice = min(bestOfferPrice, a.Pricing.MaxPrice)
	bestOfferPrice = max(bestOfferPrice, a.Pricing.MinPrice)

	return bestOfferPrice, nil
}

func (a *Auction) getOfferSize(priceLevels uint64) (uint64, error) {
	switch a.Pricing.AmountFunction {
	case AmountFixed:
		return checked.Mul(priceLevels, a.Pricing.AmountPerLevel)
	default:
		return 0, errcode.ErrInvalidPricingConfig
	}
}

// BidderStatsFor selects the cohort stats bucket to update.
func (s *AuctionStats) BidderStatsFor(whitelisted bool) *BidderStats {
	if whitelisted {
		return &s.WlBidders
	}
	return &s.RegBidders
}

// Reset re-initializes the statistics; min fill prices start at the top so
// the first fill always lowers them.
func (s *AuctionStats) Reset() {
	*s = AuctionStats{}
	s.WlBidders.MinFillPrice = math.MaxUint64
	s.RegBidders.MinFillPrice = math.MaxUint64
}
