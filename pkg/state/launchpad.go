package state

import (
	"github.com/uhyunpark/launchpad/pkg/checked"
)

// Fee is a proportional fee rate. A zero numerator disables the fee.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

type Fees struct {
	// fixed native amounts
	NewAuction    uint64
	AuctionUpdate uint64
	// proportional rates
	InvalidBid Fee
	Trade      Fee
}

type CollectedFees struct {
	NewAuctionNative    uint64
	AuctionUpdateNative uint64
	InvalidBidUsd       uint64
	TradeUsd            uint64
}

type Permissions struct {
	AllowNewAuctions     bool
	AllowAuctionUpdates  bool
	AllowAuctionRefills  bool
	AllowAuctionPullouts bool
	AllowNewBids         bool
	AllowWithdrawals     bool
}

// Launchpad is the singleton root record of the platform.
type Launchpad struct {
	Permissions   Permissions
	Fees          Fees
	CollectedFees CollectedFees

	TransferAuthorityBump uint8
	LaunchpadBump         uint8
}

func (f Fee) IsZero() bool {
	return f.Numerator == 0
}

// GetFeeAmount applies the rate with ceil-division so sub-unit remainders
// round in the platform's favor.
func (f Fee) GetFeeAmount(amount uint64) (uint64, error) {
	if f.IsZero() {
		return 0, nil
	}
	prod, err := checked.MulU128(checked.U128(amount), checked.U128(f.Numerator))
	if err != nil {
		return 0, err
	}
	quot, err := checked.CeilDivU128(prod, checked.U128(f.Denominator))
	if err != nil {
		return 0, err
	}
	return checked.AsU64(quot)
}

func (l *Launchpad) Validate() bool {
	return l.Fees.InvalidBid.Numerator < l.Fees.InvalidBid.Denominator &&
		l.Fees.Trade.Numerator < l.Fees.Trade.Denominator
}
