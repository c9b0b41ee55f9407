package errcode

import "fmt"

// Error is a launchpad error with a stable numeric code. Codes start at 6000
// and follow declaration order, so they stay stable across releases as long
// as new errors are only appended.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

var registry []*Error

func newError(msg string) *Error {
	e := &Error{Code: 6000 + len(registry), Msg: msg}
	registry = append(registry, e)
	return e
}

// All returns the full error enumeration in code order.
func All() []*Error {
	out := make([]*Error, len(registry))
	copy(out, registry)
	return out
}

var (
	ErrMultisigAccountNotAuthorized = newError("account is not authorized to sign this instruction")
	ErrMultisigAlreadySigned        = newError("account has already signed this instruction")
	ErrMultisigAlreadyExecuted      = newError("this instruction has already been executed")
	ErrInvalidLaunchpadConfig       = newError("invalid launchpad config")
	ErrInvalidCustodyConfig         = newError("invalid custody config")
	ErrInvalidAuctionConfig         = newError("invalid auction config")
	ErrInvalidPricingConfig         = newError("invalid pricing config")
	ErrInvalidTokenAmount           = newError("invalid token amount")
	ErrTooManyAccountKeys           = newError("too many account keys")
	ErrInvalidBidAddress            = newError("invalid bid account address")
	ErrInvalidDispenserAddress      = newError("invalid dispensing account address")
	ErrInvalidSellerBalanceAddress  = newError("invalid seller's balance address")
	ErrNewAuctionsNotAllowed        = newError("new auctions are not allowed at this time")
	ErrAuctionUpdatesNotAllowed     = newError("auction updates are not allowed at this time")
	ErrAuctionRefillsNotAllowed     = newError("auction refills are not allowed at this time")
	ErrAuctionPullOutsNotAllowed    = newError("auction pull-outs are not allowed at this time")
	ErrBidsNotAllowed               = newError("bids are not allowed at this time")
	ErrWithdrawalsNotAllowed        = newError("withdrawals are not allowed at this time")
	ErrInvalidEnvironment           = newError("instruction is not allowed in production")
	ErrAuctionNotStarted            = newError("auction hasn't started")
	ErrAuctionEnded                 = newError("auction has been ended")
	ErrAuctionEmpty                 = newError("auction is empty")
	ErrAuctionNotEmpty              = newError("auction is not empty")
	ErrAuctionNotUpdatable          = newError("auction is not updatable")
	ErrAuctionWithFixedAmount       = newError("auction with fixed amount")
	ErrAuctionInProgress            = newError("auction is still in progress")
	ErrMathOverflow                 = newError("overflow in arithmetic operation")
	ErrUnsupportedOracle            = newError("unsupported price oracle")
	ErrInvalidOracleAccount         = newError("invalid oracle account")
	ErrInvalidOracleState           = newError("invalid oracle state")
	ErrStaleOraclePrice             = newError("stale oracle price")
	ErrInvalidOraclePrice           = newError("invalid oracle price")
	ErrInsufficientAmount           = newError("insufficient amount available at the given price")
	ErrBidAmountTooLarge            = newError("bid amount is too large")
	ErrBidPriceTooSmall             = newError("bid price is too small")
	ErrFillAmountLimit              = newError("fill limit exceeded")
	ErrPriceCalcError               = newError("unexpected price calculation error")
	ErrSettlementError              = newError("settlement error")
	ErrMustBeSingleInstruction      = newError("this instruction must be all alone in the transaction")
	ErrIllegalOwner                 = newError("account owned by a wrong party")
	ErrInsufficientFunds            = newError("insufficient funds for the operation")
	ErrAccountAlreadyInitialized    = newError("account is already initialized")
	ErrNotEnoughAccountKeys         = newError("not enough account keys")
	ErrAccountNotFound              = newError("account does not exist")
	ErrInvalidAccountData           = newError("invalid account data")
)
