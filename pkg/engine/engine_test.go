package engine_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/uhyunpark/launchpad/pkg/engine"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/oracle"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/token"
	"github.com/uhyunpark/launchpad/pkg/util"
)

const auctionName = "test_auction"

type testEnv struct {
	t   *testing.T
	st  *store.Store
	eng *engine.Engine

	admin  solana.PublicKey
	seller solana.PublicKey
	buyer  solana.PublicKey

	paymentMint solana.PublicKey
	tokenMint   solana.PublicKey

	custodyAddr   solana.PublicKey
	oracleAccount solana.PublicKey
	auctionAddr   solana.PublicKey

	buyerFunding    solana.PublicKey
	buyerReceiving  solana.PublicKey
	sellerFunding   solana.PublicKey
	sellerReceiving solana.PublicKey
}

func randKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return k.PublicKey()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		t:               t,
		st:              st,
		admin:           randKey(t),
		seller:          randKey(t),
		buyer:           randKey(t),
		paymentMint:     randKey(t),
		tokenMint:       randKey(t),
		oracleAccount:   randKey(t),
		buyerFunding:    randKey(t),
		buyerReceiving:  randKey(t),
		sellerFunding:   randKey(t),
		sellerReceiving: randKey(t),
	}
	env.eng = engine.New(st, zap.NewNop().Sugar(), util.FixedClock{T: time.Unix(1_700_000_000, 0)}, engine.Config{
		TestMode:   true,
		NativeMint: randKey(t),
		UsdcMint:   randKey(t),
	})

	env.custodyAddr, _, err = state.CustodyAddress(env.paymentMint)
	if err != nil {
		t.Fatalf("custody address: %v", err)
	}
	env.auctionAddr, _, err = state.AuctionAddress(auctionName)
	if err != nil {
		t.Fatalf("auction address: %v", err)
	}

	// mints and user token accounts
	err = st.Update(func(tx *store.Tx) error {
		if err := token.CreateMint(tx, env.paymentMint, 6); err != nil {
			return err
		}
		if err := token.CreateMint(tx, env.tokenMint, 9); err != nil {
			return err
		}
		if err := token.CreateAccount(tx, env.buyerFunding, env.paymentMint, env.buyer); err != nil {
			return err
		}
		if err := token.MintTo(tx, env.buyerFunding, 10_000_000); err != nil {
			return err
		}
		if err := token.CreateAccount(tx, env.buyerReceiving, env.tokenMint, env.buyer); err != nil {
			return err
		}
		if err := token.CreateAccount(tx, env.sellerFunding, env.tokenMint, env.seller); err != nil {
			return err
		}
		if err := token.MintTo(tx, env.sellerFunding, 10_000_000_000); err != nil {
			return err
		}
		return token.CreateAccount(tx, env.sellerReceiving, env.paymentMint, env.seller)
	})
	if err != nil {
		t.Fatalf("token setup: %v", err)
	}

	env.mustExec(env.admin, engine.OpInit, &engine.InitParams{
		MinSignatures: 1,
		AdminSigners:  []solana.PublicKey{env.admin},
		Permissions: state.Permissions{
			AllowNewAuctions:     true,
			AllowAuctionUpdates:  true,
			AllowAuctionRefills:  true,
			AllowAuctionPullouts: true,
			AllowNewBids:         true,
			AllowWithdrawals:     true,
		},
		Fees: state.Fees{
			InvalidBid: state.Fee{Numerator: 0, Denominator: 100},
			Trade:      state.Fee{Numerator: 0, Denominator: 100},
		},
	})

	env.mustExec(env.admin, engine.OpInitCustody, &engine.InitCustodyParams{
		Mint:                env.paymentMint,
		OracleType:          oracle.OracleTest,
		OracleAccount:       env.oracleAccount,
		MaxOraclePriceError: 1.0,
		MaxOraclePriceAge:   3600,
	})
	env.mustExec(env.admin, engine.OpSetTestOraclePrice, &engine.SetTestOraclePriceParams{
		Mint:        env.paymentMint,
		Price:       100000000, // $1.00
		Expo:        -8,
		PublishTime: 100,
	})

	return env
}

func (env *testEnv) exec(signer solana.PublicKey, name string, params interface{}) (engine.Result, error) {
	return env.eng.Execute(&engine.Transaction{
		Signer:       signer,
		Instructions: []engine.Instruction{{Name: name, Params: params}},
	})
}

func (env *testEnv) mustExec(signer solana.PublicKey, name string, params interface{}) engine.Result {
	env.t.Helper()
	res, err := env.exec(signer, name, params)
	if err != nil {
		env.t.Fatalf("%s: %v", name, err)
	}
	return res
}

func (env *testEnv) fixtureParams() *engine.InitAuctionParams {
	return &engine.InitAuctionParams{
		Enabled:   true,
		Updatable: true,
		Common: state.CommonParams{
			Name:                 auctionName,
			StartTime:            350,
			EndTime:              500,
			PresaleStartTime:     200,
			PresaleEndTime:       300,
			FillLimitRegAddress:  1000,
			FillLimitWlAddress:   2000,
			OrderLimitRegAddress: 1000,
			OrderLimitWlAddress:  2000,
		},
		Payment: state.PaymentParams{AcceptOtherTokens: true},
		Pricing: state.PricingParams{
			Custody:         env.custodyAddr,
			PricingModel:    state.PricingDynamicDutchAuction,
			StartPrice:      1000,
			MaxPrice:        2000,
			MinPrice:        50,
			RepriceDelay:    10,
			RepriceCoef:     0.05,
			RepriceFunction: state.RepriceExponential,
			AmountFunction:  state.AmountFixed,
			AmountPerLevel:  20,
			TickSize:        10,
			UnitSize:        100,
		},
		DispensingMints: []solana.PublicKey{env.tokenMint},
		TokenRatios:     []uint64{0},
	}
}

// setupAuction creates the fixture auction, funds its dispenser and moves
// the test clock to the given time.
func (env *testEnv) setupAuction(curtime int64, mutate func(*engine.InitAuctionParams)) {
	env.t.Helper()
	params := env.fixtureParams()
	if mutate != nil {
		mutate(params)
	}
	env.mustExec(env.seller, engine.OpInitAuction, params)
	env.mustExec(env.seller, engine.OpAddTokens, &engine.AddTokensParams{
		AuctionName:    auctionName,
		Mint:           env.tokenMint,
		Amount:         1_000_000,
		FundingAccount: env.sellerFunding,
	})
	env.setTime(curtime)
}

func (env *testEnv) setTime(curtime int64) {
	env.t.Helper()
	env.mustExec(env.admin, engine.OpSetTestTime, &engine.SetTestTimeParams{
		AuctionName: auctionName,
		Time:        curtime,
	})
}

func (env *testEnv) placeBid(buyer solana.PublicKey, price, amount uint64, bidType state.BidType) error {
	_, err := env.exec(buyer, engine.OpPlaceBid, &engine.PlaceBidParams{
		AuctionName:       auctionName,
		PaymentMint:       env.paymentMint,
		FundingAccount:    env.buyerFunding,
		ReceivingAccounts: []solana.PublicKey{env.buyerReceiving},
		Price:             price,
		Amount:            amount,
		BidType:           bidType,
	})
	return err
}

func (env *testEnv) tokenBalance(addr solana.PublicKey) uint64 {
	env.t.Helper()
	var amount uint64
	err := env.st.View(func(tx *store.Tx) error {
		acc, err := token.GetAccount(tx, addr)
		if err != nil {
			return err
		}
		amount = acc.Amount
		return nil
	})
	if err != nil {
		env.t.Fatalf("token balance: %v", err)
	}
	return amount
}

func TestPlaceBidIocPartialFill(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	// best offer at t=400 is 240 and one price level (20 units) is on offer;
	// an IOC for 21 takes what's there
	if err := env.placeBid(env.buyer, 240, 21, state.BidIoc); err != nil {
		t.Fatalf("place_bid: %v", err)
	}

	bid, err := env.eng.GetBidInfo(auctionName, env.buyer)
	if err != nil {
		t.Fatalf("bid info: %v", err)
	}
	if bid.Filled != 20 || bid.FillPrice != 240 || bid.FillAmount != 20 {
		t.Errorf("bid = filled %d @ %d (last fill %d)", bid.Filled, bid.FillPrice, bid.FillAmount)
	}
	if bid.BidAmount != 21 || bid.BidPrice != 240 || bid.BidType != state.BidIoc {
		t.Errorf("bid inputs not recorded: %+v", bid)
	}

	// payment 240*20 = 4800 left the buyer, dispensed 20*100 raw tokens
	if got := env.tokenBalance(env.buyerFunding); got != 10_000_000-4800 {
		t.Errorf("buyer funding = %d", got)
	}
	if got := env.tokenBalance(env.buyerReceiving); got != 2000 {
		t.Errorf("buyer receiving = %d", got)
	}

	auction, err := env.eng.GetAuctionInfo(auctionName)
	if err != nil {
		t.Fatalf("auction info: %v", err)
	}
	if auction.Stats.LastAmount != 20 || auction.Stats.LastPrice != 240 || auction.Stats.LastTradeTime != 400 {
		t.Errorf("stats = %+v", auction.Stats)
	}
	reg := auction.Stats.RegBidders
	if reg.FillsVolume != 20 || reg.NumTrades != 1 || reg.MinFillPrice != 240 || reg.MaxFillPrice != 240 {
		t.Errorf("cohort stats = %+v", reg)
	}
	if state.BigFromU128(reg.WeightedFillsSum).Uint64() != 20*240 {
		t.Errorf("weighted fills sum = %v", reg.WeightedFillsSum)
	}
	// a zero ratio is replaced by the supplied amount on the first trade
	if auction.Tokens[0].Ratio != 1_000_000 {
		t.Errorf("token ratio = %d", auction.Tokens[0].Ratio)
	}

	// proceeds are credited to the seller's balance, no fee taken
	balance, err := env.eng.GetSellerBalanceInfo(env.seller, env.paymentMint)
	if err != nil {
		t.Fatalf("seller balance: %v", err)
	}
	if balance.Balance != 4800 {
		t.Errorf("seller balance = %d", balance.Balance)
	}
	custody, err := env.eng.GetCustodyInfo(env.paymentMint)
	if err != nil {
		t.Fatalf("custody info: %v", err)
	}
	if custody.CollectedFees != 0 {
		t.Errorf("collected fees = %d with zero trade fee", custody.CollectedFees)
	}
}

func TestPlaceBidFokInsufficient(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	err := env.placeBid(env.buyer, 240, 21, state.BidFok)
	if !errors.Is(err, errcode.ErrInsufficientAmount) {
		t.Fatalf("expected InsufficientAmount, got %v", err)
	}

	// no state change
	if got := env.tokenBalance(env.buyerFunding); got != 10_000_000 {
		t.Errorf("buyer funding = %d", got)
	}
	bid, err := env.eng.GetBidInfo(auctionName, env.buyer)
	if err != nil {
		t.Fatalf("bid info: %v", err)
	}
	if bid.Bump != 0 {
		t.Error("bid record created by failed FOK")
	}
}

func TestPlaceBidValidation(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	if err := env.placeBid(env.buyer, 240, 0, state.BidIoc); !errors.Is(err, errcode.ErrInvalidTokenAmount) {
		t.Errorf("zero amount: %v", err)
	}
	if err := env.placeBid(env.buyer, 240, 1001, state.BidIoc); !errors.Is(err, errcode.ErrBidAmountTooLarge) {
		t.Errorf("above order limit: %v", err)
	}
	if err := env.placeBid(env.buyer, 49, 20, state.BidIoc); !errors.Is(err, errcode.ErrBidPriceTooSmall) {
		t.Errorf("below min price: %v", err)
	}
	// price below the curve yields no inventory
	if err := env.placeBid(env.buyer, 230, 20, state.BidIoc); !errors.Is(err, errcode.ErrInsufficientAmount) {
		t.Errorf("below best offer: %v", err)
	}

	env.setTime(500)
	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); !errors.Is(err, errcode.ErrAuctionEnded) {
		t.Errorf("ended auction: %v", err)
	}
}

func TestPlaceBidTooEarly(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(250, nil)

	// regular cohort is not live during the presale; with a zero invalid-bid
	// fee the bid fails outright
	err := env.placeBid(env.buyer, 510, 20, state.BidIoc)
	if !errors.Is(err, errcode.ErrAuctionNotStarted) {
		t.Fatalf("expected AuctionNotStarted, got %v", err)
	}
}

func TestPlaceBidTooEarlyChargesPenalty(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(250, nil)

	env.mustExec(env.admin, engine.OpSetFees, &engine.SetFeesParams{
		Fees: state.Fees{
			InvalidBid: state.Fee{Numerator: 1, Denominator: 100},
			Trade:      state.Fee{Numerator: 0, Denominator: 100},
		},
	})

	// fill would be 20; the penalty is ceil(20 * 1/100) = 1
	if err := env.placeBid(env.buyer, 510, 20, state.BidIoc); err != nil {
		t.Fatalf("bad bid should succeed with fee: %v", err)
	}

	if got := env.tokenBalance(env.buyerFunding); got != 10_000_000-1 {
		t.Errorf("buyer funding = %d", got)
	}
	custody, err := env.eng.GetCustodyInfo(env.paymentMint)
	if err != nil {
		t.Fatalf("custody info: %v", err)
	}
	if custody.CollectedFees != 1 {
		t.Errorf("custody fees = %d", custody.CollectedFees)
	}
	launchpad, err := env.eng.GetLaunchpadInfo()
	if err != nil {
		t.Fatalf("launchpad info: %v", err)
	}
	if launchpad.CollectedFees.InvalidBidUsd != 1 {
		t.Errorf("invalid bid usd = %d", launchpad.CollectedFees.InvalidBidUsd)
	}

	// the bid itself was not filled and no record was created
	bid, err := env.eng.GetBidInfo(auctionName, env.buyer)
	if err != nil {
		t.Fatalf("bid info: %v", err)
	}
	if bid.Bump != 0 {
		t.Error("bad bid created a bid record")
	}
	auction, _ := env.eng.GetAuctionInfo(auctionName)
	if auction.Stats.RegBidders.NumTrades != 0 {
		t.Error("bad bid mutated auction stats")
	}
}

func TestWhitelistPresaleBid(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(250, nil)

	env.mustExec(env.seller, engine.OpWhitelistAdd, &engine.WhitelistAddParams{
		AuctionName: auctionName,
		Addresses:   []solana.PublicKey{env.buyer},
	})

	bid, err := env.eng.GetBidInfo(auctionName, env.buyer)
	if err != nil {
		t.Fatalf("bid info: %v", err)
	}
	if !bid.Whitelisted || !bid.SellerInitialized {
		t.Fatalf("whitelist record = %+v", bid)
	}

	// whitelisted cohort trades during the presale at the presale curve
	if err := env.placeBid(env.buyer, 510, 20, state.BidIoc); err != nil {
		t.Fatalf("whitelisted bid: %v", err)
	}
	bid, _ = env.eng.GetBidInfo(auctionName, env.buyer)
	if bid.Filled != 20 || bid.FillPrice != 510 {
		t.Errorf("whitelisted fill = %d @ %d", bid.Filled, bid.FillPrice)
	}
	auction, _ := env.eng.GetAuctionInfo(auctionName)
	if auction.Stats.WlBidders.FillsVolume != 20 || auction.Stats.RegBidders.FillsVolume != 0 {
		t.Errorf("cohort stats = wl %d reg %d",
			auction.Stats.WlBidders.FillsVolume, auction.Stats.RegBidders.FillsVolume)
	}

	// removing the whitelist before the end demotes the cohort flag
	env.mustExec(env.seller, engine.OpWhitelistRemove, &engine.WhitelistRemoveParams{
		AuctionName: auctionName,
		Addresses:   []solana.PublicKey{env.buyer},
	})
	bid, _ = env.eng.GetBidInfo(auctionName, env.buyer)
	if bid.Whitelisted {
		t.Error("whitelist flag not cleared")
	}
}

func TestFillLimit(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, func(p *engine.InitAuctionParams) {
		p.Common.FillLimitRegAddress = 30
		p.Common.OrderLimitRegAddress = 30
	})

	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("second bid: %v", err)
	}
	// the third bid sees pre-fill volume 40 > 30
	err := env.placeBid(env.buyer, 240, 20, state.BidIoc)
	if !errors.Is(err, errcode.ErrFillAmountLimit) {
		t.Fatalf("expected FillAmountLimit, got %v", err)
	}

	bid, _ := env.eng.GetBidInfo(auctionName, env.buyer)
	if bid.Filled != 40 {
		t.Errorf("filled = %d", bid.Filled)
	}
}

func TestSingleInstructionGate(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	_, err := env.eng.Execute(&engine.Transaction{
		Signer: env.buyer,
		Instructions: []engine.Instruction{
			{Name: engine.OpGetAuctionPrice, Params: &engine.GetAuctionPriceParams{AuctionName: auctionName, Amount: 20}},
			{Name: engine.OpPlaceBid, Params: &engine.PlaceBidParams{
				AuctionName:       auctionName,
				PaymentMint:       env.paymentMint,
				FundingAccount:    env.buyerFunding,
				ReceivingAccounts: []solana.PublicKey{env.buyerReceiving},
				Price:             240,
				Amount:            20,
				BidType:           state.BidIoc,
			}},
		},
	})
	if !errors.Is(err, errcode.ErrMustBeSingleInstruction) {
		t.Fatalf("expected MustBeSingleInstruction, got %v", err)
	}

	bid, _ := env.eng.GetBidInfo(auctionName, env.buyer)
	if bid.Bump != 0 {
		t.Error("composed place_bid left state behind")
	}
}

func TestBidsDisallowed(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	env.mustExec(env.admin, engine.OpSetPermissions, &engine.SetPermissionsParams{
		Permissions: state.Permissions{
			AllowNewAuctions:     true,
			AllowAuctionUpdates:  true,
			AllowAuctionRefills:  true,
			AllowAuctionPullouts: true,
			AllowNewBids:         false,
			AllowWithdrawals:     true,
		},
	})
	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); !errors.Is(err, errcode.ErrBidsNotAllowed) {
		t.Errorf("bids allowed: %v", err)
	}
}

func TestDisabledAuctionRejectsBids(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	env.mustExec(env.seller, engine.OpDisableAuction, &engine.DisableAuctionParams{AuctionName: auctionName})
	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); !errors.Is(err, errcode.ErrBidsNotAllowed) {
		t.Errorf("disabled auction accepted a bid: %v", err)
	}
	env.mustExec(env.seller, engine.OpEnableAuction, &engine.EnableAuctionParams{AuctionName: auctionName})
	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Errorf("re-enabled auction rejected a bid: %v", err)
	}
}

func TestWithdrawFunds(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("place_bid: %v", err)
	}

	env.mustExec(env.seller, engine.OpWithdrawFunds, &engine.WithdrawFundsParams{
		Mint:             env.paymentMint,
		Amount:           4800,
		ReceivingAccount: env.sellerReceiving,
	})
	if got := env.tokenBalance(env.sellerReceiving); got != 4800 {
		t.Errorf("seller receiving = %d", got)
	}

	// the balance is spent
	_, err := env.exec(env.seller, engine.OpWithdrawFunds, &engine.WithdrawFundsParams{
		Mint:             env.paymentMint,
		Amount:           1,
		ReceivingAccount: env.sellerReceiving,
	})
	if !errors.Is(err, errcode.ErrInsufficientFunds) {
		t.Errorf("over-withdrawal accepted: %v", err)
	}
}

func TestTradeFeeAndWithdrawFees(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	env.mustExec(env.admin, engine.OpSetFees, &engine.SetFeesParams{
		Fees: state.Fees{
			InvalidBid: state.Fee{Numerator: 0, Denominator: 100},
			Trade:      state.Fee{Numerator: 1, Denominator: 100},
		},
	})

	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("place_bid: %v", err)
	}

	// payment 4800 plus fee ceil(4800/100) = 48
	if got := env.tokenBalance(env.buyerFunding); got != 10_000_000-4848 {
		t.Errorf("buyer funding = %d", got)
	}
	custody, _ := env.eng.GetCustodyInfo(env.paymentMint)
	if custody.CollectedFees != 48 {
		t.Errorf("custody fees = %d", custody.CollectedFees)
	}
	launchpad, _ := env.eng.GetLaunchpadInfo()
	if launchpad.CollectedFees.TradeUsd != 48 {
		t.Errorf("trade usd = %d", launchpad.CollectedFees.TradeUsd)
	}

	adminReceiving := randKey(t)
	err := env.st.Update(func(tx *store.Tx) error {
		return token.CreateAccount(tx, adminReceiving, env.paymentMint, env.admin)
	})
	if err != nil {
		t.Fatalf("create admin account: %v", err)
	}
	env.mustExec(env.admin, engine.OpWithdrawFees, &engine.WithdrawFeesParams{
		Mint:             env.paymentMint,
		Amount:           48,
		ReceivingAccount: adminReceiving,
	})
	if got := env.tokenBalance(adminReceiving); got != 48 {
		t.Errorf("admin receiving = %d", got)
	}
	custody, _ = env.eng.GetCustodyInfo(env.paymentMint)
	if custody.CollectedFees != 0 {
		t.Errorf("custody fees after withdrawal = %d", custody.CollectedFees)
	}
}

func TestCancelBid(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("place_bid: %v", err)
	}

	// still running
	_, err := env.exec(env.buyer, engine.OpCancelBid, &engine.CancelBidParams{
		AuctionName: auctionName,
		BidOwner:    env.buyer,
	})
	if !errors.Is(err, errcode.ErrAuctionInProgress) {
		t.Fatalf("cancel during auction accepted: %v", err)
	}

	env.setTime(600)

	// only the bid owner may close a buyer-initialized record
	_, err = env.exec(env.seller, engine.OpCancelBid, &engine.CancelBidParams{
		AuctionName: auctionName,
		BidOwner:    env.buyer,
	})
	if !errors.Is(err, errcode.ErrIllegalOwner) {
		t.Fatalf("seller closed a buyer bid: %v", err)
	}

	env.mustExec(env.buyer, engine.OpCancelBid, &engine.CancelBidParams{
		AuctionName: auctionName,
		BidOwner:    env.buyer,
	})
	bid, err := env.eng.GetBidInfo(auctionName, env.buyer)
	if err != nil {
		t.Fatalf("bid info: %v", err)
	}
	if bid.Bump != 0 {
		t.Error("bid record still exists")
	}
}

func TestMultisigTwoAdmins(t *testing.T) {
	env := newTestEnv(t)
	second := randKey(t)

	env.mustExec(env.admin, engine.OpSetAdminSigners, &engine.SetAdminSignersParams{
		MinSignatures: 2,
		AdminSigners:  []solana.PublicKey{env.admin, second},
	})

	params := &engine.SetPermissionsParams{
		Permissions: state.Permissions{AllowNewBids: true},
	}
	res := env.mustExec(env.admin, engine.OpSetPermissions, params)
	if res.SignaturesLeft != 1 {
		t.Fatalf("signatures left = %d", res.SignaturesLeft)
	}

	// nothing applied yet
	launchpad, _ := env.eng.GetLaunchpadInfo()
	if !launchpad.Permissions.AllowNewAuctions {
		t.Fatal("permissions changed before quorum")
	}

	// an outsider cannot contribute
	_, err := env.exec(randKey(t), engine.OpSetPermissions, params)
	if !errors.Is(err, errcode.ErrMultisigAccountNotAuthorized) {
		t.Fatalf("outsider signature accepted: %v", err)
	}

	res = env.mustExec(second, engine.OpSetPermissions, params)
	if res.SignaturesLeft != 0 {
		t.Fatalf("signatures left after quorum = %d", res.SignaturesLeft)
	}
	launchpad, _ = env.eng.GetLaunchpadInfo()
	if launchpad.Permissions.AllowNewAuctions || !launchpad.Permissions.AllowNewBids {
		t.Errorf("permissions = %+v", launchpad.Permissions)
	}
}

func TestInventoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	// pull back some inventory mid-auction (pullouts are allowed)
	env.mustExec(env.seller, engine.OpRemoveTokens, &engine.RemoveTokensParams{
		AuctionName:      auctionName,
		Mint:             env.tokenMint,
		Amount:           400_000,
		ReceivingAccount: env.sellerFunding,
	})

	// deletion requires empty dispensers
	_, err := env.exec(env.admin, engine.OpDeleteAuction, &engine.DeleteAuctionParams{AuctionName: auctionName})
	if !errors.Is(err, errcode.ErrAuctionNotEmpty) {
		t.Fatalf("delete with inventory accepted: %v", err)
	}

	env.mustExec(env.seller, engine.OpRemoveTokens, &engine.RemoveTokensParams{
		AuctionName:      auctionName,
		Mint:             env.tokenMint,
		Amount:           600_000,
		ReceivingAccount: env.sellerFunding,
	})
	env.mustExec(env.admin, engine.OpDeleteAuction, &engine.DeleteAuctionParams{AuctionName: auctionName})

	if _, err := env.eng.GetAuctionInfo(auctionName); !errors.Is(err, errcode.ErrAccountNotFound) {
		t.Errorf("auction still exists: %v", err)
	}
}

func TestFixedAmountAuctionForbidsRefills(t *testing.T) {
	env := newTestEnv(t)
	params := env.fixtureParams()
	params.FixedAmount = true
	env.mustExec(env.seller, engine.OpInitAuction, params)

	_, err := env.exec(env.seller, engine.OpAddTokens, &engine.AddTokensParams{
		AuctionName:    auctionName,
		Mint:           env.tokenMint,
		Amount:         1000,
		FundingAccount: env.sellerFunding,
	})
	if !errors.Is(err, errcode.ErrAuctionWithFixedAmount) {
		t.Errorf("refill of fixed-amount auction accepted: %v", err)
	}
}

func TestUpdateAuctionResetsStats(t *testing.T) {
	env := newTestEnv(t)
	env.setupAuction(400, nil)

	if err := env.placeBid(env.buyer, 240, 20, state.BidIoc); err != nil {
		t.Fatalf("place_bid: %v", err)
	}

	// the presale window already passed, so the updated config drops it
	params := env.fixtureParams()
	params.Common.PresaleStartTime = 0
	params.Common.PresaleEndTime = 0
	env.mustExec(env.seller, engine.OpUpdateAuction, &engine.UpdateAuctionParams{
		Common:      params.Common,
		Payment:     params.Payment,
		Pricing:     params.Pricing,
		TokenRatios: []uint64{5},
	})

	auction, _ := env.eng.GetAuctionInfo(auctionName)
	if auction.Stats.RegBidders.NumTrades != 0 || auction.Stats.LastTradeTime != 0 {
		t.Errorf("stats not reset: %+v", auction.Stats)
	}
	if auction.Stats.RegBidders.MinFillPrice != math.MaxUint64 {
		t.Errorf("min fill price not re-initialized")
	}
	if auction.Tokens[0].Ratio != 5 {
		t.Errorf("ratio = %d", auction.Tokens[0].Ratio)
	}
}

func TestRandomTokenSelection(t *testing.T) {
	env := newTestEnv(t)

	secondMint := randKey(t)
	secondReceiving := randKey(t)
	err := env.st.Update(func(tx *store.Tx) error {
		if err := token.CreateMint(tx, secondMint, 9); err != nil {
			return err
		}
		return token.CreateAccount(tx, secondReceiving, secondMint, env.buyer)
	})
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}

	params := env.fixtureParams()
	params.DispensingMints = []solana.PublicKey{env.tokenMint, secondMint}
	params.TokenRatios = []uint64{0, 0}
	env.mustExec(env.seller, engine.OpInitAuction, params)

	// fund both dispensers
	sellerSecond := randKey(t)
	err = env.st.Update(func(tx *store.Tx) error {
		if err := token.CreateAccount(tx, sellerSecond, secondMint, env.seller); err != nil {
			return err
		}
		return token.MintTo(tx, sellerSecond, 1_000_000)
	})
	if err != nil {
		t.Fatalf("seller second account: %v", err)
	}
	env.mustExec(env.seller, engine.OpAddTokens, &engine.AddTokensParams{
		AuctionName: auctionName, Mint: env.tokenMint, Amount: 1_000_000, FundingAccount: env.sellerFunding,
	})
	env.mustExec(env.seller, engine.OpAddTokens, &engine.AddTokensParams{
		AuctionName: auctionName, Mint: secondMint, Amount: 1_000_000, FundingAccount: sellerSecond,
	})
	env.setTime(400)

	bidParams := &engine.PlaceBidParams{
		AuctionName:       auctionName,
		PaymentMint:       env.paymentMint,
		FundingAccount:    env.buyerFunding,
		ReceivingAccounts: []solana.PublicKey{env.buyerReceiving, secondReceiving},
		Price:             240,
		Amount:            20,
		BidType:           state.BidIoc,
	}

	// no slot hashes recorded yet: the draw has no entropy source
	_, err = env.exec(env.buyer, engine.OpPlaceBid, bidParams)
	if !errors.Is(err, errcode.ErrInvalidAccountData) {
		t.Fatalf("bid without slot hashes accepted: %v", err)
	}

	// slot 1<<32 puts an odd byte at buffer offset 12, so the draw lands on
	// token index 1
	if err := env.eng.RecordSlotHash(1<<32, [32]byte{}); err != nil {
		t.Fatalf("record slot hash: %v", err)
	}
	if _, err := env.exec(env.buyer, engine.OpPlaceBid, bidParams); err != nil {
		t.Fatalf("place_bid: %v", err)
	}
	if got := env.tokenBalance(secondReceiving); got != 2000 {
		t.Errorf("second receiving = %d", got)
	}
	if got := env.tokenBalance(env.buyerReceiving); got != 0 {
		t.Errorf("first receiving = %d", got)
	}
}

func TestNewAuctionsPermission(t *testing.T) {
	env := newTestEnv(t)

	env.mustExec(env.admin, engine.OpSetPermissions, &engine.SetPermissionsParams{
		Permissions: state.Permissions{AllowNewBids: true},
	})
	_, err := env.exec(env.seller, engine.OpInitAuction, env.fixtureParams())
	if !errors.Is(err, errcode.ErrNewAuctionsNotAllowed) {
		t.Errorf("init_auction without permission accepted: %v", err)
	}
}
