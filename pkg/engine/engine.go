// Package engine executes launchpad instructions against the account store.
// Each transaction runs single-threaded inside one store transaction; all
// record writes and token transfers commit atomically or not at all.
package engine

import (
	"bytes"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/util"
)

// Config carries the engine's environment knobs.
type Config struct {
	// TestMode unlocks the test-only instructions and makes auctions read
	// their stored creation time instead of the wall clock.
	TestMode bool

	// Well-known mints behind the auction payment flags.
	NativeMint solana.PublicKey
	UsdcMint   solana.PublicKey
}

// FillEvent describes a successful fill for stream consumers.
type FillEvent struct {
	Auction     string           `json:"auction"`
	Buyer       solana.PublicKey `json:"buyer"`
	Whitelisted bool             `json:"whitelisted"`
	FillAmount  uint64           `json:"fillAmount"`
	FillPrice   uint64           `json:"fillPrice"`
	FillTime    int64            `json:"fillTime"`
	TokenMint   solana.PublicKey `json:"tokenMint"`
}

type Engine struct {
	store  *store.Store
	log    *zap.SugaredLogger
	clock  util.Clock
	cfg    Config
	onFill func(FillEvent)

	// mu serializes transactions: every instruction executes against a
	// snapshot of the records it touches, so writers take turns exactly as
	// they would on the host platform.
	mu sync.Mutex
}

func New(st *store.Store, log *zap.SugaredLogger, clock util.Clock, cfg Config) *Engine {
	return &Engine{store: st, log: log, clock: clock, cfg: cfg}
}

// OnFill registers a callback invoked after a fill has committed.
func (e *Engine) OnFill(fn func(FillEvent)) { e.onFill = fn }

// Instruction names double as the wire identifiers of the instruction
// surface.
const (
	OpInit               = "init"
	OpInitCustody        = "init_custody"
	OpSetPermissions     = "set_permissions"
	OpSetFees            = "set_fees"
	OpSetAdminSigners    = "set_admin_signers"
	OpSetOracleConfig    = "set_oracle_config"
	OpWithdrawFees       = "withdraw_fees"
	OpDeleteAuction      = "delete_auction"
	OpSetTestTime        = "set_test_time"
	OpSetTestOraclePrice = "set_test_oracle_price"

	OpInitAuction     = "init_auction"
	OpUpdateAuction   = "update_auction"
	OpEnableAuction   = "enable_auction"
	OpDisableAuction  = "disable_auction"
	OpAddTokens       = "add_tokens"
	OpRemoveTokens    = "remove_tokens"
	OpWhitelistAdd    = "whitelist_add"
	OpWhitelistRemove = "whitelist_remove"
	OpWithdrawFunds   = "withdraw_funds"

	OpPlaceBid         = "place_bid"
	OpCancelBid        = "cancel_bid"
	OpGetAuctionPrice  = "get_auction_price"
	OpGetAuctionAmount = "get_auction_amount"
)

// Instruction is one typed operation with its params struct.
type Instruction struct {
	Name   string
	Params interface{}
}

// Transaction is an atomic batch of instructions authorized by one signer.
type Transaction struct {
	Signer       solana.PublicKey
	Instructions []Instruction
}

// Result carries the value an instruction returns to the caller.
type Result struct {
	// SignaturesLeft is set by multisig-gated instructions that are still
	// collecting signatures.
	SignaturesLeft uint8 `json:"signaturesLeft"`
	// Value is the return of query-style instructions.
	Value uint64 `json:"value"`
}

// Execute applies the transaction. All instructions commit together; any
// failure discards every write.
func (e *Engine) Execute(t *Transaction) (Result, error) {
	if len(t.Instructions) == 0 {
		return Result{}, errcode.ErrNotEnoughAccountKeys
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var res Result
	var fills []FillEvent
	err := e.store.Update(func(tx *store.Tx) error {
		for _, ix := range t.Instructions {
			r, fill, err := e.apply(tx, t.Signer, ix, len(t.Instructions))
			if err != nil {
				return err
			}
			res = r
			if fill != nil {
				fills = append(fills, *fill)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if e.onFill != nil {
		for _, f := range fills {
			e.onFill(f)
		}
	}
	return res, nil
}

// Query runs a read-only instruction without committing anything.
func (e *Engine) Query(t *Transaction) (Result, error) {
	if len(t.Instructions) == 0 {
		return Result{}, errcode.ErrNotEnoughAccountKeys
	}
	var res Result
	err := e.store.View(func(tx *store.Tx) error {
		for _, ix := range t.Instructions {
			r, _, err := e.apply(tx, t.Signer, ix, len(t.Instructions))
			if err != nil {
				return err
			}
			res = r
		}
		return nil
	})
	return res, err
}

func (e *Engine) apply(tx *store.Tx, signer solana.PublicKey, ix Instruction, numInstructions int) (Result, *FillEvent, error) {
	switch ix.Name {
	case OpInit:
		p, err := paramsAs[InitParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.init(tx, signer, p)
	case OpInitCustody:
		p, err := paramsAs[InitCustodyParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.initCustody(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetPermissions:
		p, err := paramsAs[SetPermissionsParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setPermissions(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetFees:
		p, err := paramsAs[SetFeesParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setFees(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetAdminSigners:
		p, err := paramsAs[SetAdminSignersParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setAdminSigners(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetOracleConfig:
		p, err := paramsAs[SetOracleConfigParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setOracleConfig(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpWithdrawFees:
		p, err := paramsAs[WithdrawFeesParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.withdrawFees(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpDeleteAuction:
		p, err := paramsAs[DeleteAuctionParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.deleteAuction(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetTestTime:
		p, err := paramsAs[SetTestTimeParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setTestTime(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err
	case OpSetTestOraclePrice:
		p, err := paramsAs[SetTestOraclePriceParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		left, err := e.setTestOraclePrice(tx, signer, p)
		return Result{SignaturesLeft: left}, nil, err

	case OpInitAuction:
		p, err := paramsAs[InitAuctionParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.initAuction(tx, signer, p)
	case OpUpdateAuction:
		p, err := paramsAs[UpdateAuctionParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.updateAuction(tx, signer, p)
	case OpEnableAuction:
		p, err := paramsAs[EnableAuctionParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.setAuctionEnabled(tx, signer, p.AuctionName, true)
	case OpDisableAuction:
		p, err := paramsAs[DisableAuctionParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.setAuctionEnabled(tx, signer, p.AuctionName, false)
	case OpAddTokens:
		p, err := paramsAs[AddTokensParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.addTokens(tx, signer, p)
	case OpRemoveTokens:
		p, err := paramsAs[RemoveTokensParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.removeTokens(tx, signer, p)
	case OpWhitelistAdd:
		p, err := paramsAs[WhitelistAddParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.whitelistAdd(tx, signer, p)
	case OpWhitelistRemove:
		p, err := paramsAs[WhitelistRemoveParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.whitelistRemove(tx, signer, p)
	case OpWithdrawFunds:
		p, err := paramsAs[WithdrawFundsParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.withdrawFunds(tx, signer, p)

	case OpPlaceBid:
		p, err := paramsAs[PlaceBidParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		fill, err := e.placeBid(tx, signer, p, numInstructions)
		return Result{}, fill, err
	case OpCancelBid:
		p, err := paramsAs[CancelBidParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		return Result{}, nil, e.cancelBid(tx, signer, p)
	case OpGetAuctionPrice:
		p, err := paramsAs[GetAuctionPriceParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		v, err := e.getAuctionPrice(tx, p)
		return Result{Value: v}, nil, err
	case OpGetAuctionAmount:
		p, err := paramsAs[GetAuctionAmountParams](ix)
		if err != nil {
			return Result{}, nil, err
		}
		v, err := e.getAuctionAmount(tx, p)
		return Result{Value: v}, nil, err
	}
	return Result{}, nil, errcode.ErrInvalidAccountData
}

func paramsAs[T any](ix Instruction) (*T, error) {
	p, ok := ix.Params.(*T)
	if !ok {
		return nil, errcode.ErrInvalidAccountData
	}
	return p, nil
}

// instructionHash tags a multisig-gated instruction with its full parameter
// set so partial signatures can only accumulate on identical calls.
func instructionHash(name string, params interface{}) (uint64, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(params); err != nil {
		return 0, err
	}
	return state.InstructionHash(name, buf.Bytes()), nil
}

// currentTime implements the auction clock: wall time in production, the
// stored creation time when the node runs in test mode.
func (e *Engine) currentTime(auction *state.Auction) (int64, error) {
	if e.cfg.TestMode {
		return auction.CreationTime, nil
	}
	now := e.clock.Now().Unix()
	if now <= 0 {
		return 0, errcode.ErrInvalidAccountData
	}
	return now, nil
}
