package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/oracle"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
	"github.com/uhyunpark/launchpad/pkg/token"
)

type InitParams struct {
	MinSignatures uint8
	AdminSigners  []solana.PublicKey
	Permissions   state.Permissions
	Fees          state.Fees
}

type InitCustodyParams struct {
	Mint                solana.PublicKey
	OracleType          oracle.OracleType
	OracleAccount       solana.PublicKey
	MaxOraclePriceError float64
	MaxOraclePriceAge   uint32
}

type SetPermissionsParams struct {
	Permissions state.Permissions
}

type SetFeesParams struct {
	Fees state.Fees
}

type SetAdminSignersParams struct {
	MinSignatures uint8
	AdminSigners  []solana.PublicKey
}

type SetOracleConfigParams struct {
	Mint                solana.PublicKey
	OracleType          oracle.OracleType
	OracleAccount       solana.PublicKey
	MaxOraclePriceError float64
	MaxOraclePriceAge   uint32
}

type WithdrawFeesParams struct {
	Mint             solana.PublicKey
	Amount           uint64
	ReceivingAccount solana.PublicKey
}

type DeleteAuctionParams struct {
	AuctionName string
}

type SetTestTimeParams struct {
	AuctionName string
	Time        int64
}

type SetTestOraclePriceParams struct {
	Mint        solana.PublicKey
	Price       uint64
	Expo        int32
	Conf        uint64
	PublishTime int64
}

// requireQuorum runs the multisig gate for an admin instruction. It returns
// the number of signatures still required; the instruction body may run only
// when that number is zero.
func (e *Engine) requireQuorum(tx *store.Tx, signer solana.PublicKey, name string, params interface{}) (uint8, error) {
	ms, err := e.loadMultisig(tx)
	if err != nil {
		return 0, err
	}
	hash, err := instructionHash(name, params)
	if err != nil {
		return 0, err
	}
	left, err := ms.SignMultisig(signer, hash)
	if err != nil {
		return 0, err
	}
	if err := e.saveMultisig(tx, ms); err != nil {
		return 0, err
	}
	if left > 0 {
		e.log.Infow("multisig_signature_recorded", "instruction", name, "signatures_left", left)
	}
	return left, nil
}

// init bootstraps the multisig, the transfer authority and the launchpad
// singleton. It can run only once.
func (e *Engine) init(tx *store.Tx, signer solana.PublicKey, p *InitParams) error {
	msAddr, msBump, err := state.MultisigAddress()
	if err != nil {
		return err
	}
	if ok, err := tx.Has(store.RecordKey(msAddr)); err != nil {
		return err
	} else if ok {
		return errcode.ErrAccountAlreadyInitialized
	}

	ms := &state.Multisig{Bump: msBump}
	if err := ms.SetSigners(p.AdminSigners, p.MinSignatures); err != nil {
		return err
	}
	if err := e.saveMultisig(tx, ms); err != nil {
		return err
	}

	lpAddr, lpBump, err := state.LaunchpadAddress()
	if err != nil {
		return err
	}
	_, taBump, err := state.TransferAuthorityAddress()
	if err != nil {
		return err
	}

	launchpad := &state.Launchpad{
		Permissions:           p.Permissions,
		Fees:                  p.Fees,
		TransferAuthorityBump: taBump,
		LaunchpadBump:         lpBump,
	}
	if !launchpad.Validate() {
		return errcode.ErrInvalidLaunchpadConfig
	}
	if err := e.saveLaunchpad(tx, launchpad); err != nil {
		return err
	}

	e.log.Infow("launchpad_initialized",
		"address", lpAddr.String(), "signers", len(p.AdminSigners),
		"min_signatures", p.MinSignatures)
	return nil
}

// initCustody registers a shared payment/pricing vault for one mint.
func (e *Engine) initCustody(tx *store.Tx, signer solana.PublicKey, p *InitCustodyParams) (uint8, error) {
	left, err := e.requireQuorum(tx, signer, OpInitCustody, p)
	if err != nil || left > 0 {
		return left, err
	}

	custodyAddr, bump, err := state.CustodyAddress(p.Mint)
	if err != nil {
		return 0, err
	}
	if ok, err := tx.Has(store.RecordKey(custodyAddr)); err != nil {
		return 0, err
	} else if ok {
		return 0, errcode.ErrAccountAlreadyInitialized
	}

	mint, err := token.GetMint(tx, p.Mint)
	if err != nil {
		return 0, err
	}

	// token custodies are shared between multiple auctions; the vault is
	// owned by the transfer authority
	vaultAddr, _, err := state.CustodyTokenAccountAddress(p.Mint)
	if err != nil {
		return 0, err
	}
	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return 0, err
	}
	if err := token.CreateAccount(tx, vaultAddr, p.Mint, authority); err != nil {
		return 0, err
	}

	custody := &state.Custody{
		Mint:                p.Mint,
		TokenAccount:        vaultAddr,
		Decimals:            mint.Decimals,
		OracleType:          p.OracleType,
		OracleAccount:       p.OracleAccount,
		MaxOraclePriceError: p.MaxOraclePriceError,
		MaxOraclePriceAge:   p.MaxOraclePriceAge,
		Bump:                bump,
	}
	if !custody.Validate() {
		return 0, errcode.ErrInvalidCustodyConfig
	}
	if err := e.saveCustody(tx, custodyAddr, custody); err != nil {
		return 0, err
	}

	e.log.Infow("custody_initialized", "mint", p.Mint.String(), "decimals", mint.Decimals)
	return 0, nil
}

func (e *Engine) setPermissions(tx *store.Tx, signer solana.PublicKey, p *SetPermissionsParams) (uint8, error) {
	left, err := e.requireQuorum(tx, signer, OpSetPermissions, p)
	if err != nil || left > 0 {
		return left, err
	}

	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return 0, err
	}
	launchpad.Permissions = p.Permissions
	if !launchpad.Validate() {
		return 0, errcode.ErrInvalidLaunchpadConfig
	}
	return 0, e.saveLaunchpad(tx, launchpad)
}

func (e *Engine) setFees(tx *store.Tx, signer solana.PublicKey, p *SetFeesParams) (uint8, error) {
	left, err := e.requireQuorum(tx, signer, OpSetFees, p)
	if err != nil || left > 0 {
		return left, err
	}

	launchpad, err := e.loadLaunchpad(tx)
	if err != nil {
		return 0, err
	}
	launchpad.Fees = p.Fees
	if !launchpad.Validate() {
		return 0, errcode.ErrInvalidLaunchpadConfig
	}
	return 0, e.saveLaunchpad(tx, launchpad)
}

func (e *Engine) setAdminSigners(tx *store.Tx, signer solana.PublicKey, p *SetAdminSignersParams) (uint8, error) {
	left, err := e.requireQuorum(tx, signer, OpSetAdminSigners, p)
	if err != nil || left > 0 {
		return left, err
	}

	ms, err := e.loadMultisig(tx)
	if err != nil {
		return 0, err
	}
	if err := ms.SetSigners(p.AdminSigners, p.MinSignatures); err != nil {
		return 0, err
	}
	return 0, e.saveMultisig(tx, ms)
}

func (e *Engine) setOracleConfig(tx *store.Tx, signer solana.PublicKey, p *SetOracleConfigParams) (uint8, error) {
	left, err := e.requireQuorum(tx, signer, OpSetOracleConfig, p)
	if err != nil || left > 0 {
		return left, err
	}

	custody, custodyAddr, err := e.loadCustodyByMint(tx, p.Mint)
	if err != nil {
		return 0, err
	}
	custody.OracleType = p.OracleType
	custody.OracleAccount = p.OracleAccount
	custody.MaxOraclePriceError = p.MaxOraclePriceError
	custody.MaxOraclePriceAge = p.MaxOraclePriceAge
	if !custody.Validate() {
		return 0, errcode.ErrInvalidCustodyConfig
	}
	return 0, e.saveCustody(tx, custodyAddr, custody)
}

func (e *Engine) withdrawFees(tx *store.Tx, signer solana.PublicKey, p *WithdrawFeesParams) (uint8, error) {
	if p.Amount == 0 {
		return 0, errcode.ErrInvalidTokenAmount
	}
	left, err := e.requireQuorum(tx, signer, OpWithdrawFees, p)
	if err != nil || left > 0 {
		return left, err
	}

	custody, custodyAddr, err := e.loadCustodyByMint(tx, p.Mint)
	if err != nil {
		return 0, err
	}
	if custody.CollectedFees < p.Amount {
		return 0, errcode.ErrInsufficientFunds
	}
	custody.CollectedFees, err = checked.Sub(custody.CollectedFees, p.Amount)
	if err != nil {
		return 0, err
	}
	if err := e.saveCustody(tx, custodyAddr, custody); err != nil {
		return 0, err
	}

	authority, _, err := state.TransferAuthorityAddress()
	if err != nil {
		return 0, err
	}
	if err := token.Transfer(tx, custody.TokenAccount, p.ReceivingAccount, authority, p.Amount); err != nil {
		return 0, err
	}

	e.log.Infow("fees_withdrawn", "mint", p.Mint.String(), "amount", p.Amount)
	return 0, nil
}

// deleteAuction closes an auction and its dispensing sub-accounts. All of
// them must be empty.
func (e *Engine) deleteAuction(tx *store.Tx, signer solana.PublicKey, p *DeleteAuctionParams) (uint8, error) {
	if !e.cfg.TestMode {
		return 0, errcode.ErrInvalidEnvironment
	}
	left, err := e.requireQuorum(tx, signer, OpDeleteAuction, p)
	if err != nil || left > 0 {
		return left, err
	}

	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return 0, err
	}
	for i := 0; i < int(auction.NumTokens); i++ {
		dispenser, err := token.GetAccount(tx, auction.Tokens[i].Account)
		if err != nil {
			return 0, err
		}
		if dispenser.Amount > 0 {
			e.log.Infow("non_empty_dispensing_account", "account", auction.Tokens[i].Account.String())
			return 0, errcode.ErrAuctionNotEmpty
		}
	}
	for i := 0; i < int(auction.NumTokens); i++ {
		if err := token.CloseAccount(tx, auction.Tokens[i].Account); err != nil {
			return 0, err
		}
	}
	if err := tx.Delete(store.RecordKey(auctionAddr)); err != nil {
		return 0, err
	}

	e.log.Infow("auction_deleted", "name", p.AuctionName)
	return 0, nil
}

func (e *Engine) setTestTime(tx *store.Tx, signer solana.PublicKey, p *SetTestTimeParams) (uint8, error) {
	if !e.cfg.TestMode {
		return 0, errcode.ErrInvalidEnvironment
	}
	left, err := e.requireQuorum(tx, signer, OpSetTestTime, p)
	if err != nil || left > 0 {
		return left, err
	}

	auction, auctionAddr, err := e.loadAuction(tx, p.AuctionName)
	if err != nil {
		return 0, err
	}
	auction.CreationTime = p.Time
	return 0, e.saveAuction(tx, auctionAddr, auction)
}

func (e *Engine) setTestOraclePrice(tx *store.Tx, signer solana.PublicKey, p *SetTestOraclePriceParams) (uint8, error) {
	if !e.cfg.TestMode {
		return 0, errcode.ErrInvalidEnvironment
	}
	left, err := e.requireQuorum(tx, signer, OpSetTestOraclePrice, p)
	if err != nil || left > 0 {
		return left, err
	}

	custody, _, err := e.loadCustodyByMint(tx, p.Mint)
	if err != nil {
		return 0, err
	}
	if custody.OracleType != oracle.OracleTest {
		return 0, errcode.ErrUnsupportedOracle
	}

	feed := &oracle.TestOracle{
		Price:       p.Price,
		Expo:        p.Expo,
		Conf:        p.Conf,
		PublishTime: p.PublishTime,
	}
	data, err := feed.Marshal()
	if err != nil {
		return 0, err
	}
	return 0, saveRecord(tx, custody.OracleAccount, data)
}
