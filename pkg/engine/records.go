package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/state"
	"github.com/uhyunpark/launchpad/pkg/store"
)

func loadRecord(tx *store.Tx, addr solana.PublicKey) ([]byte, bool, error) {
	return tx.Get(store.RecordKey(addr))
}

func saveRecord(tx *store.Tx, addr solana.PublicKey, data []byte) error {
	return tx.Set(store.RecordKey(addr), data)
}

func (e *Engine) loadLaunchpad(tx *store.Tx) (*state.Launchpad, error) {
	addr, _, err := state.LaunchpadAddress()
	if err != nil {
		return nil, err
	}
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.ErrAccountNotFound
	}
	return state.UnmarshalLaunchpad(data)
}

func (e *Engine) saveLaunchpad(tx *store.Tx, l *state.Launchpad) error {
	addr, _, err := state.LaunchpadAddress()
	if err != nil {
		return err
	}
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}

func (e *Engine) loadMultisig(tx *store.Tx) (*state.Multisig, error) {
	addr, _, err := state.MultisigAddress()
	if err != nil {
		return nil, err
	}
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.ErrAccountNotFound
	}
	return state.UnmarshalMultisig(data)
}

func (e *Engine) saveMultisig(tx *store.Tx, m *state.Multisig) error {
	addr, _, err := state.MultisigAddress()
	if err != nil {
		return err
	}
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}

func (e *Engine) loadAuction(tx *store.Tx, name string) (*state.Auction, solana.PublicKey, error) {
	addr, _, err := state.AuctionAddress(name)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	if !ok {
		return nil, solana.PublicKey{}, errcode.ErrAccountNotFound
	}
	a, err := state.UnmarshalAuction(data)
	return a, addr, err
}

func (e *Engine) saveAuction(tx *store.Tx, addr solana.PublicKey, a *state.Auction) error {
	data, err := a.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}

func (e *Engine) loadCustodyByMint(tx *store.Tx, mint solana.PublicKey) (*state.Custody, solana.PublicKey, error) {
	addr, _, err := state.CustodyAddress(mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	c, err := e.loadCustodyByAddress(tx, addr)
	return c, addr, err
}

func (e *Engine) loadCustodyByAddress(tx *store.Tx, addr solana.PublicKey) (*state.Custody, error) {
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.ErrAccountNotFound
	}
	return state.UnmarshalCustody(data)
}

func (e *Engine) saveCustody(tx *store.Tx, addr solana.PublicKey, c *state.Custody) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}

// loadBid returns the bid record at its canonical address, or a zero-bump
// fresh record when none exists yet.
func (e *Engine) loadBid(tx *store.Tx, owner, auction solana.PublicKey) (*state.Bid, solana.PublicKey, uint8, error) {
	addr, bump, err := state.BidAddress(owner, auction)
	if err != nil {
		return nil, solana.PublicKey{}, 0, err
	}
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, solana.PublicKey{}, 0, err
	}
	if !ok {
		return &state.Bid{}, addr, bump, nil
	}
	b, err := state.UnmarshalBid(data)
	return b, addr, bump, err
}

func (e *Engine) saveBid(tx *store.Tx, addr solana.PublicKey, b *state.Bid) error {
	data, err := b.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}

func (e *Engine) loadSellerBalance(tx *store.Tx, owner, custody solana.PublicKey) (*state.SellerBalance, solana.PublicKey, uint8, error) {
	addr, bump, err := state.SellerBalanceAddress(owner, custody)
	if err != nil {
		return nil, solana.PublicKey{}, 0, err
	}
	data, ok, err := loadRecord(tx, addr)
	if err != nil {
		return nil, solana.PublicKey{}, 0, err
	}
	if !ok {
		return &state.SellerBalance{}, addr, bump, nil
	}
	s, err := state.UnmarshalSellerBalance(data)
	return s, addr, bump, err
}

func (e *Engine) saveSellerBalance(tx *store.Tx, addr solana.PublicKey, s *state.SellerBalance) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return saveRecord(tx, addr, data)
}
