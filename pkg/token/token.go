// Package token models the host token subsystem: mints, token accounts and
// synchronous transfers executed inside the caller's store transaction.
package token

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/store"
)

type Mint struct {
	Decimals uint8
	Supply   uint64
}

// Account is one token balance. Owner is the transfer authority for the
// account; program vaults are owned by the transfer-authority PDA.
type Account struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CreateMint registers a mint. Creating an existing mint is an error.
func CreateMint(tx *store.Tx, addr solana.PublicKey, decimals uint8) error {
	key := store.MintKey(addr)
	if ok, err := tx.Has(key); err != nil {
		return err
	} else if ok {
		return errcode.ErrAccountAlreadyInitialized
	}
	data, err := encode(&Mint{Decimals: decimals})
	if err != nil {
		return err
	}
	return tx.Set(key, data)
}

func GetMint(tx *store.Tx, addr solana.PublicKey) (*Mint, error) {
	data, ok, err := tx.Get(store.MintKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.ErrAccountNotFound
	}
	var m Mint
	if err := bin.NewBorshDecoder(data).Decode(&m); err != nil {
		return nil, errcode.ErrInvalidAccountData
	}
	return &m, nil
}

func saveMint(tx *store.Tx, addr solana.PublicKey, m *Mint) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	return tx.Set(store.MintKey(addr), data)
}

// CreateAccount opens an empty token account at addr.
func CreateAccount(tx *store.Tx, addr, mint, owner solana.PublicKey) error {
	key := store.TokenAccountKey(addr)
	if ok, err := tx.Has(key); err != nil {
		return err
	} else if ok {
		return errcode.ErrAccountAlreadyInitialized
	}
	if _, err := GetMint(tx, mint); err != nil {
		return err
	}
	data, err := encode(&Account{Mint: mint, Owner: owner})
	if err != nil {
		return err
	}
	return tx.Set(key, data)
}

// GetAccount loads a token account or reports ErrAccountNotFound.
func GetAccount(tx *store.Tx, addr solana.PublicKey) (*Account, error) {
	data, ok, err := tx.Get(store.TokenAccountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.ErrAccountNotFound
	}
	var a Account
	if err := bin.NewBorshDecoder(data).Decode(&a); err != nil {
		return nil, errcode.ErrInvalidAccountData
	}
	return &a, nil
}

func saveAccount(tx *store.Tx, addr solana.PublicKey, a *Account) error {
	data, err := encode(a)
	if err != nil {
		return err
	}
	return tx.Set(store.TokenAccountKey(addr), data)
}

// CloseAccount deletes an empty token account.
func CloseAccount(tx *store.Tx, addr solana.PublicKey) error {
	acc, err := GetAccount(tx, addr)
	if err != nil {
		return err
	}
	if acc.Amount != 0 {
		return errcode.ErrAuctionNotEmpty
	}
	return tx.Delete(store.TokenAccountKey(addr))
}

// Transfer moves amount between two accounts of the same mint. The authority
// must own the source account.
func Transfer(tx *store.Tx, from, to, authority solana.PublicKey, amount uint64) error {
	src, err := GetAccount(tx, from)
	if err != nil {
		return err
	}
	dst, err := GetAccount(tx, to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return errcode.ErrIllegalOwner
	}
	if src.Mint != dst.Mint {
		return errcode.ErrInvalidAccountData
	}
	if src.Amount < amount {
		return errcode.ErrInsufficientFunds
	}
	src.Amount -= amount
	dst.Amount, err = checked.Add(dst.Amount, amount)
	if err != nil {
		return err
	}
	if err := saveAccount(tx, from, src); err != nil {
		return err
	}
	return saveAccount(tx, to, dst)
}

// MintTo issues new tokens into an account.
func MintTo(tx *store.Tx, account solana.PublicKey, amount uint64) error {
	acc, err := GetAccount(tx, account)
	if err != nil {
		return err
	}
	mint, err := GetMint(tx, acc.Mint)
	if err != nil {
		return err
	}
	mint.Supply, err = checked.Add(mint.Supply, amount)
	if err != nil {
		return err
	}
	acc.Amount, err = checked.Add(acc.Amount, amount)
	if err != nil {
		return err
	}
	if err := saveMint(tx, acc.Mint, mint); err != nil {
		return err
	}
	return saveAccount(tx, account, acc)
}

// GetLamports returns the native balance of an address (zero when unset).
func GetLamports(tx *store.Tx, addr solana.PublicKey) (uint64, error) {
	data, ok, err := tx.Get(store.LamportKey(addr))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, errcode.ErrInvalidAccountData
	}
	return binary.LittleEndian.Uint64(data), nil
}

func setLamports(tx *store.Tx, addr solana.PublicKey, amount uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], amount)
	return tx.Set(store.LamportKey(addr), buf[:])
}

// TransferLamports moves native balance between addresses.
func TransferLamports(tx *store.Tx, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, err := GetLamports(tx, from)
	if err != nil {
		return err
	}
	if src < amount {
		return errcode.ErrInsufficientFunds
	}
	dst, err := GetLamports(tx, to)
	if err != nil {
		return err
	}
	dst, err = checked.Add(dst, amount)
	if err != nil {
		return err
	}
	if err := setLamports(tx, from, src-amount); err != nil {
		return err
	}
	return setLamports(tx, to, dst)
}

// CreditLamports funds an address out of thin air (bootstrap and tests).
func CreditLamports(tx *store.Tx, addr solana.PublicKey, amount uint64) error {
	cur, err := GetLamports(tx, addr)
	if err != nil {
		return err
	}
	next, err := checked.Add(cur, amount)
	if err != nil {
		return err
	}
	return setLamports(tx, addr, next)
}
