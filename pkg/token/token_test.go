package token

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/store"
)

func key(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return k.PublicKey()
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTransfer(t *testing.T) {
	s := openTestStore(t)
	mint, alice, bob := key(t), key(t), key(t)
	accA, accB := key(t), key(t)

	err := s.Update(func(tx *store.Tx) error {
		if err := CreateMint(tx, mint, 6); err != nil {
			return err
		}
		if err := CreateAccount(tx, accA, mint, alice); err != nil {
			return err
		}
		if err := CreateAccount(tx, accB, mint, bob); err != nil {
			return err
		}
		return MintTo(tx, accA, 1000)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.Update(func(tx *store.Tx) error {
		return Transfer(tx, accA, accB, alice, 300)
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	s.View(func(tx *store.Tx) error {
		a, _ := GetAccount(tx, accA)
		b, _ := GetAccount(tx, accB)
		if a.Amount != 700 || b.Amount != 300 {
			t.Errorf("balances = %d, %d", a.Amount, b.Amount)
		}
		m, _ := GetMint(tx, mint)
		if m.Supply != 1000 {
			t.Errorf("supply = %d", m.Supply)
		}
		return nil
	})

	// wrong authority
	err = s.Update(func(tx *store.Tx) error {
		return Transfer(tx, accA, accB, bob, 1)
	})
	if !errors.Is(err, errcode.ErrIllegalOwner) {
		t.Errorf("wrong authority accepted: %v", err)
	}

	// insufficient balance
	err = s.Update(func(tx *store.Tx) error {
		return Transfer(tx, accA, accB, alice, 10_000)
	})
	if !errors.Is(err, errcode.ErrInsufficientFunds) {
		t.Errorf("overdraft accepted: %v", err)
	}
}

func TestCreateAccountChecks(t *testing.T) {
	s := openTestStore(t)
	mint, owner, acc := key(t), key(t), key(t)

	err := s.Update(func(tx *store.Tx) error {
		return CreateAccount(tx, acc, mint, owner)
	})
	if !errors.Is(err, errcode.ErrAccountNotFound) {
		t.Errorf("account created for unknown mint: %v", err)
	}

	err = s.Update(func(tx *store.Tx) error {
		if err := CreateMint(tx, mint, 9); err != nil {
			return err
		}
		return CreateAccount(tx, acc, mint, owner)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.Update(func(tx *store.Tx) error {
		return CreateAccount(tx, acc, mint, owner)
	})
	if !errors.Is(err, errcode.ErrAccountAlreadyInitialized) {
		t.Errorf("duplicate account accepted: %v", err)
	}
}

func TestMintMismatch(t *testing.T) {
	s := openTestStore(t)
	mintA, mintB, owner := key(t), key(t), key(t)
	accA, accB := key(t), key(t)

	err := s.Update(func(tx *store.Tx) error {
		if err := CreateMint(tx, mintA, 6); err != nil {
			return err
		}
		if err := CreateMint(tx, mintB, 6); err != nil {
			return err
		}
		if err := CreateAccount(tx, accA, mintA, owner); err != nil {
			return err
		}
		if err := CreateAccount(tx, accB, mintB, owner); err != nil {
			return err
		}
		return MintTo(tx, accA, 10)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.Update(func(tx *store.Tx) error {
		return Transfer(tx, accA, accB, owner, 1)
	})
	if !errors.Is(err, errcode.ErrInvalidAccountData) {
		t.Errorf("cross-mint transfer accepted: %v", err)
	}
}

func TestLamports(t *testing.T) {
	s := openTestStore(t)
	alice, bob := key(t), key(t)

	err := s.Update(func(tx *store.Tx) error {
		if err := CreditLamports(tx, alice, 500); err != nil {
			return err
		}
		return TransferLamports(tx, alice, bob, 200)
	})
	if err != nil {
		t.Fatalf("lamports: %v", err)
	}

	s.View(func(tx *store.Tx) error {
		a, _ := GetLamports(tx, alice)
		b, _ := GetLamports(tx, bob)
		if a != 300 || b != 200 {
			t.Errorf("lamports = %d, %d", a, b)
		}
		return nil
	})

	err = s.Update(func(tx *store.Tx) error {
		return TransferLamports(tx, bob, alice, 10_000)
	})
	if !errors.Is(err, errcode.ErrInsufficientFunds) {
		t.Errorf("lamport overdraft accepted: %v", err)
	}
}
