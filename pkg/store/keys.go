package store

import (
	"github.com/gagliardetto/solana-go"
)

// Key schema for pebble storage:
//
//   rec:<address>  → program record (discriminator-prefixed borsh blob)
//   tok:<address>  → token account
//   mint:<address> → mint
//   lam:<address>  → native balance (8-byte LE)
//   slothashes     → recent-slot-hashes buffer
const (
	prefixRecord  = "rec:"
	prefixToken   = "tok:"
	prefixMint    = "mint:"
	prefixLamport = "lam:"
)

// RecordKey returns the key for a program record at the given address.
func RecordKey(addr solana.PublicKey) []byte {
	return append([]byte(prefixRecord), addr.Bytes()...)
}

// TokenAccountKey returns the key for a token account.
func TokenAccountKey(addr solana.PublicKey) []byte {
	return append([]byte(prefixToken), addr.Bytes()...)
}

// MintKey returns the key for a mint.
func MintKey(addr solana.PublicKey) []byte {
	return append([]byte(prefixMint), addr.Bytes()...)
}

// LamportKey returns the key for a native balance.
func LamportKey(addr solana.PublicKey) []byte {
	return append([]byte(prefixLamport), addr.Bytes()...)
}

// SlotHashesKey returns the key of the recent-slot-hashes buffer.
func SlotHashesKey() []byte {
	return []byte("slothashes")
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound[:i+1]
		}
	}
	return nil
}
