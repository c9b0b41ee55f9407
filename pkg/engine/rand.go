package engine

import (
	"encoding/binary"

	"github.com/uhyunpark/launchpad/pkg/errcode"
	"github.com/uhyunpark/launchpad/pkg/store"
)

// The recent-slot-hashes buffer is append-only and refreshed every slot by
// the node, so its head bytes are unpredictable at transaction-build time
// but fixed at execution. Layout mirrors the slot-hashes sysvar: an 8-byte
// entry count followed by (slot u64, hash [32]byte) entries, newest first.

const maxSlotHashEntries = 512

// RecordSlotHash prepends the newest slot hash to the buffer, trimming it to
// the retention window. Called from the node's slot ticker.
func (e *Engine) RecordSlotHash(slot uint64, hash [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Update(func(tx *store.Tx) error {
		data, ok, err := tx.Get(store.SlotHashesKey())
		if err != nil {
			return err
		}

		const entrySize = 8 + 32
		var entries []byte
		count := uint64(0)
		if ok && len(data) >= 8 {
			count = binary.LittleEndian.Uint64(data[:8])
			entries = data[8:]
		}
		if count >= maxSlotHashEntries {
			keep := (maxSlotHashEntries - 1) * entrySize
			if len(entries) > keep {
				entries = entries[:keep]
			}
			count = maxSlotHashEntries - 1
		}

		buf := make([]byte, 8, 8+entrySize+len(entries))
		binary.LittleEndian.PutUint64(buf, count+1)
		var entry [entrySize]byte
		binary.LittleEndian.PutUint64(entry[:8], slot)
		copy(entry[8:], hash[:])
		buf = append(buf, entry[:]...)
		buf = append(buf, entries...)
		return tx.Set(store.SlotHashesKey(), buf)
	})
}

// randomTokenIndex draws the dispensing token from the recent-slot-hashes
// buffer: bytes [12..20) as a little-endian integer, modulo the token count.
func (e *Engine) randomTokenIndex(tx *store.Tx, numTokens int) (int, error) {
	data, ok, err := tx.Get(store.SlotHashesKey())
	if err != nil {
		return 0, err
	}
	if !ok || len(data) < 20 {
		return 0, errcode.ErrInvalidAccountData
	}
	seed := binary.LittleEndian.Uint64(data[12:20])
	return int(seed % uint64(numTokens)), nil
}
