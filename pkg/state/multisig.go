package state

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/errcode"
)

// MaxSigners bounds the admin signer set.
const MaxSigners = 6

// Multisig gates admin instructions behind a signature quorum. Partial
// signature sets are persisted keyed by the instruction hash; signing a
// different instruction discards the pending set.
type Multisig struct {
	NumSigners      uint8
	NumSigned       uint8
	MinSignatures   uint8
	InstructionHash uint64

	Signers [MaxSigners]solana.PublicKey
	Signed  [MaxSigners]bool

	Bump uint8
}

// InstructionHash folds an instruction's name and encoded params into the
// 64-bit tag used to match partial signature sets.
func InstructionHash(name string, params []byte) uint64 {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write(params)
	return binary.LittleEndian.Uint64(h.Sum(nil)[:8])
}

// SetSigners installs the admin signer set.
func (m *Multisig) SetSigners(signers []solana.PublicKey, minSignatures uint8) error {
	if minSignatures == 0 || len(signers) == 0 ||
		int(minSignatures) > len(signers) || len(signers) > MaxSigners {
		return errcode.ErrInvalidLaunchpadConfig
	}
	for i, key := range signers {
		if key.IsZero() {
			return errcode.ErrInvalidLaunchpadConfig
		}
		for j := 0; j < i; j++ {
			if m.Signers[j] == key {
				return errcode.ErrInvalidLaunchpadConfig
			}
		}
		m.Signers[i] = key
	}
	m.NumSigners = uint8(len(signers))
	m.MinSignatures = minSignatures
	m.NumSigned = 0
	m.InstructionHash = 0
	m.Signed = [MaxSigners]bool{}
	return nil
}

// SignMultisig records the signer's approval of the given instruction and
// returns the number of signatures still required. Zero means the quorum is
// met and the instruction may execute.
func (m *Multisig) SignMultisig(signer solana.PublicKey, instructionHash uint64) (uint8, error) {
	// single-admin configuration short-circuits the quorum
	if m.MinSignatures <= 1 {
		return 0, nil
	}

	signerIdx := -1
	for i := 0; i < int(m.NumSigners); i++ {
		if m.Signers[i] == signer {
			signerIdx = i
			break
		}
	}
	if signerIdx < 0 {
		return 0, errcode.ErrMultisigAccountNotAuthorized
	}

	if m.InstructionHash != instructionHash {
		// new instruction: discard the pending signature set
		m.InstructionHash = instructionHash
		m.NumSigned = 0
		m.Signed = [MaxSigners]bool{}
	} else if m.NumSigned >= m.MinSignatures {
		return 0, errcode.ErrMultisigAlreadyExecuted
	} else if m.Signed[signerIdx] {
		return 0, errcode.ErrMultisigAlreadySigned
	}

	m.Signed[signerIdx] = true
	m.NumSigned++

	if m.NumSigned >= m.MinSignatures {
		return 0, nil
	}
	return m.MinSignatures - m.NumSigned, nil
}
