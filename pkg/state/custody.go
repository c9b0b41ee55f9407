package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/uhyunpark/launchpad/pkg/oracle"
)

// Custody is the launchpad-level vault for one payment/pricing mint, shared
// across auctions. Created once through the multisig flow; only the oracle
// config and collected fees change afterwards.
type Custody struct {
	Mint         solana.PublicKey
	TokenAccount solana.PublicKey
	Decimals     uint8

	OracleType          oracle.OracleType
	OracleAccount       solana.PublicKey
	MaxOraclePriceError float64
	MaxOraclePriceAge   uint32

	CollectedFees uint64
	Bump          uint8
}

func (c *Custody) Validate() bool {
	return !c.Mint.IsZero() &&
		!c.TokenAccount.IsZero() &&
		c.MaxOraclePriceError >= 0 &&
		c.OracleType.Valid() &&
		(c.OracleType == oracle.OracleNone) == c.OracleAccount.IsZero()
}
