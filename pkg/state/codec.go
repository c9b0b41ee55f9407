package state

import (
	"bytes"
	"crypto/sha256"
	"math/big"

	bin "github.com/gagliardetto/binary"

	"github.com/uhyunpark/launchpad/pkg/errcode"
)

// Records are serialized as an 8-byte discriminator followed by the borsh
// encoding of the struct: little-endian fields in declaration order, strings
// u32-length-prefixed, enums as single-byte tags.

// Discriminator returns the 8-byte record tag derived from the record name.
func Discriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

func marshalRecord(name string, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Discriminator(name))
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalRecord(name string, data []byte, v interface{}) error {
	if len(data) < 8 || !bytes.Equal(data[:8], Discriminator(name)) {
		return errcode.ErrInvalidAccountData
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return errcode.ErrInvalidAccountData
	}
	return nil
}

// U128FromBig narrows a big.Int into the serializable 128-bit form.
func U128FromBig(v *big.Int) bin.Uint128 {
	var out bin.Uint128
	out.Lo = v.Uint64()
	out.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return out
}

// BigFromU128 lifts a serialized 128-bit value back into a big.Int.
func BigFromU128(v bin.Uint128) *big.Int {
	out := new(big.Int).SetUint64(v.Hi)
	out.Lsh(out, 64)
	return out.Or(out, new(big.Int).SetUint64(v.Lo))
}

func (a *Auction) Marshal() ([]byte, error) { return marshalRecord("Auction", a) }

func UnmarshalAuction(data []byte) (*Auction, error) {
	var a Auction
	if err := unmarshalRecord("Auction", data, &a); err != nil {
		return nil, err
	}
	if !a.Pricing.PricingModel.Valid() || !a.Pricing.RepriceFunction.Valid() ||
		!a.Pricing.AmountFunction.Valid() {
		return nil, errcode.ErrInvalidAccountData
	}
	return &a, nil
}

func (l *Launchpad) Marshal() ([]byte, error) { return marshalRecord("Launchpad", l) }

func UnmarshalLaunchpad(data []byte) (*Launchpad, error) {
	var l Launchpad
	if err := unmarshalRecord("Launchpad", data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (b *Bid) Marshal() ([]byte, error) { return marshalRecord("Bid", b) }

func UnmarshalBid(data []byte) (*Bid, error) {
	var b Bid
	if err := unmarshalRecord("Bid", data, &b); err != nil {
		return nil, err
	}
	if !b.BidType.Valid() {
		return nil, errcode.ErrInvalidAccountData
	}
	return &b, nil
}

func (c *Custody) Marshal() ([]byte, error) { return marshalRecord("Custody", c) }

func UnmarshalCustody(data []byte) (*Custody, error) {
	var c Custody
	if err := unmarshalRecord("Custody", data, &c); err != nil {
		return nil, err
	}
	if !c.OracleType.Valid() {
		return nil, errcode.ErrInvalidAccountData
	}
	return &c, nil
}

func (s *SellerBalance) Marshal() ([]byte, error) { return marshalRecord("SellerBalance", s) }

func UnmarshalSellerBalance(data []byte) (*SellerBalance, error) {
	var s SellerBalance
	if err := unmarshalRecord("SellerBalance", data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Multisig) Marshal() ([]byte, error) { return marshalRecord("Multisig", m) }

func UnmarshalMultisig(data []byte) (*Multisig, error) {
	var m Multisig
	if err := unmarshalRecord("Multisig", data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
