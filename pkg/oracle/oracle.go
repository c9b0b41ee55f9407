// Package oracle normalizes external price feeds into a single scaled form
// used for cross-asset payment pricing. Feeds are read from oracle account
// blobs; the test oracle is a record the multisig can set directly.
package oracle

import (
	"bytes"
	"crypto/sha256"

	bin "github.com/gagliardetto/binary"

	"github.com/uhyunpark/launchpad/pkg/checked"
	"github.com/uhyunpark/launchpad/pkg/errcode"
)

type OracleType uint8

const (
	OracleNone OracleType = iota
	OracleTest
	OraclePyth
)

func (t OracleType) Valid() bool { return t <= OraclePyth }

// OraclePrice is a normalized price: Price * 10^Exponent, with the feed's
// reported confidence interval.
type OraclePrice struct {
	Price      uint64
	Exponent   int32
	Confidence uint64
}

// usdDecimals is the scale of all USD-denominated fee accounting.
const usdDecimals = 6

// divScaleDecimals carries extra precision through cross-feed division.
const divScaleDecimals = 8

// TestOracle is the record layout behind OracleTest feeds.
type TestOracle struct {
	Price       uint64
	Expo        int32
	Conf        uint64
	PublishTime int64
}

// PythPrice mirrors the published Pyth price snapshot layout.
type PythPrice struct {
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime int64
}

func discriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

func marshalFeed(name string, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(discriminator(name))
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalFeed(name string, data []byte, v interface{}) error {
	if len(data) < 8 || !bytes.Equal(data[:8], discriminator(name)) {
		return errcode.ErrInvalidOracleAccount
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return errcode.ErrInvalidOracleAccount
	}
	return nil
}

func (o *TestOracle) Marshal() ([]byte, error) { return marshalFeed("TestOracle", o) }

func (p *PythPrice) Marshal() ([]byte, error) { return marshalFeed("PythPrice", p) }

// NewFromOracle parses and validates an oracle account blob of the given
// kind against the custody's error and staleness bounds.
func NewFromOracle(
	oracleType OracleType,
	data []byte,
	maxPriceError float64,
	maxPriceAgeSec uint32,
	curtime int64,
) (OraclePrice, error) {
	var price uint64
	var expo int32
	var conf uint64
	var publishTime int64

	switch oracleType {
	case OracleTest:
		var feed TestOracle
		if err := unmarshalFeed("TestOracle", data, &feed); err != nil {
			return OraclePrice{}, err
		}
		price, expo, conf, publishTime = feed.Price, feed.Expo, feed.Conf, feed.PublishTime
	case OraclePyth:
		var feed PythPrice
		if err := unmarshalFeed("PythPrice", data, &feed); err != nil {
			return OraclePrice{}, err
		}
		if feed.Price < 0 {
			return OraclePrice{}, errcode.ErrInvalidOraclePrice
		}
		price, expo, conf, publishTime = uint64(feed.Price), feed.Expo, feed.Conf, feed.PublishTime
	default:
		return OraclePrice{}, errcode.ErrUnsupportedOracle
	}

	if price == 0 {
		return OraclePrice{}, errcode.ErrInvalidOraclePrice
	}
	if float64(conf)/float64(price) > maxPriceError {
		return OraclePrice{}, errcode.ErrInvalidOraclePrice
	}
	if publishTime < curtime-int64(maxPriceAgeSec) {
		return OraclePrice{}, errcode.ErrStaleOraclePrice
	}

	return OraclePrice{Price: price, Exponent: expo, Confidence: conf}, nil
}

// CheckedDiv returns self/other as a scaled price, carrying extra decimals
// of precision in the mantissa.
func (p OraclePrice) CheckedDiv(other OraclePrice) (OraclePrice, error) {
	if other.Price == 0 {
		return OraclePrice{}, errcode.ErrMathOverflow
	}
	scaled, err := checked.MulU128(checked.U128(p.Price), checked.U128(1e8))
	if err != nil {
		return OraclePrice{}, err
	}
	quot, err := checked.DivU128(scaled, checked.U128(other.Price))
	if err != nil {
		return OraclePrice{}, err
	}
	price, err := checked.AsU64(quot)
	if err != nil {
		return OraclePrice{}, err
	}
	return OraclePrice{
		Price:    price,
		Exponent: p.Exponent - other.Exponent - divScaleDecimals,
	}, nil
}

// GetAssetValueUsd converts a raw token amount into USD with 6 decimals.
func (p OraclePrice) GetAssetValueUsd(amount uint64, decimals uint8) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	return checked.DecimalMul(amount, -int32(decimals), p.Price, p.Exponent, -usdDecimals)
}
