package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Vote weights are stored as 0x-prefixed hex strings so tallies survive at
// token-supply scale without float precision loss.

var zero = new(big.Int)

// FormatWeight encodes a non-negative big integer for storage.
func FormatWeight(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return hexutil.EncodeBig(zero)
	}
	return hexutil.EncodeBig(v)
}

// ParseWeight decodes a stored tally. Empty columns decode as zero.
func ParseWeight(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, fmt.Errorf("weight %q: %w", s, err)
	}
	return v, nil
}
