// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/thor"
)

// FromAmount converts an amount for marshalling. Nil stays nil.
func FromAmount(v *uint256.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(v.ToBig())
}

// ToAmount converts an unmarshalled amount, which must be present and fit in 256 bits.
func ToAmount(v *math.HexOrDecimal256) (*uint256.Int, error) {
	if v == nil {
		return nil, errors.New("missing amount")
	}
	b := (*big.Int)(v)
	if b.Sign() < 0 {
		return nil, errors.New("negative amount")
	}
	amount, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.New("amount overflows 256 bits")
	}
	return amount, nil
}

// AddressVar parses the named path variable as an address.
func AddressVar(req *http.Request, name string) (thor.Address, error) {
	addr, err := thor.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return thor.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}
