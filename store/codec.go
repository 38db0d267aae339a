// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Codec encodes values into non-empty byte slices.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(raw []byte) (V, error)
}

type rlpCodec[V any] struct{}

// RLP returns a codec using rlp encoding.
func RLP[V any]() Codec[V] { return rlpCodec[V]{} }

func (rlpCodec[V]) Encode(v V) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

func (rlpCodec[V]) Decode(raw []byte) (value V, err error) {
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		err = rlp.DecodeBytes(raw, value)
		return
	}
	err = rlp.DecodeBytes(raw, &value)
	return
}

type bigIntCodec struct{}

// BigInt encodes signed integers as a sign byte followed by the big-endian magnitude.
var BigInt Codec[*big.Int] = bigIntCodec{}

func (bigIntCodec) Encode(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errors.New("nil big int")
	}
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	return append([]byte{sign}, v.Bytes()...), nil
}

func (bigIntCodec) Decode(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty big int")
	}
	v := new(big.Int).SetBytes(raw[1:])
	if raw[0] == 1 {
		v.Neg(v)
	}
	return v, nil
}
