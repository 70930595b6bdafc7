// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/kv"
	"github.com/vechain/dpos/thor"
)

// prefixLen is the length of the namespace every container key starts with.
const prefixLen = 8

func namespace(name string) []byte {
	h := thor.Blake2b([]byte(name))
	return h[:prefixLen]
}

// Mapping is an account keyed container with RLP encoded values.
// A missing key is reported through the found flag, callers decide the default.
type Mapping[V any] struct {
	context *Context
	prefix  []byte
}

// NewMapping creates a mapping living in the namespace derived from name.
func NewMapping[V any](context *Context, name string) *Mapping[V] {
	return &Mapping[V]{context: context, prefix: namespace(name)}
}

func (m *Mapping[V]) key(addr thor.Address) []byte {
	k := make([]byte, 0, prefixLen+thor.AddressLength)
	return append(append(k, m.prefix...), addr.Bytes()...)
}

func (m *Mapping[V]) Get(addr thor.Address) (value V, found bool, err error) {
	raw, found, err := m.context.Get(m.key(addr))
	if err != nil || !found {
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrapf(err, "decode %v", addr)
	}
	return value, true, nil
}

func (m *Mapping[V]) Has(addr thor.Address) (bool, error) {
	_, found, err := m.context.Get(m.key(addr))
	return found, err
}

func (m *Mapping[V]) Set(addr thor.Address, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrapf(err, "encode %v", addr)
	}
	return m.context.Put(m.key(addr), raw)
}

func (m *Mapping[V]) Delete(addr thor.Address) error {
	return m.context.Delete(m.key(addr))
}

// Iterate visits entries in ascending address order.
func (m *Mapping[V]) Iterate(fn func(addr thor.Address, value V) error) error {
	return m.context.Iterate(kv.BytesPrefix(m.prefix), func(key, raw []byte) error {
		var value V
		addr := thor.BytesToAddress(key[prefixLen:])
		if err := rlp.DecodeBytes(raw, &value); err != nil {
			return errors.Wrapf(err, "decode %v", addr)
		}
		return fn(addr, value)
	})
}

// Keys returns all addresses present in ascending order.
func (m *Mapping[V]) Keys() ([]thor.Address, error) {
	var keys []thor.Address
	err := m.context.Iterate(kv.BytesPrefix(m.prefix), func(key, _ []byte) error {
		keys = append(keys, thor.BytesToAddress(key[prefixLen:]))
		return nil
	})
	return keys, err
}

// Clear deletes every entry.
func (m *Mapping[V]) Clear() error {
	keys, err := m.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := m.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Value is a singleton container.
type Value[V any] struct {
	context *Context
	key     []byte
}

func NewValue[V any](context *Context, name string) *Value[V] {
	return &Value[V]{context: context, key: namespace(name)}
}

func (v *Value[V]) Get() (value V, found bool, err error) {
	raw, found, err := v.context.Get(v.key)
	if err != nil || !found {
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrap(err, "decode value")
	}
	return value, true, nil
}

func (v *Value[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "encode value")
	}
	return v.context.Put(v.key, raw)
}

func (v *Value[V]) Delete() error {
	return v.context.Delete(v.key)
}
