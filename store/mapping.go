// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/pkg/errors"

	"github.com/vechain/posledger/kv"
)

// Mapping is an ordered key/value space under a prefix.
// Keys are raw composite byte keys, values are encoded with the codec.
type Mapping[V any] struct {
	context *Context
	prefix  []byte
	codec   Codec[V]
}

func NewMapping[V any](context *Context, prefix string, codec Codec[V]) *Mapping[V] {
	return &Mapping[V]{context: context, prefix: context.key(prefix), codec: codec}
}

func (m *Mapping[V]) fullKey(key []byte) []byte {
	return append(append(make([]byte, 0, len(m.prefix)+len(key)), m.prefix...), key...)
}

// Get returns the value and whether it exists.
func (m *Mapping[V]) Get(key []byte) (value V, ok bool, err error) {
	raw, err := m.context.state.Get(m.fullKey(key))
	if err != nil || raw == nil {
		return value, false, err
	}
	value, err = m.codec.Decode(raw)
	if err != nil {
		return value, false, errors.Wrapf(err, "decode %x", key)
	}
	return value, true, nil
}

func (m *Mapping[V]) Has(key []byte) (bool, error) {
	return m.context.state.Has(m.fullKey(key))
}

func (m *Mapping[V]) Set(key []byte, value V) error {
	raw, err := m.codec.Encode(value)
	if err != nil {
		return errors.Wrapf(err, "encode %x", key)
	}
	m.context.state.Set(m.fullKey(key), raw)
	return nil
}

func (m *Mapping[V]) Delete(key []byte) {
	m.context.state.Delete(m.fullKey(key))
}

// Iterate visits entries whose key starts with sub, in key order (or reverse).
// The key passed to fn has the mapping prefix stripped.
func (m *Mapping[V]) Iterate(sub []byte, reverse bool, fn func(key []byte, value V) (bool, error)) error {
	return m.iterate(kv.PrefixRange(m.fullKey(sub)), reverse, fn)
}

// IterateRange visits entries with start <= key < limit. A nil limit means the end of the mapping.
func (m *Mapping[V]) IterateRange(start, limit []byte, reverse bool, fn func(key []byte, value V) (bool, error)) error {
	r := kv.Range{Start: m.fullKey(start)}
	if limit == nil {
		r.Limit = kv.PrefixRange(m.prefix).Limit
	} else {
		r.Limit = m.fullKey(limit)
	}
	return m.iterate(r, reverse, fn)
}

func (m *Mapping[V]) iterate(r kv.Range, reverse bool, fn func(key []byte, value V) (bool, error)) error {
	return m.context.state.Iterate(r, reverse, func(key, raw []byte) (bool, error) {
		value, err := m.codec.Decode(raw)
		if err != nil {
			return false, errors.Wrapf(err, "decode %x", key)
		}
		return fn(key[len(m.prefix):], value)
	})
}

// Keys returns all keys starting with sub.
func (m *Mapping[V]) Keys(sub []byte) ([][]byte, error) {
	var keys [][]byte
	err := m.Iterate(sub, false, func(key []byte, _ V) (bool, error) {
		keys = append(keys, key)
		return true, nil
	})
	return keys, err
}

// DeletePrefix removes every entry whose key starts with sub.
func (m *Mapping[V]) DeletePrefix(sub []byte) error {
	keys, err := m.Keys(sub)
	if err != nil {
		return err
	}
	for _, k := range keys {
		m.Delete(k)
	}
	return nil
}
