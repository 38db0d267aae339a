// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

// Value is a single stored value, similar to a state variable of a contract.
type Value[V any] struct {
	m *Mapping[V]
}

func NewValue[V any](context *Context, name string, codec Codec[V]) *Value[V] {
	return &Value[V]{m: NewMapping[V](context, name, codec)}
}

// Get returns the value, or the zero value of V if never set.
func (v *Value[V]) Get() (value V, ok bool, err error) {
	return v.m.Get(nil)
}

func (v *Value[V]) Set(value V) error {
	return v.m.Set(nil, value)
}
