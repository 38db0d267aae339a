// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import lru "github.com/hashicorp/golang-lru"

// Values is an LRU of committed kv values keyed by the raw key.
// A nil value records that the key is absent from the store.
type Values struct {
	lru *lru.Cache
}

// NewValues creates a value cache holding at most size entries.
// size should be > 0, or an error returned.
func NewValues(size int) (*Values, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Values{c}, nil
}

// Load returns the cached value of key, calling load on a miss.
// Failed loads are not cached.
func (v *Values) Load(key string, load func() ([]byte, error)) ([]byte, error) {
	if cached, ok := v.lru.Get(key); ok {
		return cached.([]byte), nil
	}
	val, err := load()
	if err != nil {
		return nil, err
	}
	v.lru.Add(key, val)
	return val, nil
}

// Update records committed changes, nil meaning deleted.
func (v *Values) Update(changes map[string][]byte) {
	for k, val := range changes {
		v.lru.Add(k, val)
	}
}

// Len returns the number of cached entries.
func (v *Values) Len() int {
	return v.lru.Len()
}
