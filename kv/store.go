// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "github.com/syndtr/goleveldb/leveldb/util"

// Getter defines methods to read kv.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Iterable defines the method to iterate over a key range.
type Iterable interface {
	Iterate(r Range) Iterator
}

// Snapshot is the store's snapshot.
type Snapshot interface {
	Getter
	Iterable
	Release()
}

// Bulk is the bulk putter.
type Bulk interface {
	Putter
	Write() error
}

// Iterator iterates over kv pairs.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range is the key range.
type Range struct {
	Start []byte // start of key range (included)
	Limit []byte // limit of key range (excluded)
}

// PrefixRange returns the range that satisfies the given prefix.
func PrefixRange(prefix []byte) Range {
	r := util.BytesPrefix(prefix)
	return Range{Start: r.Start, Limit: r.Limit}
}

// Contains reports whether key falls in the range.
func (r Range) Contains(key []byte) bool {
	if string(key) < string(r.Start) {
		return false
	}
	return len(r.Limit) == 0 || string(key) < string(r.Limit)
}

// Store defines the full functional kv store.
type Store interface {
	Getter
	Putter
	Iterable

	Snapshot() Snapshot
	Bulk() Bulk
}
