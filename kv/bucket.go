// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"
)

// Bucket provides logical bucket for kv store.
type Bucket string

func (b Bucket) key(buf *buf, key []byte) []byte {
	buf.k = append(append(buf.k[:0], b...), key...)
	return buf.k
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			return src.Get(b.key(buf, key))
		},
		func(key []byte) (bool, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			return src.Has(b.key(buf, key))
		},
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			return src.Put(b.key(buf, key), val)
		},
		func(key []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			return src.Delete(b.key(buf, key))
		},
	}
}

// NewIterable creates a bucket iterable from the source iterable.
// Keys yielded by the iterator have the bucket stripped.
func (b Bucket) NewIterable(src Iterable) Iterable {
	return IterateFunc(func(r Range) Iterator {
		// keys must outlive the call, so no pooled buffers here
		r.Start = append([]byte(b), r.Start...)
		if len(r.Limit) == 0 {
			r.Limit = PrefixRange([]byte(b)).Limit
		} else {
			r.Limit = append([]byte(b), r.Limit...)
		}
		iter := src.Iterate(r)
		return &struct {
			FirstFunc
			LastFunc
			NextFunc
			PrevFunc
			KeyFunc
			ValueFunc
			ReleaseFunc
			ErrorFunc
		}{
			iter.First,
			iter.Last,
			iter.Next,
			iter.Prev,
			// strip the bucket
			func() []byte { return iter.Key()[len(b):] },
			iter.Value,
			iter.Release,
			iter.Error,
		}
	})
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &struct {
		Getter
		Putter
		Iterable
		SnapshotFunc
		BulkFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		b.NewIterable(src),
		func() Snapshot {
			snapshot := src.Snapshot()
			return &struct {
				Getter
				Iterable
				ReleaseFunc
			}{
				b.NewGetter(snapshot),
				b.NewIterable(snapshot),
				snapshot.Release,
			}
		},
		func() Bulk {
			bulk := src.Bulk()
			return &struct {
				Putter
				WriteFunc
			}{
				b.NewPutter(bulk),
				bulk.Write,
			}
		},
	}
}

type buf struct {
	k []byte
}

var bufPool = sync.Pool{
	New: func() any {
		return &buf{}
	},
}
