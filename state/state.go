// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/posledger/cache"
	"github.com/vechain/posledger/kv"
	"github.com/vechain/posledger/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrReadOnly is returned when committing a state created over a snapshot.
var ErrReadOnly = errors.New("read-only state")

type source interface {
	kv.Getter
	kv.Iterable
}

// State is a transactional view over the kv store.
// Writes are buffered in a journal with checkpoints and become visible to
// other states only after Commit.
type State struct {
	src     source
	store   kv.Store   // nil for read-only states
	cache   *cache.Values // shared cache of committed values, may be nil
	sm      *stackedmap.StackedMap
	touched map[string]struct{}
}

func newState(src source, store kv.Store, c *cache.Values) *State {
	s := &State{
		src:     src,
		store:   store,
		cache:   c,
		touched: make(map[string]struct{}),
	}
	s.sm = stackedmap.New(s.srcGetter)
	return s
}

// srcGetter implements stackedmap.MapGetter.
func (s *State) srcGetter(key any) (any, bool, error) {
	k := key.(string)
	load := func() ([]byte, error) {
		v, err := s.src.Get([]byte(k))
		if err != nil {
			if s.src.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return v, nil
	}
	var (
		v   []byte
		err error
	)
	if s.cache != nil {
		v, err = s.cache.Load(k, load)
	} else {
		v, err = load()
	}
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

// Get returns the value for the key, or nil if absent.
func (s *State) Get(key []byte) ([]byte, error) {
	v, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, &Error{err}
	}
	return v.([]byte), nil
}

// Has returns whether the key exists.
func (s *State) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

// Set puts a value, an empty value is treated as a delete.
func (s *State) Set(key, value []byte) {
	k := string(key)
	if len(value) == 0 {
		value = nil
	} else {
		value = bytes.Clone(value)
	}
	s.sm.Put(k, value)
	s.touched[k] = struct{}{}
}

// Delete removes the key.
func (s *State) Delete(key []byte) {
	s.Set(key, nil)
}

// Iterate visits every live key in range in ascending order, or descending if reverse.
// Buffered writes are merged over the underlying store. Keys and values passed
// to fn are owned by fn. Iteration stops when fn returns false or an error.
func (s *State) Iterate(r kv.Range, reverse bool, fn func(key, value []byte) (bool, error)) error {
	merged := make(map[string][]byte)

	iter := s.src.Iterate(r)
	for iter.Next() {
		merged[string(iter.Key())] = bytes.Clone(iter.Value())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return &Error{err}
	}

	for k := range s.touched {
		if !r.Contains([]byte(k)) {
			continue
		}
		v, _, err := s.sm.Get(k)
		if err != nil {
			return &Error{err}
		}
		if b := v.([]byte); b != nil {
			merged[k] = b
		} else {
			delete(merged, k)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}

	for _, k := range keys {
		ok, err := fn([]byte(k), merged[k])
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 0 {
		panic("invalid revision")
	}
	s.sm.PopTo(revision)
	if revision == 0 {
		s.sm.Push()
	}
}

// Changes returns the net buffered writes, nil values are deletions.
func (s *State) Changes() map[string][]byte {
	changes := make(map[string][]byte)
	s.sm.Journal(func(key, value any) bool {
		changes[key.(string)] = value.([]byte)
		return true
	})
	return changes
}

// Commit writes all buffered changes atomically into the store and resets the journal.
func (s *State) Commit() error {
	if s.store == nil {
		return ErrReadOnly
	}
	changes := s.Changes()
	bulk := s.store.Bulk()
	for k, v := range changes {
		var err error
		if v == nil {
			err = bulk.Delete([]byte(k))
		} else {
			err = bulk.Put([]byte(k), v)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := bulk.Write(); err != nil {
		return &Error{errors.Wrap(err, "commit")}
	}
	if s.cache != nil {
		s.cache.Update(changes)
	}
	s.sm = stackedmap.New(s.srcGetter)
	s.touched = make(map[string]struct{})
	return nil
}
