// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/posledger/cache"
	"github.com/vechain/posledger/kv"
)

const defaultCacheSize = 16384

// Creator creates states sharing one store and one cache of committed values.
// Only one read-write state should be live at a time.
type Creator struct {
	store kv.Store
	cache *cache.Values
}

// NewCreator creates a state creator. cacheSize <= 0 picks the default size.
func NewCreator(store kv.Store, cacheSize int) *Creator {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := cache.NewValues(cacheSize)
	if err != nil {
		panic(err) // size is positive
	}
	return &Creator{store: store, cache: c}
}

// NewState creates a read-write state over the latest committed data.
func (c *Creator) NewState() *State {
	return newState(c.store, c.store, c.cache)
}

// NewReadOnly creates a state over a snapshot of the committed data.
// Buffered writes are allowed but cannot be committed. The returned func
// releases the snapshot.
func (c *Creator) NewReadOnly() (*State, func()) {
	snap := c.NewSnapshot()
	return snap.NewState(), snap.Release
}

// Snapshot is a frozen view of the committed data. States created from
// one snapshot observe the same data and may be used from different
// goroutines, one state per goroutine.
type Snapshot struct {
	snap kv.Snapshot
}

// NewSnapshot takes a snapshot of the committed data.
func (c *Creator) NewSnapshot() *Snapshot {
	return &Snapshot{c.store.Snapshot()}
}

// NewState creates a read-only state over the snapshot.
func (s *Snapshot) NewState() *State {
	return newState(s.snap, nil, nil)
}

// Release releases the snapshot. States created from it must not be used afterwards.
func (s *Snapshot) Release() {
	s.snap.Release()
}
