// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoched

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/lvldb"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/state"
	"github.com/vechain/posledger/store"
)

func newContext(t *testing.T) *store.Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewContext("epoched", state.NewCreator(db, 0).NewState())
}

var sub = []byte("v1")

func TestEpoched_OffsetAndFallback(t *testing.T) {
	params := pos.DefaultParams()
	e := New[uint64](newContext(t), "vals", store.RLP[uint64](), params, OffsetPipelineLen, KeepAll)

	_, found, err := e.Get(sub, 10)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, e.Set(sub, 7, 1))

	_, found, err = e.Get(sub, 2)
	require.NoError(t, err)
	assert.False(t, found, "value lands at the pipeline epoch")

	for _, epoch := range []pos.Epoch{3, 4, 100} {
		v, found, err := e.Get(sub, epoch)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, uint64(7), v)
	}

	require.NoError(t, e.SetAt(sub, 9, 5))
	v, _, err := e.Get(sub, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
	v, _, err = e.Get(sub, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v)

	_, found, err = e.GetExact(sub, 4)
	require.NoError(t, err)
	assert.False(t, found)

	var epochs []pos.Epoch
	require.NoError(t, e.Entries(sub, func(epoch pos.Epoch, _ uint64) (bool, error) {
		epochs = append(epochs, epoch)
		return true, nil
	}))
	assert.Equal(t, []pos.Epoch{3, 5}, epochs)
}

func TestEpoched_Prune(t *testing.T) {
	e := New[uint64](newContext(t), "vals", store.RLP[uint64](), pos.DefaultParams(), OffsetZero, 2)
	require.NoError(t, e.SetAt(sub, 10, 0))
	require.NoError(t, e.SetAt(sub, 11, 1))
	require.NoError(t, e.SetAt(sub, 14, 4))

	// nothing is old enough yet
	require.NoError(t, e.Prune(sub, 2))
	_, found, err := e.GetExact(sub, 0)
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, e.Prune(sub, 5))
	_, found, err = e.GetExact(sub, 0)
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err := e.Get(sub, 3)
	require.NoError(t, err)
	require.True(t, found, "oldest retained epoch still resolves")
	assert.Equal(t, uint64(11), v)

	v, _, err = e.Get(sub, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(14), v)
}

func TestDelta(t *testing.T) {
	d := NewDelta(newContext(t), "deltas", pos.DefaultParams(), OffsetPipelineLen)
	assert.Equal(t, uint64(2), d.Offset())

	require.NoError(t, d.AddAtOffset(sub, 0, big.NewInt(100)))
	require.NoError(t, d.AddAtOffset(sub, 1, big.NewInt(-30)))
	require.NoError(t, d.Add(sub, 2, big.NewInt(5)))

	sum, err := d.Sum(sub, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.Int64())

	sum, err = d.Sum(sub, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(105), sum.Int64())

	sum, err = d.SumAll(sub)
	require.NoError(t, err)
	assert.Equal(t, int64(75), sum.Int64())

	// cancelling a delta removes the entry
	require.NoError(t, d.Add(sub, 3, big.NewInt(30)))
	m, err := d.Map(sub)
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.Equal(t, int64(105), m[2].Int64())

	keys, err := d.Keys(sub)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	got, err := d.Get(sub, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sign())
}

func TestOffsetValue(t *testing.T) {
	p := pos.DefaultParams()
	assert.Equal(t, uint64(0), OffsetZero.Value(p))
	assert.Equal(t, p.PipelineLen, OffsetPipelineLen.Value(p))
	assert.Equal(t, p.UnbondingLen, OffsetUnbondingLen.Value(p))
	assert.Panics(t, func() { Offset(9).Value(p) })
}
