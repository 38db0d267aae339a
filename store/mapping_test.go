// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/posledger/lvldb"
	"github.com/vechain/posledger/state"
)

func newContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContext("test", state.NewCreator(db, 0).NewState())
}

type record struct {
	Name  string
	Count uint64
}

func TestMappingRLP(t *testing.T) {
	ctx := newContext(t)
	m := NewMapping[*record](ctx, "records", RLP[*record]())

	_, ok, err := m.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set([]byte("a"), &record{Name: "alpha", Count: 1}))
	v, ok, err := m.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, &record{Name: "alpha", Count: 1}, v)

	m.Delete([]byte("a"))
	has, err := m.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMappingOrderedIteration(t *testing.T) {
	ctx := newContext(t)
	m := NewMapping[*big.Int](ctx, "amounts", BigInt)
	other := NewMapping[*big.Int](ctx, "amounts2", BigInt)

	for _, e := range []uint64{5, 1, 3} {
		require.NoError(t, m.Set(Key([]byte("x"), Uint64Key(e)), big.NewInt(int64(e))))
	}
	require.NoError(t, m.Set(Key([]byte("y"), Uint64Key(2)), big.NewInt(-7)))
	require.NoError(t, other.Set(Key([]byte("x"), Uint64Key(0)), big.NewInt(100)))

	var epochs []uint64
	require.NoError(t, m.Iterate([]byte("x"), false, func(key []byte, _ *big.Int) (bool, error) {
		epochs = append(epochs, Uint64FromKey(key[1:]))
		return true, nil
	}))
	assert.Equal(t, []uint64{1, 3, 5}, epochs)

	epochs = nil
	require.NoError(t, m.IterateRange(Key([]byte("x"), Uint64Key(0)), Key([]byte("x"), Uint64Key(4)), true,
		func(key []byte, _ *big.Int) (bool, error) {
			epochs = append(epochs, Uint64FromKey(key[1:]))
			return true, nil
		}))
	assert.Equal(t, []uint64{3, 1}, epochs)

	v, _, err := m.Get(Key([]byte("y"), Uint64Key(2)))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(-7), v)

	require.NoError(t, m.DeletePrefix([]byte("x")))
	keys, err := m.Keys(nil)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	keys, err = other.Keys(nil)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAmountKeyOrdering(t *testing.T) {
	small := AmountKey(big.NewInt(255))
	large := AmountKey(big.NewInt(256))
	assert.Less(t, string(small), string(large))
	assert.Equal(t, big.NewInt(256), AmountFromKey(large))
	assert.Panics(t, func() { AmountKey(big.NewInt(-1)) })
}
