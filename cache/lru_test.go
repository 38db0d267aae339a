// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesLoad(t *testing.T) {
	c, err := NewValues(2)
	require.NoError(t, err)

	loads := 0
	load := func() ([]byte, error) {
		loads++
		return []byte("v"), nil
	}

	v, err := c.Load("a", load)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	v, err = c.Load("a", load)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, loads)

	// absent keys are cached too
	v, err = c.Load("missing", func() ([]byte, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
	_, err = c.Load("missing", func() ([]byte, error) { return nil, errors.New("not cached") })
	require.NoError(t, err)

	_, err = c.Load("b", func() ([]byte, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestValuesUpdate(t *testing.T) {
	c, err := NewValues(4)
	require.NoError(t, err)

	c.Update(map[string][]byte{"a": []byte("1"), "b": nil})
	v, err := c.Load("a", func() ([]byte, error) { return nil, errors.New("unexpected load") })
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = c.Load("b", func() ([]byte, error) { return nil, errors.New("unexpected load") })
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNewValuesInvalidSize(t *testing.T) {
	_, err := NewValues(0)
	assert.Error(t, err)
}
