// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/vechain/posledger/state"
)

// Context binds keyspaces of a module to the state they read and write.
type Context struct {
	namespace string
	state     *state.State
}

func NewContext(namespace string, state *state.State) *Context {
	return &Context{
		namespace: namespace,
		state:     state,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

// key returns namespace|prefix.
func (c *Context) key(prefix string) []byte {
	return []byte(c.namespace + "/" + prefix + "/")
}
