// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/dpos/kv"
)

type change struct {
	value   []byte
	deleted bool
}

// Context gives typed containers access to a kv store.
// Writes made inside Transact are journaled and reach the store in a single
// batch only when the transaction function succeeds.
type Context struct {
	store   kv.Store
	journal map[string]change
}

// NewContext creates a context over the given store.
func NewContext(store kv.Store) *Context {
	return &Context{store: store}
}

// Store returns the underlying kv store.
func (c *Context) Store() kv.Store {
	return c.store
}

// InTransaction reports whether a transaction is open.
func (c *Context) InTransaction() bool {
	return c.journal != nil
}

// Transact runs fn in a transaction. Every write fn makes is committed if fn returns nil
// and discarded otherwise. A nested call joins the enclosing transaction.
func (c *Context) Transact(fn func() error) error {
	if c.journal != nil {
		return fn()
	}

	c.journal = make(map[string]change)
	defer func() { c.journal = nil }()

	if err := fn(); err != nil {
		return err
	}
	return c.commit()
}

func (c *Context) commit() error {
	if len(c.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.journal))
	for k := range c.journal {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := c.store.NewBatch()
	for _, k := range keys {
		ch := c.journal[k]
		var err error
		if ch.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), ch.value)
		}
		if err != nil {
			return errors.Wrap(err, "stage change")
		}
	}
	return errors.Wrap(batch.Write(), "commit changes")
}

// Get returns the value stored under key, looking at the journal first.
func (c *Context) Get(key []byte) ([]byte, bool, error) {
	if ch, ok := c.journal[string(key)]; ok {
		if ch.deleted {
			return nil, false, nil
		}
		return ch.value, true, nil
	}
	val, err := c.store.Get(key)
	if err != nil {
		if c.store.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get")
	}
	return val, true, nil
}

// Put stores the value under key.
func (c *Context) Put(key, value []byte) error {
	if c.journal != nil {
		c.journal[string(key)] = change{value: append([]byte(nil), value...)}
		return nil
	}
	return errors.Wrap(c.store.Put(key, value), "put")
}

// Delete removes the key.
func (c *Context) Delete(key []byte) error {
	if c.journal != nil {
		c.journal[string(key)] = change{deleted: true}
		return nil
	}
	return errors.Wrap(c.store.Delete(key), "delete")
}

// Iterate visits every key in the range in ascending order, with pending
// journal entries merged over the store content. It is safe to write from fn.
func (c *Context) Iterate(r kv.Range, fn func(key, value []byte) error) error {
	entries := make(map[string][]byte)

	it := c.store.NewIterator(r)
	for it.Next() {
		entries[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	it.Release()
	if err := it.Error(); err != nil {
		return errors.Wrap(err, "iterate")
	}

	for k, ch := range c.journal {
		if !r.Contains([]byte(k)) {
			continue
		}
		if ch.deleted {
			delete(entries, k)
		} else {
			entries[k] = ch.value
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), entries[k]); err != nil {
			return err
		}
	}
	return nil
}
