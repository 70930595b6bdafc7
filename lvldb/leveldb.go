// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb backs the staking state with a goleveldb instance.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/dpos/kv"
)

var _ kv.Store = (*LevelDB)(nil)

const minCacheSize = 16 // MiB

// Options options for creating level db instance.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
	// SyncWrites flushes every write to disk before returning.
	SyncWrites bool
}

// LevelDB is a kv.Store on top of goleveldb. Writes are counted per kind.
type LevelDB struct {
	db       *leveldb.DB
	readOpt  *opt.ReadOptions
	writeOpt *opt.WriteOptions
}

// New opens the store at path, creating it when absent.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "new persistent level db")
	}
	return open(stg, opts)
}

// NewMem creates a store kept in memory.
func NewMem() (*LevelDB, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, opts Options) (*LevelDB, error) {
	cacheSize := max(opts.CacheSize, minCacheSize)
	openFiles := max(opts.OpenFilesCacheCapacity, 16)

	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFiles,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		stg.Close()
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{
		db:       db,
		readOpt:  &opt.ReadOptions{},
		writeOpt: &opt.WriteOptions{Sync: opts.SyncWrites},
	}, nil
}

// IsNotFound reports whether err is the not-found error of Get.
func (l *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

// Get returns the value stored under key, failing with a not-found error when absent.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	return l.db.Get(key, l.readOpt)
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, l.readOpt)
}

func (l *LevelDB) Put(key, value []byte) error {
	metricWrites().AddWithLabel(1, map[string]string{"op": "put"})
	return l.db.Put(key, value, l.writeOpt)
}

func (l *LevelDB) Delete(key []byte) error {
	metricWrites().AddWithLabel(1, map[string]string{"op": "delete"})
	return l.db.Delete(key, l.writeOpt)
}

// Close closes the store. Later operations fail.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// NewBatch returns a batch applied atomically on Write.
func (l *LevelDB) NewBatch() kv.Batch {
	return &batch{l, new(leveldb.Batch)}
}

// NewIterator iterates the keys within r in ascending order.
func (l *LevelDB) NewIterator(r kv.Range) kv.Iterator {
	return l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, l.readOpt)
}

type batch struct {
	store *LevelDB
	b     *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int {
	return b.b.Len()
}

func (b *batch) Write() error {
	metricWrites().AddWithLabel(1, map[string]string{"op": "batch"})
	metricBatchSize().Observe(int64(b.b.Len()))
	return b.store.db.Write(b.b, b.store.writeOpt)
}
