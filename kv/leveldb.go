package kv

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelStore is a durable Store backed by github.com/syndtr/goleveldb.
type levelStore struct {
	db *leveldb.DB
}

// NewLevelDB opens (creating if absent) a goleveldb database at path. This
// is a durable Store for a host process; the persist package does not use
// it (its WAL and snapshots are plain files).
func NewLevelDB(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db}, nil
}

func (s *levelStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *levelStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *levelStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *levelStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *levelStore) Batch(ops []Op) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
			continue
		}
		batch.Put(op.Key, op.Value)
	}
	return s.db.Write(batch, nil)
}

func (s *levelStore) IsNotFound(err error) bool {
	return err == ErrNotFound || err == leveldb.ErrNotFound
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

func (s *levelStore) Iterate(prefix []byte) Iterator {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelIterator{iter: iter}
}

type levelIterator struct {
	iter interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
		Error() error
	}
}

func (it *levelIterator) Next() bool    { return it.iter.Next() }
func (it *levelIterator) Key() []byte   { return it.iter.Key() }
func (it *levelIterator) Value() []byte { return it.iter.Value() }
func (it *levelIterator) Release()      { it.iter.Release() }
func (it *levelIterator) Error() error  { return it.iter.Error() }
