// Package kv defines the abstract KVStore boundary of spec.md §6 —
// get/has/put/delete/batch/iterate — along with an in-memory
// implementation for tests and a durable github.com/syndtr/goleveldb-
// backed implementation, the interface every storage engine plugs in
// behind.
package kv

import "errors"

// ErrNotFound is returned by Get when the key is absent. Store
// implementations may wrap their own not-found error; IsNotFound on the
// store is authoritative.
var ErrNotFound = errors.New("kv: not found")

// Op is one operation in a Batch: a Put (Delete == false) or a Delete.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// PutOp constructs a Put operation.
func PutOp(key, value []byte) Op { return Op{Key: key, Value: value} }

// DeleteOp constructs a Delete operation.
func DeleteOp(key []byte) Op { return Op{Key: key, Delete: true} }

// Iterator walks keys sharing a prefix, in ascending key order — callers
// that feed iteration results into hashing/RLP rely on this ordering
// instead of re-sorting (spec.md §9).
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Store is the abstract KVStore of spec.md §6.
type Store interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Batch(ops []Op) error
	Iterate(prefix []byte) Iterator
	IsNotFound(err error) bool
	Close() error
}
