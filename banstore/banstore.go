// Copyright (c) 2025 The libbitcoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package banstore implements the persistent misbehavior ledger described
// in SPEC_FULL.md §3a: a small goleveldb-backed map from authority to
// ban score, consulted by the host pool's blacklist check in addition to
// the statically configured list.
package banstore

import (
	"encoding/binary"
	"errors"

	"github.com/lastcanal/libbitcoin/addrmgr"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func leveldbMemStorage() storage.Storage {
	return storage.NewMemStorage()
}

// Store persists per-authority misbehavior scores.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the leveldb directory at path. An
// empty path yields an in-memory store, useful for tests and for embedders
// that do not want ban-score persistence.
func Open(path string) (*Store, error) {
	if path == "" {
		db, err := leveldb.Open(leveldbMemStorage(), nil)
		if err != nil {
			return nil, err
		}
		return &Store{db: db}, nil
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(a addrmgr.Authority) []byte {
	return []byte(a.String())
}

// Score returns the current ban score for authority, 0 if never recorded.
func (s *Store) Score(a addrmgr.Authority) (int32, error) {
	v, err := s.db.Get(key(a), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(v)), nil
}

// Increment adds delta to authority's ban score and returns the new value.
func (s *Store) Increment(a addrmgr.Authority, delta int32) (int32, error) {
	current, err := s.Score(a)
	if err != nil {
		return 0, err
	}
	next := current + delta

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(next))
	if err := s.db.Put(key(a), buf[:], nil); err != nil {
		return 0, err
	}
	return next, nil
}

// Clear resets authority's ban score to zero.
func (s *Store) Clear(a addrmgr.Authority) error {
	return s.db.Delete(key(a), nil)
}
