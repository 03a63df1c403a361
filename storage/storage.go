/*
* Honeytrap
* Copyright (C) 2016-2018 DutchSec (https://dutchsec.com/)
*
* This program is free software; you can redistribute it and/or modify it under
* the terms of the GNU Affero General Public License version 3 as published by the
* Free Software Foundation.
*
* This program is distributed in the hope that it will be useful, but WITHOUT
* ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
* FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for more
* details.
*
* You should have received a copy of the GNU Affero General Public License
* version 3 along with this program in the file "LICENSE".  If not, see
* <http://www.gnu.org/licenses/agpl-3.0.txt>.
*
* See https://honeytrap.io/ for more details. All requests should be sent to
* licensing@honeytrap.io
*
* The interactive user interfaces in modified source and object code versions
* of this program must display Appropriate Legal Notices, as required under
* Section 5 of the GNU Affero General Public License version 3.
*
* In accordance with Section 7(b) of the GNU Affero General Public License version 3,
* these Appropriate Legal Notices must retain the display of the "Powered by
* Honeytrap" logo and retain the original copyright notice. If the display of the
* logo is not reasonably feasible for technical reasons, the Appropriate Legal Notices
* must display the words "Powered by Honeytrap" and retain the original copyright notice.
 */
// Package storage is a namespaced key value store on top of badger.
package storage

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("ftpd/storage")

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Storage interface
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// DB is an open badger database.
type DB struct {
	db *badger.DB
}

// Open opens the database in dataDir, creating it when needed.
func Open(dataDir string) (*DB, error) {
	p := filepath.Join(dataDir, "badger.db")

	if err := os.MkdirAll(p, 0700); err != nil {
		return nil, errors.Wrap(err, "storage: creating data dir")
	}

	opts := badger.DefaultOptions
	opts.Dir = p
	opts.ValueDir = p

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: opening badger")
	}

	log.Debugf("Opened storage at %s", p)
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Namespace returns the storage of keys prefixed with namespace.
func (d *DB) Namespace(namespace string) Storage {
	prefix := make([]byte, len(namespace)+1)

	_ = copy(prefix, namespace)

	prefix[len(namespace)] = byte('.')

	return &badgeStorage{
		db: d.db,
		ns: prefix,
	}
}

type badgeStorage struct {
	db *badger.DB

	ns []byte
}

func (s *badgeStorage) key(key string) []byte {
	k := make([]byte, 0, len(s.ns)+len(key))
	k = append(k, s.ns...)
	return append(k, key...)
}

func (s *badgeStorage) Get(key string) ([]byte, error) {
	var val []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		v, err := item.Value()
		if err != nil {
			return err
		}

		// v is only valid inside the transaction
		val = append([]byte{}, v...)
		return nil
	})

	return val, err
}

func (s *badgeStorage) Set(key string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), data)
	})
}

func (s *badgeStorage) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
}
