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
// Package bolt keeps the transfer history in a bolt database.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/pushers"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	_ = pushers.Register("bolt", New)
)

var log = logging.MustGetLogger("ftpd/pushers/bolt")

// DefaultBucket holds the events when no bucket is configured.
const DefaultBucket = "transfers"

// History saves delivered events into a bolt database.
type History struct {
	File   string `toml:"file"`
	Bucket string `toml:"bucket"`

	db *bolt.DB
}

// New opens the history database.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	h := History{
		File:   "ftpd-history.db",
		Bucket: DefaultBucket,
	}

	for _, optionFn := range options {
		if err := optionFn(&h); err != nil {
			return nil, err
		}
	}

	if err := h.open(); err != nil {
		return nil, err
	}

	return &h, nil
}

// Open opens the history database file with bucket.
func Open(file, bucket string) (*History, error) {
	h := &History{
		File:   file,
		Bucket: bucket,
	}

	if err := h.open(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *History) open() error {
	db, err := bolt.Open(h.File, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return errors.Wrapf(err, "bolt: opening %s", h.File)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(h.Bucket))
		return err
	}); err != nil {
		db.Close()
		return err
	}

	h.db = db
	return nil
}

// Send saves e.
func (h *History) Send(e event.Event) {
	if err := h.Save(event.ToMap(e)); err != nil {
		log.Errorf("Could not save event: %s", err.Error())
	}
}

// Save appends the events to the bucket.
func (h *History) Save(events ...map[string]interface{}) error {
	if events == nil {
		return nil
	}

	return h.db.Update(func(tx *bolt.Tx) error {
		bu := tx.Bucket([]byte(h.Bucket))

		for _, event := range events {
			buff, err := json.Marshal(event)
			if err != nil {
				return err
			}

			nextID, _ := bu.NextSequence()
			if terr := bu.Put(itob(nextID), buff); terr != nil {
				return terr
			}
		}

		return nil
	})
}

// Len returns the number of events saved.
func (h *History) Len() (int, error) {
	var total int

	if terr := h.db.View(func(tx *bolt.Tx) error {
		total = tx.Bucket([]byte(h.Bucket)).Stats().KeyN
		return nil
	}); terr != nil {
		return -1, terr
	}

	return total, nil
}

// Get returns at most length events starting at sequence from (1 based). A
// negative length returns all remaining events.
func (h *History) Get(from uint64, length int) ([]map[string]interface{}, error) {
	var list []map[string]interface{}

	err := h.db.View(func(tx *bolt.Tx) error {
		cu := tx.Bucket([]byte(h.Bucket)).Cursor()

		for k, v := cu.Seek(itob(from)); k != nil; k, v = cu.Next() {
			if length >= 0 && len(list) >= length {
				break
			}

			var item map[string]interface{}
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}

			list = append(list, item)
		}

		return nil
	})

	return list, err
}

func (h *History) Close() error {
	return h.db.Close()
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
