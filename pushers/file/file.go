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
// Package file writes events as JSON lines to a rotating log file.
package file

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/honeytrap/ftpd/config"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/pushers"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	_ = pushers.Register("file", New)
)

var log = logging.MustGetLogger("ftpd/pushers/file")

const (
	defaultMaxSize = config.Size(64 * 1024 * 1024)

	// buffered lines are written once this size is reached or the queue
	// is empty
	flushSize = 64 * 1024
)

// New returns a file channel. The file is opened before New returns.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	f := File{
		MaxSize: defaultMaxSize,
		Mode:    0600,
		ch:      make(chan event.Event, 100),
		done:    make(chan struct{}),
	}

	for _, optionFn := range options {
		if err := optionFn(&f); err != nil {
			return nil, err
		}
	}

	if f.Filename == "" {
		return nil, errors.New("file channel: filename not set")
	}

	if f.MaxSize < 1024 {
		return nil, errors.New("file channel: minimal max size is 1024")
	}

	name, err := filepath.Abs(f.Filename)
	if err != nil {
		return nil, err
	}

	f.Filename = name

	if f.dest, err = openRotateFile(f.Filename, f.Mode, int64(f.MaxSize)); err != nil {
		return nil, err
	}

	go f.run()

	return &f, nil
}

// WithFile sets the name of the log file.
func WithFile(name string) func(pushers.Channel) error {
	return func(c pushers.Channel) error {
		c.(*File).Filename = name
		return nil
	}
}

// WithMaxSize sets the size at which the log file is rotated.
func WithMaxSize(size config.Size) func(pushers.Channel) error {
	return func(c pushers.Channel) error {
		c.(*File).MaxSize = size
		return nil
	}
}

// File is the [channel.<name>] section of a file channel. Rotated files
// get the time of rotation as suffix.
type File struct {
	Filename string      `toml:"filename"`
	MaxSize  config.Size `toml:"maxsize"`
	Mode     os.FileMode `toml:"mode"`

	dest *rotateFile

	ch   chan event.Event
	done chan struct{}
}

// Send queues e for writing.
func (f *File) Send(e event.Event) {
	f.ch <- e
}

// Close writes the queued events and closes the file.
func (f *File) Close() error {
	close(f.ch)
	<-f.done

	return f.dest.Close()
}

func (f *File) run() {
	defer close(f.done)

	var buf bytes.Buffer

	flush := func() {
		if buf.Len() == 0 {
			return
		}

		if _, err := f.dest.Write(buf.Bytes()); err != nil {
			log.Errorf("Error writing events to %s: %s", f.Filename, err.Error())
		}

		buf.Reset()
	}

	for {
		var (
			e  event.Event
			ok bool
		)

		select {
		case e, ok = <-f.ch:
		default:
			flush()
			e, ok = <-f.ch
		}

		if !ok {
			flush()
			return
		}

		data, err := json.Marshal(e)
		if err != nil {
			log.Errorf("Error marshalling event: %s", err.Error())
			continue
		}

		buf.Write(data)
		buf.WriteByte('\n')

		if buf.Len() >= flushSize {
			flush()
		}
	}
}
