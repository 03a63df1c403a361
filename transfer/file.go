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
package transfer

import (
	"sync"
	"sync/atomic"

	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/session"
)

// Length returns the size reported for a file of length bytes. For FILE
// structure transfers in STREAM, BLOCK or ZLIB mode of type ASCII or IMAGE,
// three bytes per block are added, plus nine.
func Length(length int64, blockSize int, p session.DataParams) int64 {
	if !p.IsFileStreamBlockAsciiImage() || blockSize <= 0 {
		return length
	}

	bs := int64(blockSize)
	blocks := (length + bs - 1) / bs

	return length + (blocks+3)*3
}

// File is an open backend file taking part in a transfer. Only one
// transfer loop runs on a file at a time.
type File struct {
	m sync.Mutex

	file      backend.File
	blockSize int
	ready     bool

	transferred int64
}

// NewFile wraps f, read and written in blocks of blockSize bytes.
func NewFile(f backend.File, blockSize int) *File {
	if blockSize <= 0 {
		blockSize = session.DefaultBlockSize
	}

	return &File{
		file:      f,
		blockSize: blockSize,
		ready:     true,
	}
}

func (f *File) Name() string {
	return f.file.Name()
}

// IsReady returns false once the file has been closed.
func (f *File) IsReady() bool {
	f.m.Lock()
	defer f.m.Unlock()

	return f.ready
}

// Transferred returns the number of bytes moved so far.
func (f *File) Transferred() int64 {
	return atomic.LoadInt64(&f.transferred)
}

// Close closes the backend file. Calling Close on a closed file is a no-op.
func (f *File) Close() error {
	f.m.Lock()
	defer f.m.Unlock()

	return f.close()
}

func (f *File) close() error {
	if !f.ready {
		return nil
	}

	f.ready = false
	return f.file.Close()
}

// Retrieve sends the file to the data connection of ctrl. It returns
// ErrTransferAborted when the transfer failed, after signaling ctrl, and
// ErrNotReady when the data connection never showed up.
func (f *File) Retrieve(ctrl *Control) error {
	f.m.Lock()
	defer f.m.Unlock()

	if !f.ready {
		return nil
	}

	if err := ctrl.WaitForDataNetworkHandlerReady(); err != nil {
		log.Errorf("Data connection not ready for %s: %s", f.file.Name(), err.Error())
		f.close()
		ctrl.SetTransferAbortedFromInternal()
		return ErrNotReady
	}

	ch, err := ctrl.DataChannel()
	if err != nil {
		// connection already gone, nothing left to send
		f.close()
		ctrl.SetPreEndOfTransfer()
		return nil
	}

	block, err := f.file.ReadBlock(f.blockSize)
	if err == backend.ErrEndOfTransfer {
		f.close()
		ctrl.SetPreEndOfTransfer()
		return nil
	} else if err != nil {
		return f.fail(ctrl, err)
	}

	var pending <-chan error

	for block != nil && !block.EOF {
		if ctrl.IsAborted() {
			return f.fail(ctrl, ErrTransferAborted)
		}

		pending = ch.WriteBlock(block)
		if err := <-pending; err != nil {
			return f.fail(ctrl, err)
		}
		pending = nil

		atomic.AddInt64(&f.transferred, int64(block.Len()))

		block, err = f.file.ReadBlock(f.blockSize)
		if err == backend.ErrEndOfTransfer {
			f.close()
			ctrl.SetPreEndOfTransfer()
			return nil
		} else if err != nil {
			return f.fail(ctrl, err)
		}
	}

	f.close()

	if block != nil {
		if ctrl.IsAborted() {
			return f.fail(ctrl, ErrTransferAborted)
		}

		pending = ch.WriteBlock(block)
	}

	if pending != nil {
		if err := <-pending; err != nil {
			return f.fail(ctrl, err)
		}

		atomic.AddInt64(&f.transferred, int64(block.Len()))
	}

	ctrl.SetPreEndOfTransfer()
	return nil
}

// Store writes the content received on the data connection of ctrl to the
// file.
func (f *File) Store(ctrl *Control) error {
	f.m.Lock()
	defer f.m.Unlock()

	if !f.ready {
		return nil
	}

	if err := ctrl.WaitForDataNetworkHandlerReady(); err != nil {
		log.Errorf("Data connection not ready for %s: %s", f.file.Name(), err.Error())
		f.close()
		ctrl.SetTransferAbortedFromInternal()
		return ErrNotReady
	}

	ch, err := ctrl.DataChannel()
	if err != nil {
		f.close()
		ctrl.SetPreEndOfTransfer()
		return nil
	}

	for {
		if ctrl.IsAborted() {
			return f.fail(ctrl, ErrTransferAborted)
		}

		block, err := ch.ReadBlock()
		if err != nil {
			return f.fail(ctrl, err)
		}

		if err := f.file.WriteBlock(block); err != nil {
			return f.fail(ctrl, err)
		}

		atomic.AddInt64(&f.transferred, int64(block.Len()))

		if block.EOF {
			break
		}
	}

	if err := f.close(); err != nil {
		return f.fail(ctrl, err)
	}

	ctrl.SetPreEndOfTransfer()
	return nil
}

func (f *File) fail(ctrl *Control, err error) error {
	log.Errorf("Transfer of %s failed: %s", f.file.Name(), err.Error())

	f.close()
	ctrl.SetTransferAbortedFromInternal()
	return ErrTransferAborted
}
