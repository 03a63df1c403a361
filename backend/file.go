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
package backend

import (
	"io"
)

// StreamFile adapts a reader or writer to the File interface.
type StreamFile struct {
	name   string
	length int64

	r io.Reader
	w io.Writer
	c io.Closer
}

// NewReadFile returns a file reading blocks from r.
func NewReadFile(name string, length int64, r io.Reader, c io.Closer) *StreamFile {
	return &StreamFile{name: name, length: length, r: r, c: c}
}

// NewWriteFile returns a file writing blocks to w.
func NewWriteFile(name string, w io.Writer, c io.Closer) *StreamFile {
	return &StreamFile{name: name, w: w, c: c}
}

func (f *StreamFile) Name() string {
	return f.name
}

func (f *StreamFile) Length() (int64, error) {
	return f.length, nil
}

func (f *StreamFile) ReadBlock(size int) (*Block, error) {
	if f.r == nil {
		return nil, io.ErrClosedPipe
	}

	buf := make([]byte, size)

	n, err := io.ReadFull(f.r, buf)
	switch err {
	case nil:
		return &Block{Data: buf[:n]}, nil
	case io.ErrUnexpectedEOF:
		return &Block{Data: buf[:n], EOF: true}, nil
	case io.EOF:
		return nil, ErrEndOfTransfer
	default:
		return nil, err
	}
}

func (f *StreamFile) WriteBlock(b *Block) error {
	if f.w == nil {
		return io.ErrClosedPipe
	}

	if b.Len() == 0 {
		return nil
	}

	n, err := f.w.Write(b.Data)
	f.length += int64(n)
	return err
}

// Close closes the underlying stream once.
func (f *StreamFile) Close() error {
	c := f.c

	f.r, f.w, f.c = nil, nil, nil

	if c == nil {
		return nil
	}

	return c.Close()
}
