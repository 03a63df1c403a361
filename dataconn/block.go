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
package dataconn

import (
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

// Descriptors of the block mode header.
const (
	descEOR     = 0x80
	descEOF     = 0x40
	descErrors  = 0x20
	descRestart = 0x10
)

const maxBlockLen = 0xFFFF

// blockWriter frames the stream in block mode: a descriptor byte and a
// 16 bit byte count before each block.
type blockWriter struct {
	w io.Writer
}

func (bw *blockWriter) writeBlock(desc byte, p []byte) error {
	header := [3]byte{desc}
	binary.BigEndian.PutUint16(header[1:], uint16(len(p)))

	if _, err := bw.w.Write(header[:]); err != nil {
		return err
	}

	_, err := bw.w.Write(p)
	return err
}

func (bw *blockWriter) Write(p []byte) (int, error) {
	written := 0

	for len(p) > 0 {
		n := len(p)
		if n > maxBlockLen {
			n = maxBlockLen
		}

		if err := bw.writeBlock(0, p[:n]); err != nil {
			return written, err
		}

		written += n
		p = p[n:]
	}

	return written, nil
}

// Close writes the EOF block.
func (bw *blockWriter) Close() error {
	return bw.writeBlock(descEOF, nil)
}

// blockReader removes the block mode framing. It returns io.EOF after the
// block carrying the EOF descriptor.
type blockReader struct {
	r io.Reader

	remaining int
	eof       bool
}

func (br *blockReader) Read(p []byte) (int, error) {
	for br.remaining == 0 {
		if br.eof {
			return 0, io.EOF
		}

		var header [3]byte
		if _, err := io.ReadFull(br.r, header[:]); err == io.EOF {
			// the sender closed without EOF block
			return 0, io.EOF
		} else if err != nil {
			return 0, errors.Wrap(err, "dataconn: reading block header")
		}

		br.remaining = int(binary.BigEndian.Uint16(header[1:]))
		br.eof = header[0]&descEOF != 0

		if header[0]&descRestart != 0 {
			// restart markers carry no file data
			if _, err := io.CopyN(ioutil.Discard, br.r, int64(br.remaining)); err != nil {
				return 0, err
			}
			br.remaining = 0
		}
	}

	if len(p) > br.remaining {
		p = p[:br.remaining]
	}

	n, err := br.r.Read(p)
	br.remaining -= n

	if err == io.EOF && br.remaining > 0 {
		return n, io.ErrUnexpectedEOF
	}

	if err == io.EOF {
		err = nil
	}

	return n, err
}
