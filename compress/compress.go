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
// Package compress implements the zlib byte stream of MODE Z.
package compress

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Compression levels accepted by NewWriter.
const (
	DefaultCompression = zlib.DefaultCompression
	BestSpeed          = zlib.BestSpeed
	BestCompression    = zlib.BestCompression
)

// NewWriter returns a writer compressing to w. Close flushes the stream
// without closing w.
func NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return nil, errors.Wrap(err, "compress: invalid level")
	}

	return zw, nil
}

// NewReader returns a reader decompressing r. The zlib header is read
// lazily, on the first call to Read.
func NewReader(r io.Reader) io.ReadCloser {
	return &reader{r: bufio.NewReader(r)}
}

type reader struct {
	r  *bufio.Reader
	zr io.ReadCloser
}

func (r *reader) Read(p []byte) (int, error) {
	if r.zr == nil {
		// an empty stream carries no header at all
		if _, err := r.r.Peek(1); err == io.EOF {
			return 0, io.EOF
		}

		zr, err := zlib.NewReader(r.r)
		if err != nil {
			return 0, errors.Wrap(err, "compress: reading header")
		}

		r.zr = zr
	}

	return r.zr.Read(p)
}

func (r *reader) Close() error {
	if r.zr == nil {
		return nil
	}

	return r.zr.Close()
}
