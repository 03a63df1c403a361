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
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/honeytrap/ftpd/argument"
	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/compress"
	"github.com/honeytrap/ftpd/session"
	"github.com/honeytrap/ftpd/transfer"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

var _ transfer.DataChannel = (*Channel)(nil)

// Channel is an open data connection. Blocks are encoded according to the
// transfer type and framed according to the transfer mode.
type Channel struct {
	conn      net.Conn
	params    session.DataParams
	blockSize int
	limiter   *rate.Limiter

	m       sync.Mutex
	w       io.Writer
	closers []io.Closer
	flushed bool
	failed  bool

	r io.Reader

	aborted int32
}

// NewChannel returns a channel over conn. A nil limiter disables rate
// limiting.
func NewChannel(conn net.Conn, p session.DataParams, blockSize int, limiter *rate.Limiter) *Channel {
	if blockSize <= 0 {
		blockSize = session.DefaultBlockSize
	}

	return &Channel{
		conn:      conn,
		params:    p,
		blockSize: blockSize,
		limiter:   limiter,
	}
}

func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Channel) writer() (io.Writer, error) {
	if c.w != nil {
		return c.w, nil
	}

	w := limitWriter(c.conn, c.limiter)

	switch c.params.Mode {
	case argument.BLOCK:
		bw := &blockWriter{w: w}
		c.closers = append(c.closers, bw)
		w = bw
	case argument.ZLIB:
		zw, err := compress.NewWriter(w, compress.DefaultCompression)
		if err != nil {
			return nil, err
		}

		c.closers = append(c.closers, zw)
		w = zw
	}

	var t transform.Transformer

	switch c.params.Type {
	case argument.ASCII:
		t = &toCRLF{}
	case argument.EBCDIC:
		t = c.params.Type.Encoding().NewEncoder()
	}

	if t != nil {
		tw := transform.NewWriter(w, t)
		c.closers = append(c.closers, tw)
		w = tw
	}

	c.w = w
	return w, nil
}

func (c *Channel) reader() io.Reader {
	if c.r != nil {
		return c.r
	}

	r := limitReader(c.conn, c.limiter)

	switch c.params.Mode {
	case argument.BLOCK:
		r = &blockReader{r: r}
	case argument.ZLIB:
		r = compress.NewReader(r)
	}

	switch c.params.Type {
	case argument.ASCII:
		r = transform.NewReader(r, fromCRLF{})
	case argument.EBCDIC:
		r = transform.NewReader(r, c.params.Type.Encoding().NewDecoder())
	}

	c.r = r
	return r
}

// flush closes the encoders from the top of the chain down, which writes
// the trailing EOF block or zlib checksum.
func (c *Channel) flush() error {
	if c.flushed {
		return nil
	}

	c.flushed = true

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Channel) writeBlock(b *backend.Block) error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.failed || c.flushed {
		return io.ErrClosedPipe
	}

	w, err := c.writer()
	if err != nil {
		c.failed = true
		return err
	}

	if b.Len() > 0 {
		if _, err := w.Write(b.Data); err != nil {
			c.failed = true
			return err
		}
	}

	if !b.EOF {
		return nil
	}

	if err := c.flush(); err != nil {
		c.failed = true
		return err
	}

	return nil
}

// WriteBlock writes b in the background. The result is delivered on the
// returned channel once the block has been handed to the connection.
func (c *Channel) WriteBlock(b *backend.Block) <-chan error {
	result := make(chan error, 1)

	go func() {
		result <- c.writeBlock(b)
	}()

	return result
}

// ReadBlock returns the next block of at most the block size. The block
// received last has EOF set.
func (c *Channel) ReadBlock() (*backend.Block, error) {
	buf := make([]byte, c.blockSize)

	n, err := io.ReadFull(c.reader(), buf)
	switch err {
	case nil:
		return &backend.Block{Data: buf[:n]}, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return &backend.Block{Data: buf[:n], EOF: true}, nil
	default:
		return nil, err
	}
}

// Abort interrupts pending reads and writes. The channel can only be
// closed afterwards.
func (c *Channel) Abort() {
	atomic.StoreInt32(&c.aborted, 1)

	if err := c.conn.SetDeadline(time.Now()); err != nil {
		log.Debugf("Error interrupting data connection: %s", err.Error())
	}
}

// Close flushes pending output, unless a write failed or the channel was
// aborted, and closes the connection.
func (c *Channel) Close() error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.w != nil && !c.failed && atomic.LoadInt32(&c.aborted) == 0 {
		if err := c.flush(); err != nil {
			log.Errorf("Error flushing data connection: %s", err.Error())
		}
	}

	c.failed = true
	return c.conn.Close()
}
