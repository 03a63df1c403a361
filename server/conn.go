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
package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/honeytrap/ftpd/dataconn"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/reply"
	"github.com/honeytrap/ftpd/session"
	"github.com/honeytrap/ftpd/transfer"
)

// conn is one control connection. The session is owned by the goroutine
// running serve; transfers run in their own goroutine and only write
// replies.
type conn struct {
	server *Server

	reader *bufio.Reader

	wm     sync.Mutex
	rwc    net.Conn
	writer *bufio.Writer

	session *session.Session
	data    *dataconn.Conn
	ctrl    *transfer.Control

	transfers sync.WaitGroup

	renameFrom string

	// set when the connection must be closed after the current reply
	closing bool

	shutdown int32

	// unix nanos of the end of the last transfer
	transferEnd int64
}

func (s *Server) newConn(rwc net.Conn) (*conn, error) {
	sess, err := s.newSession()
	if err != nil {
		return nil, err
	}

	return &conn{
		server:  s,
		rwc:     rwc,
		reader:  bufio.NewReader(rwc),
		writer:  bufio.NewWriter(rwc),
		session: sess,
		data:    dataconn.New(sess.ID(), s.data),
		ctrl:    transfer.NewControl(s.data.Timeout),
	}, nil
}

// serve reads commands until the client quits, the connection fails or
// ctx is done.
func (c *conn) serve(ctx context.Context) {
	log.Debugf("%s: Connection Established", c.session.ID())

	c.send(event.ConnectionOpened)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			c.internalShutdown()
		case <-done:
		}
	}()

	if err := c.reply(reply.StatusReady, c.server.Banner); err != nil {
		log.Errorf("%s: Error writing banner: %s", c.session.ID(), err.Error())
		c.close()
		return
	}

	var (
		pending  string
		deadline time.Time
	)

	for !c.closing {
		if d := c.server.IdleTimeout.Duration(); d > 0 {
			if deadline.IsZero() {
				deadline = time.Now().Add(d)
			}

			c.rwc.SetReadDeadline(deadline)
			deadline = time.Time{}
		}

		line, err := c.reader.ReadString('\n')

		line = pending + line
		pending = ""

		if err != nil {
			if until, ok := c.idleExtension(err); ok {
				pending = line
				deadline = until
				continue
			}

			switch ne, ok := err.(net.Error); {
			case atomic.LoadInt32(&c.shutdown) == 1:
			case ok && ne.Timeout():
				c.reply(reply.StatusNotAvailable, "Timeout: closing control connection.")
			case err != io.EOF:
				log.Errorf("%s: Error: %s", c.session.ID(), err.Error())
			}

			break
		}

		c.receiveLine(line)
	}

	c.close()
	log.Debugf("%s: Connection Terminated", c.session.ID())
}

// endTransfer releases the data connection and restarts the idle timer of
// the control connection.
func (c *conn) endTransfer() {
	atomic.StoreInt64(&c.transferEnd, time.Now().UnixNano())
	c.ctrl.Finish()
}

// idleExtension returns the deadline a timed out read is retried with.
// The control connection is not idle while a transfer executes, and its
// idle time starts over when a transfer ends.
func (c *conn) idleExtension(err error) (time.Time, bool) {
	ne, ok := err.(net.Error)
	if !ok || !ne.Timeout() || atomic.LoadInt32(&c.shutdown) == 1 {
		return time.Time{}, false
	}

	d := c.server.IdleTimeout.Duration()

	if c.ctrl.IsExecuting() {
		return time.Now().Add(d), true
	}

	until := time.Unix(0, atomic.LoadInt64(&c.transferEnd)).Add(d)
	if until.After(time.Now()) {
		return until, true
	}

	return time.Time{}, false
}

// internalShutdown tells the client the service is going down and closes
// the control connection, which ends serve.
func (c *conn) internalShutdown() {
	atomic.StoreInt32(&c.shutdown, 1)

	c.ctrl.Abort()

	if err := c.reply(reply.StatusNotAvailable, "Service shutting down, closing control connection."); err != nil {
		log.Debugf("%s: Error writing shutdown reply: %s", c.session.ID(), err.Error())
	}

	c.wm.Lock()
	defer c.wm.Unlock()

	c.rwc.Close()
}

// close aborts a running transfer and releases the connections.
func (c *conn) close() {
	c.ctrl.Abort()

	if err := c.data.Close(); err != nil {
		log.Debugf("%s: Error closing data socket: %s", c.session.ID(), err.Error())
	}

	c.transfers.Wait()

	c.wm.Lock()
	c.rwc.Close()
	c.wm.Unlock()

	c.send(event.ConnectionClosed)
}

// reply writes a reply to the client. It is safe for concurrent use.
func (c *conn) reply(code reply.Code, msg string) error {
	c.wm.Lock()
	defer c.wm.Unlock()

	line := reply.Format(code, msg)
	log.Debugf("%s: < %s", c.session.ID(), strings.TrimRight(line, "\r\n"))

	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}

	return c.writer.Flush()
}

// answer records the reply of the current command and writes it.
func (c *conn) answer(code reply.Code, msg string) error {
	c.session.SetReplyCode(code, msg)
	return c.reply(code, msg)
}

func (c *conn) upgradeToTLS() error {
	log.Debugf("%s: Upgrading connection to TLS", c.session.ID())

	c.wm.Lock()
	defer c.wm.Unlock()

	tlsConn := tls.Server(c.rwc, c.server.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}

	c.rwc = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.writer = bufio.NewWriter(tlsConn)
	c.session.SetSsl(true)
	return nil
}

// send delivers an event about this connection.
func (c *conn) send(options ...event.Option) {
	c.wm.Lock()
	remote, local := c.rwc.RemoteAddr(), c.rwc.LocalAddr()
	c.wm.Unlock()

	c.server.bus.Send(event.New(
		event.Category(event.CategoryFTP),
		event.SourceAddr(remote),
		event.DestinationAddr(local),
		event.SessionID(c.session.ID()),
		event.NewWith(options...),
	))
}
