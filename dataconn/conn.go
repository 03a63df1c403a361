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
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/honeytrap/ftpd/address"
	"github.com/honeytrap/ftpd/session"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds connecting and accepting data connections.
const DefaultTimeout = 30 * time.Second

// ErrNoDataAddress is returned by Open before PORT, EPRT, PASV or EPSV.
var ErrNoDataAddress = errors.New("dataconn: use PORT or PASV first")

// Config is shared by the data connections of all sessions.
type Config struct {
	Ports *PortRange

	// PublicIP is announced in PASV replies instead of the local address.
	PublicIP net.IP

	Timeout   time.Duration
	RateLimit int

	TLS *tls.Config
}

// Conn is the data connection state of a session.
type Conn struct {
	config    *Config
	sessionid string

	m       sync.Mutex
	socket  Socket
	opening Socket
	passive bool
	limiter *rate.Limiter
}

func New(sessionid string, config *Config) *Conn {
	if config.Ports == nil {
		config.Ports = &PortRange{}
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Conn{
		config:    config,
		sessionid: sessionid,
		limiter:   NewLimiter(config.RateLimit),
	}
}

// IsPassive returns true after PASV or EPSV.
func (c *Conn) IsPassive() bool {
	c.m.Lock()
	defer c.m.Unlock()

	return c.passive
}

// SetActive makes the next transfers connect to remote.
func (c *Conn) SetActive(remote address.Endpoint) {
	c.Close()

	c.m.Lock()
	defer c.m.Unlock()

	c.socket = newActiveSocket(remote, c.sessionid)
	c.passive = false
}

// SetPassive listens for the next transfer on local and returns the
// endpoint to announce to the client.
func (c *Conn) SetPassive(local net.IP) (address.Endpoint, error) {
	c.Close()

	socket, err := newPassiveSocket(local, c.config.Ports, c.sessionid)
	if err != nil {
		return address.Endpoint{}, err
	}

	c.m.Lock()
	c.socket = socket
	c.passive = true
	c.m.Unlock()

	ip := local
	if c.config.PublicIP != nil {
		ip = c.config.PublicIP
	}

	return address.Endpoint{IP: ip, Port: socket.Port()}, nil
}

// Open establishes the data connection. With secure set the connection is
// protected with TLS.
func (c *Conn) Open(p session.DataParams, blockSize int, secure bool) (*Channel, error) {
	if secure && c.config.TLS == nil {
		return nil, errors.New("dataconn: TLS is not configured")
	}

	c.m.Lock()
	socket := c.socket
	if socket == nil {
		c.m.Unlock()
		return nil, ErrNoDataAddress
	}

	// one connection per PASV
	if c.passive {
		c.socket = nil
		c.passive = false
	}

	c.opening = socket
	c.m.Unlock()

	conn, err := socket.Open(c.config.Timeout)

	c.m.Lock()
	c.opening = nil
	c.m.Unlock()

	if err != nil {
		return nil, err
	}

	if secure {
		conn = tls.Server(conn, c.config.TLS)
	}

	return NewChannel(conn, p, blockSize, c.limiter), nil
}

// Close stops listening for a passive connection, including one a
// transfer is waiting on.
func (c *Conn) Close() error {
	c.m.Lock()
	defer c.m.Unlock()

	var err error

	if c.opening != nil {
		err = c.opening.Close()
	}

	if c.socket != nil {
		if cerr := c.socket.Close(); cerr != nil {
			err = cerr
		}
	}

	c.socket = nil
	c.passive = false
	return err
}
