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
// Package dataconn opens the data connections of a session, in active or
// passive mode, and exchanges file blocks over them.
package dataconn

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/honeytrap/ftpd/address"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("ftpd/dataconn")

// Socket is used to send non-control data between the client and the
// server.
type Socket interface {
	Host() string
	Port() int

	// Open returns the established connection, waiting at most timeout.
	Open(timeout time.Duration) (net.Conn, error)

	Close() error
}

type activeSocket struct {
	remote    address.Endpoint
	sessionid string
}

func newActiveSocket(remote address.Endpoint, sessionid string) Socket {
	return &activeSocket{remote: remote, sessionid: sessionid}
}

func (socket *activeSocket) Host() string {
	return socket.remote.IP.String()
}

func (socket *activeSocket) Port() int {
	return socket.remote.Port
}

func (socket *activeSocket) Open(timeout time.Duration) (net.Conn, error) {
	log.Debugf("%s - Opening active data connection to %s", socket.sessionid, socket.remote)

	conn, err := net.DialTimeout("tcp", socket.remote.String(), timeout)
	if err != nil {
		log.Debugf("%s: %s", socket.sessionid, err.Error())
		return nil, err
	}

	return conn, nil
}

func (socket *activeSocket) Close() error {
	return nil
}

type passiveSocket struct {
	listener  *net.TCPListener
	host      string
	port      int
	sessionid string

	wg   sync.WaitGroup
	err  error

	m    sync.Mutex
	conn net.Conn
}

func newPassiveSocket(ip net.IP, ports *PortRange, sessionid string) (*passiveSocket, error) {
	listener, err := ports.listen(ip)
	if err != nil {
		log.Debugf("%s: %s", sessionid, err.Error())
		return nil, err
	}

	socket := &passiveSocket{
		listener:  listener,
		host:      ip.String(),
		port:      listener.Addr().(*net.TCPAddr).Port,
		sessionid: sessionid,
	}

	socket.wg.Add(1)

	go func() {
		defer socket.wg.Done()

		conn, err := listener.Accept()
		if err != nil {
			socket.err = err
			return
		}

		log.Debugf("%s - Accepted passive data connection from %s", sessionid, conn.RemoteAddr())

		socket.m.Lock()
		socket.conn = conn
		socket.m.Unlock()
	}()

	return socket, nil
}

func (socket *passiveSocket) Host() string {
	return socket.host
}

func (socket *passiveSocket) Port() int {
	return socket.port
}

func (socket *passiveSocket) Open(timeout time.Duration) (net.Conn, error) {
	socket.listener.SetDeadline(time.Now().Add(timeout))
	socket.wg.Wait()

	// one connection per PASV
	socket.listener.Close()

	if socket.err != nil {
		return nil, errors.Wrap(socket.err, "dataconn: accepting passive connection")
	}

	socket.m.Lock()
	defer socket.m.Unlock()

	conn := socket.conn
	socket.conn = nil

	if conn == nil {
		return nil, errors.New("dataconn: passive socket closed")
	}

	return conn, nil
}

// Close stops listening and closes an accepted connection nobody opened.
func (socket *passiveSocket) Close() error {
	err := socket.listener.Close()
	socket.wg.Wait()

	socket.m.Lock()
	defer socket.m.Unlock()

	if socket.conn != nil {
		socket.conn.Close()
		socket.conn = nil
	}

	return err
}

// PortRange is the range passive connections listen on. The zero value
// lets the system pick a port.
type PortRange struct {
	Min, Max int

	m    sync.Mutex
	next int
}

// ParsePortRange parses "min-max". An empty string is the zero range.
func ParsePortRange(s string) (*PortRange, error) {
	if s == "" {
		return &PortRange{}, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil, errors.Errorf("dataconn: invalid port range %q", s)
	}

	min, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, errors.Errorf("dataconn: invalid port range %q", s)
	}

	max, err := strconv.Atoi(parts[1])
	if err != nil || min < 1 || max > 0xFFFF || min > max {
		return nil, errors.Errorf("dataconn: invalid port range %q", s)
	}

	return &PortRange{Min: min, Max: max}, nil
}

func (r *PortRange) String() string {
	if r.Min == 0 {
		return "any"
	}
	return strconv.Itoa(r.Min) + "-" + strconv.Itoa(r.Max)
}

func (r *PortRange) listen(ip net.IP) (*net.TCPListener, error) {
	if r.Min == 0 {
		return net.ListenTCP("tcp", &net.TCPAddr{IP: ip})
	}

	n := r.Max - r.Min + 1

	r.m.Lock()
	start := r.next
	r.next = (r.next + 1) % n
	r.m.Unlock()

	for i := 0; i < n; i++ {
		port := r.Min + (start+i)%n

		l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: ip, Port: port})
		if err == nil {
			return l, nil
		}
	}

	return nil, errors.Errorf("dataconn: no available ports in range %s", r)
}
