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
// Package address encodes and decodes data connection endpoints, in the
// legacy PORT/PASV form (RFC 959) and in the extended EPRT/EPSV form
// (RFC 2428).
package address

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("ftpd/address")

var (
	// ErrInvalid is returned for a malformed address argument.
	ErrInvalid = errors.New("address: invalid data address")

	// ErrProtocol is returned for an extended address family other than
	// 1 (IPv4) or 2 (IPv6).
	ErrProtocol = errors.New("address: network protocol not supported")
)

// used to resolve host names of extended addresses
var lookupIP = net.LookupIP

// Endpoint is the address and port of a data connection.
type Endpoint struct {
	IP   net.IP
	Port int
}

// FromAddr converts a TCP address into an endpoint.
func FromAddr(addr net.Addr) (Endpoint, bool) {
	ta, ok := addr.(*net.TCPAddr)
	if !ok {
		return Endpoint{}, false
	}

	return Endpoint{IP: ta.IP, Port: ta.Port}, true
}

// TCPAddr returns the endpoint as dialable address.
func (e Endpoint) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: e.IP, Port: e.Port}
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(e.Port))
}

// Equal reports whether both endpoints designate the same address and port.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.Port == o.Port && e.IP.Equal(o.IP)
}

// ParseLegacy decodes h1,h2,h3,h4,p1,p2.
func ParseLegacy(arg string) (Endpoint, error) {
	elements := strings.Split(arg, ",")
	if len(elements) != 6 {
		return Endpoint{}, ErrInvalid
	}

	var values [6]int

	for i, s := range elements {
		if !isDigits(s) {
			return Endpoint{}, ErrInvalid
		}

		v, err := strconv.Atoi(s)
		if err != nil || v > 255 {
			return Endpoint{}, ErrInvalid
		}

		values[i] = v
	}

	return Endpoint{
		IP:   net.IPv4(byte(values[0]), byte(values[1]), byte(values[2]), byte(values[3])),
		Port: values[4]<<8 | values[5],
	}, nil
}

// EncodeLegacy renders e as h1,h2,h3,h4,p1,p2. Only IPv4 endpoints can be
// represented.
func EncodeLegacy(e Endpoint) (string, error) {
	ip := e.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("address: %s is not an IPv4 address", e.IP)
	}

	if e.Port < 0 || e.Port > 0xFFFF {
		return "", ErrInvalid
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], e.Port>>8, e.Port&0xFF), nil
}

// ParseExtended decodes <d>AF<d>HOST<d>PORT<d>. The delimiter is the first
// character of arg, unless arg starts with a digit in which case the
// leading delimiter is absent and | is assumed.
func ParseExtended(arg string) (Endpoint, error) {
	if arg == "" {
		return Endpoint{}, ErrInvalid
	}

	delim := arg[:1]
	if arg[0] >= '0' && arg[0] <= '9' {
		delim = "|"
	}

	infos := strings.Split(arg, delim)
	for len(infos) > 0 && infos[len(infos)-1] == "" {
		infos = infos[:len(infos)-1]
	}

	if len(infos) != 3 && len(infos) != 4 {
		log.Debugf("Bad extended address format: %d fields", len(infos))
		return Endpoint{}, ErrInvalid
	}

	start := 0
	if len(infos) == 4 {
		start = 1
	}

	switch infos[start] {
	case "1", "2":
	default:
		log.Debugf("Bad address family in extended address: %s", infos[start])
		return Endpoint{}, ErrProtocol
	}

	ip, err := resolve(infos[start+1])
	if err != nil {
		log.Debugf("Bad host in extended address: %s", err.Error())
		return Endpoint{}, ErrInvalid
	}

	if !isDigits(infos[start+2]) {
		return Endpoint{}, ErrInvalid
	}

	port, err := strconv.Atoi(infos[start+2])
	if err != nil || port > 0xFFFF {
		return Endpoint{}, ErrInvalid
	}

	return Endpoint{IP: ip, Port: port}, nil
}

// isDigits reports whether s is a non-empty run of decimal digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func resolve(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	if host == "" {
		return nil, ErrInvalid
	}

	ips, err := lookupIP(host)
	if err != nil {
		return nil, err
	}

	if len(ips) == 0 {
		return nil, ErrInvalid
	}

	return ips[0], nil
}

// EncodeExtended renders e as |AF|HOST|PORT|.
func EncodeExtended(e Endpoint) string {
	host := e.IP.String()

	af := '1'
	if strings.Contains(host, ":") {
		af = '2'
	}

	return fmt.Sprintf("|%c|%s|%d|", af, host, e.Port)
}
