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
	"bytes"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/honeytrap/ftpd/address"
	"github.com/honeytrap/ftpd/argument"
	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/session"
	"golang.org/x/text/transform"
)

func params(t argument.TransferType, m argument.TransferMode) session.DataParams {
	return session.DataParams{Type: t, Mode: m, Structure: argument.FILE}
}

func TestTransformers(t *testing.T) {
	cases := []struct {
		t    transform.Transformer
		in   string
		want string
	}{
		{&toCRLF{}, "a\nb\r\nc", "a\r\nb\r\nc"},
		{&toCRLF{}, "\n\n", "\r\n\r\n"},
		{fromCRLF{}, "a\r\nb\rc\r", "a\nb\rc\r"},
		{fromCRLF{}, "\r\n\r\n", "\n\n"},
	}

	for _, c := range cases {
		got, _, err := transform.String(c.t, c.in)
		if err != nil || got != c.want {
			t.Errorf("transform of %q got %q (%v)", c.in, got, err)
		}
	}
}

// roundTrip writes blocks on one end of a pipe and returns what is read on
// the other end with the same parameters.
func roundTrip(t *testing.T, p session.DataParams, blocks ...*backend.Block) string {
	server, client := net.Pipe()

	sender := NewChannel(server, p, 4, nil)
	receiver := NewChannel(client, p, 4, nil)

	go func() {
		for _, b := range blocks {
			if err := <-sender.WriteBlock(b); err != nil {
				t.Errorf("WriteBlock: %s", err)
				break
			}
		}
		sender.Close()
	}()

	buf := &bytes.Buffer{}

	for {
		b, err := receiver.ReadBlock()
		if err != nil {
			t.Fatal(err)
		}

		buf.Write(b.Data)

		if b.EOF {
			break
		}
	}

	receiver.Close()
	return buf.String()
}

func TestChannelModes(t *testing.T) {
	content := "first line\nsecond line\nthird\n"

	for _, p := range []session.DataParams{
		params(argument.IMAGE, argument.STREAM),
		params(argument.ASCII, argument.STREAM),
		params(argument.ASCII, argument.BLOCK),
		params(argument.IMAGE, argument.ZLIB),
		params(argument.EBCDIC, argument.STREAM),
	} {
		got := roundTrip(t, p,
			&backend.Block{Data: []byte(content[:10])},
			&backend.Block{Data: []byte(content[10:]), EOF: true},
		)

		if got != content {
			t.Errorf("%s %s got %q", p.Type, p.Mode, got)
		}
	}
}

func TestChannelWithoutEOFBlock(t *testing.T) {
	got := roundTrip(t, params(argument.IMAGE, argument.BLOCK), &backend.Block{Data: []byte("data")})
	if got != "data" {
		t.Errorf("got %q", got)
	}
}

func wire(t *testing.T, p session.DataParams, blocks ...*backend.Block) []byte {
	server, client := net.Pipe()

	sender := NewChannel(server, p, 4, nil)

	go func() {
		for _, b := range blocks {
			<-sender.WriteBlock(b)
		}
		sender.Close()
	}()

	data, err := ioutil.ReadAll(client)
	if err != nil {
		t.Fatal(err)
	}

	return data
}

func TestWireFormat(t *testing.T) {
	got := wire(t, params(argument.IMAGE, argument.BLOCK), &backend.Block{Data: []byte("abc"), EOF: true})
	if want := []byte{0, 0, 3, 'a', 'b', 'c', descEOF, 0, 0}; !bytes.Equal(got, want) {
		t.Errorf("block mode got %v, want %v", got, want)
	}

	got = wire(t, params(argument.ASCII, argument.STREAM), &backend.Block{Data: []byte("a\nb\n"), EOF: true})
	if string(got) != "a\r\nb\r\n" {
		t.Errorf("ascii got %q", got)
	}

	got = wire(t, params(argument.EBCDIC, argument.STREAM), &backend.Block{Data: []byte("A1"), EOF: true})
	if !bytes.Equal(got, []byte{0xC1, 0xF1}) {
		t.Errorf("ebcdic got %x", got)
	}
}

func TestWriteAfterEOF(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go ioutil.ReadAll(client)

	ch := NewChannel(server, params(argument.IMAGE, argument.STREAM), 4, nil)

	if err := <-ch.WriteBlock(&backend.Block{Data: []byte("x"), EOF: true}); err != nil {
		t.Fatal(err)
	}

	if err := <-ch.WriteBlock(&backend.Block{Data: []byte("y")}); err == nil {
		t.Error("write after the EOF block should fail")
	}

	ch.Close()
}

func TestPassive(t *testing.T) {
	c := New("test", &Config{Timeout: time.Second})

	e, err := c.SetPassive(net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatal(err)
	}

	if !c.IsPassive() || e.Port == 0 {
		t.Fatalf("got %s", e)
	}

	go func() {
		conn, err := net.Dial("tcp", e.String())
		if err != nil {
			t.Error(err)
			return
		}

		conn.Write([]byte("hello"))
		conn.Close()
	}()

	ch, err := c.Open(params(argument.IMAGE, argument.STREAM), 64, false)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	b, err := ch.ReadBlock()
	if err != nil || string(b.Data) != "hello" || !b.EOF {
		t.Errorf("got %v (%v)", b, err)
	}

	if c.IsPassive() {
		t.Error("passive socket should be used once")
	}

	if _, err := c.Open(params(argument.IMAGE, argument.STREAM), 64, false); err != ErrNoDataAddress {
		t.Errorf("second Open got %v", err)
	}
}

func TestPassiveReplaced(t *testing.T) {
	c := New("test", &Config{Timeout: time.Second})

	e, err := c.SetPassive(net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatal(err)
	}

	conn, err := net.Dial("tcp", e.String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// give the listener time to accept
	time.Sleep(50 * time.Millisecond)

	if _, err := c.SetPassive(net.ParseIP("127.0.0.1")); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))

	if b, err := ioutil.ReadAll(conn); err != nil || len(b) != 0 {
		t.Errorf("accepted connection should have been closed, got %q (%v)", b, err)
	}
}

func TestPassiveTimeout(t *testing.T) {
	c := New("test", &Config{Timeout: 50 * time.Millisecond, PublicIP: net.ParseIP("192.0.2.1")})

	e, err := c.SetPassive(net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatal(err)
	}

	if !e.IP.Equal(net.ParseIP("192.0.2.1")) {
		t.Errorf("public ip not announced: %s", e)
	}

	if _, err := c.Open(params(argument.IMAGE, argument.STREAM), 64, false); err == nil {
		t.Error("Open without client should time out")
	}
}

func TestActive(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	received := make(chan string, 1)

	go func() {
		conn, err := l.Accept()
		if err != nil {
			received <- err.Error()
			return
		}

		data, _ := ioutil.ReadAll(conn)
		received <- string(data)
	}()

	e, _ := address.FromAddr(l.Addr())

	c := New("test", &Config{})
	c.SetActive(e)

	ch, err := c.Open(params(argument.IMAGE, argument.STREAM), 64, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := <-ch.WriteBlock(&backend.Block{Data: []byte("payload"), EOF: true}); err != nil {
		t.Fatal(err)
	}
	ch.Close()

	if got := <-received; got != "payload" {
		t.Errorf("got %q", got)
	}

	if _, err := c.Open(params(argument.IMAGE, argument.STREAM), 64, true); err == nil {
		t.Error("secure Open without TLS config should fail")
	}
}

func TestParsePortRange(t *testing.T) {
	cases := []struct {
		in    string
		min   int
		max   int
		valid bool
	}{
		{"", 0, 0, true},
		{"2000-2010", 2000, 2010, true},
		{"2000-2000", 2000, 2000, true},
		{"2010-2000", 0, 0, false},
		{"0-10", 0, 0, false},
		{"2000", 0, 0, false},
		{"a-b", 0, 0, false},
		{"1-70000", 0, 0, false},
	}

	for _, c := range cases {
		r, err := ParsePortRange(c.in)
		if (err == nil) != c.valid {
			t.Errorf("ParsePortRange(%q) error %v", c.in, err)
			continue
		}

		if c.valid && (r.Min != c.min || r.Max != c.max) {
			t.Errorf("ParsePortRange(%q) got %d-%d", c.in, r.Min, r.Max)
		}
	}
}

func TestRateLimit(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Error("zero rate should not limit")
	}

	w := limitWriter(ioutil.Discard, NewLimiter(1000))

	start := time.Now()
	if n, err := w.Write(make([]byte, 1500)); n != 1500 || err != nil {
		t.Fatalf("got %d (%v)", n, err)
	}

	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("1500 bytes at 1000 B/s took %s", elapsed)
	}
}
