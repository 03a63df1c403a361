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
	"fmt"
	"io/ioutil"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/honeytrap/ftpd/address"
	"github.com/honeytrap/ftpd/auth"
	"github.com/honeytrap/ftpd/backend/memfs"
	"github.com/honeytrap/ftpd/config"
	"github.com/honeytrap/ftpd/event"
)

const (
	passed = "✓"
	failed = "✗"
)

type recorder struct {
	m      sync.Mutex
	events []event.Event
}

func (r *recorder) Send(e event.Event) {
	r.m.Lock()
	defer r.m.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) find(t string) (event.Event, bool) {
	r.m.Lock()
	defer r.m.Unlock()

	for _, e := range r.events {
		if e.Get("type") == t {
			return e, true
		}
	}

	return event.Event{}, false
}

type testServer struct {
	addr   string
	fs     *memfs.FS
	events *recorder

	cancel context.CancelFunc
	done   chan error
}

func startServer(t *testing.T, options ...func(*Options)) *testServer {
	fs := memfs.New()
	fs.WriteFile("/pub/hello.txt", []byte("hello world"))

	rec := &recorder{}

	s, err := New(
		WithFilesystem(fs),
		WithChannel(rec),
		WithOptions(func(o *Options) {
			o.DataTimeout = config.Delay(5 * time.Second)
			o.Users = []auth.User{
				{Name: "alice", Password: "secret", Account: "acme", NeedAccount: true},
			}

			for _, fn := range options {
				fn(o)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	ts := &testServer{
		addr:   l.Addr().String(),
		fs:     fs,
		events: rec,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	go func() {
		ts.done <- s.Serve(ctx, l)
	}()

	return ts
}

func (ts *testServer) stop(t *testing.T) {
	ts.cancel()

	select {
	case err := <-ts.done:
		if err != nil {
			t.Errorf("Serve returned %s", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("Serve did not return")
	}
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	c := &client{t: t, conn: conn, r: bufio.NewReader(conn)}
	if code, msg := c.read(); code != 220 {
		t.Fatalf("banner got %d %s", code, msg)
	}

	return c
}

// read returns the code and the text of the next reply, joining the lines
// of a multi-line reply.
func (c *client) read() (int, string) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("reading reply: %s", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 {
		c.t.Fatalf("short reply %q", line)
	}

	code, err := strconv.Atoi(line[:3])
	if err != nil {
		c.t.Fatalf("bad reply %q", line)
	}

	text := []string{line[4:]}

	if line[3] == '-' {
		for {
			l, err := c.r.ReadString('\n')
			if err != nil {
				c.t.Fatalf("reading reply: %s", err)
			}

			l = strings.TrimRight(l, "\r\n")
			if strings.HasPrefix(l, line[:3]+" ") {
				text = append(text, l[4:])
				break
			}

			text = append(text, l)
		}
	}

	return code, strings.Join(text, "\n")
}

func (c *client) cmd(format string, args ...interface{}) (int, string) {
	if _, err := fmt.Fprintf(c.conn, format+"\r\n", args...); err != nil {
		c.t.Fatalf("writing command: %s", err)
	}

	return c.read()
}

func (c *client) expect(want int, format string, args ...interface{}) string {
	code, msg := c.cmd(format, args...)
	if code != want {
		c.t.Fatalf("\t%s\t %s: got %d %s, want %d.", failed, fmt.Sprintf(format, args...), code, msg, want)
	}

	return msg
}

func (c *client) login() {
	c.expect(331, "USER alice")
	c.expect(332, "PASS secret")
	c.expect(230, "ACCT acme")
}

// pasv returns a connection to the passive data port.
func (c *client) pasv() net.Conn {
	msg := c.expect(227, "PASV")

	start, end := strings.Index(msg, "("), strings.Index(msg, ")")
	if start < 0 || end < start {
		c.t.Fatalf("bad PASV reply %s", msg)
	}

	e, err := address.ParseLegacy(msg[start+1 : end])
	if err != nil {
		c.t.Fatal(err)
	}

	conn, err := net.DialTCP("tcp", nil, e.TCPAddr())
	if err != nil {
		c.t.Fatal(err)
	}

	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestLoginSequence(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	t.Logf("Given a user needing an account")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		t.Logf("\tWhen RETR follows USER")
		{
			c.expect(331, "USER alice")
			c.expect(503, "RETR /pub/hello.txt")
			t.Logf("\t%s\t Should have rejected the bad sequence.", passed)
		}

		t.Logf("\tWhen the login is completed")
		{
			c.expect(332, "PASS secret")
			c.expect(230, "ACCT acme")
			t.Logf("\t%s\t Should have logged in after ACCT.", passed)
		}

		if _, ok := ts.events.find("FTP:LOGIN"); !ok {
			t.Fatalf("\t%s\t Should have sent a login event.", failed)
		}
		t.Logf("\t%s\t Should have sent a login event.", passed)
	}
}

func TestLoginFailed(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	c := dial(t, ts.addr)
	defer c.conn.Close()

	c.expect(503, "PWD")
	c.expect(200, "NOOP")
	c.expect(530, "PWD")
	c.expect(331, "USER alice")
	c.expect(530, "PASS wrong")

	// back to the connection state
	c.expect(503, "PASS secret")
	c.expect(331, "USER alice")
	c.expect(332, "PASS secret")
	c.expect(530, "ACCT other")

	if _, ok := ts.events.find("FTP:LOGIN:FAILED"); !ok {
		t.Error("expected a failed login event")
	}
}

func TestCommands(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	c := dial(t, ts.addr)
	defer c.conn.Close()

	c.expect(500, "XYZW")
	c.login()

	if msg := c.expect(257, "PWD"); msg != `"/" is the current directory.` {
		t.Errorf("PWD got %s", msg)
	}

	c.expect(250, "CWD pub")
	c.expect(550, "CWD nowhere")
	c.expect(250, "CDUP")

	c.expect(200, "TYPE I")
	c.expect(504, "TYPE X")
	c.expect(504, "MODE C")
	c.expect(200, "MODE S")
	c.expect(504, "STRU R")

	if msg := c.expect(213, "SIZE /pub/hello.txt"); msg != "23" {
		t.Errorf("SIZE got %s", msg)
	}

	c.expect(257, "MKD /incoming")
	c.expect(350, "RNFR /incoming")
	c.expect(503, "DELE /pub/hello.txt")
	c.expect(250, "RNTO /upload")
	c.expect(250, "RMD /upload")

	c.expect(501, "REST -1")
	c.expect(350, "REST 5")
	c.expect(503, "PWD")
	c.expect(200, "NOOP")

	if msg := c.expect(211, "FEAT"); !strings.Contains(msg, "EPSV") {
		t.Errorf("FEAT got %s", msg)
	}

	c.expect(534, "AUTH TLS")
	c.expect(502, "LIST")
	c.expect(221, "QUIT")
}

func TestRetrieve(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	t.Logf("Given a logged in session")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		c.login()
		c.expect(200, "TYPE I")

		t.Logf("\tWhen a file is retrieved over a passive connection")
		{
			data := c.pasv()
			defer data.Close()

			c.expect(150, "RETR /pub/hello.txt")

			b, err := ioutil.ReadAll(data)
			if err != nil {
				t.Fatal(err)
			}

			if string(b) != "hello world" {
				t.Fatalf("\t%s\t Should have received the file, got %q.", failed, b)
			}
			t.Logf("\t%s\t Should have received the file.", passed)

			if code, msg := c.read(); code != 226 {
				t.Fatalf("\t%s\t Should have completed the transfer, got %d %s.", failed, code, msg)
			}
			t.Logf("\t%s\t Should have completed the transfer.", passed)
		}

		t.Logf("\tWhen a restart marker is set")
		{
			data := c.pasv()
			defer data.Close()

			c.expect(350, "REST 6")
			c.expect(150, "RETR /pub/hello.txt")

			b, _ := ioutil.ReadAll(data)
			if string(b) != "world" {
				t.Fatalf("\t%s\t Should have resumed at the marker, got %q.", failed, b)
			}

			c.read()
			t.Logf("\t%s\t Should have resumed at the marker.", passed)
		}

		c.expect(221, "QUIT")

		e, ok := ts.events.find("FTP:TRANSFER:COMPLETED")
		if !ok {
			t.Fatalf("\t%s\t Should have sent a transfer event.", failed)
		}

		if v := e.Transferred(); v != 11 {
			t.Fatalf("\t%s\t Should have counted 11 bytes, got %v.", failed, v)
		}
		t.Logf("\t%s\t Should have sent a transfer event.", passed)
	}
}

func TestRestartAfterSequenceError(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	t.Logf("Given a session with a restart marker set")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		c.login()
		c.expect(200, "TYPE I")

		data := c.pasv()
		defer data.Close()

		c.expect(350, "REST 6")

		t.Logf("\tWhen a command arrives out of sequence")
		{
			c.expect(503, "PWD")
			c.expect(150, "RETR /pub/hello.txt")

			b, err := ioutil.ReadAll(data)
			if err != nil {
				t.Fatal(err)
			}

			if string(b) != "world" {
				t.Fatalf("\t%s\t Should have kept the restart marker, got %q.", failed, b)
			}

			if code, msg := c.read(); code != 226 {
				t.Fatalf("\t%s\t Should have completed the transfer, got %d %s.", failed, code, msg)
			}
			t.Logf("\t%s\t Should have kept the restart marker.", passed)
		}

		c.expect(221, "QUIT")
	}
}

func TestIdleTimeout(t *testing.T) {
	ts := startServer(t, func(o *Options) {
		o.IdleTimeout = config.Delay(300 * time.Millisecond)
		o.RateLimit = config.Size(64 * 1024)
	})
	defer ts.stop(t)

	content := []byte(strings.Repeat("0123456789abcdef", 12*1024))
	ts.fs.WriteFile("/pub/large.bin", content)

	t.Logf("Given a server with an idle timeout shorter than a transfer")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		c.login()
		c.expect(200, "TYPE I")

		t.Logf("\tWhen a rate limited transfer outlasts the idle timeout")
		{
			data := c.pasv()
			defer data.Close()

			c.expect(150, "RETR /pub/large.bin")

			b, err := ioutil.ReadAll(data)
			if err != nil {
				t.Fatal(err)
			}

			if len(b) != len(content) {
				t.Fatalf("\t%s\t Should have received %d bytes, got %d.", failed, len(content), len(b))
			}

			if code, msg := c.read(); code != 226 {
				t.Fatalf("\t%s\t Should have kept the control connection, got %d %s.", failed, code, msg)
			}
			t.Logf("\t%s\t Should have kept the control connection.", passed)

			c.expect(221, "QUIT")
		}

		t.Logf("\tWhen the session stays idle")
		{
			i := dial(t, ts.addr)
			defer i.conn.Close()

			if code, _ := i.read(); code != 421 {
				t.Fatalf("\t%s\t Should have closed the idle connection, got %d.", failed, code)
			}
			t.Logf("\t%s\t Should have closed the idle connection.", passed)
		}
	}
}

func TestStore(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	c := dial(t, ts.addr)
	defer c.conn.Close()

	c.login()
	c.expect(200, "TYPE I")

	data := c.pasv()
	c.expect(150, "STOR /pub/upload.bin")

	if _, err := data.Write([]byte("uploaded content")); err != nil {
		t.Fatal(err)
	}
	data.Close()

	if code, msg := c.read(); code != 226 {
		t.Fatalf("STOR got %d %s", code, msg)
	}

	b, ok := ts.fs.ReadFile("/pub/upload.bin")
	if !ok || string(b) != "uploaded content" {
		t.Errorf("stored %q", b)
	}

	data = c.pasv()
	c.expect(150, "APPE /pub/upload.bin")
	data.Write([]byte(" appended"))
	data.Close()
	c.read()

	if b, _ := ts.fs.ReadFile("/pub/upload.bin"); string(b) != "uploaded content appended" {
		t.Errorf("appended %q", b)
	}

	c.expect(221, "QUIT")
}

func TestAbort(t *testing.T) {
	ts := startServer(t)
	defer ts.stop(t)

	t.Logf("Given a transfer waiting for its data connection")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		c.login()
		c.expect(227, "PASV")
		c.expect(150, "RETR /pub/hello.txt")

		t.Logf("\tWhen a command other than ABOR arrives")
		{
			c.expect(503, "PWD")
			t.Logf("\t%s\t Should have rejected it.", passed)
		}

		t.Logf("\tWhen ABOR arrives")
		{
			if code, msg := c.cmd("ABOR"); code != 426 {
				t.Fatalf("\t%s\t Should have aborted the transfer, got %d %s.", failed, code, msg)
			}

			if code, msg := c.read(); code != 226 {
				t.Fatalf("\t%s\t Should have answered ABOR, got %d %s.", failed, code, msg)
			}
			t.Logf("\t%s\t Should have answered 426 then 226.", passed)
		}

		c.expect(257, "PWD")
		c.expect(221, "QUIT")
	}
}

func TestShutdown(t *testing.T) {
	ts := startServer(t)

	t.Logf("Given an open session")
	{
		c := dial(t, ts.addr)
		defer c.conn.Close()

		c.expect(200, "NOOP")

		t.Logf("\tWhen the server shuts down")
		{
			ts.stop(t)

			if code, msg := c.read(); code != 421 {
				t.Fatalf("\t%s\t Should have sent 421, got %d %s.", failed, code, msg)
			}
			t.Logf("\t%s\t Should have sent 421.", passed)
		}
	}
}
