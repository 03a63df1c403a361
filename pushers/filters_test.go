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
package pushers

import (
	"sync"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/ftpd/event"
)

const (
	passed = "✓"
	failed = "✗"
)

type recorder struct {
	m      sync.Mutex
	events []event.Event

	Prefix string `toml:"prefix"`
}

func (r *recorder) Send(e event.Event) {
	r.m.Lock()
	defer r.m.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.m.Lock()
	defer r.m.Unlock()

	return len(r.events)
}

var (
	login = event.New(
		event.Category(event.CategoryFTP),
		event.LoginSucceeded,
	)

	started = event.New(
		event.Category(event.CategoryTransfer),
		event.TransferStarted,
	)

	completed = event.New(
		event.Category(event.CategoryTransfer),
		event.TransferCompleted,
	)

	deleted = event.New(
		event.Category(event.CategoryFTP),
		event.CommandAccepted,
		event.Command("dele /pub/hello.txt"),
		event.User("alice"),
	)

	listed = event.New(
		event.Category(event.CategoryFTP),
		event.CommandAccepted,
		event.Command("LIST /pub"),
		event.User("bob"),
	)
)

func filter(t *testing.T, field string, expressions ...string) FilterFunc {
	fn, err := MatchField(field, expressions)
	if err != nil {
		t.Fatal(err)
	}

	return fn
}

func TestRegExpFilter(t *testing.T) {
	t.Logf("Given the need to filter giving messages based on message fields")
	{
		t.Logf("\tWhen filtering is based on the 'category' field")
		{
			r := &recorder{}
			c := FilterChannel(r, filter(t, "category", "^transfer$"))

			for _, e := range []event.Event{login, started, completed} {
				c.Send(e)
			}

			if r.count() != 2 {
				t.Fatalf("\t%s\t Should have filtered all but two messages: %d.", failed, r.count())
			}
			t.Logf("\t%s\t Should have filtered all but two messages.", passed)
		}

		t.Logf("\tWhen filtering matches any of several expressions")
		{
			r := &recorder{}
			c := FilterChannel(r, filter(t, "type", "LOGIN", "COMPLETED$"))

			for _, e := range []event.Event{login, started, completed} {
				c.Send(e)
			}

			if r.count() != 2 {
				t.Fatalf("\t%s\t Should have accepted two messages: %d.", failed, r.count())
			}
			t.Logf("\t%s\t Should have accepted two messages.", passed)
		}

		t.Logf("\tWhen an expression does not compile")
		{
			if _, err := MatchField("type", []string{"(LOGIN"}); err == nil {
				t.Fatalf("\t%s\t Should have returned an error.", failed)
			}
			t.Logf("\t%s\t Should have returned an error.", passed)
		}
	}
}

func TestCommandFilter(t *testing.T) {
	t.Logf("Given the need to audit some commands")
	{
		t.Logf("\tWhen filtering on command verbs")
		{
			r := &recorder{}
			c := FilterChannel(r, MatchCommands([]string{"DELE", "rnfr"}))

			for _, e := range []event.Event{login, completed, deleted, listed} {
				c.Send(e)
			}

			if r.count() != 1 || r.events[0].Verb() != "DELE" {
				t.Fatalf("\t%s\t Should have accepted the DELE command only: %d.", failed, r.count())
			}
			t.Logf("\t%s\t Should have accepted the DELE command only.", passed)
		}

		t.Logf("\tWhen filtering on users and categories together")
		{
			r := &recorder{}
			c := FilterChannel(r, MatchUsers([]string{"bob"}), filter(t, "category", "ftp"))

			for _, e := range []event.Event{login, completed, deleted, listed} {
				c.Send(e)
			}

			if r.count() != 1 || r.events[0].UserName() != "bob" {
				t.Fatalf("\t%s\t Should have accepted the events of bob only: %d.", failed, r.count())
			}
			t.Logf("\t%s\t Should have accepted the events of bob only.", passed)
		}
	}
}

func TestFromConfig(t *testing.T) {
	created := map[string]*recorder{}

	Register("recorder", func(options ...func(Channel) error) (Channel, error) {
		r := &recorder{}
		for _, fn := range options {
			if err := fn(r); err != nil {
				return nil, err
			}
		}
		created[r.Prefix] = r
		return r, nil
	})

	conf := struct {
		Channels map[string]toml.Primitive `toml:"channel"`
		Filters  []toml.Primitive          `toml:"filter"`
	}{}

	md, err := toml.Decode(`
[channel.history]
type = "recorder"
prefix = "ftp"

[channel.audit]
type = "recorder"
prefix = "audit"

[[filter]]
channel = ["history"]
categories = ["transfer"]

[[filter]]
channel = ["audit"]
commands = ["DELE"]
`, &conf)
	if err != nil {
		t.Fatal(err)
	}

	bus := NewBus()
	if err := FromConfig(md, conf.Channels, conf.Filters, bus); err != nil {
		t.Fatal(err)
	}

	history, audit := created["ftp"], created["audit"]
	if history == nil || audit == nil {
		t.Fatalf("channels not configured: %+v", created)
	}

	for _, e := range []event.Event{login, started, completed, deleted, listed} {
		bus.Send(e)
	}

	if history.count() != 2 {
		t.Errorf("history got %d events, want 2", history.count())
	}

	if audit.count() != 1 {
		t.Errorf("audit got %d events, want 1", audit.count())
	}

	invalid := struct {
		Channels map[string]toml.Primitive `toml:"channel"`
		Filters  []toml.Primitive          `toml:"filter"`
	}{}

	md, err = toml.Decode(`
[channel.history]
type = "recorder"

[[filter]]
channel = ["history"]
types = ["(FTP"]
`, &invalid)
	if err != nil {
		t.Fatal(err)
	}

	if err := FromConfig(md, invalid.Channels, invalid.Filters, NewBus()); err == nil {
		t.Error("invalid expression should fail")
	}

	broken := struct {
		Channels map[string]toml.Primitive `toml:"channel"`
	}{}

	md, err = toml.Decode(`
[channel.broken]
type = "nonexistent"
`, &broken)
	if err != nil {
		t.Fatal(err)
	}

	if err := FromConfig(md, broken.Channels, nil, NewBus()); err == nil {
		t.Error("unknown channel type should fail")
	}
}
