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
package auth

import (
	"testing"

	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/reply"
)

func TestLogin(t *testing.T) {
	table := New(WithUsers(
		User{Name: "alice", Password: "secret"},
		User{Name: "bob", Password: "pw", Account: "acme", NeedAccount: true},
	))

	cases := []struct {
		user, pass, acct string
		identified       bool
	}{
		{"alice", "secret", "", true},
		{"alice", "wrong", "", false},
		{"carol", "secret", "", false},
		{"bob", "pw", "acme", true},
		{"bob", "pw", "other", false},
		{"anonymous", "me@example.org", "", false},
	}

	for _, c := range cases {
		a := table.NewAuth()

		res, err := a.User(c.user)
		if err != nil || res.Next != command.PASS || res.Reply != reply.StatusUserOK {
			t.Fatalf("User(%s) got %+v (%v)", c.user, res, err)
		}

		res, err = a.Password(c.pass)
		if err == nil && res.Next == command.ACCT {
			if res.Reply != reply.StatusLoginNeedAccount {
				t.Errorf("%s: got reply %d", c.user, res.Reply)
			}

			res, err = a.Account(c.acct)
		}

		if (err == nil && res.Identified) != c.identified || a.IsIdentified() != c.identified {
			t.Errorf("%s/%s/%s identified %v (%v), want %v", c.user, c.pass, c.acct, res.Identified, err, c.identified)
		}
	}
}

func TestAnonymous(t *testing.T) {
	a := New(WithAnonymous(true)).NewAuth()

	a.User("anonymous")

	res, err := a.Password("guest@")
	if err != nil || !res.Identified || res.Reply != reply.StatusLoggedIn {
		t.Fatalf("got %+v (%v)", res, err)
	}

	if a.UserName() != "anonymous" {
		t.Errorf("UserName got %s", a.UserName())
	}

	a.Clear()

	if a.IsIdentified() || a.UserName() != "" {
		t.Error("Clear should forget the identity")
	}
}

func TestPasswordFirst(t *testing.T) {
	a := New().NewAuth()

	if _, err := a.Password("secret"); err != ErrNoUser {
		t.Errorf("got %v", err)
	}

	if _, err := a.Account("acme"); err != ErrNoUser {
		t.Errorf("got %v", err)
	}
}
